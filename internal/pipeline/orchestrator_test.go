package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrastat/landcover-cli/internal/model"
)

func namedRegions(names ...string) []model.Region {
	regions := make([]model.Region, len(names))
	for i, n := range names {
		regions[i] = model.Region{Name: n}
	}
	return regions
}

func TestOrchestrator_AllSucceed(t *testing.T) {
	o := NewOrchestrator(2, 0, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		return &model.RunResult{SampleCount: 1}, nil
	})

	outcomes := o.Process(context.Background(), namedRegions("a", "b", "c"))

	require.Len(t, outcomes, 3)
	for name, oc := range outcomes {
		assert.NoError(t, oc.Err, name)
		assert.NotNil(t, oc.Result, name)
	}
}

func TestOrchestrator_FailureIsolation(t *testing.T) {
	o := NewOrchestrator(2, 0, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		if r.Name == "bad" {
			return nil, &NoImageryError{Region: r.Name}
		}
		return &model.RunResult{}, nil
	})

	outcomes := o.Process(context.Background(), namedRegions("a", "bad", "c"))

	require.Len(t, outcomes, 3)
	assert.Error(t, outcomes["bad"].Err)
	assert.NoError(t, outcomes["a"].Err)
	assert.NoError(t, outcomes["c"].Err)
}

func TestOrchestrator_ConcurrencyBound(t *testing.T) {
	var current, peak atomic.Int64
	var mu sync.Mutex

	o := NewOrchestrator(2, 0, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		n := current.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return &model.RunResult{}, nil
	})

	o.Process(context.Background(), namedRegions("a", "b", "c", "d", "e", "f"))

	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestOrchestrator_RegionTimeout(t *testing.T) {
	o := NewOrchestrator(1, 30*time.Millisecond, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Second):
			return &model.RunResult{}, nil
		}
	})

	start := time.Now()
	outcomes := o.Process(context.Background(), namedRegions("slow"))

	require.Len(t, outcomes, 1)
	assert.ErrorIs(t, outcomes["slow"].Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestOrchestrator_TimeoutDoesNotAbortOthers(t *testing.T) {
	o := NewOrchestrator(2, 50*time.Millisecond, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		if r.Name == "slow" {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return &model.RunResult{}, nil
	})

	outcomes := o.Process(context.Background(), namedRegions("slow", "fast"))

	assert.Error(t, outcomes["slow"].Err)
	assert.NoError(t, outcomes["fast"].Err)
}

func TestOrchestrator_CancelStopsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started atomic.Int64
	o := NewOrchestrator(1, 0, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		started.Add(1)
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	})

	outcomes := o.Process(ctx, namedRegions("a", "b", "c"))

	// At least the first region ran and recorded its cancellation.
	assert.GreaterOrEqual(t, len(outcomes), 1)
	assert.GreaterOrEqual(t, started.Load(), int64(1))
}

func TestOrchestrator_EmptyInput(t *testing.T) {
	o := NewOrchestrator(4, 0, func(ctx context.Context, r model.Region) (*model.RunResult, error) {
		t.Fatal("run func should not be called")
		return nil, nil
	})

	outcomes := o.Process(context.Background(), nil)
	assert.Empty(t, outcomes)
}
