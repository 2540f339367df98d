package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terrastat/landcover-cli/internal/model"
)

// RegionOutcome is the terminal state of one region's pipeline run.
type RegionOutcome struct {
	Region string
	Result *model.RunResult
	Err    error
}

// RunFunc executes the pipeline for one region.
type RunFunc func(ctx context.Context, region model.Region) (*model.RunResult, error)

// Orchestrator schedules one independent task per region on a bounded
// worker pool. Regions share no state, so no ordering is guaranteed between
// their outputs; a failure or timeout in one region never aborts the others.
type Orchestrator struct {
	concurrency   int
	regionTimeout time.Duration
	run           RunFunc
}

// NewOrchestrator creates an Orchestrator. A non-positive concurrency means
// one worker; a zero timeout disables the per-region deadline.
func NewOrchestrator(concurrency int, regionTimeout time.Duration, run RunFunc) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Orchestrator{concurrency: concurrency, regionTimeout: regionTimeout, run: run}
}

// Process runs the pipeline once per region and collects outcomes keyed by
// region name. Cancelling ctx stops pending work; each region's own timeout
// or failure is recorded in its outcome without affecting the rest.
func (o *Orchestrator) Process(ctx context.Context, regions []model.Region) map[string]RegionOutcome {
	if len(regions) == 0 {
		return map[string]RegionOutcome{}
	}

	zap.L().Info("processing regions",
		zap.Int("regions", len(regions)),
		zap.Int("concurrency", o.concurrency),
	)

	var mu sync.Mutex
	outcomes := make(map[string]RegionOutcome, len(regions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, region := range regions {
		g.Go(func() error {
			runCtx := gctx
			var cancel context.CancelFunc
			if o.regionTimeout > 0 {
				runCtx, cancel = context.WithTimeout(gctx, o.regionTimeout)
				defer cancel()
			}

			result, err := o.run(runCtx, region)
			if err != nil {
				zap.L().Error("region failed",
					zap.String("region", region.Name),
					zap.String("kind", ErrorKind(err)),
					zap.Error(err),
				)
			}

			mu.Lock()
			outcomes[region.Name] = RegionOutcome{Region: region.Name, Result: result, Err: err}
			mu.Unlock()
			return nil // region failures never abort the batch
		})
	}

	_ = g.Wait()

	var succeeded, failed int
	for _, oc := range outcomes {
		if oc.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	zap.L().Info("batch complete",
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)

	return outcomes
}
