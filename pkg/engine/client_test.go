package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrastat/landcover-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
}

func TestEvaluate_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/evaluate", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req evaluateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "collection.size", req.Expression.Op)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Result{Kind: KindNumber, Number: 7})
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	res, err := c.Evaluate(context.Background(), Size(LoadCollection("C")))

	require.NoError(t, err)
	assert.Equal(t, KindNumber, res.Kind)
	assert.Equal(t, 7.0, res.Number)
}

func TestEvaluate_RetriesTransient(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(Result{Kind: KindNumber, Number: 1})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(1000, 10), WithRetryConfig(fastRetry()))
	res, err := c.Evaluate(context.Background(), Size(LoadCollection("C")))

	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Number)
	assert.Equal(t, int64(3), calls.Load())
}

func TestEvaluate_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL), WithRateLimit(1000, 10), WithRetryConfig(fastRetry()))
	_, err := c.Evaluate(context.Background(), Size(LoadCollection("C")))

	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())

	// The exhausted error stays transient-tagged and still unwraps to the
	// engine's API error.
	assert.True(t, resilience.IsTransient(err))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
}

func TestEvaluate_APIErrorNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    CodeGeometryTooComplex,
			"message": "too many vertices",
		})
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Evaluate(context.Background(), Dissolve(json.RawMessage(`{}`)))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeGeometryTooComplex, apiErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEvaluate_NilExpression(t *testing.T) {
	c := NewClient("k")
	_, err := c.Evaluate(context.Background(), nil)
	require.Error(t, err)
}

func TestEvaluate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("k", WithBaseURL("http://127.0.0.1:0"))
	_, err := c.Evaluate(ctx, Size(LoadCollection("C")))
	require.Error(t, err)
}
