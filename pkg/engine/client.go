package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/terrastat/landcover-cli/internal/resilience"
)

// Client defines the raster-engine operations used by the pipeline.
type Client interface {
	// Evaluate submits an expression graph and blocks until the engine
	// returns its materialized result.
	Evaluate(ctx context.Context, expr *Expression) (*Result, error)
}

// Option configures the engine client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps evaluation submissions per second.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetryConfig overrides the retry policy (for testing).
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates an engine client. Evaluations are rate limited and
// retried on transient failures.
func NewClient(apiKey string, opts ...Option) Client {
	retry := resilience.DefaultRetryConfig()
	retry.InitialBackoff = 1 * time.Second
	retry.OnRetry = resilience.RetryLogger("engine", "evaluate")

	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "http://localhost:9090",
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(5, 5),
		retry:   retry,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type evaluateRequest struct {
	Expression *Expression `json:"expression"`
}

func (c *httpClient) Evaluate(ctx context.Context, expr *Expression) (*Result, error) {
	if expr == nil {
		return nil, eris.New("engine: nil expression")
	}

	payload, err := json.Marshal(evaluateRequest{Expression: expr})
	if err != nil {
		return nil, eris.Wrap(err, "engine: marshal expression")
	}

	var result *Result
	err = resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if waitErr := c.limiter.Wait(ctx); waitErr != nil {
			return eris.Wrap(waitErr, "engine: rate limiter wait")
		}

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/evaluate", bytes.NewReader(payload))
		if reqErr != nil {
			return eris.Wrap(reqErr, "engine: create request")
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			return resilience.NewTransientError(eris.Wrap(doErr, "engine: evaluate request"), 0)
		}

		res, apiErr, decodeErr := decodeResponse(resp)
		if decodeErr != nil {
			return decodeErr
		}
		if apiErr != nil {
			if resilience.IsTransientHTTPStatus(apiErr.Status) {
				return resilience.NewTransientError(apiErr, apiErr.Status)
			}
			return apiErr
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// decodeResponse parses a 200 body into a Result, or a non-200 body into an
// APIError carrying the engine's error code.
func decodeResponse(resp *http.Response) (*Result, *APIError, error) {
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return nil, apiErr, nil
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, eris.Wrap(err, "engine: unmarshal result")
	}
	return &result, nil, nil
}
