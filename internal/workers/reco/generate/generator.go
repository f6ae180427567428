// internal/workers/reco/generate/generator.go
package recogenerate

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	apperrors "shopping-agent/internal/common/errors"
	httpclient "shopping-agent/internal/common/http"
)

// Generator produces raw recommendations for a goal.
type Generator interface {
	Generate(ctx context.Context, goal string) (*Generation, error)
}

type noRetryKey struct{}

// WithoutRetry marks ctx so GenAIClient makes a single attempt.
func WithoutRetry(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRetryKey{}, true)
}

func retriesDisabled(ctx context.Context) bool {
	v, _ := ctx.Value(noRetryKey{}).(bool)
	return v
}

// GenAIClient calls the GenAI recommendation endpoint with retry and
// exponential backoff. 4xx answers are not retried.
type GenAIClient struct {
	baseURL    string
	apiKey     string
	maxRetries int
	client     *httpclient.Client
}

func NewGenAIClient(config *Config) *GenAIClient {
	return &GenAIClient{
		baseURL:    strings.TrimRight(config.GenAIBaseURL, "/"),
		apiKey:     config.APIKey,
		maxRetries: config.MaxRetries,
		client:     httpclient.NewClient(config.Timeout),
	}
}

func (c *GenAIClient) Generate(ctx context.Context, goal string) (*Generation, error) {
	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
	}
	body := map[string]interface{}{"goal": goal}

	maxRetries := c.maxRetries
	if retriesDisabled(ctx) {
		maxRetries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, apperrors.NewRecommendationTimeoutError()
			}
		}

		var gen Generation
		lastErr = c.client.PostJSON(ctx, c.baseURL+"/api/ai/recommend", headers, body, &gen)
		if lastErr == nil {
			return &gen, nil
		}
		if ctx.Err() != nil || httpclient.IsTimeout(lastErr) {
			return nil, apperrors.NewRecommendationTimeoutError()
		}
		var statusErr *httpclient.StatusError
		if errors.As(lastErr, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
			break
		}
	}
	return nil, apperrors.NewRecommendationFailedError(lastErr)
}
