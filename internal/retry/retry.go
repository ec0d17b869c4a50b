package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

var _ model.JobSource = (*RetryClient)(nil)

// RetryClient is a decorator that retries transient failures with exponential
// backoff and jitter before delegating to the wrapped JobSource.
type RetryClient struct {
	inner      model.JobSource
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryClient wraps a JobSource with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryClient(inner model.JobSource, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryClient {
	return &RetryClient{
		inner:      inner,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// Search retries the wrapped listing call on transient errors.
func (c *RetryClient) Search(ctx context.Context, req model.SearchRequest) (model.SearchResult, error) {
	return do(ctx, c, "search", func(ctx context.Context) (model.SearchResult, error) {
		return c.inner.Search(ctx, req)
	})
}

// GetDetail retries the wrapped detail call on transient errors.
func (c *RetryClient) GetDetail(ctx context.Context, jobUUID string) (map[string]any, error) {
	return do(ctx, c, "detail", func(ctx context.Context) (map[string]any, error) {
		return c.inner.GetDetail(ctx, jobUUID)
	})
}

func do[T any](ctx context.Context, c *RetryClient, op string, call func(context.Context) (T, error)) (T, error) {
	var zero T

	out, err := call(ctx)
	if err == nil {
		return out, nil
	}
	if !isRetryable(err) {
		return zero, err
	}

	lastErr := err
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		delay := c.backoffDelay(attempt, lastErr)

		c.logger.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", c.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		out, err = call(ctx)
		if err == nil {
			return out, nil
		}
		if !isRetryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// If the error includes a Retry-After duration (HTTP 429), that takes precedence.
func (c *RetryClient) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	// Exponential: baseDelay * 2^(attempt-1)
	delay := c.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)

	return delay
}

// isRetryable returns true if the error represents a transient failure worth retrying.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Context cancellation, never retry.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return true
		}
		if httpErr.StatusCode >= 500 {
			return true
		}
		// 4xx (not 429), not retryable.
		return false
	}

	// Non-HTTP errors (network, DNS, decode), retryable.
	return true
}
