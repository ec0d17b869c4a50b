package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/mcfradar/internal/model"
)

// Limiter enforces a minimum delay between requests sharing the same key.
type Limiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: upstream name
	minDelay time.Duration
}

// NewLimiter creates a rate limiter that enforces minDelay between
// consecutive requests with the same key.
func NewLimiter(minDelay time.Duration) *Limiter {
	return &Limiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request for key.
// Returns an error if the context is cancelled while waiting.
func (r *Limiter) Wait(ctx context.Context, key string) error {
	r.mu.Lock()
	last, ok := r.lastCall[key]
	now := time.Now()

	if !ok {
		// First request for this key, no wait needed.
		r.lastCall[key] = now
		r.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= r.minDelay {
		// Enough time has passed, proceed immediately.
		r.lastCall[key] = now
		r.mu.Unlock()
		return nil
	}

	// Need to wait for the remainder.
	remaining := r.minDelay - elapsed
	r.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", key, ctx.Err())
	case <-time.After(remaining):
	}

	// Record the actual time after waiting.
	r.mu.Lock()
	r.lastCall[key] = time.Now()
	r.mu.Unlock()

	return nil
}

// RateLimitedClient is a decorator that enforces a shared rate limit before
// delegating every listing and detail call to the wrapped JobSource.
type RateLimitedClient struct {
	inner   model.JobSource
	limiter *Limiter
	key     string
}

var _ model.JobSource = (*RateLimitedClient)(nil)

// NewRateLimitedClient wraps a JobSource with rate limiting.
// Every client talking to the same upstream should share the limiter and key.
func NewRateLimitedClient(inner model.JobSource, limiter *Limiter, key string) *RateLimitedClient {
	return &RateLimitedClient{
		inner:   inner,
		limiter: limiter,
		key:     key,
	}
}

// Search waits for the limiter, then delegates.
func (c *RateLimitedClient) Search(ctx context.Context, req model.SearchRequest) (model.SearchResult, error) {
	if err := c.limiter.Wait(ctx, c.key); err != nil {
		return model.SearchResult{}, err
	}
	return c.inner.Search(ctx, req)
}

// GetDetail waits for the limiter, then delegates.
func (c *RateLimitedClient) GetDetail(ctx context.Context, jobUUID string) (map[string]any, error) {
	if err := c.limiter.Wait(ctx, c.key); err != nil {
		return nil, err
	}
	return c.inner.GetDetail(ctx, jobUUID)
}
