package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"
	"golang.org/x/time/rate"
)

// defaultBackoff applies after a 429 from the provider.
const defaultBackoff = 60 * time.Second

// RateLimited spaces out calls to the wrapped client with a token bucket and backs
// off after the provider reports too many requests.
type RateLimited struct {
	inner   Client
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// NewRateLimited wraps inner to allow requestsPerMinute calls. A non-positive rate
// disables limiting and returns inner unchanged.
func NewRateLimited(inner Client, requestsPerMinute int) Client {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Wait blocks until a call is allowed or ctx is done.
func (r *RateLimited) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}
	return r.limiter.Wait(ctx)
}

// Complete waits for a token and calls the wrapped client.
func (r *RateLimited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := r.Wait(ctx); err != nil {
		return "", err
	}
	out, err := r.inner.Complete(ctx, prompt)
	if isTooManyRequests(err) {
		r.mu.Lock()
		r.retryAt = time.Now().Add(defaultBackoff)
		r.mu.Unlock()
	}
	return out, err
}

func isTooManyRequests(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
