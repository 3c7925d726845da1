package execution

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Throttled bounds the submission rate of another Gateway with a token bucket.
type Throttled struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewThrottled allows perSecond submissions with a burst of burst. perSecond <= 0 disables the limit.
func NewThrottled(next Gateway, perSecond float64, burst int) *Throttled {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(limit, burst)}
}

// SubmitMarketOrder waits for a token, then delegates.
func (t *Throttled) SubmitMarketOrder(ctx context.Context, order Order) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("throttle: %w", err)
	}
	return t.next.SubmitMarketOrder(ctx, order)
}
