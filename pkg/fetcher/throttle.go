package fetcher

import (
	"context"
	"sync"
	"time"

	"github.com/narourip/narourip/pkg/remote"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Throttle is the process-wide gate every chapter request passes through.
// It combines a token bucket capping sustained throughput with a shared
// cooldown that a rate-limited batch imposes on every other fetch loop.
type Throttle struct {
	limiter *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time
}

// NewThrottle allows perSecond requests on average with bursts of up to
// burst requests.
func NewThrottle(perSecond float64, burst int) *Throttle {
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(perSecond), max(burst, 1)),
	}
}

// Wait blocks until any cooldown has passed and a token is available.
func (t *Throttle) Wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		remaining := time.Until(t.cooldownUntil)
		t.mu.Unlock()
		if remaining <= 0 {
			break
		}
		if err := remote.Sleep(ctx, remaining); err != nil {
			return err
		}
	}
	return errors.WithStack(t.limiter.Wait(ctx))
}

// Cooldown holds back every caller of Wait for at least d from now.
func (t *Throttle) Cooldown(d time.Duration) {
	until := time.Now().Add(d)
	t.mu.Lock()
	defer t.mu.Unlock()
	if until.After(t.cooldownUntil) {
		t.cooldownUntil = until
	}
}

// Backoff starts a cooldown of d and waits it out.
func (t *Throttle) Backoff(ctx context.Context, d time.Duration) error {
	t.Cooldown(d)
	return remote.Sleep(ctx, d)
}
