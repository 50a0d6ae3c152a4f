// Package pacing spaces out calls to the LLM backend.
package pacing

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next call may start.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Limiter is a token-bucket Pacer with a burst of one:
// the first call passes immediately, later calls are spaced by the interval.
type Limiter struct {
	lim *rate.Limiter
}

// Every returns a Pacer allowing one call per interval. A non-positive interval never blocks.
func Every(interval time.Duration) *Limiter {
	if interval <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{lim: rate.NewLimiter(rate.Every(interval), 1)}
}

// PerSecond returns a Pacer allowing n calls per second. n <= 0 never blocks.
func PerSecond(n float64) *Limiter {
	if n <= 0 {
		return &Limiter{lim: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Limiter{lim: rate.NewLimiter(rate.Limit(n), 1)}
}

// Wait blocks until a token is available or ctx is done. A slot past the
// deadline is waited for until the deadline, then ctx.Err() is returned.
func (l *Limiter) Wait(ctx context.Context) error {
	r := l.lim.Reserve()
	if !r.OK() {
		return fmt.Errorf("pacing: reservation exceeds burst")
	}
	if err := Sleep(ctx, r.Delay()); err != nil {
		r.Cancel()
		return fmt.Errorf("pacing: %w", err)
	}
	return nil
}

// Sleep pauses for d unless ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
