// Package resilience provides retry with exponential backoff for the
// flaky end of dataset fetching: public mirrors and open-data portals
// that throttle, reset, or briefly disappear.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Policy controls retry behavior.
type Policy struct {
	// MaxAttempts is the total number of tries, the first included.
	// 1 means no retries. Default 3.
	MaxAttempts int

	// InitialDelay is the wait before the first retry. Default 1s.
	InitialDelay time.Duration

	// MaxDelay caps the backoff. Default 30s.
	MaxDelay time.Duration

	// Multiplier grows the delay after each attempt. Default 2.
	Multiplier float64

	// Jitter adds up to this fraction of the delay at random, spreading
	// out clients that fail in sync. Zero disables it.
	Jitter float64

	// ShouldRetry overrides the transient-error check. Nil means
	// IsTransient.
	ShouldRetry func(error) bool

	// OnRetry runs before each backoff sleep with the attempt number
	// just failed.
	OnRetry func(attempt int, err error)
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// Do runs fn until it succeeds, fails permanently, runs out of
// attempts, or ctx ends. Context cancellation during a backoff sleep
// returns the last error immediately.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal is Do for functions that return a value.
func DoVal[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	shouldRetry := p.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == p.MaxAttempts-1 {
			break
		}

		if p.OnRetry != nil {
			p.OnRetry(attempt+1, err)
		}
		if sleep(ctx, p.delay(attempt)) != nil {
			break
		}
	}
	return zero, lastErr
}

func (p Policy) delay(attempt int) time.Duration {
	d := time.Duration(float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt)))
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
