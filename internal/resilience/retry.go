package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/rotisserie/eris"
)

// RetryConfig controls retry behavior for an operation.
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	JitterFraction float64

	// ShouldRetry decides whether a given error is retryable.
	// Defaults to IsTransient.
	ShouldRetry func(error) bool

	// OnRetry is called before each sleep with the failed attempt number
	// (1-based) and the error that caused it.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetry is suitable for HTTP calls to external services.
var DefaultRetry = RetryConfig{
	MaxAttempts:    4,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     15 * time.Second,
	Multiplier:     2.0,
	JitterFraction: 0.2,
}

// ExtractionRetry bounds LLM extraction attempts. Quota errors are excluded
// so the caller can rotate credentials without burning the attempt budget.
var ExtractionRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	MaxBackoff:     20 * time.Second,
	Multiplier:     2.0,
	JitterFraction: 0.2,
	ShouldRetry: func(err error) bool {
		return (IsTransient(err) || IsSchema(err)) && !IsQuota(err)
	},
}

func (c RetryConfig) shouldRetry(err error) bool {
	if c.ShouldRetry != nil {
		return c.ShouldRetry(err)
	}
	return IsTransient(err)
}

func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		d *= c.Multiplier
	}
	if max := float64(c.MaxBackoff); d > max {
		d = max
	}
	if c.JitterFraction > 0 {
		jitter := d * c.JitterFraction
		d = d - jitter + rand.Float64()*2*jitter
	}
	return time.Duration(d)
}

// Do runs op with bounded retries and exponential backoff. It returns the
// last error once attempts are exhausted or a non-retryable error occurs.
func Do(ctx context.Context, cfg RetryConfig, op func(context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoVal is Do for operations that return a value.
func DoVal[T any](ctx context.Context, cfg RetryConfig, op func(context.Context) (T, error)) (T, error) {
	var zero T
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, eris.Wrap(err, "retry aborted")
		}

		val, err := op(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if attempt == cfg.MaxAttempts || !cfg.shouldRetry(err) {
			break
		}

		backoff := cfg.backoff(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, eris.Wrap(ctx.Err(), "retry aborted")
		case <-timer.C:
		}
	}

	return zero, lastErr
}
