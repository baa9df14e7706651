package catalog

import (
	"context"
	"math"
	"time"
)

// RetryPolicy retries an operation with exponential backoff. Only errors
// accepted by IsRetryable are retried; the last error is returned
// unmodified when the budget runs out or the error is not retryable.
type RetryPolicy struct {
	MaxRetries    int
	BaseDelay     time.Duration
	BackoffFactor float64
	IsRetryable   func(error) bool
}

// NewRetryPolicy builds a policy with the pipeline defaults.
func NewRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     time.Second,
		BackoffFactor: 2,
		IsRetryable:   IsTransient,
	}
}

// Backoff returns the wait before retry attempt k (zero-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	factor := p.BackoffFactor
	if factor <= 0 {
		factor = 2
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(attempt)))
}

// Do runs fn, retrying per the policy. Context cancellation aborts the
// wait and returns the context error.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	retryable := p.IsRetryable
	if retryable == nil {
		retryable = IsTransient
	}
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
		timer := time.NewTimer(p.Backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// WithRetry runs fn under the default policy.
func WithRetry(ctx context.Context, fn func(context.Context) error) error {
	return NewRetryPolicy().Do(ctx, fn)
}
