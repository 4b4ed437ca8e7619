package retry

import (
	"context"
	"time"
)

// Policy defines how to retry an operation
type Policy struct {
	MaxAttempts       int
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
}

// DefaultPolicy is a sensible default retry policy
var DefaultPolicy = Policy{
	MaxAttempts:       3,
	InitialBackoff:    100 * time.Millisecond,
	BackoffMultiplier: 2,
	MaxBackoff:        2 * time.Second,
}

// IsTransientFunc defines if an error is transient and should be retried
type IsTransientFunc func(error) bool

// Do executes a function with retries according to the policy. Transient
// failures consume attempts with a backoff sleep in between; a fatal error
// propagates immediately without consuming the remaining attempts. After
// MaxAttempts transient failures the last observed error is returned.
func Do(ctx context.Context, policy Policy, isTransient IsTransientFunc, fn func() error) error {
	_, err := Get(ctx, policy, isTransient, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Get is the typed variant of Do for operations that produce a value.
func Get[T any](ctx context.Context, policy Policy, isTransient IsTransientFunc, fn func() (T, error)) (T, error) {
	var result T
	var err error

	backoff := policy.InitialBackoff
	multiplier := policy.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}

	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		result, err = fn()
		if err == nil {
			return result, nil
		}

		if !isTransient(err) {
			return result, err
		}

		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(backoff):
			backoff = time.Duration(float64(backoff) * multiplier)
			if policy.MaxBackoff > 0 && backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	return result, err
}
