package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  2 * time.Minute,
	}
}

// Do runs op under exponential backoff until it succeeds, the attempt budget
// is spent, or the context is cancelled. Used only for startup connection
// attempts; steady-state operations never retry.
func Do(ctx context.Context, policy Policy, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.Multiplier = policy.Multiplier
	b.MaxElapsedTime = policy.MaxElapsedTime

	var wrapped backoff.BackOff = backoff.WithContext(b, ctx)
	if policy.MaxAttempts > 0 {
		wrapped = backoff.WithMaxRetries(wrapped, uint64(policy.MaxAttempts-1))
	}

	return backoff.Retry(op, wrapped)
}
