// Package retry runs an operation with bounded retries and pluggable
// backoff. Retryability is an injected predicate so callers classify errors
// by type, not by matching message strings.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy controls a retry loop.
type Policy struct {
	// MaxAttempts is the total number of tries including the first one.
	MaxAttempts int
	// IsRetryable decides whether a failure is worth another attempt.
	// A nil predicate retries everything.
	IsRetryable func(error) bool
	// Backoff returns the delay before the given retry attempt (1-based).
	// A nil func means no delay.
	Backoff func(attempt int) time.Duration
}

// LinearBackoff returns attempt*step delays (2s, 4s, 6s... for step=2s).
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// policyBackOff adapts Policy.Backoff to the backoff.BackOff interface.
type policyBackOff struct {
	policy  Policy
	attempt int
}

func (b *policyBackOff) NextBackOff() time.Duration {
	b.attempt++
	if b.policy.Backoff == nil {
		return 0
	}
	return b.policy.Backoff(b.attempt)
}

func (b *policyBackOff) Reset() { b.attempt = 0 }

// Do runs op under the policy. Non-retryable failures return immediately;
// retryable ones are reattempted until MaxAttempts is exhausted or ctx is
// done. The returned error is the last failure from op.
func Do(ctx context.Context, op func() error, p Policy) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}

	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if p.IsRetryable != nil && !p.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(&policyBackOff{policy: p}, uint64(p.MaxAttempts-1)),
		ctx,
	)
	return backoff.Retry(wrapped, b)
}
