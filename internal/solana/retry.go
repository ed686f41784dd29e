package solana

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/OnchainAlpha/solanatrading/internal/observability"
)

// Default retry policy values.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMultiplier  = 2.0
)

// RetryPolicy bounds retries of rate-limited calls. Stateless; applied
// per call. Delay for attempt i is BaseDelay * Multiplier^i, with no
// jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy returns the default policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		Multiplier:  DefaultMultiplier,
	}
}

// ExhaustedRetriesError is returned after MaxAttempts rate-limited failures.
type ExhaustedRetriesError struct {
	Context  string
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts (%s): %v", e.Attempts, e.Context, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// Retrier wraps remote read operations with bounded exponential backoff.
// Only rate-limited failures are retried; any other failure returns
// immediately. No shared mutable state across calls.
type Retrier struct {
	policy  RetryPolicy
	metrics *observability.Metrics
	logger  *log.Logger

	// sleep is replaceable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a Retrier with the given policy. metrics may be nil.
func NewRetrier(policy RetryPolicy, metrics *observability.Metrics, logger *log.Logger) *Retrier {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = DefaultMaxAttempts
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = DefaultBaseDelay
	}
	if policy.Multiplier <= 0 {
		policy.Multiplier = DefaultMultiplier
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Retrier{
		policy:  policy,
		metrics: metrics,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Do runs op up to MaxAttempts times. label identifies the operation in
// logs and in the exhaustion error.
func (r *Retrier) Do(ctx context.Context, label string, op func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < r.policy.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsRateLimited(err) {
			return err
		}
		lastErr = err

		if attempt == r.policy.MaxAttempts-1 {
			break
		}

		delay := r.delayFor(attempt)
		r.logger.Printf("rate limited on %s (attempt %d/%d), waiting %v", label, attempt+1, r.policy.MaxAttempts, delay)
		if r.metrics != nil {
			r.metrics.RPCRetries.Inc()
		}
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return &ExhaustedRetriesError{
		Context:  label,
		Attempts: r.policy.MaxAttempts,
		Last:     lastErr,
	}
}

// delayFor returns BaseDelay * Multiplier^attempt.
func (r *Retrier) delayFor(attempt int) time.Duration {
	delay := float64(r.policy.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= r.policy.Multiplier
	}
	return time.Duration(delay)
}

// sleepCtx sleeps for d unless ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
