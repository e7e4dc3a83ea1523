package client

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for retry operations.
var (
	motionRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	motionRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "motion_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	motionRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)

// RetryPolicy holds the configuration for retry logic. It is an immutable
// value built once at the composition root and threaded through calls.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of attempts (including the initial request).
	MaxAttempts int

	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration

	// BackoffMultiplier is the multiplier for exponential backoff.
	BackoffMultiplier float64

	// MaxDelay caps the computed backoff.
	MaxDelay time.Duration

	// Jitter is the upper bound of the random delay added to computed
	// backoff to desynchronize concurrent retriers.
	Jitter time.Duration
}

// DefaultRetryPolicy returns the default retry policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         1 * time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		Jitter:            250 * time.Millisecond,
	}
}

// Validate checks the policy invariants.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be >= 1 (got %d)", p.MaxAttempts)
	}
	if p.BaseDelay <= 0 {
		return fmt.Errorf("base_delay must be > 0 (got %v)", p.BaseDelay)
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1 (got %v)", p.BackoffMultiplier)
	}
	if p.Jitter < 0 {
		return fmt.Errorf("jitter must be >= 0 (got %v)", p.Jitter)
	}
	return nil
}

// backoffFor returns the computed delay before attempt n (n >= 2), capped at
// MaxDelay and excluding jitter.
func (p RetryPolicy) backoffFor(attempt int) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-2))
	if p.MaxDelay > 0 && backoff > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(backoff)
}

// retryWithPolicy executes fn with bounded attempts and exponential backoff.
//
// Each attempt result is classified by classify; fatal outcomes propagate
// immediately, retryable ones wait and try again. An upstream wait hint on
// the outcome replaces the computed backoff verbatim. When all attempts are
// exhausted, the last failure is returned unchanged so callers see the
// original typed error.
func retryWithPolicy(ctx context.Context, policy RetryPolicy, fn func() error, classify func(error) AttemptOutcome) error {
	var lastErr error
	var hint time.Duration

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := policy.backoffFor(attempt)
			if hint > 0 {
				delay = hint
			} else if policy.Jitter > 0 {
				delay += time.Duration(rand.Int63n(int64(policy.Jitter)))
			}

			motionRetryBackoffSeconds.WithLabelValues(string(classify(lastErr).Class)).Observe(delay.Seconds())

			log.Debug().
				Int("attempt", attempt).
				Dur("backoff", delay).
				Bool("upstream_hint", hint > 0).
				Msg("Retrying request after backoff")

			// Wait with context cancellation support
			select {
			case <-ctx.Done():
				log.Warn().
					Int("attempt", attempt).
					Msg("Context cancelled during retry backoff")
				return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			case <-time.After(delay):
			}
		}

		err := fn()
		outcome := classify(err)

		switch outcome.Kind {
		case OutcomeSuccess:
			if attempt > 1 {
				log.Info().
					Int("attempt", attempt).
					Msg("Request succeeded after retry")
			}
			return nil

		case OutcomeFatal:
			log.Debug().
				Str("error_class", string(outcome.Class)).
				Int("attempt", attempt).
				Msg("Fatal failure, not retrying")
			return err
		}

		lastErr = err
		hint = outcome.Hint

		log.Warn().
			Str("error_class", string(outcome.Class)).
			Int("attempt", attempt).
			Dur("retry_after_hint", outcome.Hint).
			Msg("Attempt failed with retryable error")

		if attempt < policy.MaxAttempts {
			motionRetriesTotal.WithLabelValues(string(outcome.Class)).Inc()
		}
	}

	// All attempts exhausted: propagate the last failure unchanged.
	motionRetryExhaustedTotal.WithLabelValues(string(classify(lastErr).Class)).Inc()
	log.Warn().
		Int("max_attempts", policy.MaxAttempts).
		Msg("Retry attempts exhausted")

	return lastErr
}
