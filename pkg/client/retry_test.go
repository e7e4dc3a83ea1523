package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastPolicy returns a policy with short delays so retry tests stay quick.
func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       3,
		BaseDelay:         20 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          200 * time.Millisecond,
		Jitter:            5 * time.Millisecond,
	}
}

// retryableClassify marks every non-nil error as a retryable server failure.
func retryableClassify(err error) AttemptOutcome {
	if err == nil {
		return AttemptOutcome{Kind: OutcomeSuccess}
	}
	return AttemptOutcome{Kind: OutcomeRetryable, Class: ErrorClassServer}
}

func TestDefaultRetryPolicy(t *testing.T) {
	policy := DefaultRetryPolicy()

	if policy.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", policy.MaxAttempts)
	}
	if policy.BaseDelay != 1*time.Second {
		t.Errorf("BaseDelay = %v, want 1s", policy.BaseDelay)
	}
	if policy.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", policy.BackoffMultiplier)
	}
	if policy.MaxDelay != 30*time.Second {
		t.Errorf("MaxDelay = %v, want 30s", policy.MaxDelay)
	}
	if policy.Jitter != 250*time.Millisecond {
		t.Errorf("Jitter = %v, want 250ms", policy.Jitter)
	}

	if err := policy.Validate(); err != nil {
		t.Errorf("default policy should validate, got %v", err)
	}
}

func TestRetryPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  RetryPolicy
		wantErr bool
	}{
		{
			name:    "valid policy",
			policy:  DefaultRetryPolicy(),
			wantErr: false,
		},
		{
			name: "single attempt allowed",
			policy: RetryPolicy{
				MaxAttempts:       1,
				BaseDelay:         time.Second,
				BackoffMultiplier: 1.0,
			},
			wantErr: false,
		},
		{
			name: "zero attempts",
			policy: RetryPolicy{
				MaxAttempts:       0,
				BaseDelay:         time.Second,
				BackoffMultiplier: 2.0,
			},
			wantErr: true,
		},
		{
			name: "zero base delay",
			policy: RetryPolicy{
				MaxAttempts:       3,
				BaseDelay:         0,
				BackoffMultiplier: 2.0,
			},
			wantErr: true,
		},
		{
			name: "multiplier below one",
			policy: RetryPolicy{
				MaxAttempts:       3,
				BaseDelay:         time.Second,
				BackoffMultiplier: 0.5,
			},
			wantErr: true,
		},
		{
			name: "negative jitter",
			policy: RetryPolicy{
				MaxAttempts:       3,
				BaseDelay:         time.Second,
				BackoffMultiplier: 2.0,
				Jitter:            -time.Millisecond,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryPolicy_BackoffFor(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:       5,
		BaseDelay:         1 * time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          5 * time.Second,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{2, 1 * time.Second},
		{3, 2 * time.Second},
		{4, 4 * time.Second},
		{5, 5 * time.Second}, // 8s capped at MaxDelay
	}

	for _, tt := range tests {
		if got := policy.backoffFor(tt.attempt); got != tt.want {
			t.Errorf("backoffFor(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestRetryWithPolicy_Success(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	fn := func() error {
		callCount++
		return nil
	}

	err := retryWithPolicy(ctx, fastPolicy(), fn, retryableClassify)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithPolicy_SuccessAfterRetry(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	fn := func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	start := time.Now()
	err := retryWithPolicy(ctx, fastPolicy(), fn, retryableClassify)
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}

	// First retry waits ~20ms, second ~40ms
	if duration < 50*time.Millisecond {
		t.Errorf("Expected backoff delays, total duration %v too short", duration)
	}
}

func TestRetryWithPolicy_ExhaustionReturnsLastError(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	testErr := &APIError{
		StatusCode: 503,
		ErrorClass: ErrorClassServer,
		Message:    "service unavailable",
	}
	fn := func() error {
		callCount++
		return testErr
	}

	err := retryWithPolicy(ctx, fastPolicy(), fn, classifyOutcome)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls (MaxAttempts), got %d", callCount)
	}

	// Exhaustion hands back the last failure untouched
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T: %v", err, err)
	}
	if apiErr != testErr {
		t.Errorf("Expected the original error instance, got %v", apiErr)
	}
}

func TestRetryWithPolicy_FatalNoRetry(t *testing.T) {
	ctx := context.Background()

	callCount := 0
	testErr := &APIError{
		StatusCode: 404,
		ErrorClass: ErrorClassClient,
		Message:    "not found",
	}
	fn := func() error {
		callCount++
		return testErr
	}

	err := retryWithPolicy(ctx, fastPolicy(), fn, classifyOutcome)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr != testErr {
		t.Errorf("Expected original client error, got %v", err)
	}
}

func TestRetryWithPolicy_HintReplacesBackoff(t *testing.T) {
	ctx := context.Background()

	// Large base delay: if the hint were ignored the test would stall.
	policy := RetryPolicy{
		MaxAttempts:       2,
		BaseDelay:         10 * time.Second,
		BackoffMultiplier: 2.0,
		MaxDelay:          30 * time.Second,
		Jitter:            5 * time.Second,
	}

	callCount := 0
	rateLimited := &APIError{
		StatusCode: 429,
		ErrorClass: ErrorClassRateLimit,
		Message:    "too many requests",
		RetryAfter: 100 * time.Millisecond,
	}
	fn := func() error {
		callCount++
		if callCount == 1 {
			return rateLimited
		}
		return nil
	}

	start := time.Now()
	err := retryWithPolicy(ctx, policy, fn, classifyOutcome)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("Expected 2 calls, got %d", callCount)
	}

	// The upstream hint replaces computed backoff and jitter verbatim.
	if duration < 80*time.Millisecond || duration > 1*time.Second {
		t.Errorf("Retry delay %v, want approximately the 100ms hint", duration)
	}
}

func TestRetryWithPolicy_JitterBounds(t *testing.T) {
	ctx := context.Background()

	policy := RetryPolicy{
		MaxAttempts:       2,
		BaseDelay:         50 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          time.Second,
		Jitter:            50 * time.Millisecond,
	}

	for i := 0; i < 5; i++ {
		callCount := 0
		fn := func() error {
			callCount++
			if callCount == 1 {
				return errors.New("error")
			}
			return nil
		}

		start := time.Now()
		if err := retryWithPolicy(ctx, policy, fn, retryableClassify); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		delay := time.Since(start)

		// Jitter is additive: delay in [BaseDelay, BaseDelay+Jitter) plus
		// scheduling slack.
		if delay < 50*time.Millisecond || delay > 250*time.Millisecond {
			t.Errorf("Delay %v outside jitter range [50ms, ~100ms]", delay)
		}
	}
}

func TestRetryWithPolicy_DelaysNonDecreasing(t *testing.T) {
	ctx := context.Background()

	policy := RetryPolicy{
		MaxAttempts:       4,
		BaseDelay:         30 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          time.Second,
		Jitter:            0,
	}

	timestamps := []time.Time{}
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}

	_ = retryWithPolicy(ctx, policy, fn, retryableClassify)

	if len(timestamps) != 4 {
		t.Fatalf("Expected 4 timestamps, got %d", len(timestamps))
	}

	for i := 2; i < len(timestamps); i++ {
		prev := timestamps[i-1].Sub(timestamps[i-2])
		cur := timestamps[i].Sub(timestamps[i-1])
		if cur < prev {
			t.Errorf("Delay %d (%v) shorter than delay %d (%v)", i-1, cur, i-2, prev)
		}
	}
}

func TestRetryWithPolicy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	fn := func() error {
		callCount++
		if callCount == 1 {
			// Cancel context after first failure
			cancel()
		}
		return errors.New("error")
	}

	err := retryWithPolicy(ctx, fastPolicy(), fn, retryableClassify)

	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if callCount >= 3 {
		t.Errorf("Expected fewer than 3 calls due to cancellation, got %d", callCount)
	}
}

func TestRetryWithPolicy_ContextCancelledImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	callCount := 0
	fn := func() error {
		callCount++
		return errors.New("error")
	}

	err := retryWithPolicy(ctx, fastPolicy(), fn, retryableClassify)

	// First attempt still happens even on a cancelled context
	if callCount < 1 {
		t.Errorf("Expected at least 1 call, got %d", callCount)
	}
	if err == nil {
		t.Error("Expected error, got nil")
	}
}
