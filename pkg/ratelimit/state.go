// Package ratelimit implements Motion API request budget tracking and gating.
// It monitors the X-RateLimit-Remaining and X-RateLimit-Reset headers to keep
// integrations inside the per-minute request budget instead of burning it on
// requests that would come back 429.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRequestsRemaining = "motion:rate_limit:requests_remaining"
	RedisKeyResetTimestamp    = "motion:rate_limit:reset_timestamp"
	RedisKeyLastUpdate        = "motion:rate_limit:last_update"
)

// DefaultWindowBudget is the full per-minute request budget assumed before
// the first X-RateLimit-Remaining header is seen (individual Motion plan).
const DefaultWindowBudget = 12

// Thresholds for rate limit decisions, sized for the 12 requests/minute
// budget of the individual Motion plan.
const (
	// RequestThresholdCritical blocks all requests when the remaining budget
	// falls below this value, leaving headroom for in-flight calls.
	RequestThresholdCritical = 1

	// RequestThresholdWarning applies throttling when the remaining budget
	// falls below this value.
	RequestThresholdWarning = 3

	// RequestThresholdHealthy indicates normal operation.
	// At or above this value no restrictions apply.
	RequestThresholdHealthy = 6
)

// RateLimitState represents the current upstream request budget.
// This state is shared across all client instances via Redis.
type RateLimitState struct {
	// RequestsRemaining is the number of requests left in the current window.
	// Extracted from the X-RateLimit-Remaining header.
	RequestsRemaining int `json:"requests_remaining"`

	// ResetAt is the timestamp when the budget window resets.
	// Calculated from the X-RateLimit-Reset header (seconds until reset).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is the timestamp when this state was last updated.
	// Used to detect stale state and determine if data should be refreshed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy indicates whether the request budget is in a healthy state.
	// True when RequestsRemaining >= RequestThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state data is older than the given duration.
// Stale state should be refreshed from Redis or response headers.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked because the
// budget is exhausted.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.RequestsRemaining < RequestThresholdCritical
}

// NeedsThrottling returns true if requests should be throttled to stretch the
// remaining budget across the window.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.RequestsRemaining < RequestThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the budget window resets.
// Returns 0 if the reset time has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on current RequestsRemaining.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.RequestsRemaining >= RequestThresholdHealthy
}
