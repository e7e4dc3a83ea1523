package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	motionRequestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "motion_requests_remaining",
		Help: "Number of requests remaining in the current Motion rate limit window",
	})

	motionRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_rate_limit_blocks_total",
		Help: "Total number of requests blocked due to exhausted request budget",
	})

	motionRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "motion_rate_limit_throttles_total",
		Help: "Total number of requests throttled due to low request budget",
	})
)

// Tracker monitors the upstream request budget and gates requests.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTracker creates a new rate limit tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState retrieves the current rate limit state from Redis.
// Returns a default healthy state if no data exists in Redis. Each state key
// is checked for absence on its own: a missing budget key must not read as an
// exhausted budget when the other keys happen to exist.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	// Fetch all state fields from Redis
	requestsRemaining, err := t.redis.Get(ctx, RedisKeyRequestsRemaining).Int()
	remainingMissing := err == redis.Nil
	if err != nil && !remainingMissing {
		return nil, fmt.Errorf("get requests remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	resetMissing := err == redis.Nil
	if err != nil && !resetMissing {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	lastUpdateMissing := err == redis.Nil
	if err != nil && !lastUpdateMissing {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	// If no state exists in Redis, return default healthy state
	if remainingMissing && resetMissing && lastUpdateMissing {
		t.logger.Debug().Msg("No rate limit state in Redis, returning default healthy state")
		return &RateLimitState{
			RequestsRemaining: DefaultWindowBudget, // Assume a full window until we see real headers
			ResetAt:           time.Now().Add(60 * time.Second),
			LastUpdate:        time.Now(),
			IsHealthy:         true,
		}, nil
	}

	// Partial state: fill missing fields with the fresh-window assumption
	if remainingMissing {
		t.logger.Warn().Msg("Rate limit budget key missing, assuming full window")
		requestsRemaining = DefaultWindowBudget
	}
	if resetMissing {
		resetTimestamp = time.Now().Add(60 * time.Second).Unix()
	}

	var lastUpdate time.Time
	if !lastUpdateMissing && lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		RequestsRemaining: requestsRemaining,
		ResetAt:           time.Unix(resetTimestamp, 0),
		LastUpdate:        lastUpdate,
	}
	state.UpdateHealth()

	return state, nil
}

// UpdateFromHeaders parses rate limit headers and updates Redis state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	// Parse X-RateLimit-Remaining header
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		// Header not present - this is OK for some endpoints and proxies
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	// Parse X-RateLimit-Reset header
	resetStr := headers.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("X-RateLimit-Reset header missing")
	}

	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}

	// Create updated state
	now := time.Now()
	state := &RateLimitState{
		RequestsRemaining: remain,
		ResetAt:           now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate:        now,
	}
	state.UpdateHealth()

	// Store in Redis atomically
	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRequestsRemaining, remain, 0)
	pipe.Set(ctx, RedisKeyResetTimestamp, state.ResetAt.Unix(), 0)

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}

	// Update Prometheus metrics
	motionRequestsRemaining.Set(float64(remain))

	// Log state update
	logEvent := t.logger.Info().
		Int("requests_remaining", remain).
		Time("reset_at", state.ResetAt).
		Bool("is_healthy", state.IsHealthy)

	if state.NeedsCriticalBlock() {
		logEvent = t.logger.Error()
		logEvent.Msg("Motion request budget exhausted - requests will be blocked")
	} else if state.NeedsThrottling() {
		logEvent = t.logger.Warn()
		logEvent.Msg("Motion request budget low - requests will be throttled")
	} else {
		logEvent.Msg("Motion request budget updated")
	}

	return nil
}

// ShouldAllowRequest checks if a request should be allowed based on current
// rate limit state. Returns false if the request should be blocked because
// the budget is exhausted. Returns true but may sleep for throttling when the
// budget is low.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	// Exhausted: block all requests until the window resets
	if state.NeedsCriticalBlock() {
		waitDuration := state.TimeUntilReset()

		t.logger.Error().
			Int("requests_remaining", state.RequestsRemaining).
			Dur("wait_duration", waitDuration).
			Msg("Motion request budget exhausted - blocking request")

		motionRateLimitBlocksTotal.Inc()
		return false, nil
	}

	// Low: stretch the remaining budget (1 second sleep)
	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("requests_remaining", state.RequestsRemaining).
			Msg("Motion request budget low - throttling request")

		motionRateLimitThrottlesTotal.Inc()
		time.Sleep(1 * time.Second)
	}

	// Healthy: allow request
	return true, nil
}
