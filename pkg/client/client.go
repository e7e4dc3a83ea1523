// Package client provides the core Motion HTTP client with rate limiting,
// caching, retry and error classification.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskops/motion-api-client/pkg/cache"
	"github.com/taskops/motion-api-client/pkg/ratelimit"
)

// DefaultBaseURL is the public Motion API root.
const DefaultBaseURL = "https://api.usemotion.com/v1"

// Prometheus metrics for Motion client operations.
var (
	motionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_requests_total",
		Help: "Total Motion API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	motionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "motion_request_duration_seconds",
		Help:    "Motion API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	motionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_errors_total",
		Help: "Total Motion API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors (other than 429).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 rate limit errors.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the main Motion API client.
type Client struct {
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and rate limit state
	Redis *redis.Client

	// BaseURL is the API root. Defaults to DefaultBaseURL when empty.
	BaseURL string

	// APIKey is sent as the X-API-Key header on every request.
	APIKey string

	// User-Agent header identifying the integration
	UserAgent string

	// Retry policy applied to every outbound call
	Retry RetryPolicy

	// Caching
	CacheTTL time.Duration // Fallback TTL when the response carries no freshness info
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, apiKey string) Config {
	return Config{
		Redis:     redis,
		BaseURL:   DefaultBaseURL,
		APIKey:    apiKey,
		UserAgent: "motion-api-client/0.1.0",
		Retry:     DefaultRetryPolicy(),
		CacheTTL:  60 * time.Second,
	}
}

// New creates a new Motion API client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if err := cfg.Retry.Validate(); err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}

	// Initialize logger
	logger := log.With().Str("component", "motion-client").Logger()

	// Create rate limit tracker
	rateLimiter := ratelimit.NewTracker(cfg.Redis, logger)

	// Create cache manager
	cacheManager := cache.NewManager(cfg.Redis)

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		redis:       cfg.Redis,
		rateLimiter: rateLimiter,
		cache:       cacheManager,
		config:      cfg,
		logger:      logger,
	}, nil
}

// Do performs an HTTP request with rate limiting, caching, retry and error
// classification. This is the core request method that orchestrates all
// client features.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	// Start request timing
	startTime := time.Now()
	defer func() {
		motionRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check rate limit gate
	allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by rate limiter")
		motionRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
		return nil, ErrRequestBlocked
	}

	// Step 2: Check cache
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	cachedEntry, err := c.cache.Get(ctx, cacheKey)
	if err != nil && err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	// Step 3: Make conditional request if cache hit
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Set authentication and identity headers
	req.Header.Set("X-API-Key", c.config.APIKey)
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute HTTP request through the retry executor
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing Motion API request")

	var resp *http.Response

	retryErr := retryWithPolicy(ctx, c.config.Retry, func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		// Transport failures carry no HTTP status
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			motionErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			motionRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "transport failure",
				Err:        reqErr,
			}
		}

		// Update rate limit budget from response headers
		if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
		}

		// 304 Not Modified is a success for the caching path
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			apiErr := newAPIError(resp)
			motionErrorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
			motionRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(apiErr.ErrorClass)).
				Dur("retry_after", apiErr.RetryAfter).
				Msg("Motion API request error")

			resp.Body.Close()
			return apiErr
		}

		// Success
		motionRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	}, classifyOutcome)

	// Fatal failures and retry exhaustion surface the typed error unchanged.
	if retryErr != nil {
		return nil, retryErr
	}

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		// A 304 is only usable when we sent conditional headers from a cached
		// entry. Without one there is no body to serve.
		if cachedEntry == nil {
			c.logger.Error().
				Str("endpoint", endpoint).
				Msg("304 Not Modified without cached entry")
			motionErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
			motionRequestsTotal.WithLabelValues(endpoint, "304").Inc()
			resp.Body.Close()
			return nil, &APIError{
				StatusCode: http.StatusNotModified,
				ErrorClass: ErrorClassServer,
				Message:    "not modified response without cached entry",
			}
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		motionRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		// Refresh cache TTL from revalidation headers
		if newExpires, ok := cache.FreshnessFromHeaders(resp.Header); ok {
			if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
			}
		}

		// Return cached response
		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update cache on success
	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp, c.config.CacheTTL)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// Get performs a GET request against a Motion API endpoint path
// (e.g. "/tasks?cursor=abc").
func (c *Client) Get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
