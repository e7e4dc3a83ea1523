// Package cache provides Motion API response caching with Redis backend.
//
// The cache manager implements HTTP-aware caching with the following features:
//
// - TTL from Cache-Control max-age or Expires headers, with a configurable fallback
// - ETag support for conditional requests (If-None-Match)
// - Last-Modified support (If-Modified-Since)
// - Automatic TTL refresh on 304 Not Modified revalidation
// - Prometheus metrics for observability
// - Deterministic cache key generation
//
// The resilient access core itself stays read-only and cache-free; the cache
// is an orchestration step owned by the client layer in front of it.
//
// # Basic Usage
//
//	// Create Redis client
//	redisClient := redis.NewClient(&redis.Options{
//		Addr: "localhost:6379",
//	})
//
//	// Create cache manager
//	manager := cache.NewManager(redisClient)
//
//	// Create cache key
//	key := cache.CacheKey{
//		Endpoint:    "/tasks",
//		QueryParams: url.Values{"workspaceId": []string{"ws_1"}},
//	}
//
//	// Get from cache
//	entry, err := manager.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Cache miss - fetch from the API
//	}
//
// # HTTP Response Caching
//
//	// Convert HTTP response to cache entry
//	entry, err := cache.ResponseToEntry(resp, 60*time.Second)
//	if err != nil {
//		return err
//	}
//
//	// Store in cache
//	if err := manager.Set(ctx, key, entry); err != nil {
//		return err
//	}
//
// # Conditional Requests
//
//	// Check if we should make a conditional request
//	if cache.ShouldMakeConditionalRequest(entry) {
//		cache.AddConditionalHeaders(req, entry)
//		// Make request - the API returns 304 if not modified
//	}
//
// # Metrics
//
// The cache manager exports Prometheus metrics:
//
//   - motion_cache_hits_total{layer="redis"} - Cache hits
//   - motion_cache_misses_total - Cache misses
//   - motion_cache_size_bytes{layer="redis"} - Cache size
//   - motion_conditional_requests_total - Conditional requests sent
//   - motion_304_responses_total - Conditional request successes
//   - motion_cache_errors_total{operation} - Cache operation errors
package cache
