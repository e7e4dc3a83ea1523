package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey represents a unique identifier for a cached Motion API response.
type CacheKey struct {
	// Endpoint is the API endpoint path (e.g., "/tasks")
	Endpoint string

	// QueryParams are the query parameters (e.g., {"workspaceId": "ws_1"})
	QueryParams url.Values

	// WorkspaceID scopes the entry for multi-workspace integrations
	// (empty for account-wide endpoints)
	WorkspaceID string
}

// String generates a deterministic cache key string.
// Format: motion:endpoint:query1=val1:query2=val2:ws=workspace
//
// Example:
//
//	motion:tasks:label=urgent:ws=ws_1
func (k CacheKey) String() string {
	parts := []string{"motion"}

	// Add endpoint (normalize path)
	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	// Add query params (sorted for determinism)
	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.QueryParams.Get(key)))
		}
	}

	// Add workspace scope if present
	if k.WorkspaceID != "" {
		parts = append(parts, fmt.Sprintf("ws=%s", k.WorkspaceID))
	}

	return strings.Join(parts, ":")
}
