// Package pagination provides response unwrapping and sequential cursor
// collection for Motion paginated endpoints.
//
// The Motion API is inconsistent about list shapes: some endpoints wrap the
// result as {"meta":{"nextCursor","pageSize"},"<resource>":[...]}, others
// return a bare JSON array. Unwrap normalizes both into one Page shape,
// determined purely from payload structure at call time.
//
// Collect walks cursor pages strictly one at a time: cursor N+1 is only known
// after page N completes, and parallel requests against the same resource
// would burn the rate limit budget. The walk stops on natural exhaustion
// (absent nextCursor), on a configured page or item cap (reported as
// truncation), or when the upstream returns the cursor that was just
// requested (stuck-cursor guard, a defensive stop rather than an error).
//
// Example usage:
//
//	page := pagination.Unwrap(body, "tasks")
//
//	result, err := pagination.Collect(ctx, fetchPage, pagination.CollectOptions{
//		Resource: "tasks",
//		MaxPages: 20,
//		MaxItems: 500,
//	})
//
// Read-heavy listing favors returning whatever was collected over hard
// failure: a fetch error mid-walk returns the accumulated partial result
// alongside the error.
package pagination
