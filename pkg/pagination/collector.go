package pagination

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for cursor collection.
var (
	motionPagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_pages_fetched_total",
		Help: "Total pages fetched during cursor collection by resource",
	}, []string{"resource"})

	motionCollectTruncatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_collect_truncated_total",
		Help: "Total cursor collections stopped by a safety cap, by resource and reason",
	}, []string{"resource", "reason"})

	motionStuckCursorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "motion_stuck_cursors_total",
		Help: "Total cursor collections stopped by the stuck-cursor guard",
	}, []string{"resource"})
)

// Safety caps applied when the caller leaves CollectOptions fields zero.
// Collection always terminates, even against a hostile or buggy upstream.
const (
	DefaultMaxPages = 50
	DefaultMaxItems = 5000
)

// TruncationReason explains why a collection stopped early.
type TruncationReason string

const (
	// TruncationNone means the walk ended by natural exhaustion or the
	// stuck-cursor guard.
	TruncationNone TruncationReason = "none"

	// TruncationPageLimit means the MaxPages cap was hit.
	TruncationPageLimit TruncationReason = "page_limit"

	// TruncationItemLimit means the MaxItems cap was hit.
	TruncationItemLimit TruncationReason = "item_limit"
)

// CollectOptions bounds a cursor walk.
type CollectOptions struct {
	// Resource is the logical resource key, used for logging and metrics.
	Resource string

	// MaxPages caps the number of page fetches. Zero applies DefaultMaxPages.
	MaxPages int

	// MaxItems caps the accumulated item count. The walk may overshoot by up
	// to one page. Zero applies DefaultMaxItems.
	MaxItems int
}

// FetchFunc fetches one page for the given cursor. An empty cursor requests
// the first page. The function owns request building and authentication.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Result is the outcome of a cursor walk.
type Result[T any] struct {
	// Items in upstream page order.
	Items []T

	// Truncated is true only when a configured cap stopped the walk,
	// never on natural exhaustion.
	Truncated bool

	// Reason is the cap that stopped the walk, TruncationNone otherwise.
	Reason TruncationReason

	// PagesFetched is the number of page fetches issued.
	PagesFetched int
}

// Collect drives fetch through cursor pages sequentially until exhaustion or
// a safety cap, accumulating items in page order.
//
// Pages are never fetched in parallel: cursor N+1 is only known after page N
// completes. A fetch error returns the partial result accumulated so far
// together with the error. A page that returns the cursor just requested
// stops the walk and keeps the accumulated items (stuck-cursor guard).
func Collect[T any](ctx context.Context, fetch FetchFunc[T], opts CollectOptions) (Result[T], error) {
	start := time.Now()

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	maxItems := opts.MaxItems
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}

	result := Result[T]{Reason: TruncationNone}
	cursor := ""

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		page, err := fetch(ctx, cursor)
		if err != nil {
			log.Warn().
				Err(err).
				Str("resource", opts.Resource).
				Int("pages_fetched", result.PagesFetched).
				Int("items", len(result.Items)).
				Msg("Page fetch failed - returning partial results")
			return result, err
		}

		result.Items = append(result.Items, page.Items...)
		result.PagesFetched++
		motionPagesFetchedTotal.WithLabelValues(opts.Resource).Inc()

		next := page.NextCursor()

		log.Debug().
			Str("resource", opts.Resource).
			Str("cursor", cursor).
			Str("next_cursor", next).
			Int("page_items", len(page.Items)).
			Int("total_items", len(result.Items)).
			Msg("Fetched page")

		switch {
		case next == "":
			// Natural exhaustion
			log.Info().
				Str("resource", opts.Resource).
				Int("pages", result.PagesFetched).
				Int("items", len(result.Items)).
				Dur("duration", time.Since(start)).
				Msg("Collection complete")
			return result, nil

		case result.PagesFetched >= maxPages:
			result.Truncated = true
			result.Reason = TruncationPageLimit
			motionCollectTruncatedTotal.WithLabelValues(opts.Resource, string(TruncationPageLimit)).Inc()
			log.Warn().
				Str("resource", opts.Resource).
				Int("max_pages", maxPages).
				Int("items", len(result.Items)).
				Msg("Collection truncated at page cap")
			return result, nil

		case len(result.Items) >= maxItems:
			result.Truncated = true
			result.Reason = TruncationItemLimit
			motionCollectTruncatedTotal.WithLabelValues(opts.Resource, string(TruncationItemLimit)).Inc()
			log.Warn().
				Str("resource", opts.Resource).
				Int("max_items", maxItems).
				Int("items", len(result.Items)).
				Msg("Collection truncated at item cap")
			return result, nil

		case next == cursor:
			// Stuck-cursor guard: an upstream that hands back the cursor we
			// just requested would loop forever. Keep what we have.
			motionStuckCursorsTotal.WithLabelValues(opts.Resource).Inc()
			log.Warn().
				Str("resource", opts.Resource).
				Str("cursor", cursor).
				Int("items", len(result.Items)).
				Msg("Upstream returned the cursor just requested - stopping collection")
			return result, nil
		}

		cursor = next
	}
}
