package pagination

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// PageMeta carries pagination metadata from a wrapped response.
type PageMeta struct {
	// NextCursor is the opaque token for the next page.
	// Empty means the resource is exhausted.
	NextCursor string `json:"nextCursor"`

	// PageSize is the upstream's declared page size, 0 when absent.
	PageSize int `json:"pageSize"`
}

// Page is the uniform page shape produced by Unwrap, regardless of whether
// the upstream wrapped the list or returned a bare array.
type Page[T any] struct {
	// Items in upstream order.
	Items []T

	// Meta is nil when the payload carried no pagination metadata.
	Meta *PageMeta
}

// NextCursor returns the next-page cursor, or "" when the page carried none.
func (p Page[T]) NextCursor() string {
	if p.Meta == nil {
		return ""
	}
	return p.Meta.NextCursor
}

// Unwrap normalizes a raw list payload into a Page.
//
// Recognized shapes:
//   - bare JSON array: items = the array, no meta
//   - object with an array-valued property named resourceKey: items = that
//     array, meta surfaced from the sibling "meta" object when present
//
// Anything else yields an empty page with a diagnostic log. Unwrap never
// fails: a malformed resource must not abort unrelated callers.
func Unwrap(raw []byte, resourceKey string) Page[json.RawMessage] {
	empty := Page[json.RawMessage]{Items: []json.RawMessage{}}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		log.Warn().Str("resource", resourceKey).Msg("Empty payload, returning empty page")
		return empty
	}

	// Bare array shape
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			log.Warn().Err(err).Str("resource", resourceKey).Msg("Malformed array payload, returning empty page")
			return empty
		}
		return Page[json.RawMessage]{Items: items}
	}

	// Wrapped object shape
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		log.Warn().Err(err).Str("resource", resourceKey).Msg("Malformed payload, returning empty page")
		return empty
	}

	itemsRaw, ok := envelope[resourceKey]
	if !ok {
		log.Warn().Str("resource", resourceKey).Msg("Payload contains no resource array, returning empty page")
		return empty
	}

	var items []json.RawMessage
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		log.Warn().Err(err).Str("resource", resourceKey).Msg("Resource property is not an array, returning empty page")
		return empty
	}

	page := Page[json.RawMessage]{Items: items}

	if metaRaw, ok := envelope["meta"]; ok {
		var meta PageMeta
		if err := json.Unmarshal(metaRaw, &meta); err != nil {
			log.Warn().Err(err).Str("resource", resourceKey).Msg("Malformed meta object, ignoring pagination metadata")
		} else {
			page.Meta = &meta

			// Logged, not fatal: the upstream's declared pageSize is advisory.
			if meta.PageSize > 0 && len(items) > meta.PageSize {
				log.Warn().
					Str("resource", resourceKey).
					Int("page_size", meta.PageSize).
					Int("item_count", len(items)).
					Msg("Page item count exceeds declared pageSize")
			}
		}
	}

	return page
}
