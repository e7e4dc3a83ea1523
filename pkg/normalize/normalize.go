// Package normalize resolves union-typed Motion fields into canonical shapes.
//
// The upstream API delivers several fields as either primitives or structured
// objects (status as string or object, duration as minutes or a sentinel
// string, labels as strings or {name} objects), and documentation and
// delivery diverge. Every function here matches on the JSON shape actually
// received, is total, and falls back to a documented default while logging
// unrecognized shapes. None of them can fail: a malformed field must not
// abort the record it belongs to.
package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Duration sentinels used by the upstream instead of a minute count.
const (
	DurationSentinelNone     = "NONE"
	DurationSentinelReminder = "REMINDER"
)

// DurationKind tags the canonical duration variants.
type DurationKind int

const (
	// DurationUnspecified is the fallback for absent or unrecognized shapes.
	DurationUnspecified DurationKind = iota

	// DurationMinutes carries a numeric minute count.
	DurationMinutes

	// DurationNone is the explicit "NONE" sentinel.
	DurationNone

	// DurationReminder is the "REMINDER" sentinel.
	DurationReminder
)

// Duration is the canonical task duration.
type Duration struct {
	Kind    DurationKind
	Minutes int
}

// String renders the duration the way the upstream writes it.
func (d Duration) String() string {
	switch d.Kind {
	case DurationMinutes:
		return fmt.Sprintf("%d", d.Minutes)
	case DurationNone:
		return DurationSentinelNone
	case DurationReminder:
		return DurationSentinelReminder
	default:
		return "unspecified"
	}
}

// Status is the canonical task status: a name plus optional detail flags that
// only structured deliveries carry.
type Status struct {
	Name             string `json:"name"`
	IsDefaultStatus  bool   `json:"isDefaultStatus"`
	IsResolvedStatus bool   `json:"isResolvedStatus"`
}

// NormalizeStatus resolves a status delivered as either a plain name string
// or a structured object. Absent or unrecognized shapes yield the zero
// Status (empty name).
func NormalizeStatus(raw json.RawMessage) Status {
	if isAbsent(raw) {
		return Status{}
	}

	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return Status{Name: name}
	}

	var status Status
	if err := json.Unmarshal(raw, &status); err == nil {
		return status
	}

	log.Warn().RawJSON("value", compact(raw)).Msg("Unrecognized status shape, using empty status")
	return Status{}
}

// NormalizeDuration resolves a duration delivered as either a minute count or
// one of the sentinel strings. Unrecognized shapes yield DurationUnspecified.
func NormalizeDuration(raw json.RawMessage) Duration {
	if isAbsent(raw) {
		return Duration{Kind: DurationUnspecified}
	}

	var minutes int
	if err := json.Unmarshal(raw, &minutes); err == nil {
		return Duration{Kind: DurationMinutes, Minutes: minutes}
	}

	var sentinel string
	if err := json.Unmarshal(raw, &sentinel); err == nil {
		switch sentinel {
		case DurationSentinelNone:
			return Duration{Kind: DurationNone}
		case DurationSentinelReminder:
			return Duration{Kind: DurationReminder}
		}
	}

	log.Warn().RawJSON("value", compact(raw)).Msg("Unrecognized duration shape, using unspecified duration")
	return Duration{Kind: DurationUnspecified}
}

// NormalizeLabels resolves labels delivered as an array of name strings, an
// array of {name} objects, or a mix. Absent or malformed input yields an
// empty sequence; element order is preserved.
func NormalizeLabels(raw json.RawMessage) []string {
	if isAbsent(raw) {
		return []string{}
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		log.Warn().RawJSON("value", compact(raw)).Msg("Unrecognized labels shape, using empty labels")
		return []string{}
	}

	names := make([]string, 0, len(elements))
	for _, element := range elements {
		var name string
		if err := json.Unmarshal(element, &name); err == nil {
			names = append(names, name)
			continue
		}

		var object struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(element, &object); err == nil && object.Name != "" {
			names = append(names, object.Name)
			continue
		}

		log.Warn().RawJSON("value", compact(element)).Msg("Unrecognized label element, skipping")
	}

	return names
}

// isAbsent reports whether the raw value is missing or JSON null.
func isAbsent(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// compact guards RawJSON logging against invalid input, which would otherwise
// produce broken log lines.
func compact(raw json.RawMessage) json.RawMessage {
	if json.Valid(raw) {
		return raw
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
