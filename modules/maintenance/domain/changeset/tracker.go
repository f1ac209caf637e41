// Package changeset implements the field-level change tracking, section
// aggregation, list-entity reconciliation and payload building used by the
// change-request workflow. It is pure data-in data-out and carries no
// persistence or HTTP concerns, so any presentation layer can drive it.
package changeset

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FieldChange records a single edited field. A change only materializes while
// the new value differs from the original snapshot; tracking a field back to
// its original value removes the entry again.
type FieldChange struct {
	Path string `json:"path"`
	From any    `json:"from"`
	To   any    `json:"to"`
}

// Tracking maps a dot-delimited field path (section-prefixed, e.g. "A.maker")
// to its pending change. Owned by a single edit session.
type Tracking map[string]FieldChange

// Track compares newValue against the original snapshot value at path and
// upserts or clears the tracking entry. Missing paths resolve to nil and are
// compared as such; there are no error conditions.
func Track(path string, newValue any, original map[string]any, tracking Tracking) Tracking {
	if tracking == nil {
		tracking = make(Tracking)
	}
	originalValue := Resolve(original, path)
	if jsonEqual(originalValue, newValue) {
		delete(tracking, path)
		return tracking
	}
	tracking[path] = FieldChange{Path: path, From: originalValue, To: newValue}
	return tracking
}

// Resolve walks a dot-delimited path against the snapshot. The first segment
// is the section letter and carries no lookup; every later segment is an
// object-key lookup.
func Resolve(snapshot map[string]any, path string) any {
	segments := strings.Split(path, ".")
	if len(segments) < 2 {
		return nil
	}
	var current any = snapshot
	for _, segment := range segments[1:] {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// jsonEqual is serialization equality: both values are marshalled and the
// bytes compared. For maps Go's encoder emits sorted keys, so unlike the
// stringify comparison this grew out of, key order cannot produce phantom
// diffs.
func jsonEqual(a, b any) bool {
	ab, aErr := json.Marshal(a)
	bb, bErr := json.Marshal(b)
	if aErr != nil || bErr != nil {
		return aErr == nil && bErr == nil
	}
	return bytes.Equal(ab, bb)
}

// Section returns the section letter of a tracked path.
func Section(path string) string {
	if path == "" {
		return ""
	}
	return path[:1]
}
