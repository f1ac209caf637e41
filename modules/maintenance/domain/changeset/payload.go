package changeset

import "fmt"

// Change is a single from/to pair in the diff.
type Change struct {
	From any `json:"from"`
	To   any `json:"to"`
}

// ListSummary counts the reconciliation buckets of one list-bearing section.
type ListSummary struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
}

// Target identifies the record a change request proposes to modify.
type Target struct {
	ComponentID   string `json:"componentId"`
	ComponentCode string `json:"componentCode"`
	ComponentName string `json:"componentName"`
	VesselID      string `json:"vesselId"`
}

// Payload is the immutable change-request body built once at submit time.
// Summary maps a section letter to either an int (scalar sections) or a
// ListSummary; Diff maps "A.maker" style keys to a Change and
// "C.workOrders.added" style keys to bucket slices.
type Payload struct {
	Type    string         `json:"type"`
	Target  Target         `json:"target"`
	Title   string         `json:"title"`
	Reason  string         `json:"reason"`
	Summary map[string]any `json:"summary"`
	Diff    map[string]any `json:"diff"`
}

// HasChanges is the pre-submit gate: an empty diff must never be sent.
func (p *Payload) HasChanges() bool {
	return p != nil && len(p.Diff) > 0
}

// BuildInput carries everything the builder needs. Current and Original are
// flat field→value snapshots of the scalar sections.
type BuildInput struct {
	Type     string
	Title    string
	Reason   string
	Target   Target
	Current  map[string]any
	Original map[string]any

	WorkOrders []Item
	Spares     []Item
	Metrics    []Item
}

// BuildPayload walks all tracked state and produces the change-request
// payload, or nil when either snapshot is absent (nothing to diff against).
func BuildPayload(in BuildInput) *Payload {
	if in.Current == nil || in.Original == nil {
		return nil
	}

	p := &Payload{
		Type:    in.Type,
		Target:  in.Target,
		Title:   in.Title,
		Reason:  in.Reason,
		Summary: make(map[string]any),
		Diff:    make(map[string]any),
	}

	for _, section := range ScalarSections() {
		count := 0
		for _, field := range SectionFields[section] {
			from, to := in.Original[field], in.Current[field]
			if !scalarDiffers(from, to) {
				continue
			}
			p.Diff[fmt.Sprintf("%s.%s", section, field)] = Change{From: from, To: to}
			count++
		}
		if count > 0 {
			p.Summary[section] = count
		}
	}

	p.addListDiff(WorkOrders, in.WorkOrders)
	p.addListDiff(Metrics, in.Metrics)
	p.addListDiff(Spares, in.Spares)
	return p
}

// scalarDiffers uses strict inequality for comparable JSON scalars and falls
// back to serialization equality for anything else, so a stray object value
// cannot panic the builder.
func scalarDiffers(from, to any) bool {
	if isComparable(from) && isComparable(to) {
		return from != to
	}
	return !jsonEqual(from, to)
}

func isComparable(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, int, int64:
		return true
	default:
		return false
	}
}

// addListDiff classifies every list item into exactly one of the
// added/modified/removed buckets. Items that are both new and removed are
// skipped entirely: added-then-removed nets to a no-op.
func (p *Payload) addListDiff(kind EntityKind, items []Item) {
	var (
		added    []map[string]any
		modified []map[string]any
		removed  []map[string]any
	)

	for i := range items {
		item := &items[i]
		switch {
		case item.IsNew && item.Removed:
			// cancellation rule
		case item.IsNew:
			added = append(added, cloneFields(item.Fields))
		case item.Removed:
			removed = append(removed, map[string]any{kind.KeyField: item.Key(kind)})
		case item.Original != nil:
			fields := diffFields(item.Original, item.Fields)
			if len(fields) == 0 {
				continue
			}
			record := map[string]any{
				kind.KeyField: item.Key(kind),
				"fields":      fields,
			}
			modified = append(modified, record)
		}
	}

	if len(added) > 0 {
		p.Diff[fmt.Sprintf("%s.%s.added", kind.Section, kind.Name)] = added
	}
	if len(modified) > 0 {
		p.Diff[fmt.Sprintf("%s.%s.modified", kind.Section, kind.Name)] = modified
	}
	if len(removed) > 0 {
		p.Diff[fmt.Sprintf("%s.%s.removed", kind.Section, kind.Name)] = removed
	}
	if len(added)+len(modified)+len(removed) > 0 {
		p.Summary[kind.Section] = ListSummary{
			Added:    len(added),
			Modified: len(modified),
			Removed:  len(removed),
		}
	}
}

// diffFields returns exactly the keys whose values differ between the
// original snapshot and the current fields.
func diffFields(original, current map[string]any) map[string]Change {
	out := make(map[string]Change)
	for field, from := range original {
		to := current[field]
		if scalarDiffers(from, to) {
			out[field] = Change{From: from, To: to}
		}
	}
	for field, to := range current {
		if _, seen := original[field]; !seen && to != nil {
			out[field] = Change{From: nil, To: to}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
