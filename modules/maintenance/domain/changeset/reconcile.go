package changeset

import (
	"fmt"
	"time"
)

// RemovalFlag names the semantics of taking a list item out of a record:
// owned items (work orders, condition metrics) are deleted, linked items
// (spares from the catalogue) are unlinked.
type RemovalFlag string

const (
	PendingDelete RemovalFlag = "pendingDelete"
	PendingUnlink RemovalFlag = "pendingUnlink"
)

// Item is a list entity (work order, spare, condition metric) together with
// its transient edit state. Removed items stay in the list so the diff
// builder can emit a removed record and so the user can restore them before
// submit.
type Item struct {
	ID        string
	Fields    map[string]any
	IsNew     bool
	IsEditing bool
	Removed   bool
	Original  map[string]any
}

// Key returns the item's stable identifier under the given kind.
func (it *Item) Key(kind EntityKind) any {
	return it.Fields[kind.KeyField]
}

// EntityKind parameterizes the shared edit lifecycle per list entity type.
type EntityKind struct {
	Name        string
	Section     string
	KeyField    string
	RemovalFlag RemovalFlag
	// Validate gates SaveEdit. Nil means no required-field validation.
	Validate func(fields map[string]any) error
}

var (
	WorkOrders = EntityKind{
		Name:        "workOrders",
		Section:     "C",
		KeyField:    "woNo",
		RemovalFlag: PendingDelete,
		Validate:    workOrderRequired,
	}
	Metrics = EntityKind{
		Name:        "conditionMetrics",
		Section:     "D",
		KeyField:    "name",
		RemovalFlag: PendingDelete,
	}
	Spares = EntityKind{
		Name:        "spares",
		Section:     "E",
		KeyField:    "partCode",
		RemovalFlag: PendingUnlink,
	}
)

func workOrderRequired(fields map[string]any) error {
	if s, _ := fields["jobTitle"].(string); s == "" {
		return fmt.Errorf("jobTitle is required")
	}
	if s, _ := fields["frequencyType"].(string); s == "" {
		return fmt.Errorf("frequencyType is required")
	}
	if asNumber(fields["frequencyValue"]) <= 0 {
		return fmt.Errorf("frequencyValue must be positive")
	}
	return nil
}

func asNumber(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		return 0
	}
}

// TempID generates a session-local identifier for newly added items.
// Time-based; collisions are not a concern inside a single edit session.
func TempID() string {
	return fmt.Sprintf("tmp-%d", time.Now().UnixNano())
}

// Add appends a new item, immediately in edit mode.
func Add(list []Item, fields map[string]any) []Item {
	if fields == nil {
		fields = map[string]any{}
	}
	return append(list, Item{
		ID:        TempID(),
		Fields:    fields,
		IsNew:     true,
		IsEditing: true,
	})
}

// StartEdit snapshots the item's fields so a later cancel can revert and the
// diff builder can compute per-field changes.
func StartEdit(item *Item) {
	if item.Original == nil {
		item.Original = cloneFields(item.Fields)
	}
	item.IsEditing = true
}

// EditField merges one field change into the item. For items that have an
// original snapshot, editing every field back to its original value clears
// the editing flag again — the single policy applied to all entity types.
func EditField(item *Item, field string, value any) {
	if item.Fields == nil {
		item.Fields = map[string]any{}
	}
	item.Fields[field] = value
	if !item.IsNew && item.Original != nil && fieldsEqual(item.Fields, item.Original) {
		item.IsEditing = false
	}
}

// SaveEdit validates required fields per kind and leaves edit mode.
func SaveEdit(kind EntityKind, item *Item) error {
	if kind.Validate != nil {
		if err := kind.Validate(item.Fields); err != nil {
			return err
		}
	}
	item.IsEditing = false
	return nil
}

// CancelEdit restores fields from the original snapshot, keeping the id.
func CancelEdit(item *Item) {
	if item.Original != nil {
		item.Fields = cloneFields(item.Original)
	}
	item.IsEditing = false
}

// Remove marks the item for deletion/unlinking without taking it out of the
// in-memory list.
func Remove(item *Item) {
	item.Removed = true
}

// Restore undoes Remove for any entity kind.
func Restore(item *Item) {
	item.Removed = false
}

// Changed reports whether the item contributes to its section's badge count.
func (it *Item) Changed() bool {
	return it.IsNew || it.Removed || it.IsEditing
}

func cloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func fieldsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !jsonEqual(av, bv) {
			return false
		}
	}
	return true
}
