package changeset

// ItemsFromDocuments reconstructs the reconciliation state of one list
// section by keying both documents' entries on the kind's key field:
// entries only in proposed are additions, entries only in original are
// removals, entries in both carry their original snapshot so the payload
// builder can diff per field.
func ItemsFromDocuments(kind EntityKind, original, proposed map[string]any) []Item {
	originalEntries := listEntries(kind, original)
	proposedEntries := listEntries(kind, proposed)

	var items []Item
	seen := make(map[string]bool, len(proposedEntries))

	for _, entry := range proposedEntries {
		key, ok := entry[kind.KeyField].(string)
		if !ok || key == "" {
			continue
		}
		seen[key] = true
		orig, existed := findEntry(originalEntries, kind.KeyField, key)
		if !existed {
			items = append(items, Item{ID: key, Fields: entry, IsNew: true})
			continue
		}
		items = append(items, Item{ID: key, Fields: entry, Original: orig})
	}

	for _, entry := range originalEntries {
		key, ok := entry[kind.KeyField].(string)
		if !ok || key == "" || seen[key] {
			continue
		}
		items = append(items, Item{ID: key, Fields: entry, Removed: true, Original: entry})
	}
	return items
}

func listEntries(kind EntityKind, doc map[string]any) []map[string]any {
	raw, _ := doc[kind.Name].([]any)
	entries := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if m, ok := v.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}

func findEntry(entries []map[string]any, keyField, key string) (map[string]any, bool) {
	for _, e := range entries {
		if k, _ := e[keyField].(string); k == key {
			return e, true
		}
	}
	return nil, false
}
