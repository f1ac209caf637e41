package changeset

// SectionCounts recomputes per-section change counts for UI badges. Pure
// function of current state; records are small (tens of fields, single-digit
// list lengths), so a full recompute per keystroke is fine.
func SectionCounts(tracking Tracking, workOrders, spares []Item) map[string]int {
	counts := make(map[string]int)
	for path := range tracking {
		if s := Section(path); s != "" {
			counts[s]++
		}
	}
	for i := range workOrders {
		if workOrders[i].Changed() {
			counts[WorkOrders.Section]++
		}
	}
	for i := range spares {
		if spares[i].Changed() {
			counts[Spares.Section]++
		}
	}
	return counts
}
