package selfaccept

import "sort"

// Ledger tracks many items by id across repeated evaluation passes, so a
// caller observing the same learned item over time (the knowledge-base
// refresh pass observing skill confidence, for example) drives one
// TrackedItem per item instead of restarting the lifecycle each pass.
type Ledger struct {
	items map[string]*TrackedItem
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{items: map[string]*TrackedItem{}}
}

// Track records one usage outcome for id, creating the item as a Candidate
// on first sight, and returns the item's post-update state.
func (l *Ledger) Track(id string, outcome Outcome, policy Policy) *TrackedItem {
	item, ok := l.items[id]
	if !ok {
		item = NewCandidate(id)
		l.items[id] = item
	}
	TrackUsage(item, outcome, policy)
	return item
}

// Get returns the tracked item for id, or nil if it has never been tracked.
func (l *Ledger) Get(id string) *TrackedItem {
	return l.items[id]
}

// Snapshot returns every tracked item, ordered by id.
func (l *Ledger) Snapshot() []TrackedItem {
	out := make([]TrackedItem, 0, len(l.items))
	for _, item := range l.items {
		out = append(out, *item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
