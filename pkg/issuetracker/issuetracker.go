// Package issuetracker defines the narrow read-only contract the core
// consumes from an external issue tracker (spec.md §1: "treated as a
// key-value iterator of tasks"), plus an in-memory reference
// implementation sufficient to drive the orchestrator in tests.
package issuetracker

import (
	"context"
	"sync"
)

// Issue is the read-only entity spec.md §3 defines: identifier plus human
// description, created externally.
type Issue struct {
	ID          string
	Title       string
	Description string
}

// Tracker is the capability contract the orchestrator consults to select
// its next issue. Implementations are never written to by the core.
type Tracker interface {
	// Next returns the next unclaimed issue, or ok=false when none remain.
	Next(ctx context.Context) (issue Issue, ok bool, err error)
}

// MemoryTracker is an in-memory Tracker backed by a fixed ordered issue
// list, for tests and local runs without a real tracker integration.
type MemoryTracker struct {
	mu     sync.Mutex
	issues []Issue
	cursor int
}

// NewMemoryTracker returns a Tracker that yields issues in the given order,
// one per Next call.
func NewMemoryTracker(issues []Issue) *MemoryTracker {
	cp := make([]Issue, len(issues))
	copy(cp, issues)
	return &MemoryTracker{issues: cp}
}

// Next implements Tracker.
func (m *MemoryTracker) Next(ctx context.Context) (Issue, bool, error) {
	if err := ctx.Err(); err != nil {
		return Issue{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cursor >= len(m.issues) {
		return Issue{}, false, nil
	}
	issue := m.issues[m.cursor]
	m.cursor++
	return issue, true, nil
}

// Remaining reports how many issues have not yet been claimed.
func (m *MemoryTracker) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.issues) - m.cursor
}
