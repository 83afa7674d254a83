package llm

import (
	"context"
	"sync"
	"time"
)

// ToolBudget bounds an agent's tool-call activity within one turn: a
// maximum number of calls and a wall-clock deadline. A zero MaxToolCalls or
// zero Deadline leaves that bound unenforced.
type ToolBudget struct {
	MaxToolCalls int
	Deadline     time.Time
}

// BudgetToolHook enforces a ToolBudget over the hook contract: once the
// call count reaches the budget or the deadline passes, every subsequent
// Observe returns a terminate directive. An optional inner hook still sees
// every event, and may terminate earlier on its own.
type BudgetToolHook struct {
	mu     sync.Mutex
	budget ToolBudget
	inner  ToolHook
	now    func() time.Time
	calls  int
}

// NewBudgetToolHook wraps inner (may be nil) with budget enforcement. The
// now function is overridable for tests; nil means time.Now.
func NewBudgetToolHook(budget ToolBudget, inner ToolHook, now func() time.Time) *BudgetToolHook {
	if now == nil {
		now = time.Now
	}
	return &BudgetToolHook{budget: budget, inner: inner, now: now}
}

// Observe implements ToolHook.
func (h *BudgetToolHook) Observe(ctx context.Context, event ToolCallEvent) bool {
	h.mu.Lock()
	h.calls++
	calls := h.calls
	h.mu.Unlock()

	if h.inner != nil && h.inner.Observe(ctx, event) {
		return true
	}
	if h.budget.MaxToolCalls > 0 && calls >= h.budget.MaxToolCalls {
		return true
	}
	if !h.budget.Deadline.IsZero() && h.now().After(h.budget.Deadline) {
		return true
	}
	return false
}

// Calls reports how many tool-call events the hook has observed.
func (h *BudgetToolHook) Calls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}
