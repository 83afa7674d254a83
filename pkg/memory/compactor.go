package memory

import (
	"context"
)

// TokenBudget configures when and how aggressively the compactor acts.
type TokenBudget struct {
	Max                int
	Target             int
	MinRetainedEntries int
	SystemReserve      int
}

// SummaryRequest is the bundle handed to the Summarizer oracle.
type SummaryRequest struct {
	Entries        []Entry
	SessionContext string
	TokenCeiling   int
}

// SummaryResponse is the oracle's reply.
type SummaryResponse struct {
	Summary      string
	SummaryTokens int
}

// Summarizer is the external oracle contract; a concrete implementation
// lives behind pkg/llm so the compactor never depends on a specific model
// provider.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (SummaryResponse, error)
}

// TriggerReason names why a compaction pass was invoked.
type TriggerReason string

const (
	TriggerBudgetExceeded TriggerReason = "budget_exceeded"
	TriggerEveryNRounds   TriggerReason = "every_n_rounds"
	TriggerPhaseChange    TriggerReason = "phase_change"
	TriggerTierEscalation TriggerReason = "tier_escalation"
	TriggerSessionEnd     TriggerReason = "session_end"
)

// Compactor evaluates a Store's active token usage against a TokenBudget and
// performs summary-sentinel compaction via an external Summarizer.
type Compactor struct {
	store      *Store
	budget     TokenBudget
	summarizer Summarizer
}

// NewCompactor constructs a Compactor bound to one store.
func NewCompactor(store *Store, budget TokenBudget, summarizer Summarizer) *Compactor {
	return &Compactor{store: store, budget: budget, summarizer: summarizer}
}

// ShouldCompact reports whether the store's active token count exceeds the
// budget's target. An explicit non-budget trigger always answers yes, per
// spec.md §4.D ("The policy's effect on (a) is 'always yes' regardless of
// settings").
func (c *Compactor) ShouldCompact(reason TriggerReason) bool {
	if reason != TriggerBudgetExceeded {
		return true
	}
	return c.store.ActiveTokenCount() > c.budget.Target
}

// selectionPlan computes the minimum prefix of oldest active entries whose
// removal brings the remainder under target while leaving at least
// MinRetainedEntries active.
func (c *Compactor) selectionPlan() ([]Entry, bool) {
	active := c.store.ActiveEntries()
	total := 0
	for _, e := range active {
		total += e.EstimatedTokens
	}
	if total <= c.budget.Target {
		return nil, false
	}

	maxRemovable := len(active) - c.budget.MinRetainedEntries
	if maxRemovable <= 0 {
		return nil, false
	}

	running := total
	selected := make([]Entry, 0, maxRemovable)
	for i := 0; i < maxRemovable; i++ {
		e := active[i]
		selected = append(selected, e)
		running -= e.EstimatedTokens
		if running <= c.budget.Target {
			return selected, true
		}
	}
	// Even removing the maximum allowed entries doesn't reach target; the
	// caller still gets the best achievable prefix rather than nothing.
	return selected, true
}

// Compact runs one compaction pass: select the eligible prefix, call the
// Summarizer, validate the response, and commit via InsertSummary.
func (c *Compactor) Compact(ctx context.Context, sessionContext string, tokenCeiling int, reason TriggerReason) (Entry, error) {
	if !c.ShouldCompact(reason) {
		return Entry{}, &RangeError{Reason: "compact memory", Cause: errNotNeeded{}}
	}

	selected, ok := c.selectionPlan()
	if !ok || len(selected) == 0 {
		return Entry{}, &RangeError{Reason: "compact memory", Cause: errEmptyInput{}}
	}

	fromSeq, toSeq := selected[0].Seq, selected[len(selected)-1].Seq

	resp, err := c.summarizer.Summarize(ctx, SummaryRequest{
		Entries:        selected,
		SessionContext: sessionContext,
		TokenCeiling:   tokenCeiling,
	})
	if err != nil {
		return Entry{}, &RangeError{Reason: "summarize memory range", FromSeq: fromSeq, ToSeq: toSeq, Cause: err}
	}
	if resp.Summary == "" {
		return Entry{}, &RangeError{Reason: "summarize memory range", FromSeq: fromSeq, ToSeq: toSeq, Cause: errSummarizationFailed{"oracle returned empty summary"}}
	}
	if resp.SummaryTokens > tokenCeiling {
		return Entry{}, &RangeError{Reason: "summarize memory range", FromSeq: fromSeq, ToSeq: toSeq, Cause: errSummaryTooLarge{resp.SummaryTokens, tokenCeiling}}
	}

	summary := c.store.InsertSummary(resp.Summary, "compactor", toSeq)
	return summary, nil
}

type errNotNeeded struct{}

func (errNotNeeded) Error() string { return "compaction not needed under current budget" }

type errEmptyInput struct{}

func (errEmptyInput) Error() string { return "no entries eligible for compaction" }

type errSummarizationFailed struct{ msg string }

func (e errSummarizationFailed) Error() string { return e.msg }

type errSummaryTooLarge struct {
	got, ceiling int
}

func (e errSummaryTooLarge) Error() string {
	return "summary exceeded token ceiling"
}
