package memory

import (
	"context"
	"testing"
)

type fixedEstimator struct{ tokensPerEntry int }

func (f fixedEstimator) Estimate(content string) int { return f.tokensPerEntry }

type stubSummarizer struct {
	resp SummaryResponse
	err  error
}

func (s stubSummarizer) Summarize(ctx context.Context, req SummaryRequest) (SummaryResponse, error) {
	return s.resp, s.err
}

func TestStore_AppendAndActiveTokenCount(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 20})
	for i := 0; i < 5; i++ {
		s.Append(KindAgentTurn, "turn", "coder")
	}
	if got := s.ActiveTokenCount(); got != 100 {
		t.Errorf("ActiveTokenCount() = %d, want 100", got)
	}
	if len(s.ActiveEntries()) != 5 {
		t.Errorf("ActiveEntries() len = %d, want 5", len(s.ActiveEntries()))
	}
}

func TestStore_InsertSummary_CompactsPrefix(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 20})
	for i := 0; i < 5; i++ {
		s.Append(KindAgentTurn, "turn", "coder")
	}
	all := s.AllEntries()
	lastCompacted := all[2].Seq // compact seq 0,1,2

	summary := s.InsertSummary("summary of early turns", "compactor", lastCompacted)

	if summary.Seq <= lastCompacted {
		t.Errorf("summary.Seq = %d, want > %d", summary.Seq, lastCompacted)
	}

	active := s.ActiveEntries()
	// entries 3,4 plus the summary itself remain active = 3
	if len(active) != 3 {
		t.Fatalf("ActiveEntries() len = %d, want 3: %+v", len(active), active)
	}
	for _, e := range active {
		if e.Kind != KindSummary && e.Seq <= lastCompacted {
			t.Errorf("entry seq %d should have been compacted", e.Seq)
		}
	}
}

func TestCompactor_ShouldCompact_NonBudgetAlwaysYes(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 1})
	c := NewCompactor(s, TokenBudget{Max: 1000, Target: 1000, MinRetainedEntries: 1}, nil)
	if !c.ShouldCompact(TriggerPhaseChange) {
		t.Error("ShouldCompact(phase_change) = false, want true regardless of budget")
	}
}

func TestCompactor_ShouldCompact_BudgetGated(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 1})
	s.Append(KindAgentTurn, "x", "coder")
	c := NewCompactor(s, TokenBudget{Max: 1000, Target: 1000, MinRetainedEntries: 1}, nil)
	if c.ShouldCompact(TriggerBudgetExceeded) {
		t.Error("ShouldCompact(budget_exceeded) = true under target")
	}
}

// S6 — compaction preserves recent tail, from spec.md §8.
func TestCompactor_S6_PreservesRecentTail(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 20})
	for i := 0; i < 5; i++ {
		s.Append(KindAgentTurn, "turn", "coder")
	}
	budget := TokenBudget{Max: 100, Target: 30, MinRetainedEntries: 3}
	summarizer := stubSummarizer{resp: SummaryResponse{Summary: "compacted early history", SummaryTokens: 10}}
	c := NewCompactor(s, budget, summarizer)

	preCount := s.ActiveTokenCount()

	_, err := c.Compact(context.Background(), "session blurb", 50, TriggerBudgetExceeded)
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}

	active := s.ActiveEntries()
	nonSummary := 0
	summaryCount := 0
	var maxCompactedSeq int64 = -1
	for _, e := range s.AllEntries() {
		if e.Compacted {
			if e.Seq > maxCompactedSeq {
				maxCompactedSeq = e.Seq
			}
		}
	}
	for _, e := range active {
		if e.Kind == KindSummary {
			summaryCount++
			if e.Seq <= maxCompactedSeq {
				t.Errorf("summary seq %d does not exceed compacted seq %d", e.Seq, maxCompactedSeq)
			}
		} else {
			nonSummary++
		}
	}
	if nonSummary < budget.MinRetainedEntries {
		t.Errorf("nonSummary active entries = %d, want >= %d", nonSummary, budget.MinRetainedEntries)
	}
	if summaryCount != 1 {
		t.Errorf("summaryCount = %d, want exactly 1", summaryCount)
	}
	if s.ActiveTokenCount() >= preCount {
		t.Errorf("ActiveTokenCount() did not decrease: pre=%d post=%d", preCount, s.ActiveTokenCount())
	}
}

func TestCompactor_EmptyInput(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 1})
	s.Append(KindAgentTurn, "x", "coder")
	c := NewCompactor(s, TokenBudget{Max: 100, Target: 100, MinRetainedEntries: 5}, stubSummarizer{})
	_, err := c.Compact(context.Background(), "ctx", 50, TriggerPhaseChange)
	if err == nil {
		t.Fatal("expected EmptyInput-shaped error when nothing eligible")
	}
}

func TestCompactor_SummarizationFailed(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 50})
	for i := 0; i < 5; i++ {
		s.Append(KindAgentTurn, "x", "coder")
	}
	c := NewCompactor(s, TokenBudget{Max: 300, Target: 50, MinRetainedEntries: 1}, stubSummarizer{err: errSummarizationFailed{"oracle down"}})
	_, err := c.Compact(context.Background(), "ctx", 50, TriggerBudgetExceeded)
	if err == nil {
		t.Fatal("expected error when summarizer fails")
	}
	var re *RangeError
	if e, ok := err.(*RangeError); ok {
		re = e
	}
	if re == nil {
		t.Fatalf("error type = %T, want *RangeError", err)
	}
	if re.FromSeq > re.ToSeq {
		t.Errorf("range invalid: from=%d to=%d", re.FromSeq, re.ToSeq)
	}
}

func TestCompactor_SummaryTooLarge(t *testing.T) {
	s := NewStore(fixedEstimator{tokensPerEntry: 50})
	for i := 0; i < 5; i++ {
		s.Append(KindAgentTurn, "x", "coder")
	}
	c := NewCompactor(s, TokenBudget{Max: 300, Target: 50, MinRetainedEntries: 1}, stubSummarizer{resp: SummaryResponse{Summary: "too big", SummaryTokens: 999}})
	_, err := c.Compact(context.Background(), "ctx", 50, TriggerBudgetExceeded)
	if err == nil {
		t.Fatal("expected SummaryTooLarge error")
	}
}
