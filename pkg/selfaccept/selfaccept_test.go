package selfaccept

import "testing"

func TestFirstUse_MovesCandidateToProbation(t *testing.T) {
	item := NewCandidate("skill-1")
	policy := Policy{ProbationPeriod: 5, MinUsesBeforePromotion: 10, MinSuccessRate: 0.8}
	TrackUsage(item, OutcomeSuccess, policy)
	if item.Status != StatusProbation {
		t.Fatalf("Status = %v, want Probation", item.Status)
	}
	if item.UsesRemaining != 4 {
		t.Fatalf("UsesRemaining = %d, want 4 (probation_period - 1)", item.UsesRemaining)
	}
}

func TestEarlyPromotion_WhenCriteriaMetBeforeProbationEnds(t *testing.T) {
	item := NewCandidate("skill-2")
	policy := Policy{ProbationPeriod: 10, MinUsesBeforePromotion: 3, MinSuccessRate: 0.6}
	TrackUsage(item, OutcomeSuccess, policy)
	TrackUsage(item, OutcomeSuccess, policy)
	TrackUsage(item, OutcomeSuccess, policy)
	if item.Status != StatusAccepted {
		t.Fatalf("Status = %v, want Accepted after early promotion", item.Status)
	}
}

func TestProbationExpiry_PromotesWhenCriteriaMet(t *testing.T) {
	item := NewCandidate("skill-3")
	policy := Policy{ProbationPeriod: 3, MinUsesBeforePromotion: 3, MinSuccessRate: 0.5}
	TrackUsage(item, OutcomeSuccess, policy)
	TrackUsage(item, OutcomeFailure, policy)
	TrackUsage(item, OutcomeSuccess, policy)
	if item.Status != StatusAccepted {
		t.Fatalf("Status = %v, want Accepted (2/3 success rate >= 0.5)", item.Status)
	}
}

func TestProbationExpiry_RejectsWhenCriteriaNotMet(t *testing.T) {
	item := NewCandidate("skill-4")
	policy := Policy{ProbationPeriod: 3, MinUsesBeforePromotion: 3, MinSuccessRate: 0.9}
	TrackUsage(item, OutcomeFailure, policy)
	TrackUsage(item, OutcomeFailure, policy)
	TrackUsage(item, OutcomeSuccess, policy)
	if item.Status != StatusRejected {
		t.Fatalf("Status = %v, want Rejected (1/3 success rate < 0.9)", item.Status)
	}
}

func TestTerminalStates_OnlyUpdateCounters(t *testing.T) {
	item := &TrackedItem{ID: "skill-5", Status: StatusAccepted, TotalUses: 10, SuccessfulUses: 9}
	policy := Policy{ProbationPeriod: 5, MinUsesBeforePromotion: 3, MinSuccessRate: 0.5}
	TrackUsage(item, OutcomeFailure, policy)
	if item.Status != StatusAccepted {
		t.Fatal("Accepted items must remain Accepted regardless of outcome")
	}
	if item.TotalUses != 11 || item.SuccessfulUses != 9 {
		t.Fatalf("counters = (%d, %d), want (11, 9)", item.TotalUses, item.SuccessfulUses)
	}
}

func TestProbationPeriodOfOne_FinalizesImmediately(t *testing.T) {
	item := NewCandidate("skill-6")
	policy := Policy{ProbationPeriod: 1, MinUsesBeforePromotion: 1, MinSuccessRate: 1.0}
	TrackUsage(item, OutcomeSuccess, policy)
	if item.Status != StatusAccepted {
		t.Fatalf("Status = %v, want Accepted on a single successful use with probation_period=1", item.Status)
	}
}

func TestLedger_TracksItemsAcrossPasses(t *testing.T) {
	policy := Policy{ProbationPeriod: 3, MinUsesBeforePromotion: 2, MinSuccessRate: 0.6}
	ledger := NewLedger()

	item := ledger.Track("skill-1", OutcomeSuccess, policy)
	if item.Status != StatusProbation {
		t.Fatalf("first use status = %v, want Probation", item.Status)
	}
	item = ledger.Track("skill-1", OutcomeSuccess, policy)
	if item.Status != StatusAccepted {
		t.Fatalf("second consecutive success should early-promote, got %v", item.Status)
	}
	if ledger.Get("skill-2") != nil {
		t.Fatal("untracked id should return nil")
	}
	if got := len(ledger.Snapshot()); got != 1 {
		t.Fatalf("Snapshot() len = %d, want 1", got)
	}
}

func TestLedger_RejectsAtProbationEnd(t *testing.T) {
	policy := Policy{ProbationPeriod: 2, MinUsesBeforePromotion: 2, MinSuccessRate: 0.9}
	ledger := NewLedger()
	ledger.Track("skill-1", OutcomeFailure, policy)
	item := ledger.Track("skill-1", OutcomeFailure, policy)
	if item.Status != StatusRejected {
		t.Fatalf("all-failure probation should reject, got %v", item.Status)
	}
}
