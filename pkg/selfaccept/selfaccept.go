// Package selfaccept implements the learned-item lifecycle tracker from
// SPEC_FULL.md §4.L: Candidate -> Probation(uses_remaining) -> {Accepted,
// Rejected}.
package selfaccept

// Status is the tracked item's lifecycle stage.
type Status string

const (
	StatusCandidate Status = "candidate"
	StatusProbation Status = "probation"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Outcome is one usage's result.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Policy configures promotion/rejection thresholds.
type Policy struct {
	ProbationPeriod        int // total probation uses before a forced verdict
	MinUsesBeforePromotion int
	MinSuccessRate         float64
}

// TrackedItem is one learned item (skill, adjusted threshold) under
// tracking.
type TrackedItem struct {
	ID             string
	Status         Status
	UsesRemaining  int
	TotalUses      int
	SuccessfulUses int
}

// NewCandidate starts an item at Candidate with no usage recorded yet.
func NewCandidate(id string) *TrackedItem {
	return &TrackedItem{ID: id, Status: StatusCandidate}
}

func (t *TrackedItem) successRate() float64 {
	if t.TotalUses == 0 {
		return 0
	}
	return float64(t.SuccessfulUses) / float64(t.TotalUses)
}

func (t *TrackedItem) meetsPromotionCriteria(policy Policy) bool {
	return t.TotalUses >= policy.MinUsesBeforePromotion && t.successRate() >= policy.MinSuccessRate
}

// TrackUsage records one usage outcome and applies spec.md §4.L's lifecycle
// rules:
//  1. Accepted/Rejected are terminal; only counters update.
//  2. Candidate -> Probation on first use, with
//     uses_remaining = probation_period - 1.
//  3. On each Probation use, decrement uses_remaining. Early promotion to
//     Accepted iff total uses >= min_uses_before_promotion and success rate
//     >= min_success_rate. When uses_remaining reaches zero: promote iff
//     both criteria are met, else reject.
func TrackUsage(t *TrackedItem, outcome Outcome, policy Policy) {
	t.TotalUses++
	if outcome == OutcomeSuccess {
		t.SuccessfulUses++
	}

	switch t.Status {
	case StatusAccepted, StatusRejected:
		return

	case StatusCandidate:
		t.Status = StatusProbation
		t.UsesRemaining = policy.ProbationPeriod - 1
		if t.UsesRemaining <= 0 {
			finalizeProbation(t, policy)
		}

	case StatusProbation:
		t.UsesRemaining--
		if t.meetsPromotionCriteria(policy) {
			t.Status = StatusAccepted
			return
		}
		if t.UsesRemaining <= 0 {
			finalizeProbation(t, policy)
		}
	}
}

func finalizeProbation(t *TrackedItem, policy Policy) {
	if t.meetsPromotionCriteria(policy) {
		t.Status = StatusAccepted
	} else {
		t.Status = StatusRejected
	}
}
