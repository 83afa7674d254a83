// Package debate implements the coder/reviewer debate loop from
// SPEC_FULL.md §4.F, including consensus detection and deadlock guardrails.
package debate

import (
	"sort"
	"time"

	"github.com/jordigilh/swarmcore/pkg/shared/ids"
)

// Phase is the closed phase set.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseCoderTurn   Phase = "coder_turn"
	PhaseReviewerTurn Phase = "reviewer_turn"
	PhaseResolved    Phase = "resolved"
	PhaseDeadlocked  Phase = "deadlocked"
	PhaseEscalated   Phase = "escalated"
	PhaseAborted     Phase = "aborted"
)

func isTerminal(p Phase) bool {
	switch p {
	case PhaseResolved, PhaseDeadlocked, PhaseEscalated, PhaseAborted:
		return true
	}
	return false
}

// legalEdges encodes spec.md §4.F's transition table.
var legalEdges = map[Phase]map[Phase]bool{
	PhaseIdle:        {PhaseCoderTurn: true},
	PhaseCoderTurn:   {PhaseReviewerTurn: true},
	PhaseReviewerTurn: {
		PhaseResolved:   true,
		PhaseCoderTurn:  true,
		PhaseDeadlocked: true,
		PhaseEscalated:  true,
		PhaseAborted:    true,
	},
}

// Verdict is the reviewer's structured consensus check.
type Verdict string

const (
	VerdictApprove       Verdict = "approve"
	VerdictRequestChanges Verdict = "request_changes"
	VerdictAbstain       Verdict = "abstain"
)

// Severity orders repair instructions: blocking > warning > suggestion.
type Severity int

const (
	SeveritySuggestion Severity = iota
	SeverityWarning
	SeverityBlocking
)

// Issue is one reviewer-raised point, in input order.
type Issue struct {
	Severity Severity
	Text     string
}

// ConsensusCheck is the structured payload of a review.
type ConsensusCheck struct {
	Verdict       Verdict
	Confidence    float64
	BlockingIssues []string
	Suggestions    []string
	Issues         []Issue
}

// RoundRecord logs one coder/reviewer round.
type RoundRecord struct {
	Round    int
	Code     string
	Review   ConsensusCheck
	Phase    Phase
	At       time.Time
}

// Guardrails configures deadlock/escalation detection.
type Guardrails struct {
	MaxRounds          int
	MinConfidence      float64
	StallRounds        int // N consecutive rounds with identical blocking-issue set
	EscalationAbstains int // >= X abstains/low-confidence reviews triggers Escalated
	LowConfidenceFloor float64
	WallClock          time.Duration
}

// Session is one debate's state machine instance.
type Session struct {
	ID        string
	IssueID   string
	Phase     Phase
	Round     int
	Rounds    []RoundRecord
	guardrails Guardrails
	startedAt  time.Time
	abstainRun int
}

// NewSession constructs a debate session in Idle phase.
func NewSession(issueID string, guardrails Guardrails, now time.Time) *Session {
	return &Session{
		ID:         ids.New(),
		IssueID:    issueID,
		Phase:      PhaseIdle,
		guardrails: guardrails,
		startedAt:  now,
	}
}

// ErrIllegalTransition is returned by transition attempts that violate the
// phase graph, including any transition out of a terminal phase.
type ErrIllegalTransition struct {
	From, To Phase
}

func (e *ErrIllegalTransition) Error() string {
	return "illegal debate transition from " + string(e.From) + " to " + string(e.To)
}

func (s *Session) transition(to Phase) error {
	if isTerminal(s.Phase) {
		return &ErrIllegalTransition{From: s.Phase, To: to}
	}
	if to == PhaseAborted {
		s.Phase = to
		return nil
	}
	if !legalEdges[s.Phase][to] {
		return &ErrIllegalTransition{From: s.Phase, To: to}
	}
	s.Phase = to
	return nil
}

// SubmitCode drives Idle/CoderTurn -> ReviewerTurn with the coder's output.
func (s *Session) SubmitCode(code string, now time.Time) error {
	if s.Phase == PhaseIdle {
		if err := s.transition(PhaseCoderTurn); err != nil {
			return err
		}
	}
	if err := s.transition(PhaseReviewerTurn); err != nil {
		return err
	}
	s.Round++
	s.Rounds = append(s.Rounds, RoundRecord{Round: s.Round, Code: code, Phase: s.Phase, At: now})
	return nil
}

// SubmitReview applies the reviewer's ConsensusCheck and advances the phase
// per the decision rules in spec.md §4.F.
func (s *Session) SubmitReview(review ConsensusCheck, now time.Time) (Phase, error) {
	if s.Phase != PhaseReviewerTurn {
		return s.Phase, &ErrIllegalTransition{From: s.Phase, To: PhaseReviewerTurn}
	}
	if len(s.Rounds) > 0 {
		s.Rounds[len(s.Rounds)-1].Review = review
	}

	if review.Verdict == VerdictApprove && review.Confidence >= s.guardrails.MinConfidence {
		if err := s.transition(PhaseResolved); err != nil {
			return s.Phase, err
		}
		return s.Phase, nil
	}

	if review.Verdict == VerdictAbstain || review.Confidence < s.guardrails.LowConfidenceFloor {
		s.abstainRun++
	} else {
		s.abstainRun = 0
	}

	next := s.guardrailOutcome(now)
	if err := s.transition(next); err != nil {
		return s.Phase, err
	}
	return s.Phase, nil
}

func (s *Session) guardrailOutcome(now time.Time) Phase {
	if s.guardrails.WallClock > 0 && now.Sub(s.startedAt) > s.guardrails.WallClock {
		return PhaseAborted
	}
	if s.guardrails.EscalationAbstains > 0 && s.abstainRun >= s.guardrails.EscalationAbstains {
		return PhaseEscalated
	}
	if s.guardrails.MaxRounds > 0 && s.Round >= s.guardrails.MaxRounds {
		return PhaseDeadlocked
	}
	if s.stalled() {
		return PhaseDeadlocked
	}
	return PhaseCoderTurn
}

// stalled reports whether the last StallRounds rounds all carry the same
// blocking-issue set.
func (s *Session) stalled() bool {
	n := s.guardrails.StallRounds
	if n <= 1 || len(s.Rounds) < n {
		return false
	}
	tail := s.Rounds[len(s.Rounds)-n:]
	base := blockingSet(tail[0].Review.BlockingIssues)
	for _, r := range tail[1:] {
		if !sameSet(base, blockingSet(r.Review.BlockingIssues)) {
			return false
		}
	}
	return true
}

func blockingSet(issues []string) map[string]bool {
	set := make(map[string]bool, len(issues))
	for _, i := range issues {
		set[i] = true
	}
	return set
}

func sameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Abort forces a transition to Aborted. Per spec.md §9's resolved open
// question, aborting an already-terminal session is an error, not a no-op.
func (s *Session) Abort() error {
	return s.transition(PhaseAborted)
}

// RepairInstructions transforms reviewer feedback into a priority-ordered
// instruction list: blocking > warning > suggestion, stable within priority
// by input order.
func RepairInstructions(review ConsensusCheck) []Issue {
	out := make([]Issue, len(review.Issues))
	copy(out, review.Issues)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity > out[j].Severity
	})
	return out
}
