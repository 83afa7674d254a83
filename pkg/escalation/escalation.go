// Package escalation implements the deterministic tier-routing engine from
// SPEC_FULL.md §4.G.
package escalation

import (
	"time"

	"github.com/jordigilh/swarmcore/pkg/taxonomy"
	"github.com/jordigilh/swarmcore/pkg/verifier"
)

// Tier is the escalation ladder.
type Tier string

const (
	TierWorker     Tier = "worker"
	TierIntegrator Tier = "integrator"
	TierCloud      Tier = "cloud"
	TierAdversary  Tier = "adversary"
)

// Action is the closed action set a decision may recommend.
type Action string

const (
	ActionContinue             Action = "continue"
	ActionRepairPlan           Action = "repair_plan"
	ActionArchitecturalGuidance Action = "architectural_guidance"
	ActionAdversaryReview       Action = "adversary_review"
	ActionFlagForHuman          Action = "flag_for_human"
	ActionBudgetExhausted       Action = "budget_exhausted"
)

// Reason tags a tier-change log entry.
type Reason string

const (
	ReasonRepeatedCategory Reason = "repeated_category"
	ReasonFailureThreshold Reason = "failure_threshold"
	ReasonMultiFile        Reason = "multi_file"
	ReasonBudgetExhausted  Reason = "budget_exhausted"
	ReasonBothExhausted    Reason = "both_exhausted"
	ReasonGreenAdversary   Reason = "green_adversary"
	ReasonGreenResolved    Reason = "green_resolved"
)

// TransitionLogEntry records one decision.
type TransitionLogEntry struct {
	Iteration int
	FromTier  Tier
	ToTier    Tier
	Reason    Reason
	At        time.Time
}

// TierBudget bounds one tier's iterations/consultations.
type TierBudget struct {
	MaxIterations int
	Used          int
}

func (b TierBudget) exhausted() bool { return b.Used >= b.MaxIterations }

// Thresholds configures the Worker-tier routing rules.
type Thresholds struct {
	RepeatThreshold     int // error category recurrence count to escalate
	FailureThreshold    int // total failures to escalate
	MultiFileThreshold  int // touched-file count to escalate straight to Cloud
	ReviewRequired      bool
}

// State is the mutable EscalationState for one session.
type State struct {
	BeadID            string
	CurrentTier       Tier
	TierBudgets       map[Tier]TierBudget
	Recurrence        map[taxonomy.Category]int
	TotalFailures     int
	Stuck             bool
	Log               []TransitionLogEntry
	Thresholds        Thresholds
	iteration         int
}

// NewState constructs an EscalationState starting at Worker.
func NewState(beadID string, budgets map[Tier]TierBudget, thresholds Thresholds) *State {
	if budgets == nil {
		budgets = map[Tier]TierBudget{}
	}
	return &State{
		BeadID:      beadID,
		CurrentTier: TierWorker,
		TierBudgets: budgets,
		Recurrence:  make(map[taxonomy.Category]int),
		Thresholds:  thresholds,
	}
}

// Decision is the engine's structured output.
type Decision struct {
	TargetTier   Tier
	Escalated    bool
	Resolved     bool
	Stuck        bool
	NeedsReview  bool
	Action       Action
}

// Decide evaluates report against state at the current tier and returns the
// next decision, mutating state per spec.md §4.G.
func Decide(s *State, report *verifier.VerifierReport, touchedFiles int, now time.Time) Decision {
	s.iteration++

	if report.AllGreen() {
		return decideGreen(s, now)
	}

	updateRecurrence(s, report)
	s.TotalFailures++

	switch s.CurrentTier {
	case TierWorker:
		return decideWorkerFailure(s, touchedFiles, now)
	case TierIntegrator:
		return decideIntegratorFailure(s, now)
	case TierCloud:
		return decideCloudFailure(s, now)
	default:
		return Decision{TargetTier: s.CurrentTier, Action: ActionContinue}
	}
}

func decideGreen(s *State, now time.Time) Decision {
	if s.Thresholds.ReviewRequired {
		budget := s.TierBudgets[TierAdversary]
		if budget.MaxIterations-budget.Used > 0 {
			logTransition(s, s.CurrentTier, TierAdversary, ReasonGreenAdversary, now)
			return Decision{TargetTier: TierAdversary, NeedsReview: true, Action: ActionAdversaryReview}
		}
	}
	return Decision{TargetTier: s.CurrentTier, Resolved: true, Action: ActionContinue}
}

func updateRecurrence(s *State, report *verifier.VerifierReport) {
	for _, g := range report.Gates {
		for _, e := range g.ClassifiedErrors {
			s.Recurrence[e.Category]++
		}
	}
}

func decideWorkerFailure(s *State, touchedFiles int, now time.Time) Decision {
	for _, count := range s.Recurrence {
		if count >= s.Thresholds.RepeatThreshold && s.Thresholds.RepeatThreshold > 0 {
			return escalateTo(s, TierIntegrator, ReasonRepeatedCategory, ActionRepairPlan, now)
		}
	}
	if s.Thresholds.FailureThreshold > 0 && s.TotalFailures > s.Thresholds.FailureThreshold {
		return escalateTo(s, TierIntegrator, ReasonFailureThreshold, ActionRepairPlan, now)
	}
	if s.Thresholds.MultiFileThreshold > 0 && touchedFiles > s.Thresholds.MultiFileThreshold {
		return escalateTo(s, TierCloud, ReasonMultiFile, ActionArchitecturalGuidance, now)
	}

	budget := s.TierBudgets[TierWorker]
	budget.Used++
	s.TierBudgets[TierWorker] = budget
	if budget.exhausted() {
		return escalateTo(s, TierIntegrator, ReasonBudgetExhausted, ActionBudgetExhausted, now)
	}
	return Decision{TargetTier: TierWorker, Action: ActionContinue}
}

func decideIntegratorFailure(s *State, now time.Time) Decision {
	budget := s.TierBudgets[TierIntegrator]
	budget.Used++
	s.TierBudgets[TierIntegrator] = budget

	if budget.exhausted() {
		cloudBudget := s.TierBudgets[TierCloud]
		if cloudBudget.MaxIterations-cloudBudget.Used > 0 {
			return escalateTo(s, TierCloud, ReasonBudgetExhausted, ActionArchitecturalGuidance, now)
		}
		s.Stuck = true
		return Decision{TargetTier: TierIntegrator, Stuck: true, Action: ActionFlagForHuman}
	}
	return Decision{TargetTier: TierIntegrator, Action: ActionRepairPlan}
}

func decideCloudFailure(s *State, now time.Time) Decision {
	budget := s.TierBudgets[TierCloud]
	budget.Used++
	s.TierBudgets[TierCloud] = budget

	if budget.exhausted() {
		s.Stuck = true
		return Decision{TargetTier: TierCloud, Stuck: true, Action: ActionFlagForHuman}
	}
	return Decision{TargetTier: TierCloud, Action: ActionArchitecturalGuidance}
}

func escalateTo(s *State, target Tier, reason Reason, action Action, now time.Time) Decision {
	from := s.CurrentTier
	s.CurrentTier = target
	logTransition(s, from, target, reason, now)
	return Decision{TargetTier: target, Escalated: true, Action: action}
}

func logTransition(s *State, from, to Tier, reason Reason, now time.Time) {
	s.Log = append(s.Log, TransitionLogEntry{
		Iteration: s.iteration,
		FromTier:  from,
		ToTier:    to,
		Reason:    reason,
		At:        now,
	})
}
