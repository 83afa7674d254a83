package rollout

import (
	"context"
	"time"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// Stage is the rollout-stage lattice: Disabled < Canary < Staging < Production.
type Stage int

const (
	StageDisabled Stage = iota
	StageCanary
	StageStaging
	StageProduction
)

func (s Stage) String() string {
	switch s {
	case StageDisabled:
		return "disabled"
	case StageCanary:
		return "canary"
	case StageStaging:
		return "staging"
	case StageProduction:
		return "production"
	default:
		return "unknown"
	}
}

// Cohort is a traffic partition that controls which rollout stages see a
// feature.
type Cohort struct {
	Name          string
	RequiredStage Stage
}

// Transition records one stage change with its timestamp and reason.
type Transition struct {
	Feature string
	From    Stage
	To      Stage
	Reason  string
	At      time.Time
}

// FeatureFlag is one feature's rollout record.
type FeatureFlag struct {
	ID          string
	Description string
	Stage       Stage
	History     []Transition
}

// SafetyGate mirrors pkg/acceptance.SafetyGate so rollout does not import
// acceptance just for the interface shape: either package's OPA-backed or
// plain-predicate implementation satisfies both.
type SafetyGate interface {
	Allow(ctx context.Context, input map[string]interface{}) (bool, string, error)
}

// PredicateGate adapts a plain Go func to SafetyGate, mirroring
// pkg/acceptance.PredicateGate so callers wiring rollout alone don't need
// to import acceptance just for this shape.
type PredicateGate func(ctx context.Context, input map[string]interface{}) (bool, string, error)

// Allow implements SafetyGate.
func (p PredicateGate) Allow(ctx context.Context, input map[string]interface{}) (bool, string, error) {
	return p(ctx, input)
}

var legalForward = map[Stage]Stage{
	StageDisabled: StageCanary,
	StageCanary:   StageStaging,
	StageStaging:  StageProduction,
}

var legalBackward = map[Stage]Stage{
	StageCanary:     StageDisabled,
	StageStaging:    StageCanary,
	StageProduction: StageStaging,
}

// Manager tracks every feature's stage and transition history.
type Manager struct {
	features map[string]*FeatureFlag
	now      func() time.Time
}

// NewManager constructs an empty RolloutManager. now defaults to
// time.Now if nil.
func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{features: make(map[string]*FeatureFlag), now: now}
}

// Register adds a feature starting at StageDisabled.
func (m *Manager) Register(id, description string) *FeatureFlag {
	f := &FeatureFlag{ID: id, Description: description, Stage: StageDisabled}
	m.features[id] = f
	return f
}

// Feature returns the tracked flag, or nil if unregistered.
func (m *Manager) Feature(id string) *FeatureFlag {
	return m.features[id]
}

// IsEnabled implements spec.md §4.J: "A feature is enabled for a cohort C
// iff current stage >= C.required_stage."
func (m *Manager) IsEnabled(id string, cohort Cohort) bool {
	f := m.features[id]
	if f == nil {
		return false
	}
	return f.Stage >= cohort.RequiredStage
}

// Advance moves a feature exactly one legal step forward (Disabled -> Canary
// -> Staging -> Production); multi-step advance in a single call is not
// supported (spec.md §9 open question — resolved to one step per call).
func (m *Manager) Advance(id, reason string) error {
	f := m.features[id]
	if f == nil {
		return &swarmerrors.OperationError{Operation: "rollout.advance", Resource: id, Cause: ErrUnknownFeature}
	}
	next, ok := legalForward[f.Stage]
	if !ok {
		return &swarmerrors.OperationError{Operation: "rollout.advance", Resource: id, Cause: ErrNoForwardTransition}
	}
	m.transition(f, next, reason)
	return nil
}

// AdvanceWithGate runs gate.Allow before advancing; a false or erroring gate
// aborts the advance entirely (spec.md §4.J).
func (m *Manager) AdvanceWithGate(ctx context.Context, id, reason string, gate SafetyGate) error {
	f := m.features[id]
	if f == nil {
		return &swarmerrors.OperationError{Operation: "rollout.advance_with_gate", Resource: id, Cause: ErrUnknownFeature}
	}
	next, ok := legalForward[f.Stage]
	if !ok {
		return &swarmerrors.OperationError{Operation: "rollout.advance_with_gate", Resource: id, Cause: ErrNoForwardTransition}
	}
	allowed, why, err := gate.Allow(ctx, map[string]interface{}{
		"feature":    id,
		"from_stage": f.Stage.String(),
		"to_stage":   next.String(),
	})
	if err != nil {
		return swarmerrors.FailedTo("evaluate safety gate for "+id, err)
	}
	if !allowed {
		if why == "" {
			why = "rejected"
		}
		return &swarmerrors.OperationError{Operation: "rollout.advance_with_gate", Resource: id + ": " + why, Cause: ErrGateRejected}
	}
	m.transition(f, next, reason)
	return nil
}

// Rollback moves a feature one legal step backward.
func (m *Manager) Rollback(id, reason string) error {
	f := m.features[id]
	if f == nil {
		return &swarmerrors.OperationError{Operation: "rollout.rollback", Resource: id, Cause: ErrUnknownFeature}
	}
	prev, ok := legalBackward[f.Stage]
	if !ok {
		return &swarmerrors.OperationError{Operation: "rollout.rollback", Resource: id, Cause: ErrNoBackwardTransition}
	}
	m.transition(f, prev, reason)
	return nil
}

// EmergencyDisable jumps straight to Disabled from any stage, bypassing the
// one-step-at-a-time rule (spec.md §4.J: "emergency -> Disabled").
func (m *Manager) EmergencyDisable(id, reason string) error {
	f := m.features[id]
	if f == nil {
		return &swarmerrors.OperationError{Operation: "rollout.emergency_disable", Resource: id, Cause: ErrUnknownFeature}
	}
	if f.Stage == StageDisabled {
		return nil
	}
	m.transition(f, StageDisabled, reason)
	return nil
}

func (m *Manager) transition(f *FeatureFlag, to Stage, reason string) {
	from := f.Stage
	f.Stage = to
	f.History = append(f.History, Transition{Feature: f.ID, From: from, To: to, Reason: reason, At: m.now()})
}
