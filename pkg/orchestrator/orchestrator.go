// Package orchestrator implements the top-level session state machine from
// SPEC_FULL.md §4.K, binding the escalation, verifier, patch, memory,
// skills, debate, canary, acceptance, and rollout components.
package orchestrator

import (
	"time"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// State is the orchestrator's session lifecycle.
type State string

const (
	StateSelectingIssue    State = "selecting_issue"
	StatePreparingWorktree State = "preparing_worktree"
	StatePlanning          State = "planning"
	StateImplementing      State = "implementing"
	StateVerifying         State = "verifying"
	StateValidating        State = "validating"
	StateEscalating        State = "escalating"
	StateMerging           State = "merging"
	StateResolved          State = "resolved"
	StateFailed            State = "failed"
)

// legalEdges enumerates every non-Failed legal transition from spec.md
// §4.K; Failed is legal from any non-terminal state and is checked
// separately.
var legalEdges = map[State]map[State]bool{
	StateSelectingIssue:    {StatePreparingWorktree: true},
	StatePreparingWorktree: {StatePlanning: true},
	StatePlanning:          {StateImplementing: true},
	StateImplementing:      {StateVerifying: true},
	StateVerifying: {
		StateValidating:   true,
		StateImplementing: true,
		StateEscalating:   true,
		StateMerging:      true,
	},
	StateValidating: {
		StateMerging:      true,
		StateImplementing: true,
		StateEscalating:   true,
	},
	StateEscalating: {StateImplementing: true},
	StateMerging:    {StateResolved: true},
}

var terminalStates = map[State]bool{
	StateResolved: true,
	StateFailed:   true,
}

// TransitionLogEntry records one state change.
type TransitionLogEntry struct {
	From      State  `json:"from"`
	To        State  `json:"to"`
	Iteration int    `json:"iteration"`
	ElapsedMS int64  `json:"elapsed_ms"`
	Reason    string `json:"reason"`
}

// Session is one orchestrator-driven issue session.
type Session struct {
	BeadID    string
	Current   State
	Log       []TransitionLogEntry
	iteration int
	startedAt time.Time
	now       func() time.Time
}

// NewSession starts a session at SelectingIssue.
func NewSession(beadID string, now func() time.Time) *Session {
	if now == nil {
		now = time.Now
	}
	return &Session{
		BeadID:    beadID,
		Current:   StateSelectingIssue,
		startedAt: now(),
		now:       now,
	}
}

// isLegal reports whether to is a legal transition from s's current state:
// every non-terminal state may transition to Failed; otherwise the move
// must appear in legalEdges.
func (s *Session) isLegal(to State) bool {
	if terminalStates[s.Current] {
		return false
	}
	if to == StateFailed {
		return true
	}
	return legalEdges[s.Current][to]
}

// Transition attempts to move the session to `to`. An illegal transition
// returns a structured error and leaves the state unchanged, per spec.md
// §4.K: "Attempted illegal transitions fail with a structured error; the
// state does not change."
func (s *Session) Transition(to State, reason string) error {
	if !s.isLegal(to) {
		return &swarmerrors.OperationError{
			Operation: "orchestrator.transition",
			Resource:  string(s.Current) + "->" + string(to),
			Cause:     swarmerrors.ErrIllegalTransition,
		}
	}
	from := s.Current
	s.iteration++
	elapsed := s.now().Sub(s.startedAt).Milliseconds()
	s.Current = to
	s.Log = append(s.Log, TransitionLogEntry{
		From:      from,
		To:        to,
		Iteration: s.iteration,
		ElapsedMS: elapsed,
		Reason:    reason,
	})
	return nil
}

// IsTerminal reports whether the session has reached Resolved or Failed.
func (s *Session) IsTerminal() bool {
	return terminalStates[s.Current]
}

// LegalPath verifies property #1 (spec.md §8): the recorded transition log,
// replayed from SelectingIssue, is a legal path in the state graph.
func LegalPath(log []TransitionLogEntry) bool {
	current := StateSelectingIssue
	for _, entry := range log {
		if entry.From != current {
			return false
		}
		legal := entry.To == StateFailed && !terminalStates[current]
		if !legal {
			legal = legalEdges[current][entry.To]
		}
		if !legal {
			return false
		}
		if terminalStates[current] {
			return false
		}
		current = entry.To
	}
	return true
}
