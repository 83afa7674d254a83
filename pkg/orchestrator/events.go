package orchestrator

import (
	"time"

	"github.com/jordigilh/swarmcore/pkg/escalation"
	"github.com/jordigilh/swarmcore/pkg/eventlog"
)

// EventSink receives the per-iteration event-log entries. *eventlog.Log is
// the production implementation; tests substitute an in-memory sink.
type EventSink interface {
	Append(ev eventlog.Event) error
}

// recordIterationEvents appends one entry per state transition, gate
// result, and decision produced by a RunIteration call, per the persisted
// event-log contract. Appends are best-effort: a sink failure never fails
// the iteration that produced the events.
func recordIterationEvents(sink EventSink, sess *Session, preLogLen int, result *IterationResult, at time.Time) {
	if sink == nil {
		return
	}
	for _, entry := range sess.Log[preLogLen:] {
		_ = sink.Append(eventlog.Event{
			Time:   at,
			Kind:   eventlog.KindTransition,
			BeadID: sess.BeadID,
			Detail: map[string]any{
				"from":       string(entry.From),
				"to":         string(entry.To),
				"iteration":  entry.Iteration,
				"elapsed_ms": entry.ElapsedMS,
				"reason":     entry.Reason,
			},
		})
	}
	if result.VerifierReport == nil {
		// The iteration died before the verifier ran; there are no gate
		// results and no decision to record.
		return
	}
	for _, gate := range result.VerifierReport.Gates {
		_ = sink.Append(eventlog.Event{
			Time:   at,
			Kind:   eventlog.KindGateResult,
			BeadID: sess.BeadID,
			Detail: map[string]any{
				"gate":        string(gate.Gate),
				"outcome":     string(gate.Outcome),
				"duration_ms": gate.Duration.Milliseconds(),
				"errors":      gate.ErrorCount,
				"warnings":    gate.WarningCount,
			},
		})
	}
	decision := result.EscalationDecision
	_ = sink.Append(eventlog.Event{
		Time:   at,
		Kind:   eventlog.KindDecision,
		BeadID: sess.BeadID,
		Detail: map[string]any{
			"target_tier": string(decision.TargetTier),
			"escalated":   decision.Escalated,
			"resolved":    decision.Resolved,
			"stuck":       decision.Stuck,
			"action":      string(decision.Action),
		},
	})
	if decision.Action == escalation.ActionFlagForHuman {
		_ = sink.Append(eventlog.Event{
			Time:   at,
			Kind:   eventlog.KindFlagForHuman,
			BeadID: sess.BeadID,
			Detail: map[string]any{
				"tier":   string(decision.TargetTier),
				"reason": "all tier budgets exhausted without green",
			},
		})
	}
	if result.AcceptanceDecision != nil {
		_ = sink.Append(eventlog.Event{
			Time:   at,
			Kind:   eventlog.KindDecision,
			BeadID: sess.BeadID,
			Detail: map[string]any{
				"accepted":   result.AcceptanceDecision.Accepted,
				"rejections": result.AcceptanceDecision.Rejections,
			},
		})
	}
}
