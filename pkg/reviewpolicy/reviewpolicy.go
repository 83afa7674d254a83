// Package reviewpolicy enforces the reviewer pipeline stage ordering that
// sits between a green VerifierReport and the acceptance gate: verifier
// gates, then AST pattern analysis, then dependency impact checking, then
// the aggregate decision. See SPEC_FULL.md §4.O.
package reviewpolicy

import (
	"time"

	"github.com/jordigilh/swarmcore/pkg/shared/ids"
)

// Stage is one step of the reviewer pipeline, in execution order.
type Stage string

const (
	StageVerifierGates   Stage = "verifier_gates"
	StageASTAnalysis     Stage = "ast_analysis"
	StageDependencyCheck Stage = "dependency_check"
	StageDecision        Stage = "decision"
)

// Ordered lists every stage in execution order.
func Ordered() []Stage {
	return []Stage{StageVerifierGates, StageASTAnalysis, StageDependencyCheck, StageDecision}
}

// IsBlocking reports whether a stage failure short-circuits the pipeline.
// Only the verifier gates stage is blocking: AST/dependency findings are
// reported but never prevent the remaining stages from running.
func (s Stage) IsBlocking() bool {
	return s == StageVerifierGates
}

// Outcome is one stage's result.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeWarning Outcome = "warning"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Entry is one stage's audit trace record.
type Entry struct {
	Stage      Stage
	Outcome    Outcome
	Duration   time.Duration
	IssueCount int
	StartedAt  time.Time
	Summary    string
}

// Trace is the complete audit trace for one reviewer pipeline run.
type Trace struct {
	TraceID           string
	Entries           []Entry
	ShortCircuited    bool
	ShortCircuitStage Stage
	StartedAt         time.Time
	TotalDuration     time.Duration
}

// NewTrace starts a trace with a generated ID.
func NewTrace(startedAt time.Time) *Trace {
	return &Trace{TraceID: ids.New(), StartedAt: startedAt}
}

// Record appends one stage outcome to the trace.
func (t *Trace) Record(stage Stage, outcome Outcome, duration time.Duration, issueCount int, startedAt time.Time, summary string) {
	t.Entries = append(t.Entries, Entry{
		Stage:      stage,
		Outcome:    outcome,
		Duration:   duration,
		IssueCount: issueCount,
		StartedAt:  startedAt,
		Summary:    summary,
	})
	t.TotalDuration += duration
}

// MarkShortCircuit records the stage that short-circuited the pipeline.
func (t *Trace) MarkShortCircuit(stage Stage) {
	t.ShortCircuited = true
	t.ShortCircuitStage = stage
}

// StagesExecuted counts entries whose outcome isn't Skipped.
func (t *Trace) StagesExecuted() int {
	n := 0
	for _, e := range t.Entries {
		if e.Outcome != OutcomeSkipped {
			n++
		}
	}
	return n
}

// AllPassed reports whether every recorded stage passed or was skipped.
func (t *Trace) AllPassed() bool {
	for _, e := range t.Entries {
		if e.Outcome != OutcomePassed && e.Outcome != OutcomeSkipped {
			return false
		}
	}
	return true
}

// TotalIssues sums IssueCount across every recorded stage.
func (t *Trace) TotalIssues() int {
	total := 0
	for _, e := range t.Entries {
		total += e.IssueCount
	}
	return total
}

// Policy determines which stages run and whether a failure short-circuits
// the remainder of the pipeline.
type Policy struct {
	FailFastOnVerifier   bool
	RequireASTAnalysis   bool
	RequireDependencyCheck bool
	MaxDuration          time.Duration // 0 = unlimited
}

// DefaultPolicy matches the reviewer pipeline's default posture: fail fast
// on verifier gates, both optional stages required, no time budget.
func DefaultPolicy() Policy {
	return Policy{
		FailFastOnVerifier:     true,
		RequireASTAnalysis:     true,
		RequireDependencyCheck: true,
	}
}

// NextStage returns the next stage the caller should run given trace's
// current state, or "" if the pipeline is complete or should stop.
func (p Policy) NextStage(trace *Trace) Stage {
	completed := make(map[Stage]bool, len(trace.Entries))
	for _, e := range trace.Entries {
		completed[e.Stage] = true
	}

	for _, stage := range Ordered() {
		if completed[stage] {
			continue
		}
		if stage == StageASTAnalysis && !p.RequireASTAnalysis {
			return stage
		}
		if stage == StageDependencyCheck && !p.RequireDependencyCheck {
			return stage
		}
		if p.FailFastOnVerifier && trace.ShortCircuited {
			return ""
		}
		if p.MaxDuration > 0 && trace.TotalDuration >= p.MaxDuration {
			return ""
		}
		return stage
	}
	return ""
}

// ShouldShortCircuit reports whether a failure at stage should stop the
// pipeline under this policy.
func (p Policy) ShouldShortCircuit(stage Stage) bool {
	return p.FailFastOnVerifier && stage.IsBlocking()
}

// OrderViolation describes a stage executed out of the canonical order.
type OrderViolation struct {
	Stage    Stage
	After    Stage
}

func (e *OrderViolation) Error() string {
	return "stage '" + string(e.Stage) + "' executed after '" + string(e.After) + "' (out of order)"
}

// ValidateOrdering checks that trace's non-skipped entries appear in the
// canonical stage order.
func (p Policy) ValidateOrdering(trace *Trace) error {
	order := Ordered()
	indexOf := func(s Stage) int {
		for i, st := range order {
			if st == s {
				return i
			}
		}
		return -1
	}

	lastIdx := -1
	lastStage := Stage("")
	for _, e := range trace.Entries {
		if e.Outcome == OutcomeSkipped {
			continue
		}
		idx := indexOf(e.Stage)
		if lastIdx >= 0 && idx <= lastIdx {
			return &OrderViolation{Stage: e.Stage, After: lastStage}
		}
		lastIdx, lastStage = idx, e.Stage
	}
	return nil
}
