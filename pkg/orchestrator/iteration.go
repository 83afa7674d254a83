package orchestrator

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/jordigilh/swarmcore/pkg/acceptance"
	"github.com/jordigilh/swarmcore/pkg/escalation"
	"github.com/jordigilh/swarmcore/pkg/llm"
	"github.com/jordigilh/swarmcore/pkg/patch"
	"github.com/jordigilh/swarmcore/pkg/reviewpolicy"
	"github.com/jordigilh/swarmcore/pkg/verifier"
)

// ASTAnalyzer is the optional reviewer-pipeline stage that flags
// anti-patterns in the files a session touched. It never short-circuits the
// pipeline, per reviewpolicy.Stage.IsBlocking.
type ASTAnalyzer interface {
	Analyze(ctx context.Context, files []string) (issues int, summary string, err error)
}

// DependencyChecker is the optional reviewer-pipeline stage that flags
// cross-file/API-impact concerns in a session's diff.
type DependencyChecker interface {
	Check(ctx context.Context, files []string) (issues int, summary string, err error)
}

// IterationDeps bundles every collaborator one RunIteration call needs. Only
// Agent, Verifier, Escalation, and AcceptancePolicy are required; the rest
// are optional extension points.
type IterationDeps struct {
	SystemPreamble string
	Agent          llm.Agent
	PatchConfig    patch.Config

	Verifier       *verifier.Pipeline
	VerifierConfig verifier.GateConfig

	Escalation *escalation.State

	ReviewPolicy      reviewpolicy.Policy
	ASTAnalyzer       ASTAnalyzer
	DependencyChecker DependencyChecker

	AcceptancePolicy acceptance.Policy
	SafetyGate       acceptance.SafetyGate
	HasBaseline      bool

	// Events, when set, receives one event-log entry per transition, gate
	// result, and decision this iteration produces.
	Events EventSink

	Now func() time.Time
}

func (d IterationDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// FilePatch is one file's requested hunks, the shape an llm.Agent's
// response is expected to decode into.
type FilePatch struct {
	Path  string      `json:"path"`
	Hunks []patch.Hunk `json:"hunks"`
}

// PatchProposal is the structured contract an agent's Response.Text decodes
// as: the set of per-file hunks the agent wants applied this turn.
type PatchProposal struct {
	Files []FilePatch `json:"files"`
}

// ParsePatchResponse decodes an agent's raw response text into a
// PatchProposal. A response that isn't valid JSON yields a zero-value
// proposal (no files touched) rather than an error: the iteration still
// runs the verifier, so an agent that failed to produce a usable patch
// drives the normal verifier-failure/escalation path instead of a distinct
// error path.
func ParsePatchResponse(text string) PatchProposal {
	var proposal PatchProposal
	if err := json.Unmarshal([]byte(text), &proposal); err != nil {
		return PatchProposal{}
	}
	return proposal
}

// PatchOutcome is one file's patch.ApplyAll outcome, kept for the iteration
// result and for building the acceptance Session's diff metadata.
type PatchOutcome struct {
	Path         string
	Results      []patch.Result
	LinesAdded   int
	LinesRemoved int
}

// IterationResult is everything one RunIteration call produced, for
// logging/telemetry and for the caller deciding whether to loop again.
type IterationResult struct {
	WorkPacketID       string
	AgentResponse      llm.Response
	PatchOutcomes      []PatchOutcome
	VerifierReport     *verifier.VerifierReport
	EscalationDecision escalation.Decision
	ReviewTrace        *reviewpolicy.Trace
	AcceptanceDecision *acceptance.Decision
	FinalState         State
}

// RunIteration drives exactly one implement -> verify -> escalate -> accept
// cycle, per spec.md §2: it hands packet to deps.Agent, applies the
// returned patch via pkg/patch, runs pkg/verifier, feeds the report to
// pkg/escalation.Decide, and — when the gates are green — gates merge via
// pkg/acceptance.Evaluate. sess must be in StateImplementing; RunIteration
// drives it forward to StateVerifying and then to whichever state the
// escalation/acceptance decisions land on.
func RunIteration(ctx context.Context, sess *Session, fileContents map[string]string, packet WorkPacket, deps IterationDeps) (IterationResult, error) {
	if sess.Current != StateImplementing {
		return IterationResult{}, &illegalIterationStateError{Current: sess.Current}
	}

	result := IterationResult{WorkPacketID: packet.ID}
	preLogLen := len(sess.Log)
	defer func() {
		recordIterationEvents(deps.Events, sess, preLogLen, &result, deps.now())
	}()

	resp, err := deps.Agent.Send(ctx, packet.ToTurn(deps.SystemPreamble))
	if err != nil {
		_ = sess.Transition(StateFailed, "agent turn failed: "+err.Error())
		result.FinalState = sess.Current
		return result, err
	}
	result.AgentResponse = resp

	proposal := ParsePatchResponse(resp.Text)
	outcomes, touchedFiles := applyProposal(fileContents, proposal, deps.PatchConfig)
	result.PatchOutcomes = outcomes

	if err := sess.Transition(StateVerifying, "applied agent patch, running verifier gates"); err != nil {
		return result, err
	}

	report, err := deps.Verifier.Run(ctx, deps.VerifierConfig)
	if err != nil {
		_ = sess.Transition(StateFailed, "verifier pipeline error: "+err.Error())
		result.FinalState = sess.Current
		return result, err
	}
	result.VerifierReport = report

	decision := escalation.Decide(deps.Escalation, report, touchedFiles, deps.now())
	result.EscalationDecision = decision

	if !report.AllGreen() {
		return finishRedIteration(sess, decision, result), nil
	}

	if decision.NeedsReview {
		if err := sess.Transition(StateEscalating, "adversary review required before merge"); err != nil {
			return result, err
		}
		if err := sess.Transition(StateImplementing, "awaiting adversary review pass"); err != nil {
			return result, err
		}
		result.FinalState = sess.Current
		return result, nil
	}

	if err := sess.Transition(StateValidating, "all gates green"); err != nil {
		return result, err
	}

	trace := runReviewStages(ctx, deps, outcomes)
	result.ReviewTrace = trace

	acceptSession := acceptanceSession(outcomes, deps)
	acceptDecision, err := acceptance.EvaluateWithGate(ctx, deps.AcceptancePolicy, acceptSession, deps.SafetyGate)
	if err != nil {
		_ = sess.Transition(StateFailed, "acceptance gate error: "+err.Error())
		result.FinalState = sess.Current
		return result, err
	}
	result.AcceptanceDecision = &acceptDecision

	if acceptDecision.Accepted {
		if err := sess.Transition(StateMerging, "acceptance gates satisfied"); err != nil {
			return result, err
		}
		if err := sess.Transition(StateResolved, "merged"); err != nil {
			return result, err
		}
	} else {
		reason := "acceptance rejected: " + strings.Join(acceptDecision.Rejections, "; ")
		if err := sess.Transition(StateImplementing, reason); err != nil {
			return result, err
		}
	}

	result.FinalState = sess.Current
	return result, nil
}

func finishRedIteration(sess *Session, decision escalation.Decision, result IterationResult) IterationResult {
	switch {
	case decision.Stuck:
		_ = sess.Transition(StateFailed, "escalation exhausted: "+string(decision.Action))
	case decision.Escalated:
		_ = sess.Transition(StateEscalating, "escalated to "+string(decision.TargetTier)+": "+string(decision.Action))
		_ = sess.Transition(StateImplementing, "repairing at "+string(decision.TargetTier))
	default:
		_ = sess.Transition(StateImplementing, "retrying at "+string(decision.TargetTier))
	}
	result.FinalState = sess.Current
	return result
}

func applyProposal(fileContents map[string]string, proposal PatchProposal, cfg patch.Config) ([]PatchOutcome, int) {
	outcomes := make([]PatchOutcome, 0, len(proposal.Files))
	touched := 0
	for _, fp := range proposal.Files {
		content := fileContents[fp.Path]
		newContent, results := patch.ApplyAll(content, fp.Hunks, cfg)

		added, removed := 0, 0
		anyApplied := false
		for i, r := range results {
			if !r.Applied {
				continue
			}
			anyApplied = true
			added += len(fp.Hunks[i].NewLines)
			removed += len(fp.Hunks[i].OldLines)
		}
		if anyApplied {
			fileContents[fp.Path] = newContent
			touched++
		}
		outcomes = append(outcomes, PatchOutcome{
			Path: fp.Path, Results: results, LinesAdded: added, LinesRemoved: removed,
		})
	}
	return outcomes, touched
}

func acceptanceSession(outcomes []PatchOutcome, deps IterationDeps) acceptance.Session {
	files := make([]acceptance.FileChange, 0, len(outcomes))
	for _, o := range outcomes {
		files = append(files, acceptance.FileChange{
			Path: o.Path, LinesAdded: o.LinesAdded, LinesRemoved: o.LinesRemoved,
		})
	}
	return acceptance.Session{Files: files, HasBaseline: deps.HasBaseline}
}

// runReviewStages runs the reviewer pipeline's optional AST/dependency
// stages after a green verifier run. It never changes the orchestrator's
// state — findings are advisory, folded into the returned trace for the
// caller's own telemetry/acceptance policy to act on.
func runReviewStages(ctx context.Context, deps IterationDeps, outcomes []PatchOutcome) *reviewpolicy.Trace {
	now := deps.now()
	trace := reviewpolicy.NewTrace(now)
	trace.Record(reviewpolicy.StageVerifierGates, reviewpolicy.OutcomePassed, 0, 0, now, "verifier gates all green")

	files := make([]string, 0, len(outcomes))
	for _, o := range outcomes {
		files = append(files, o.Path)
	}

	if deps.ASTAnalyzer != nil {
		issues, summary, err := deps.ASTAnalyzer.Analyze(ctx, files)
		outcome := reviewpolicy.OutcomePassed
		if err != nil {
			outcome, summary = reviewpolicy.OutcomeFailed, err.Error()
		} else if issues > 0 {
			outcome = reviewpolicy.OutcomeWarning
		}
		trace.Record(reviewpolicy.StageASTAnalysis, outcome, 0, issues, now, summary)
	} else {
		trace.Record(reviewpolicy.StageASTAnalysis, reviewpolicy.OutcomeSkipped, 0, 0, now, "no analyzer configured")
	}

	if deps.DependencyChecker != nil {
		issues, summary, err := deps.DependencyChecker.Check(ctx, files)
		outcome := reviewpolicy.OutcomePassed
		if err != nil {
			outcome, summary = reviewpolicy.OutcomeFailed, err.Error()
		} else if issues > 0 {
			outcome = reviewpolicy.OutcomeFailed
		}
		trace.Record(reviewpolicy.StageDependencyCheck, outcome, 0, issues, now, summary)
	} else {
		trace.Record(reviewpolicy.StageDependencyCheck, reviewpolicy.OutcomeSkipped, 0, 0, now, "no dependency checker configured")
	}

	decisionOutcome := reviewpolicy.OutcomePassed
	if !trace.AllPassed() {
		decisionOutcome = reviewpolicy.OutcomeFailed
	}
	trace.Record(reviewpolicy.StageDecision, decisionOutcome, 0, trace.TotalIssues(), now, trace.TraceID)
	return trace
}

type illegalIterationStateError struct{ Current State }

func (e *illegalIterationStateError) Error() string {
	return "RunIteration requires the session to be in StateImplementing, got " + string(e.Current)
}
