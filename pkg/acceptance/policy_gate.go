package acceptance

import (
	"context"

	"github.com/open-policy-agent/opa/v1/rego"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// SafetyGate is the capability contract consumed both here and by
// pkg/rollout's RolloutManager.advance_with_gate (spec.md §4.J): "a
// SafetyGate may be OPA-backed or a plain Go predicate."
type SafetyGate interface {
	Allow(ctx context.Context, input map[string]interface{}) (bool, string, error)
}

// PredicateGate adapts a plain Go func to the SafetyGate contract.
type PredicateGate func(ctx context.Context, input map[string]interface{}) (bool, string, error)

// Allow implements SafetyGate.
func (p PredicateGate) Allow(ctx context.Context, input map[string]interface{}) (bool, string, error) {
	return p(ctx, input)
}

// OPAGate evaluates a caller-supplied rego module against session diff
// metadata, giving operators an organization-specific acceptance rule
// without a code change (SPEC_FULL.md §4.I).
type OPAGate struct {
	query rego.PreparedEvalQuery
}

// NewOPAGate compiles module (rego source) with the given query (e.g.
// "data.swarm.acceptance.allow") ready for repeated evaluation.
func NewOPAGate(ctx context.Context, query, module string) (*OPAGate, error) {
	pq, err := rego.New(
		rego.Query(query),
		rego.Module("policy_gate.rego", module),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, swarmerrors.FailedTo("compile policy gate module", err)
	}
	return &OPAGate{query: pq}, nil
}

// Allow implements SafetyGate: input must serialize to JSON-compatible
// values (maps, slices, strings, numbers, bools).
func (g *OPAGate) Allow(ctx context.Context, input map[string]interface{}) (bool, string, error) {
	results, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, "", swarmerrors.FailedTo("evaluate policy gate", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "policy gate produced no result", nil
	}
	allowed, ok := results[0].Expressions[0].Value.(bool)
	if !ok {
		return false, "policy gate result was not boolean", nil
	}
	if !allowed {
		return false, "rejected by policy_gate", nil
	}
	return true, "", nil
}

// SessionInput converts a Session into the map shape an OPAGate expects.
func SessionInput(session Session) map[string]interface{} {
	files := make([]map[string]interface{}, 0, len(session.Files))
	for _, f := range session.Files {
		files = append(files, map[string]interface{}{
			"path":          f.Path,
			"lines_added":   f.LinesAdded,
			"lines_removed": f.LinesRemoved,
		})
	}
	return map[string]interface{}{
		"files":        files,
		"cloud_passes": session.CloudPasses,
		"has_baseline": session.HasBaseline,
	}
}

// EvaluateWithGate runs the built-in gates via Evaluate, then consults an
// optional fifth gate, policy_gate, appending its rejection when present.
func EvaluateWithGate(ctx context.Context, policy Policy, session Session, gate SafetyGate) (Decision, error) {
	d := Evaluate(policy, session)
	if gate == nil {
		return d, nil
	}
	allowed, reason, err := gate.Allow(ctx, SessionInput(session))
	if err != nil {
		return d, err
	}
	if !allowed {
		d.Accepted = false
		if reason == "" {
			reason = "policy_gate rejected the session"
		}
		d.Rejections = append(d.Rejections, "policy_gate: "+reason)
	}
	return d, nil
}
