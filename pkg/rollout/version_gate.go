package rollout

import (
	"github.com/Masterminds/semver/v3"

	swarmerrors "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// VersionGate additionally restricts a feature to agent builds satisfying a
// semver constraint, so a rollout stage advance never exposes a feature to
// an older worker/integrator/cloud adapter build that predates the wire
// format it requires.
type VersionGate struct {
	// Constraints maps feature id to the semver range agent builds must
	// satisfy, e.g. ">= 1.4.0, < 2.0.0".
	Constraints map[string]*semver.Constraints
}

// NewVersionGate parses a feature id -> constraint-string map once at
// startup, so a malformed constraint fails fast instead of on first use.
func NewVersionGate(raw map[string]string) (*VersionGate, error) {
	parsed := make(map[string]*semver.Constraints, len(raw))
	for feature, expr := range raw {
		c, err := semver.NewConstraint(expr)
		if err != nil {
			return nil, swarmerrors.FailedTo("parse version constraint for feature "+feature, err)
		}
		parsed[feature] = c
	}
	return &VersionGate{Constraints: parsed}, nil
}

// Allows reports whether agentVersion satisfies the feature's constraint.
// A feature with no registered constraint is unconstrained and always
// allowed.
func (g *VersionGate) Allows(feature, agentVersion string) (bool, error) {
	c, ok := g.Constraints[feature]
	if !ok {
		return true, nil
	}
	v, err := semver.NewVersion(agentVersion)
	if err != nil {
		return false, swarmerrors.FailedTo("parse agent version "+agentVersion, err)
	}
	return c.Check(v), nil
}

// IsEnabledForAgent combines the ordinary cohort stage gate (spec.md §4.J)
// with the version gate: a feature is enabled for an agent iff both the
// stage check passes and the agent's build version satisfies the feature's
// constraint, if one is registered.
func (m *Manager) IsEnabledForAgent(id string, cohort Cohort, agentVersion string, gate *VersionGate) (bool, error) {
	if !m.IsEnabled(id, cohort) {
		return false, nil
	}
	if gate == nil {
		return true, nil
	}
	return gate.Allows(id, agentVersion)
}
