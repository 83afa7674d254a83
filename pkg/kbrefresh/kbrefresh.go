// Package kbrefresh implements the telemetry-driven knowledge-base refresh
// pass: every SessionInterval completed sessions, it scans the skill
// library and the session's aggregated error-category telemetry for
// patterns the documentation hasn't caught up with yet — skills that never
// proved themselves, skills confident enough to promote into the project
// brain, and error categories recurring often enough to deserve a
// documented entry. See SPEC_FULL.md §4.P.
package kbrefresh

import (
	"strconv"
	"time"

	"github.com/jordigilh/swarmcore/pkg/selfaccept"
	"github.com/jordigilh/swarmcore/pkg/skills"
	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

// ActionPriority orders a KBRefreshAction's urgency.
type ActionPriority int

const (
	PriorityLow ActionPriority = iota
	PriorityMedium
	PriorityHigh
)

// ActionType is the closed set of refresh actions.
type ActionType string

const (
	ActionDeprecateStalePattern ActionType = "deprecate_stale_pattern"
	ActionPromoteSkill          ActionType = "promote_skill"
	ActionFlagUndocumentedError ActionType = "flag_undocumented_error"
)

// Action is one recommended knowledge-base change.
type Action struct {
	Type        ActionType
	Description string
	Target      string
	Priority    ActionPriority
}

// Policy configures the refresh cadence and thresholds. Promotion is the
// learned-item lifecycle a promotable skill must pass before an
// ActionPromoteSkill is emitted: each refresh pass that finds the skill
// above MinSkillConfidence counts as a successful probation use, a pass
// where a tracked skill has dropped back below counts as a failure.
type Policy struct {
	SessionInterval        int
	StalenessThresholdDays int
	MinSkillConfidence     float64
	MinErrorOccurrences    int
	DocumentedCategories   map[taxonomy.Category]bool
	Promotion              selfaccept.Policy
}

// DefaultPolicy mirrors the original implementation's defaults.
func DefaultPolicy() Policy {
	return Policy{
		SessionInterval:        10,
		StalenessThresholdDays: 30,
		MinSkillConfidence:     0.75,
		MinErrorOccurrences:    5,
		DocumentedCategories:   map[taxonomy.Category]bool{},
		Promotion: selfaccept.Policy{
			ProbationPeriod:        3,
			MinUsesBeforePromotion: 2,
			MinSuccessRate:         0.75,
		},
	}
}

// StalenessDuration converts StalenessThresholdDays to a time.Duration.
func (p Policy) StalenessDuration() time.Duration {
	return time.Duration(p.StalenessThresholdDays) * 24 * time.Hour
}

// ShouldRefresh reports whether a refresh pass is due at totalSessions
// completed sessions. A zero SessionInterval disables refresh entirely.
func ShouldRefresh(totalSessions int, policy Policy) bool {
	if policy.SessionInterval == 0 {
		return false
	}
	return totalSessions > 0 && totalSessions%policy.SessionInterval == 0
}

// Report is the outcome of one analysis pass.
type Report struct {
	AnalyzedAt            time.Time
	Actions                []Action
	SkillsAnalyzed         int
	ErrorCategoriesAnalyzed int
}

// HasActions reports whether the pass recommended anything.
func (r Report) HasActions() bool { return len(r.Actions) > 0 }

// ActionCount counts recommended actions of one type.
func (r Report) ActionCount(t ActionType) int {
	n := 0
	for _, a := range r.Actions {
		if a.Type == t {
			n++
		}
	}
	return n
}

// AggregateAnalytics is the telemetry a refresh pass scans, aggregated
// across the sessions since the last refresh.
type AggregateAnalytics struct {
	ErrorCategoryCounts map[taxonomy.Category]int
}

// AnalyzeAndRefresh runs the three finder passes and returns their combined
// recommendations. ledger carries the promotion lifecycle state across
// passes, so a skill must sustain its confidence through probation before
// it is promoted. now is injected so the pass is deterministic under test.
func AnalyzeAndRefresh(analytics AggregateAnalytics, lib *skills.Library, ledger *selfaccept.Ledger, policy Policy, now time.Time) Report {
	snapshot := lib.Snapshot()
	report := Report{
		AnalyzedAt:              now,
		SkillsAnalyzed:          len(snapshot),
		ErrorCategoriesAnalyzed: len(analytics.ErrorCategoryCounts),
	}
	report.Actions = append(report.Actions, findStaleSkills(snapshot)...)
	report.Actions = append(report.Actions, findPromotableSkills(snapshot, ledger, policy)...)
	report.Actions = append(report.Actions, findUndocumentedErrors(analytics, policy)...)
	return report
}

// findStaleSkills flags skills that have never proven themselves: a single
// recorded use (successful or not) with nothing since.
func findStaleSkills(snapshot []skills.Skill) []Action {
	var out []Action
	for _, s := range snapshot {
		if s.Successes+s.Failures <= 1 {
			out = append(out, Action{
				Type:        ActionDeprecateStalePattern,
				Description: "skill " + s.ID + " has " + strconv.Itoa(s.Successes+s.Failures) + " recorded use(s), candidate for deprecation",
				Target:      "debugging_kb",
				Priority:    PriorityLow,
			})
		}
	}
	return out
}

// findPromotableSkills flags skills confident enough (per Skill.Confidence
// with a 3-sample floor) to promote into the project brain. A candidate
// only emits an action once its tracked lifecycle reaches Accepted: each
// pass above the confidence threshold is a successful probation use, and a
// tracked skill observed back below the threshold records a failure. A
// skill the ledger has Rejected never emits again.
func findPromotableSkills(snapshot []skills.Skill, ledger *selfaccept.Ledger, policy Policy) []Action {
	var out []Action
	for _, s := range snapshot {
		if s.Confidence(3) < policy.MinSkillConfidence {
			if ledger.Get(s.ID) != nil {
				ledger.Track(s.ID, selfaccept.OutcomeFailure, policy.Promotion)
			}
			continue
		}
		item := ledger.Track(s.ID, selfaccept.OutcomeSuccess, policy.Promotion)
		if item.Status != selfaccept.StatusAccepted {
			continue
		}
		out = append(out, Action{
			Type:        ActionPromoteSkill,
			Description: "skill " + s.ID + " has sustained confidence above the promotion threshold through probation",
			Target:      "project_brain",
			Priority:    PriorityMedium,
		})
	}
	return out
}

// findUndocumentedErrors flags error categories that recur often enough to
// warrant a documented knowledge-base entry but aren't one yet.
func findUndocumentedErrors(analytics AggregateAnalytics, policy Policy) []Action {
	var out []Action
	for cat, count := range analytics.ErrorCategoryCounts {
		if count < policy.MinErrorOccurrences || policy.DocumentedCategories[cat] {
			continue
		}
		priority := PriorityMedium
		if count >= policy.MinErrorOccurrences*3 {
			priority = PriorityHigh
		}
		out = append(out, Action{
			Type:        ActionFlagUndocumentedError,
			Description: "error category " + string(cat) + " occurred " + strconv.Itoa(count) + " times without a documented entry",
			Target:      "debugging_kb",
			Priority:    priority,
		})
	}
	return out
}
