package rollout

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// Property #5 (spec.md §8): a feature is enabled for a cohort iff its
// current stage is at or above the cohort's required stage.
func TestIsEnabled_CohortGating(t *testing.T) {
	m := NewManager(fixedClock(time.Unix(0, 0)))
	m.Register("smart_router", "routes tasks by complexity")

	canaryCohort := Cohort{Name: "canary-users", RequiredStage: StageCanary}
	prodCohort := Cohort{Name: "all-users", RequiredStage: StageProduction}

	if m.IsEnabled("smart_router", canaryCohort) {
		t.Fatal("disabled feature must not be enabled for any cohort")
	}

	if err := m.Advance("smart_router", "initial canary rollout"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !m.IsEnabled("smart_router", canaryCohort) {
		t.Fatal("canary-stage feature should be enabled for the canary cohort")
	}
	if m.IsEnabled("smart_router", prodCohort) {
		t.Fatal("canary-stage feature should not be enabled for the production cohort")
	}

	if err := m.Advance("smart_router", "promote to staging"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if err := m.Advance("smart_router", "promote to production"); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}
	if !m.IsEnabled("smart_router", prodCohort) {
		t.Fatal("production-stage feature should be enabled for every cohort")
	}
}

func TestAdvance_OneStepAtATime(t *testing.T) {
	m := NewManager(fixedClock(time.Now()))
	m.Register("canary", "")
	if err := m.Advance("canary", "r1"); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	f := m.Feature("canary")
	if f.Stage != StageCanary {
		t.Fatalf("stage = %v, want Canary after one advance", f.Stage)
	}
	if len(f.History) != 1 || f.History[0].From != StageDisabled || f.History[0].To != StageCanary {
		t.Fatalf("history = %+v, want one Disabled->Canary entry", f.History)
	}
}

func TestEmergencyDisable_FromAnyStage(t *testing.T) {
	m := NewManager(fixedClock(time.Now()))
	m.Register("f", "")
	m.Advance("f", "r1")
	m.Advance("f", "r2")
	if err := m.EmergencyDisable("f", "incident-123"); err != nil {
		t.Fatalf("EmergencyDisable() error = %v", err)
	}
	if m.Feature("f").Stage != StageDisabled {
		t.Fatal("expected feature to be back at Disabled")
	}
}

func TestAdvanceWithGate_AbortsOnRejection(t *testing.T) {
	m := NewManager(fixedClock(time.Now()))
	m.Register("f", "")
	gate := PredicateGate(func(ctx context.Context, input map[string]interface{}) (bool, string, error) {
		return false, "error budget burned", nil
	})
	err := m.AdvanceWithGate(context.Background(), "f", "attempt", gate)
	if err == nil {
		t.Fatal("expected the gate rejection to abort the advance")
	}
	if m.Feature("f").Stage != StageDisabled {
		t.Fatal("stage must not change when the gate rejects")
	}
}

func TestAdvanceWithGate_ProceedsOnAllow(t *testing.T) {
	m := NewManager(fixedClock(time.Now()))
	m.Register("f", "")
	gate := PredicateGate(func(ctx context.Context, input map[string]interface{}) (bool, string, error) {
		return true, "", nil
	})
	if err := m.AdvanceWithGate(context.Background(), "f", "attempt", gate); err != nil {
		t.Fatalf("AdvanceWithGate() error = %v", err)
	}
	if m.Feature("f").Stage != StageCanary {
		t.Fatal("expected advance to Canary when gate allows")
	}
}

func TestLoadFeatureFlags_AcceptsEnabledSynonymsCaseInsensitively(t *testing.T) {
	flags := LoadFeatureFlags(MapLookup(map[string]string{
		"SWARM_SMART_ROUTER_ENABLED": "YES",
		"SWARM_CANARY_ENABLED":       "1",
		"SWARM_WORKER_FIRST_ENABLED": "maybe",
	}))
	if !flags.SmartRouter || !flags.Canary {
		t.Fatalf("flags = %+v, want SmartRouter and Canary enabled", flags)
	}
	if flags.WorkerFirst {
		t.Fatal("unrecognized value must be treated as disabled")
	}
	if flags.StateMachine {
		t.Fatal("unset variable must default to disabled")
	}
}
