package kbrefresh

import (
	"testing"
	"time"

	"github.com/jordigilh/swarmcore/pkg/selfaccept"
	"github.com/jordigilh/swarmcore/pkg/skills"
	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

func newLibrary(t *testing.T) *skills.Library {
	t.Helper()
	lib, err := skills.Load(skills.Config{Path: t.TempDir() + "/skills.json", MinSamples: 1})
	if err != nil {
		t.Fatalf("skills.Load() error = %v", err)
	}
	return lib
}

func TestShouldRefresh_ZeroIntervalDisables(t *testing.T) {
	policy := DefaultPolicy()
	policy.SessionInterval = 0
	if ShouldRefresh(10, policy) {
		t.Fatal("SessionInterval=0 should disable refresh")
	}
}

func TestShouldRefresh_OnBoundary(t *testing.T) {
	policy := DefaultPolicy()
	policy.SessionInterval = 10
	if ShouldRefresh(0, policy) {
		t.Fatal("0 sessions should not trigger a refresh")
	}
	if !ShouldRefresh(10, policy) {
		t.Fatal("10 sessions should trigger a refresh at interval 10")
	}
	if ShouldRefresh(11, policy) {
		t.Fatal("11 sessions should not trigger a refresh at interval 10")
	}
}

func TestFindStaleSkills_SingleUseIsStale(t *testing.T) {
	lib := newLibrary(t)
	lib.CreateSkill(skills.Trigger{TaskType: "refactor"}, "extract function")
	report := AnalyzeAndRefresh(AggregateAnalytics{}, lib, selfaccept.NewLedger(), DefaultPolicy(), time.Now())
	if report.ActionCount(ActionDeprecateStalePattern) != 1 {
		t.Fatalf("expected 1 stale-pattern action, got %d", report.ActionCount(ActionDeprecateStalePattern))
	}
}

func TestFindPromotableSkills_PromotesAfterSustainedProbation(t *testing.T) {
	lib := newLibrary(t)
	s := lib.CreateSkill(skills.Trigger{TaskType: "bugfix"}, "narrow the repro")
	lib.RecordOutcome(s.ID, true)
	lib.RecordOutcome(s.ID, true)

	policy := DefaultPolicy()
	policy.MinSkillConfidence = 0.9
	ledger := selfaccept.NewLedger()

	report := AnalyzeAndRefresh(AggregateAnalytics{}, lib, ledger, policy, time.Now())
	if report.ActionCount(ActionPromoteSkill) != 0 {
		t.Fatalf("first pass should leave a 3/3 skill in probation, got %d promote actions", report.ActionCount(ActionPromoteSkill))
	}
	if ledger.Get(s.ID) == nil || ledger.Get(s.ID).Status != selfaccept.StatusProbation {
		t.Fatalf("expected the skill to be tracked in probation, got %+v", ledger.Get(s.ID))
	}

	report = AnalyzeAndRefresh(AggregateAnalytics{}, lib, ledger, policy, time.Now())
	if report.ActionCount(ActionPromoteSkill) != 1 {
		t.Fatalf("second sustained pass should promote, got %d promote actions", report.ActionCount(ActionPromoteSkill))
	}
	if ledger.Get(s.ID).Status != selfaccept.StatusAccepted {
		t.Fatalf("expected Accepted after promotion, got %v", ledger.Get(s.ID).Status)
	}
}

func TestFindPromotableSkills_ConfidenceDropRecordsFailure(t *testing.T) {
	lib := newLibrary(t)
	s := lib.CreateSkill(skills.Trigger{TaskType: "bugfix"}, "narrow the repro")
	lib.RecordOutcome(s.ID, true)
	lib.RecordOutcome(s.ID, true)

	policy := DefaultPolicy()
	policy.MinSkillConfidence = 0.9
	ledger := selfaccept.NewLedger()
	AnalyzeAndRefresh(AggregateAnalytics{}, lib, ledger, policy, time.Now())

	// Two failures drop the skill's confidence to 3/5 = 0.6, below the
	// threshold: the tracked item records a probation failure instead of
	// a promotion use.
	lib.RecordOutcome(s.ID, false)
	lib.RecordOutcome(s.ID, false)
	report := AnalyzeAndRefresh(AggregateAnalytics{}, lib, ledger, policy, time.Now())
	if report.ActionCount(ActionPromoteSkill) != 0 {
		t.Fatalf("a below-threshold skill must not promote, got %d actions", report.ActionCount(ActionPromoteSkill))
	}
	item := ledger.Get(s.ID)
	if item.TotalUses != 2 || item.SuccessfulUses != 1 {
		t.Fatalf("expected 1 success + 1 failure tracked, got %+v", item)
	}
}

func TestFindUndocumentedErrors_RecurrenceAboveThreshold(t *testing.T) {
	lib := newLibrary(t)
	policy := DefaultPolicy()
	policy.MinErrorOccurrences = 5
	analytics := AggregateAnalytics{ErrorCategoryCounts: map[taxonomy.Category]int{
		taxonomy.CategoryLifetime: 6,
		taxonomy.CategorySyntax:   2,
	}}
	report := AnalyzeAndRefresh(analytics, lib, selfaccept.NewLedger(), policy, time.Now())
	if report.ActionCount(ActionFlagUndocumentedError) != 1 {
		t.Fatalf("expected 1 undocumented-error action, got %d", report.ActionCount(ActionFlagUndocumentedError))
	}
}

func TestFindUndocumentedErrors_DocumentedCategorySkipped(t *testing.T) {
	lib := newLibrary(t)
	policy := DefaultPolicy()
	policy.MinErrorOccurrences = 5
	policy.DocumentedCategories = map[taxonomy.Category]bool{taxonomy.CategoryLifetime: true}
	analytics := AggregateAnalytics{ErrorCategoryCounts: map[taxonomy.Category]int{taxonomy.CategoryLifetime: 50}}
	report := AnalyzeAndRefresh(analytics, lib, selfaccept.NewLedger(), policy, time.Now())
	if report.ActionCount(ActionFlagUndocumentedError) != 0 {
		t.Fatalf("documented category should not be flagged, got %d actions", report.ActionCount(ActionFlagUndocumentedError))
	}
}

func TestFindUndocumentedErrors_HighPriorityAtTripleThreshold(t *testing.T) {
	lib := newLibrary(t)
	policy := DefaultPolicy()
	policy.MinErrorOccurrences = 5
	analytics := AggregateAnalytics{ErrorCategoryCounts: map[taxonomy.Category]int{taxonomy.CategoryLifetime: 15}}
	report := AnalyzeAndRefresh(analytics, lib, selfaccept.NewLedger(), policy, time.Now())
	if len(report.Actions) != 1 || report.Actions[0].Priority != PriorityHigh {
		t.Fatalf("expected a single High-priority action, got %+v", report.Actions)
	}
}

func TestReport_HasActions(t *testing.T) {
	if (Report{}).HasActions() {
		t.Fatal("empty report should have no actions")
	}
	if !(Report{Actions: []Action{{Type: ActionPromoteSkill}}}).HasActions() {
		t.Fatal("non-empty report should have actions")
	}
}
