package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

func newTestLibrary(t *testing.T) *Library {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skills.json")
	lib, err := Load(Config{Path: path, MinSamples: 2, MinConfidence: 0.5})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return lib
}

func TestLoad_MissingFileIsEmptyLibrary(t *testing.T) {
	lib := newTestLibrary(t)
	if len(lib.skills) != 0 {
		t.Errorf("expected empty library, got %d skills", len(lib.skills))
	}
}

func TestCreateSkill_InitialSuccess(t *testing.T) {
	lib := newTestLibrary(t)
	s := lib.CreateSkill(Trigger{ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime}}, "add explicit lifetime annotation")
	if s.Successes != 1 || s.Failures != 0 {
		t.Errorf("new skill = %+v, want Successes=1 Failures=0", s)
	}
	if s.ID == "" {
		t.Error("expected generated id")
	}
}

func TestConfidence_GatedByMinSamples(t *testing.T) {
	s := Skill{Successes: 1, Failures: 0}
	if got := s.Confidence(2); got != 0 {
		t.Errorf("Confidence(2) = %v, want 0 below min samples", got)
	}
	s2 := Skill{Successes: 3, Failures: 1}
	if got := s2.Confidence(2); got != 0.75 {
		t.Errorf("Confidence(2) = %v, want 0.75", got)
	}
}

func TestTriggerMatches_EmptyTriggerNeverMatches(t *testing.T) {
	lib := newTestLibrary(t)
	lib.CreateSkill(Trigger{}, "no-op")
	lib.RecordOutcome(lib.skills[firstKey(lib)].ID, true)

	hints := lib.FindMatching(MatchContext{ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime}})
	if len(hints) != 0 {
		t.Errorf("expected no matches for empty trigger, got %d", len(hints))
	}
}

func firstKey(lib *Library) string {
	for k := range lib.skills {
		return k
	}
	return ""
}

func TestFindMatching_ErrorCategoryAnyOf(t *testing.T) {
	lib := newTestLibrary(t)
	skill := lib.CreateSkill(Trigger{ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime, taxonomy.CategoryBorrowChecker}}, "approach")
	for i := 0; i < 3; i++ {
		lib.RecordOutcome(skill.ID, true)
	}

	hints := lib.FindMatching(MatchContext{ErrorCategories: []taxonomy.Category{taxonomy.CategoryBorrowChecker}})
	if len(hints) != 1 {
		t.Fatalf("FindMatching() len = %d, want 1", len(hints))
	}
}

func TestFindMatching_FilePatternGlob(t *testing.T) {
	lib := newTestLibrary(t)
	skill := lib.CreateSkill(Trigger{FilePatterns: []string{"crates/agents/*.rs"}}, "approach")
	for i := 0; i < 3; i++ {
		lib.RecordOutcome(skill.ID, true)
	}

	matching := lib.FindMatching(MatchContext{Files: []string{"crates/agents/lib.rs"}})
	if len(matching) != 1 {
		t.Fatalf("expected match for crates/agents/lib.rs, got %d", len(matching))
	}

	notMatching := lib.FindMatching(MatchContext{Files: []string{"crates/agents/sub/lib.rs"}})
	if len(notMatching) != 0 {
		t.Errorf("glob * should not cross /, but matched sub/lib.rs")
	}
}

func TestFindMatching_TaskTypeCaseInsensitive(t *testing.T) {
	lib := newTestLibrary(t)
	skill := lib.CreateSkill(Trigger{TaskType: "BugFix"}, "approach")
	for i := 0; i < 3; i++ {
		lib.RecordOutcome(skill.ID, true)
	}
	hints := lib.FindMatching(MatchContext{TaskType: "bugfix"})
	if len(hints) != 1 {
		t.Fatalf("expected case-insensitive task type match, got %d", len(hints))
	}
}

func TestFindMatching_AllConditionsMustMatch(t *testing.T) {
	lib := newTestLibrary(t)
	skill := lib.CreateSkill(Trigger{
		ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime},
		TaskType:        "bugfix",
	}, "approach")
	for i := 0; i < 3; i++ {
		lib.RecordOutcome(skill.ID, true)
	}

	// category matches but task type doesn't.
	hints := lib.FindMatching(MatchContext{
		ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime},
		TaskType:        "feature",
	})
	if len(hints) != 0 {
		t.Errorf("expected no match when task type diverges, got %d", len(hints))
	}
}

func TestFindMatching_SortedByConfidenceDescending(t *testing.T) {
	lib := newTestLibrary(t)
	low := lib.CreateSkill(Trigger{TaskType: "bugfix"}, "low")
	lib.RecordOutcome(low.ID, true)
	lib.RecordOutcome(low.ID, false)
	lib.RecordOutcome(low.ID, false)

	high := lib.CreateSkill(Trigger{TaskType: "bugfix"}, "high")
	lib.RecordOutcome(high.ID, true)
	lib.RecordOutcome(high.ID, true)

	hints := lib.FindMatching(MatchContext{TaskType: "bugfix"})
	if len(hints) != 2 {
		t.Fatalf("len = %d, want 2", len(hints))
	}
	if hints[0].Confidence < hints[1].Confidence {
		t.Errorf("hints not sorted descending: %+v", hints)
	}
}

func TestSave_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skills.json")
	lib, _ := Load(Config{Path: path, MinSamples: 1})
	lib.CreateSkill(Trigger{TaskType: "bugfix"}, "approach")
	if err := lib.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file at %s: %v", path, err)
	}

	reloaded, err := Load(Config{Path: path, MinSamples: 1})
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if len(reloaded.skills) != 1 {
		t.Errorf("reloaded skills len = %d, want 1", len(reloaded.skills))
	}
}
