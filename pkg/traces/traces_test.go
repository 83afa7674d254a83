package traces

import (
	"path/filepath"
	"testing"

	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traces.json")
	idx, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return idx
}

func TestLoad_MissingFileIsEmptyIndex(t *testing.T) {
	idx := newTestIndex(t)
	hints := idx.FindSimilar(QueryContext{TaskType: "bugfix"}, 5, 0.1)
	if len(hints) != 0 {
		t.Errorf("expected no hints from empty index, got %d", len(hints))
	}
}

func TestFindSimilar_OnlySuccessfulTraces(t *testing.T) {
	idx := newTestIndex(t)
	idx.Record(ExperienceTrace{
		Starting: StartingContext{TaskType: "bugfix"},
		Outcome:  OutcomeFailure,
	})
	hints := idx.FindSimilar(QueryContext{TaskType: "bugfix"}, 5, 0.0)
	if len(hints) != 0 {
		t.Errorf("expected failed trace excluded, got %d hints", len(hints))
	}
}

func TestFindSimilar_ScoringAndTopK(t *testing.T) {
	idx := newTestIndex(t)
	idx.Record(ExperienceTrace{
		Starting: StartingContext{ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime}, TaskType: "bugfix"},
		Outcome:  OutcomeSuccess,
		Deltas: []IterationDelta{
			{Description: "add lifetime annotation", FilesTouched: []string{"src/lib.rs"}},
		},
	})
	idx.Record(ExperienceTrace{
		Starting: StartingContext{ErrorCategories: []taxonomy.Category{taxonomy.CategoryMacro}, TaskType: "feature"},
		Outcome:  OutcomeSuccess,
		Deltas: []IterationDelta{
			{Description: "expand macro", FilesTouched: []string{"src/macros.rs"}},
		},
	})

	hints := idx.FindSimilar(QueryContext{
		ErrorCategories: []taxonomy.Category{taxonomy.CategoryLifetime},
		TaskType:        "bugfix",
	}, 1, 0.1)

	if len(hints) != 1 {
		t.Fatalf("FindSimilar() len = %d, want 1", len(hints))
	}
	if hints[0].Trace.Starting.TaskType != "bugfix" {
		t.Errorf("expected the bugfix/lifetime trace to win, got %+v", hints[0].Trace.Starting)
	}
	if len(hints[0].Strategy) != 1 || hints[0].Strategy[0] != "add lifetime annotation" {
		t.Errorf("Strategy = %+v", hints[0].Strategy)
	}
	if len(hints[0].ModifiedFiles) != 1 || hints[0].ModifiedFiles[0] != "src/lib.rs" {
		t.Errorf("ModifiedFiles = %+v", hints[0].ModifiedFiles)
	}
}

func TestFindSimilar_DedupesModifiedFiles(t *testing.T) {
	idx := newTestIndex(t)
	idx.Record(ExperienceTrace{
		Starting: StartingContext{TaskType: "bugfix"},
		Outcome:  OutcomeSuccess,
		Deltas: []IterationDelta{
			{FilesTouched: []string{"a.rs", "b.rs"}},
			{FilesTouched: []string{"a.rs", "c.rs"}},
		},
	})
	hints := idx.FindSimilar(QueryContext{TaskType: "bugfix"}, 5, 0.0)
	if len(hints) != 1 {
		t.Fatalf("len = %d", len(hints))
	}
	if len(hints[0].ModifiedFiles) != 3 {
		t.Errorf("ModifiedFiles = %+v, want 3 deduped entries", hints[0].ModifiedFiles)
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "traces.json")
	idx, _ := Load(path)
	idx.Record(ExperienceTrace{Starting: StartingContext{TaskType: "bugfix"}, Outcome: OutcomeSuccess})
	if err := idx.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(reloaded.traces) != 1 {
		t.Errorf("reloaded traces len = %d, want 1", len(reloaded.traces))
	}
}
