// Package traces implements the process-wide TraceIndex from
// SPEC_FULL.md §4.E: similarity-scored retrieval of ExperienceTrace records
// from past sessions.
package traces

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jordigilh/swarmcore/pkg/shared/ids"
	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

// Outcome is the closed result set for a completed session.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeFailure   Outcome = "failure"
	OutcomeEscalated Outcome = "escalated"
)

// StartingContext describes the situation a trace began from.
type StartingContext struct {
	ErrorCategories []taxonomy.Category
	FilePatterns    []string
	TaskType        string
}

// IterationDelta is one recorded step of a past session.
type IterationDelta struct {
	Description  string
	FilesTouched []string
}

// ExperienceTrace is an ordered record of a past session's iteration deltas.
type ExperienceTrace struct {
	ID              string
	Starting        StartingContext
	Deltas          []IterationDelta
	Outcome         Outcome
	Duration        time.Duration
	IterationCount  int
}

// QueryContext is what a caller retrieves similar traces against.
type QueryContext struct {
	ErrorCategories []taxonomy.Category
	Files           []string
	TaskType        string
}

// ReplayHint is a retrieval result: a strategy sequence plus a deduplicated
// file list, ready to fold into a WorkPacket.
type ReplayHint struct {
	Trace           ExperienceTrace
	Score           float64
	Strategy        []string
	ModifiedFiles   []string
}

// Index is the process-wide, JSON-backed trace store.
type Index struct {
	mu     sync.RWMutex
	path   string
	traces map[string]*ExperienceTrace
}

// Load reads traces.json. A missing file yields an empty index.
func Load(path string) (*Index, error) {
	idx := &Index{path: path, traces: make(map[string]*ExperienceTrace)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	var raw []ExperienceTrace
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for i := range raw {
		tr := raw[i]
		idx.traces[tr.ID] = &tr
	}
	return idx, nil
}

// Save atomically replaces the backing JSON file.
func (idx *Index) Save() error {
	idx.mu.RLock()
	out := make([]ExperienceTrace, 0, len(idx.traces))
	for _, t := range idx.traces {
		out = append(out, *t)
	}
	idx.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, idx.path)
}

// Record appends a completed session's trace to the index.
func (idx *Index) Record(tr ExperienceTrace) ExperienceTrace {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if tr.ID == "" {
		tr.ID = ids.New()
	}
	idx.traces[tr.ID] = &tr
	return tr
}

// weights for the similarity score; spec.md §4.E: error-categories Jaccard ×
// 0.5 + file-directory overlap × 0.3 + task-type match × 0.2, renormalized
// by the sum of active weights (a weight is "active" when the corresponding
// query field is non-empty).
const (
	weightCategories = 0.5
	weightFiles      = 0.3
	weightTaskType   = 0.2
)

// FindSimilar scores every successful trace against ctx and returns the top
// k whose score is >= minSimilarity.
func (idx *Index) FindSimilar(ctx QueryContext, k int, minSimilarity float64) []ReplayHint {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	hints := make([]ReplayHint, 0, len(idx.traces))
	for _, tr := range idx.traces {
		if tr.Outcome != OutcomeSuccess {
			continue
		}
		score, ok := similarity(ctx, tr.Starting)
		if !ok || score < minSimilarity {
			continue
		}
		hints = append(hints, ReplayHint{
			Trace:         *tr,
			Score:         score,
			Strategy:      strategySequence(*tr),
			ModifiedFiles: dedupedFiles(*tr),
		})
	}
	sort.Slice(hints, func(i, j int) bool {
		if hints[i].Score != hints[j].Score {
			return hints[i].Score > hints[j].Score
		}
		return hints[i].Trace.ID < hints[j].Trace.ID
	})
	if len(hints) > k {
		hints = hints[:k]
	}
	return hints
}

func similarity(q QueryContext, s StartingContext) (float64, bool) {
	var sum, weightSum float64

	if len(q.ErrorCategories) > 0 || len(s.ErrorCategories) > 0 {
		sum += weightCategories * jaccardCategories(q.ErrorCategories, s.ErrorCategories)
		weightSum += weightCategories
	}
	if len(q.Files) > 0 || len(s.FilePatterns) > 0 {
		sum += weightFiles * dirOverlap(q.Files, s.FilePatterns)
		weightSum += weightFiles
	}
	if q.TaskType != "" || s.TaskType != "" {
		if strings.EqualFold(q.TaskType, s.TaskType) && q.TaskType != "" {
			sum += weightTaskType * 1.0
		}
		weightSum += weightTaskType
	}
	if weightSum == 0 {
		return 0, false
	}
	return sum / weightSum, true
}

func jaccardCategories(a, b []taxonomy.Category) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	setA := make(map[taxonomy.Category]bool, len(a))
	for _, c := range a {
		setA[c] = true
	}
	setB := make(map[taxonomy.Category]bool, len(b))
	for _, c := range b {
		setB[c] = true
	}
	inter := 0
	for c := range setA {
		if setB[c] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func dirOverlap(files, patterns []string) float64 {
	dirsA := dirSet(files)
	dirsB := dirSet(patterns)
	if len(dirsA) == 0 && len(dirsB) == 0 {
		return 1.0
	}
	inter := 0
	for d := range dirsA {
		if dirsB[d] {
			inter++
		}
	}
	union := len(dirsA) + len(dirsB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func dirSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		set[filepath.Dir(p)] = true
	}
	return set
}

func strategySequence(tr ExperienceTrace) []string {
	seq := make([]string, 0, len(tr.Deltas))
	for _, d := range tr.Deltas {
		seq = append(seq, d.Description)
	}
	return seq
}

func dedupedFiles(tr ExperienceTrace) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, d := range tr.Deltas {
		for _, f := range d.FilesTouched {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Strings(out)
	return out
}
