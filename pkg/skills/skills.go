// Package skills implements the process-wide, JSON-backed SkillLibrary from
// SPEC_FULL.md §4.E: similarity-keyed retrieval of prior winning strategies,
// triggered by error categories, file-pattern globs, and task type.
package skills

import (
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/gobwas/glob"

	"github.com/jordigilh/swarmcore/pkg/shared/ids"
	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

// Trigger is the match condition for a Skill. An empty trigger never
// matches — no wildcards, per spec.md §4.E.
type Trigger struct {
	ErrorCategories []taxonomy.Category
	FilePatterns    []string
	TaskType        string
}

func (t Trigger) isEmpty() bool {
	return len(t.ErrorCategories) == 0 && len(t.FilePatterns) == 0 && t.TaskType == ""
}

// Skill is one retrievable strategy record.
type Skill struct {
	ID       string
	Trigger  Trigger
	Approach string
	Successes int
	Failures  int
}

// Confidence returns successes/(successes+failures), gated to 0 when the
// total sample count is below minSamples (spec.md invariant 7).
func (s Skill) Confidence(minSamples int) float64 {
	total := s.Successes + s.Failures
	if total < minSamples {
		return 0
	}
	if total == 0 {
		return 0
	}
	return float64(s.Successes) / float64(total)
}

// MatchContext is the query context a caller retrieves hints against.
type MatchContext struct {
	ErrorCategories []taxonomy.Category
	Files           []string
	TaskType        string
}

// SkillHint is a retrieval result.
type SkillHint struct {
	Skill      Skill
	Confidence float64
}

// Library is the process-wide skill store. Reads are lock-free snapshots;
// writes (Create, RecordOutcome, persistence) are serialized.
type Library struct {
	mu       sync.RWMutex
	path     string
	skills   map[string]*Skill
	minSamples   int
	minConfidence float64
}

// Config tunes retrieval filtering.
type Config struct {
	Path          string
	MinSamples    int
	MinConfidence float64
}

// Load reads skills.json from path. A missing file is not an error — it
// yields an empty library, per spec.md §4.E ("Both stores tolerate a
// missing file").
func Load(cfg Config) (*Library, error) {
	lib := &Library{
		path:          cfg.Path,
		skills:        make(map[string]*Skill),
		minSamples:    cfg.MinSamples,
		minConfidence: cfg.MinConfidence,
	}
	data, err := os.ReadFile(cfg.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return lib, nil
		}
		return nil, err
	}
	var raw []Skill
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for i := range raw {
		s := raw[i]
		lib.skills[s.ID] = &s
	}
	return lib, nil
}

// Save atomically replaces the backing JSON file.
func (l *Library) Save() error {
	l.mu.RLock()
	out := make([]Skill, 0, len(l.skills))
	for _, s := range l.skills {
		out = append(out, *s)
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, l.path)
}

// CreateSkill assigns a generated id and records a single initial success.
func (l *Library) CreateSkill(trigger Trigger, approach string) Skill {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := &Skill{ID: ids.New(), Trigger: trigger, Approach: approach, Successes: 1}
	l.skills[s.ID] = s
	return *s
}

// RecordOutcome updates a skill's success/failure counters.
func (l *Library) RecordOutcome(id string, success bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.skills[id]
	if !ok {
		return
	}
	if success {
		s.Successes++
	} else {
		s.Failures++
	}
}

// FindMatching returns skills whose trigger matches ctx, sorted by
// confidence descending, filtered by the library's configured minSamples
// and minConfidence.
func (l *Library) FindMatching(ctx MatchContext) []SkillHint {
	l.mu.RLock()
	defer l.mu.RUnlock()

	hints := make([]SkillHint, 0, len(l.skills))
	for _, s := range l.skills {
		if !triggerMatches(s.Trigger, ctx) {
			continue
		}
		conf := s.Confidence(l.minSamples)
		total := s.Successes + s.Failures
		if total < l.minSamples || conf < l.minConfidence {
			continue
		}
		hints = append(hints, SkillHint{Skill: *s, Confidence: conf})
	}
	sort.Slice(hints, func(i, j int) bool {
		if hints[i].Confidence != hints[j].Confidence {
			return hints[i].Confidence > hints[j].Confidence
		}
		return hints[i].Skill.ID < hints[j].Skill.ID
	})
	return hints
}

// Snapshot returns every skill in the library regardless of trigger
// matching, sorted by ID, for callers (e.g. pkg/kbrefresh) that scan the
// whole library rather than retrieve against a MatchContext.
func (l *Library) Snapshot() []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Skill, 0, len(l.skills))
	for _, s := range l.skills {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// triggerMatches implements the all-configured-conditions-must-match
// semantics from spec.md §4.E, including the never-matches-empty-trigger
// rule.
func triggerMatches(t Trigger, ctx MatchContext) bool {
	if t.isEmpty() {
		return false
	}
	if len(t.ErrorCategories) > 0 && !anyIntersect(t.ErrorCategories, ctx.ErrorCategories) {
		return false
	}
	if len(t.FilePatterns) > 0 && !anyGlobMatches(t.FilePatterns, ctx.Files) {
		return false
	}
	if t.TaskType != "" {
		if ctx.TaskType == "" || !strings.EqualFold(t.TaskType, ctx.TaskType) {
			return false
		}
	}
	return true
}

func anyIntersect(want, have []taxonomy.Category) bool {
	set := make(map[taxonomy.Category]bool, len(have))
	for _, c := range have {
		set[c] = true
	}
	for _, c := range want {
		if set[c] {
			return true
		}
	}
	return false
}

func anyGlobMatches(patterns, files []string) bool {
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			continue
		}
		for _, f := range files {
			if g.Match(f) {
				return true
			}
		}
	}
	return false
}

