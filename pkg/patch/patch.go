// Package patch implements the whitespace-tolerant hunk matcher described in
// SPEC_FULL.md §4.C. No external diff library in the retrieval pack offers a
// tiered exact → trimmed → normalized → fuzzy-similarity match with a
// configurable acceptance threshold, so the matcher is hand-rolled; see
// DESIGN.md for that justification.
package patch

import (
	"strings"

	swerr "github.com/jordigilh/swarmcore/pkg/shared/errors"
)

// MatchKind records which tier of the matching strategy succeeded.
type MatchKind string

const (
	MatchExact                MatchKind = "exact"
	MatchTrailingTrimmed       MatchKind = "trailing_trimmed"
	MatchWhitespaceNormalized  MatchKind = "whitespace_normalized"
	MatchFuzzy                 MatchKind = "fuzzy"
)

// Hunk is one requested edit.
type Hunk struct {
	OldLines    []string
	NewLines    []string
	Description string
}

// Result describes how (and whether) a hunk was applied.
type Result struct {
	Applied    bool
	MatchKind  MatchKind
	LineNumber int // 1-based, start of the matched window
	Similarity float64
	Err        error
}

// Config tunes the fuzzy tier.
type Config struct {
	MinSimilarity float64
}

// DefaultConfig matches the teacher-adjacent defaults used across the pack's
// fuzzy-matching examples: tolerant enough to survive reformatting, strict
// enough to refuse a window that isn't really the target block.
func DefaultConfig() Config {
	return Config{MinSimilarity: 0.6}
}

// ErrEmptyOldLines is returned immediately for a hunk with no old_lines, per
// spec.md §4.C ("Empty old_lines ⇒ hunk fails immediately").
var ErrEmptyOldLines = swerr.FailedTo("match hunk", errEmptyOldLines{})

type errEmptyOldLines struct{}

func (errEmptyOldLines) Error() string { return "hunk has no old_lines to match" }

// ApplyAll applies hunks sequentially: each hunk operates on the content
// produced by the previous one. A failed hunk leaves the running content
// unchanged but later hunks may still match and apply.
func ApplyAll(content string, hunks []Hunk, cfg Config) (string, []Result) {
	results := make([]Result, 0, len(hunks))
	for _, h := range hunks {
		newContent, res := applyOne(content, h, cfg)
		if res.Applied {
			content = newContent
		}
		results = append(results, res)
	}
	return content, results
}

// Apply applies a single hunk and returns the new content (unchanged on
// failure) plus the match result.
func Apply(content string, h Hunk, cfg Config) (string, Result) {
	return applyOne(content, h, cfg)
}

func applyOne(content string, h Hunk, cfg Config) (string, Result) {
	if len(h.OldLines) == 0 {
		return content, Result{Applied: false, Err: ErrEmptyOldLines}
	}

	lines := splitLines(content)

	if start, ok := findExact(lines, h.OldLines); ok {
		return replaceWindow(lines, start, len(h.OldLines), h.NewLines), Result{
			Applied: true, MatchKind: MatchExact, LineNumber: start + 1, Similarity: 1.0,
		}
	}
	if start, ok := findTrimmed(lines, h.OldLines, trimTrailing); ok {
		return replaceWindow(lines, start, len(h.OldLines), h.NewLines), Result{
			Applied: true, MatchKind: MatchTrailingTrimmed, LineNumber: start + 1, Similarity: 1.0,
		}
	}
	if start, ok := findTrimmed(lines, h.OldLines, normalizeWhitespace); ok {
		return replaceWindow(lines, start, len(h.OldLines), h.NewLines), Result{
			Applied: true, MatchKind: MatchWhitespaceNormalized, LineNumber: start + 1, Similarity: 1.0,
		}
	}
	if start, sim, ok := findFuzzy(lines, h.OldLines, cfg.MinSimilarity); ok {
		return replaceWindow(lines, start, len(h.OldLines), h.NewLines), Result{
			Applied: true, MatchKind: MatchFuzzy, LineNumber: start + 1, Similarity: sim,
		}
	}

	return content, Result{
		Applied: false,
		Err:     swerr.FailedTo("match hunk "+h.Description, errNoMatch{}),
	}
}

type errNoMatch struct{}

func (errNoMatch) Error() string { return "no window matched old_lines at any tier" }

func splitLines(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, "\n")
}

func replaceWindow(lines []string, start, length int, newLines []string) string {
	out := make([]string, 0, len(lines)-length+len(newLines))
	out = append(out, lines[:start]...)
	out = append(out, newLines...)
	out = append(out, lines[start+length:]...)
	return strings.Join(out, "\n")
}

func findExact(lines, old []string) (int, bool) {
	return findWindow(lines, old, func(a, b string) bool { return a == b })
}

func findTrimmed(lines, old []string, norm func(string) string) (int, bool) {
	normOld := make([]string, len(old))
	for i, l := range old {
		normOld[i] = norm(l)
	}
	return findWindow(lines, normOld, func(a, b string) bool { return norm(a) == b })
}

func findWindow(lines, old []string, eq func(line, oldLine string) bool) (int, bool) {
	n, m := len(lines), len(old)
	if m == 0 || m > n {
		return 0, false
	}
	for start := 0; start+m <= n; start++ {
		match := true
		for i := 0; i < m; i++ {
			if !eq(lines[start+i], old[i]) {
				match = false
				break
			}
		}
		if match {
			return start, true
		}
	}
	return 0, false
}

func trimTrailing(s string) string {
	return strings.TrimRight(s, " \t\r")
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// findFuzzy slides a window of len(old) lines across the content, scoring
// each window by the average per-line bigram-Jaccard similarity against
// old_lines, and accepts the best-scoring window iff it clears minSimilarity.
func findFuzzy(lines, old []string, minSimilarity float64) (int, float64, bool) {
	n, m := len(lines), len(old)
	if m == 0 || m > n {
		return 0, 0, false
	}
	bestStart := -1
	bestScore := -1.0
	for start := 0; start+m <= n; start++ {
		var sum float64
		for i := 0; i < m; i++ {
			sum += lineSimilarity(lines[start+i], old[i])
		}
		score := sum / float64(m)
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
	}
	if bestStart < 0 || bestScore < minSimilarity {
		return 0, 0, false
	}
	return bestStart, bestScore, true
}

// lineSimilarity is the Jaccard similarity of the two lines' character
// bigram sets.
func lineSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ba, bb := bigrams(a), bigrams(b)
	if len(ba) == 0 && len(bb) == 0 {
		return 1.0
	}
	if len(ba) == 0 || len(bb) == 0 {
		return 0.0
	}
	inter := 0
	for g := range ba {
		if bb[g] {
			inter++
		}
	}
	union := len(ba) + len(bb) - inter
	if union == 0 {
		return 0.0
	}
	return float64(inter) / float64(union)
}

func bigrams(s string) map[string]bool {
	s = normalizeWhitespace(s)
	runes := []rune(s)
	set := make(map[string]bool, len(runes))
	if len(runes) < 2 {
		if len(runes) == 1 {
			set[string(runes)] = true
		}
		return set
	}
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}
