// Package acceptance implements the post-green gate set from
// SPEC_FULL.md §4.I: additional rejections that push a session back to
// Implementing even after VerifierReport.all_green.
package acceptance

import (
	"strings"
)

// FileChange is one file touched by a session's diff.
type FileChange struct {
	Path         string
	LinesAdded   int
	LinesRemoved int
}

// Session is the diff metadata an acceptance policy evaluates.
type Session struct {
	Files       []FileChange
	CloudPasses int
	HasBaseline bool
}

// Policy configures the four built-in gates. Zero values disable the
// corresponding gate.
type Policy struct {
	MaxDiffLines       int
	MinCloudPasses     int
	RequireTestChanges bool
	ScopeToCrates      []string
}

// Decision is the evaluate() result.
type Decision struct {
	Accepted   bool
	Rejections []string
	Skipped    []string // gates that could not be evaluated, e.g. missing baseline
}

// testFileHeuristic matches the conventional test-file shapes the teacher's
// own repos use.
func looksLikeTestFile(path string) bool {
	base := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		base = path[idx+1:]
	}
	return strings.HasSuffix(base, "_test.go") ||
		strings.HasSuffix(base, ".test.ts") ||
		strings.Contains(path, "/tests/") ||
		strings.HasPrefix(base, "test_")
}

// Evaluate runs every configured gate and aggregates the outcome. A gate
// that cannot be evaluated (missing baseline commit) is recorded in Skipped,
// not Rejections, per spec.md §4.I.
func Evaluate(policy Policy, session Session) Decision {
	d := Decision{Accepted: true}

	if policy.MaxDiffLines > 0 {
		if !session.HasBaseline {
			d.Skipped = append(d.Skipped, "max_diff_lines")
		} else {
			total := 0
			for _, f := range session.Files {
				total += f.LinesAdded + f.LinesRemoved
			}
			if total > policy.MaxDiffLines {
				d.Accepted = false
				d.Rejections = append(d.Rejections, "max_diff_lines exceeded")
			}
		}
	}

	if policy.MinCloudPasses > 0 && session.CloudPasses < policy.MinCloudPasses {
		d.Accepted = false
		d.Rejections = append(d.Rejections, "min_cloud_passes not met")
	}

	if policy.RequireTestChanges {
		touched := false
		for _, f := range session.Files {
			if looksLikeTestFile(f.Path) {
				touched = true
				break
			}
		}
		if !touched {
			d.Accepted = false
			d.Rejections = append(d.Rejections, "require_test_changes: no test file touched")
		}
	}

	if len(policy.ScopeToCrates) > 0 {
		for _, f := range session.Files {
			if !withinScope(f.Path, policy.ScopeToCrates) {
				d.Accepted = false
				d.Rejections = append(d.Rejections, "scope_to_crates: "+f.Path+" is outside the allowed scope")
			}
		}
	}

	return d
}

func withinScope(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
