package orchestrator

import (
	"time"

	"github.com/jordigilh/swarmcore/pkg/kbrefresh"
	"github.com/jordigilh/swarmcore/pkg/selfaccept"
	"github.com/jordigilh/swarmcore/pkg/skills"
	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

// ErrorTally accumulates per-category verifier failure counts across the
// sessions an orchestrator has driven since the last knowledge-base refresh.
// A caller running many Sessions keeps one ErrorTally and feeds it every
// report RunIteration produces; RecordReport ignores green reports.
type ErrorTally struct {
	counts         map[taxonomy.Category]int
	sessionsClosed int
}

// NewErrorTally returns an empty tally.
func NewErrorTally() *ErrorTally {
	return &ErrorTally{counts: map[taxonomy.Category]int{}}
}

// RecordReport folds one iteration's classified verifier errors into the
// tally. It is a no-op for a green report.
func (t *ErrorTally) RecordReport(report *IterationResult) {
	if report == nil || report.VerifierReport == nil {
		return
	}
	for _, gate := range report.VerifierReport.Gates {
		for _, e := range gate.ClassifiedErrors {
			t.counts[e.Category]++
		}
	}
}

// CloseSession marks one orchestrator session as finished, advancing the
// count ShouldRefresh checks against.
func (t *ErrorTally) CloseSession() {
	t.sessionsClosed++
}

// MaybeRefreshKB runs a knowledge-base refresh pass if the tally's closed
// session count is due for one per policy, and resets the tally's counts
// afterward so the next window starts clean. ledger is the promotion
// lifecycle state shared across refresh passes; a caller keeps one ledger
// alongside its ErrorTally. It reports ok=false when no refresh was due.
func MaybeRefreshKB(tally *ErrorTally, lib *skills.Library, ledger *selfaccept.Ledger, policy kbrefresh.Policy, now time.Time) (report kbrefresh.Report, ok bool) {
	if !kbrefresh.ShouldRefresh(tally.sessionsClosed, policy) {
		return kbrefresh.Report{}, false
	}
	analytics := kbrefresh.AggregateAnalytics{ErrorCategoryCounts: tally.counts}
	report = kbrefresh.AnalyzeAndRefresh(analytics, lib, ledger, policy, now)
	tally.counts = map[taxonomy.Category]int{}
	return report, true
}
