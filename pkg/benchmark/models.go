// Package benchmark implements the cross-session benchmark harness from
// SPEC_FULL.md §4.N: the one component whose state deliberately outlives a
// single issue session.
package benchmark

import "time"

// SessionRecord is one benchmark run of the orchestrator against a fixed
// issue set.
type SessionRecord struct {
	ID          int64
	RunLabel    string
	IssueID     string
	Resolved    bool
	Iterations  int
	HighestTier string
	WallClock   time.Duration
	CreatedAt   time.Time
}

// Aggregate is the computed set of metrics across every SessionRecord in a
// run: resolution rate, mean iterations, mean escalation tier, mean
// wall-clock.
type Aggregate struct {
	RunLabel           string
	TotalSessions      int
	ResolutionRate     float64
	MeanIterations     float64
	MeanEscalationRank float64
	MeanWallClock      time.Duration
}

// Delta compares a post-change Aggregate against a baseline one.
type Delta struct {
	Baseline            Aggregate
	PostChange          Aggregate
	ResolutionRateDelta float64
	MeanIterationsDelta float64
	MeanWallClockDelta  time.Duration
}

// tierRank orders escalation tiers for averaging; higher means "escalated
// further," mirroring pkg/escalation's ladder.
var tierRank = map[string]int{
	"worker":     0,
	"integrator": 1,
	"cloud":      2,
	"adversary":  3,
}

// Aggregate computes the rollup metrics for one run's SessionRecords.
func ComputeAggregate(runLabel string, records []SessionRecord) Aggregate {
	if len(records) == 0 {
		return Aggregate{RunLabel: runLabel}
	}
	var resolved, totalIterations, totalTierRank int
	var totalWallClock time.Duration
	for _, r := range records {
		if r.Resolved {
			resolved++
		}
		totalIterations += r.Iterations
		totalTierRank += tierRank[r.HighestTier]
		totalWallClock += r.WallClock
	}
	n := float64(len(records))
	return Aggregate{
		RunLabel:           runLabel,
		TotalSessions:      len(records),
		ResolutionRate:     float64(resolved) / n,
		MeanIterations:     float64(totalIterations) / n,
		MeanEscalationRank: float64(totalTierRank) / n,
		MeanWallClock:      time.Duration(float64(totalWallClock) / n),
	}
}

// ComputeDelta reports baseline-vs-post-change differences.
func ComputeDelta(baseline, postChange Aggregate) Delta {
	return Delta{
		Baseline:            baseline,
		PostChange:          postChange,
		ResolutionRateDelta: postChange.ResolutionRate - baseline.ResolutionRate,
		MeanIterationsDelta: postChange.MeanIterations - baseline.MeanIterations,
		MeanWallClockDelta:  postChange.MeanWallClock - baseline.MeanWallClock,
	}
}
