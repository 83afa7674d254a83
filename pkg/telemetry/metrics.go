package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics mirrors the teacher's pkg/metrics counters/histograms (RecordX
// functions wrapping promauto collectors), retargeted at swarm operations.
var (
	IssuesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "swarm",
		Name:      "issues_processed_total",
		Help:      "Total issues the orchestrator has driven to a terminal state.",
	})

	IssueOutcomeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarm",
		Name:      "issue_outcome_total",
		Help:      "Issues by terminal outcome (resolved/failed).",
	}, []string{"outcome"})

	EscalationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarm",
		Name:      "escalations_total",
		Help:      "Escalations by target tier and reason.",
	}, []string{"tier", "reason"})

	GateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "swarm",
		Name:      "gate_duration_seconds",
		Help:      "Verifier gate execution time by gate and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"gate", "outcome"})

	IterationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "swarm",
		Name:      "iteration_duration_seconds",
		Help:      "Wall-clock time of one orchestrator iteration.",
		Buckets:   prometheus.DefBuckets,
	})

	CanaryWinnerTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "swarm",
		Name:      "canary_winner_total",
		Help:      "Canary evaluation outcomes by winning route label.",
	}, []string{"winner"})
)

// RecordIssueResolved increments the terminal-outcome counters.
func RecordIssueResolved(outcome string) {
	IssuesProcessedTotal.Inc()
	IssueOutcomeTotal.WithLabelValues(outcome).Inc()
}

// RecordEscalation increments the escalation counter for one tier/reason pair.
func RecordEscalation(tier, reason string) {
	EscalationsTotal.WithLabelValues(tier, reason).Inc()
}

// RecordGate observes one gate's execution duration.
func RecordGate(gate, outcome string, d time.Duration) {
	GateDuration.WithLabelValues(gate, outcome).Observe(d.Seconds())
}

// RecordIteration observes one orchestrator iteration's wall-clock time.
func RecordIteration(d time.Duration) {
	IterationDuration.Observe(d.Seconds())
}

// RecordCanaryWinner increments the winner counter for a canary evaluation.
func RecordCanaryWinner(winner string) {
	CanaryWinnerTotal.WithLabelValues(winner).Inc()
}
