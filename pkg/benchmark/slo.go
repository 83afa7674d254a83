package benchmark

import (
	"strconv"
	"strings"
)

// AlertSeverity grades one SLO evaluation.
type AlertSeverity int

const (
	SeverityOK AlertSeverity = iota
	SeverityWarning
	SeverityCritical
)

func (s AlertSeverity) String() string {
	switch s {
	case SeverityOK:
		return "OK"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		panic("unknown AlertSeverity")
	}
}

// MetricDirection says whether higher or lower values are better for a
// metric.
type MetricDirection int

const (
	HigherIsBetter MetricDirection = iota
	LowerIsBetter
)

// Metric names the Aggregate field an SLO target maps to.
type Metric string

const (
	MetricResolutionRate     Metric = "resolution_rate"
	MetricMeanIterations     Metric = "mean_iterations"
	MetricMeanEscalationRank Metric = "mean_escalation_rank"
	MetricMeanWallClock      Metric = "mean_wall_clock_seconds"
)

// SLOTarget is one service-level objective with warning and critical
// thresholds over a single Aggregate metric.
type SLOTarget struct {
	Name              string
	Metric            Metric
	WarningThreshold  float64
	CriticalThreshold float64
	Direction         MetricDirection
	Unit              string
}

// Evaluate grades value against the target's thresholds.
func (t SLOTarget) Evaluate(value float64) AlertSeverity {
	switch t.Direction {
	case HigherIsBetter:
		if value >= t.WarningThreshold {
			return SeverityOK
		}
		if value >= t.CriticalThreshold {
			return SeverityWarning
		}
		return SeverityCritical
	case LowerIsBetter:
		if value <= t.WarningThreshold {
			return SeverityOK
		}
		if value <= t.CriticalThreshold {
			return SeverityWarning
		}
		return SeverityCritical
	default:
		panic("unknown MetricDirection")
	}
}

// SLOResult is one target's evaluation against a concrete value.
type SLOResult struct {
	Target   SLOTarget
	Value    float64
	Severity AlertSeverity
}

// Violated reports whether the result breaches the critical threshold.
func (r SLOResult) Violated() bool { return r.Severity == SeverityCritical }

// SLOReport is the full evaluation of a target set against one Aggregate.
type SLOReport struct {
	RunLabel string
	Results  []SLOResult
	Overall  AlertSeverity
	Passing  int
}

// AllPassing reports whether every target evaluated OK.
func (r SLOReport) AllPassing() bool { return r.Passing == len(r.Results) }

// Summary renders a compact one-line-per-target view for logs and the
// dashboard's text panel.
func (r SLOReport) Summary() string {
	var b strings.Builder
	b.WriteString("SLO ")
	b.WriteString(r.Overall.String())
	b.WriteString(" (")
	b.WriteString(strconv.Itoa(r.Passing))
	b.WriteString("/")
	b.WriteString(strconv.Itoa(len(r.Results)))
	b.WriteString(" passing)")
	for _, res := range r.Results {
		b.WriteString("\n  ")
		b.WriteString(res.Severity.String())
		b.WriteString(" ")
		b.WriteString(res.Target.Name)
		b.WriteString(": ")
		b.WriteString(strconv.FormatFloat(res.Value, 'f', 2, 64))
		b.WriteString(res.Target.Unit)
	}
	return b.String()
}

// DefaultSLOTargets mirrors the production objectives: a swarm that
// resolves most issues, converges in few iterations, rarely escalates past
// the Worker tier, and keeps per-issue wall clock bounded.
func DefaultSLOTargets() []SLOTarget {
	return []SLOTarget{
		{
			Name:              "Resolution rate",
			Metric:            MetricResolutionRate,
			WarningThreshold:  0.70,
			CriticalThreshold: 0.50,
			Direction:         HigherIsBetter,
		},
		{
			Name:              "Mean iterations per issue",
			Metric:            MetricMeanIterations,
			WarningThreshold:  5,
			CriticalThreshold: 8,
			Direction:         LowerIsBetter,
		},
		{
			Name:              "Mean escalation rank",
			Metric:            MetricMeanEscalationRank,
			WarningThreshold:  0.40,
			CriticalThreshold: 0.80,
			Direction:         LowerIsBetter,
		},
		{
			Name:              "Mean wall clock",
			Metric:            MetricMeanWallClock,
			WarningThreshold:  600,
			CriticalThreshold: 900,
			Direction:         LowerIsBetter,
			Unit:              "s",
		},
	}
}

// ExtractMetric pulls the named metric's value out of an Aggregate.
func ExtractMetric(agg Aggregate, metric Metric) float64 {
	switch metric {
	case MetricResolutionRate:
		return agg.ResolutionRate
	case MetricMeanIterations:
		return agg.MeanIterations
	case MetricMeanEscalationRank:
		return agg.MeanEscalationRank
	case MetricMeanWallClock:
		return agg.MeanWallClock.Seconds()
	default:
		panic("unknown Metric")
	}
}

// EvaluateSLOs grades agg against the default targets.
func EvaluateSLOs(agg Aggregate) SLOReport {
	return EvaluateSLOsWithTargets(agg, DefaultSLOTargets())
}

// EvaluateSLOsWithTargets grades agg against a caller-supplied target set.
// Overall severity is the worst individual severity.
func EvaluateSLOsWithTargets(agg Aggregate, targets []SLOTarget) SLOReport {
	report := SLOReport{RunLabel: agg.RunLabel, Results: make([]SLOResult, 0, len(targets))}
	for _, t := range targets {
		value := ExtractMetric(agg, t.Metric)
		severity := t.Evaluate(value)
		if severity == SeverityOK {
			report.Passing++
		}
		if severity > report.Overall {
			report.Overall = severity
		}
		report.Results = append(report.Results, SLOResult{Target: t, Value: value, Severity: severity})
	}
	return report
}
