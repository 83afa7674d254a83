// Package verifier runs the ordered quality gates described in
// SPEC_FULL.md §4.B and produces a structured VerifierReport.
package verifier

import (
	"time"

	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

// GateName is one of the four canonical gates.
type GateName string

const (
	GateFmt    GateName = "fmt"
	GateClippy GateName = "clippy"
	GateCheck  GateName = "check"
	GateTest   GateName = "test"
)

// CanonicalOrder is the fixed gate sequence spec.md §4.B mandates.
var CanonicalOrder = []GateName{GateFmt, GateClippy, GateCheck, GateTest}

// Outcome is the closed result set for one gate.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// GateResult is one gate's structured outcome.
type GateResult struct {
	Gate           GateName
	Outcome        Outcome
	Duration       time.Duration
	ExitCode       *int
	ErrorCount     int
	WarningCount   int
	ClassifiedErrors []taxonomy.ParsedError
	StderrExcerpt  string
}

// ReportOutcome is the aggregate result over all gates.
type ReportOutcome string

const (
	ReportAllGreen ReportOutcome = "all_green"
	ReportFailed   ReportOutcome = "failed"
)

// VerifierReport is the ordered list of GateResults plus the aggregate.
type VerifierReport struct {
	Branch   string
	Commit   string
	Gates    []GateResult
	Outcome  ReportOutcome
	Duration time.Duration
}

// AllGreen reports whether outcome is AllGreen, matching invariant 5 of
// spec.md §3: every enabled gate must then be Passed.
func (r VerifierReport) AllGreen() bool {
	return r.Outcome == ReportAllGreen
}

// TouchedFileCount is a convenience the escalation engine uses for the
// multi-file routing rule; it is supplied by the caller since the report
// itself doesn't track the diff.
type TouchedFileCount = int
