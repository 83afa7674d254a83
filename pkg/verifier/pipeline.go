package verifier

import (
	"context"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/jordigilh/swarmcore/pkg/taxonomy"
)

// GateConfig enumerates the per-run configuration from spec.md §4.B.
type GateConfig struct {
	Comprehensive   bool
	Enabled         map[GateName]bool
	GateTimeout     time.Duration
	StderrMaxBytes  int
	ExtraArgs       map[GateName][]string
	PackageScope    string
}

// SpawnResult is what a GateSpawner returns for one gate invocation.
type SpawnResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// GateSpawner abstracts sub-process execution so the pipeline's ordering,
// timeout, fail-fast, and breaker logic can be tested without a real
// compiler toolchain. The production implementation shells out with
// os/exec; the compiler/test runner itself remains an external
// collaborator per spec.md §1.
type GateSpawner interface {
	Spawn(ctx context.Context, gate GateName, cfg GateConfig) (SpawnResult, error)
}

// MetadataReader supplies branch/commit for the report header via a
// side-effect-free read, per spec.md §4.B step 1.
type MetadataReader interface {
	BranchCommit(ctx context.Context) (branch, commit string, err error)
}

// Pipeline runs the ordered gates against one worktree.
type Pipeline struct {
	spawner  GateSpawner
	metadata MetadataReader
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
}

// NewPipeline constructs a Pipeline. spawnRatePerSec bounds how often a gate
// sub-process may be forked, guarding against a misconfigured
// gate_timeout_secs=0 turning a bad gate into a fork bomb.
func NewPipeline(spawner GateSpawner, metadata MetadataReader, spawnRatePerSec float64) *Pipeline {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "verifier-gate-spawn",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	limiter := rate.NewLimiter(rate.Limit(spawnRatePerSec), 1)
	return &Pipeline{spawner: spawner, metadata: metadata, limiter: limiter, breaker: breaker}
}

// Run executes the canonical gate order under cfg, producing a
// VerifierReport. Gate ordering is always a prefix of CanonicalOrder
// modulo disabled gates; a Skipped gate always implies a prior Failed gate
// when comprehensive is false.
func (p *Pipeline) Run(ctx context.Context, cfg GateConfig) (*VerifierReport, error) {
	report := &VerifierReport{}
	if p.metadata != nil {
		branch, commit, err := p.metadata.BranchCommit(ctx)
		if err == nil {
			report.Branch, report.Commit = branch, commit
		}
	}

	start := time.Now()
	failedSoFar := false

	for _, gate := range CanonicalOrder {
		if !cfg.Enabled[gate] {
			continue
		}
		if failedSoFar && !cfg.Comprehensive {
			report.Gates = append(report.Gates, GateResult{Gate: gate, Outcome: OutcomeSkipped})
			continue
		}

		result := p.runGate(ctx, gate, cfg)
		report.Gates = append(report.Gates, result)
		if result.Outcome == OutcomeFailed {
			failedSoFar = true
		}
	}

	report.Duration = time.Since(start)
	report.Outcome = ReportFailed
	if !failedSoFar {
		allPassed := true
		for _, g := range report.Gates {
			if cfg.Enabled[g.Gate] && g.Outcome != OutcomePassed {
				allPassed = false
				break
			}
		}
		if allPassed {
			report.Outcome = ReportAllGreen
		}
	}
	return report, nil
}

func (p *Pipeline) runGate(ctx context.Context, gate GateName, cfg GateConfig) GateResult {
	gateCtx := ctx
	var cancel context.CancelFunc
	if cfg.GateTimeout > 0 {
		gateCtx, cancel = context.WithTimeout(ctx, cfg.GateTimeout)
		defer cancel()
	}

	if err := p.limiter.Wait(gateCtx); err != nil {
		return timeoutResult(gate)
	}

	start := time.Now()
	raw, err := p.breaker.Execute(func() (interface{}, error) {
		return p.spawner.Spawn(gateCtx, gate, cfg)
	})
	duration := time.Since(start)
	spawned, _ := raw.(SpawnResult)

	if err != nil {
		if gateCtx.Err() != nil {
			res := timeoutResult(gate)
			res.Duration = duration
			return res
		}
		return GateResult{
			Gate:          gate,
			Outcome:       OutcomeFailed,
			Duration:      duration,
			StderrExcerpt: truncate("spawn failure: "+err.Error(), cfg.StderrMaxBytes),
		}
	}

	errCount, warnCount, classified := parseDiagnostics(spawned.Stdout)
	outcome := OutcomePassed
	if spawned.ExitCode != 0 || errCount > 0 {
		outcome = OutcomeFailed
	}
	exitCode := spawned.ExitCode

	return GateResult{
		Gate:             gate,
		Outcome:          outcome,
		Duration:         duration,
		ExitCode:         &exitCode,
		ErrorCount:       errCount,
		WarningCount:     warnCount,
		ClassifiedErrors: classified,
		StderrExcerpt:    truncate(string(spawned.Stderr), cfg.StderrMaxBytes),
	}
}

func timeoutResult(gate GateName) GateResult {
	return GateResult{
		Gate:          gate,
		Outcome:       OutcomeFailed,
		StderrExcerpt: "gate exceeded configured timeout",
	}
}

// parseDiagnostics is best-effort per spec.md §4.B: malformed diagnostic
// JSON lines never fail the gate, they're simply excluded from the
// classified-error list. Warnings are diagnostic records with a severity
// other than "error" that still carry a diagnostic code (as opposed to
// plain build-tool chatter).
func parseDiagnostics(stdout []byte) (errCount, warnCount int, classified []taxonomy.ParsedError) {
	lines := strings.Split(string(stdout), "\n")
	parsed, err := taxonomy.Parse(lines)
	if err == nil {
		classified = parsed
		errCount = len(parsed)
	}
	for _, line := range lines {
		if strings.Contains(line, `"severity":"warning"`) {
			warnCount++
		}
	}
	return errCount, warnCount, classified
}

func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes]
}
