// Package canary implements the speculative/canary router from
// SPEC_FULL.md §4.H: fan-out to K candidate routes and winner selection.
package canary

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RouteLabel distinguishes the baseline route from a speculative one.
type RouteLabel string

const (
	LabelPrimary RouteLabel = "primary"
	LabelCanary  RouteLabel = "canary"
)

// RiskTier gates whether canarying activates at all.
type RiskTier string

const (
	RiskCritical RiskTier = "critical"
	RiskHigh     RiskTier = "high"
	RiskMedium   RiskTier = "medium"
	RiskLow      RiskTier = "low"
)

// Route is one candidate configuration.
type Route struct {
	Label       RouteLabel
	ModelID     string
	Tier        string
	Temperature float64
}

// RouteResult is the recorded outcome of running one route.
type RouteResult struct {
	Route        Route
	VerifierPass bool
	ErrorCount   int
	Tokens       int
	Duration     time.Duration
	Iterations   int
}

// Outcome is the closed evaluation-result sum type.
type OutcomeKind string

const (
	OutcomeBudgetExceeded OutcomeKind = "budget_exceeded"
	OutcomeSkipped        OutcomeKind = "skipped"
	OutcomeWinner         OutcomeKind = "winner"
	OutcomeTie            OutcomeKind = "tie"
)

// Evaluation is the evaluate() result.
type Evaluation struct {
	Kind   OutcomeKind
	Winner RouteLabel
	Loser  RouteLabel
	Reason string
}

// Session holds one canary fan-out's configuration and collected results.
type Session struct {
	mu                  sync.Mutex
	BudgetCap           int // combined estimated tokens across routes
	ConfidenceThreshold float64 // early-stop signal only, per spec.md §9
	Routes              []Route
	results             map[RouteLabel]RouteResult
}

// NewSession constructs a canary session for the given routes.
func NewSession(budgetCap int, confidenceThreshold float64, routes []Route) *Session {
	return &Session{
		BudgetCap:           budgetCap,
		ConfidenceThreshold: confidenceThreshold,
		Routes:              routes,
		results:             make(map[RouteLabel]RouteResult),
	}
}

// RecordResult stores a route's result.
func (s *Session) RecordResult(res RouteResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[res.Route.Label] = res
}

// CheckEarlyStop returns the label of the first recorded route that passed
// verification, so callers can cancel the other in-flight route.
func (s *Session) CheckEarlyStop() (RouteLabel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, label := range []RouteLabel{LabelPrimary, LabelCanary} {
		if res, ok := s.results[label]; ok && res.VerifierPass {
			return label, true
		}
	}
	return "", false
}

// Evaluate implements the priority rules of spec.md §4.H: verifier pass
// beats non-pass, then fewer errors, then fewer tokens; all three equal is
// a Tie.
func (s *Session) Evaluate() Evaluation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.results) == 0 {
		return Evaluation{Kind: OutcomeSkipped}
	}

	total := 0
	for _, r := range s.results {
		total += r.Tokens
	}
	if total > s.BudgetCap {
		return Evaluation{Kind: OutcomeBudgetExceeded}
	}

	primary, havePrimary := s.results[LabelPrimary]
	canary, haveCanary := s.results[LabelCanary]
	if !havePrimary || !haveCanary {
		// Only one route ran; it wins by default as there's nothing to compare.
		for label := range s.results {
			return Evaluation{Kind: OutcomeWinner, Winner: label, Reason: "only route with a result"}
		}
	}

	if primary.VerifierPass != canary.VerifierPass {
		if primary.VerifierPass {
			return Evaluation{Kind: OutcomeWinner, Winner: LabelPrimary, Loser: LabelCanary, Reason: "verifier pass"}
		}
		return Evaluation{Kind: OutcomeWinner, Winner: LabelCanary, Loser: LabelPrimary, Reason: "verifier pass"}
	}
	if primary.ErrorCount != canary.ErrorCount {
		if primary.ErrorCount < canary.ErrorCount {
			return Evaluation{Kind: OutcomeWinner, Winner: LabelPrimary, Loser: LabelCanary, Reason: "fewer errors"}
		}
		return Evaluation{Kind: OutcomeWinner, Winner: LabelCanary, Loser: LabelPrimary, Reason: "fewer errors"}
	}
	if primary.Tokens != canary.Tokens {
		if primary.Tokens < canary.Tokens {
			return Evaluation{Kind: OutcomeWinner, Winner: LabelPrimary, Loser: LabelCanary, Reason: "fewer tokens"}
		}
		return Evaluation{Kind: OutcomeWinner, Winner: LabelCanary, Loser: LabelPrimary, Reason: "fewer tokens"}
	}
	return Evaluation{Kind: OutcomeTie}
}

// ShouldActivate gates canarying on both the feature flag and the task's
// risk tier (spec.md §4.H: "Activation is gated by a feature flag and by
// task-risk threshold (Critical, High, Medium)").
func ShouldActivate(flagEnabled bool, risk RiskTier, minRisk RiskTier) bool {
	if !flagEnabled {
		return false
	}
	rank := map[RiskTier]int{RiskLow: 0, RiskMedium: 1, RiskHigh: 2, RiskCritical: 3}
	return rank[risk] >= rank[minRisk]
}

// Strategy is the diversification axis for multi-proposal speculation.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyBalanced     Strategy = "balanced"
	StrategyCreative     Strategy = "creative"
)

// SpeculationTier is the model-tier axis for a ProposalSpec, distinct from
// escalation.Tier: speculation picks among model classes for one attempt,
// it does not walk the escalation ladder.
type SpeculationTier string

const (
	TierFast      SpeculationTier = "fast"
	TierReasoning SpeculationTier = "reasoning"
	TierCloud     SpeculationTier = "cloud"
)

// ProposalSpec diversifies one of K parallel attempts at a Complex task
// along strategy, tier, and temperature.
type ProposalSpec struct {
	ID          string
	Strategy    Strategy
	Tier        SpeculationTier
	Temperature float64
}

// ProposalResult is one proposal's outcome, enough for the selector to rank
// it against its siblings.
type ProposalResult struct {
	Proposal  ProposalSpec
	Passed    bool
	Errors    int
	Warnings  int
	DiffLines int
	Tokens    int
}

// SelectionOutcome is the multi-proposal selector's result.
type SelectionOutcome struct {
	Selected   *ProposalResult
	NonePassed bool
	AllResults []ProposalResult
}

// SelectProposal ranks passing proposals by (errors, warnings, diff size,
// tokens) and returns the best. When none pass, it returns a
// combined-insights "none passed" outcome carrying every candidate so the
// caller can synthesize a merged diagnosis instead of a single winner.
func SelectProposal(results []ProposalResult) SelectionOutcome {
	var passing []ProposalResult
	for _, r := range results {
		if r.Passed {
			passing = append(passing, r)
		}
	}
	if len(passing) == 0 {
		return SelectionOutcome{NonePassed: true, AllResults: results}
	}

	best := passing[0]
	for _, r := range passing[1:] {
		if rankLess(r, best) {
			best = r
		}
	}
	return SelectionOutcome{Selected: &best, AllResults: results}
}

func rankLess(a, b ProposalResult) bool {
	if a.Errors != b.Errors {
		return a.Errors < b.Errors
	}
	if a.Warnings != b.Warnings {
		return a.Warnings < b.Warnings
	}
	if a.DiffLines != b.DiffLines {
		return a.DiffLines < b.DiffLines
	}
	return a.Tokens < b.Tokens
}

// RouteRunner executes one route to completion, respecting cancellation.
type RouteRunner func(ctx context.Context, route Route) (RouteResult, error)

// RunFanOut executes every route in parallel, bounded by maxParallel
// (§5's "semaphore of width max_parallel_workers"), cancelling the loser as
// soon as CheckEarlyStop finds a winner. Results are aggregated into the
// Session with no cross-route ordering assumed.
func RunFanOut(ctx context.Context, sess *Session, maxParallel int64, run RouteRunner) error {
	sem := semaphore.NewWeighted(maxParallel)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	for _, route := range sess.Routes {
		route := route
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			res, err := run(gctx, route)
			if err != nil {
				if gctx.Err() != nil {
					return nil // cancelled because the other route already won
				}
				return err
			}
			sess.RecordResult(res)
			if winner, ok := sess.CheckEarlyStop(); ok && winner == route.Label {
				cancel()
			}
			return nil
		})
	}
	return g.Wait()
}
