package escalation

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// Consultant is the narrow slice of the LLM Agent contract the escalation
// engine needs: "ask this tier's agent for a turn". A concrete
// implementation lives behind pkg/llm; this interface keeps escalation
// decoupled from any specific provider.
type Consultant interface {
	Consult(ctx context.Context, tier Tier, prompt string) (string, error)
}

// GuardedConsultant wraps a Consultant with a per-tier circuit breaker so a
// tier whose endpoint is down trips open instead of burning that tier's
// iteration budget on transport errors that have nothing to do with
// verifier failures.
type GuardedConsultant struct {
	inner    Consultant
	breakers map[Tier]*gobreaker.CircuitBreaker
}

// NewGuardedConsultant builds one breaker per tier with the given trip
// threshold (consecutive failures) and open-state duration.
func NewGuardedConsultant(inner Consultant, tiers []Tier, consecutiveFailures uint32, openFor time.Duration) *GuardedConsultant {
	breakers := make(map[Tier]*gobreaker.CircuitBreaker, len(tiers))
	for _, t := range tiers {
		tier := t
		breakers[tier] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "escalation-consult-" + string(tier),
			Timeout: openFor,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
		})
	}
	return &GuardedConsultant{inner: inner, breakers: breakers}
}

// Consult routes through the tier's breaker. A tripped breaker surfaces
// gobreaker.ErrOpenState, which callers should treat as an InferenceFailure
// (spec.md §7) rather than a verifier failure.
func (g *GuardedConsultant) Consult(ctx context.Context, tier Tier, prompt string) (string, error) {
	breaker, ok := g.breakers[tier]
	if !ok {
		return g.inner.Consult(ctx, tier, prompt)
	}
	result, err := breaker.Execute(func() (interface{}, error) {
		return g.inner.Consult(ctx, tier, prompt)
	})
	if err != nil {
		return "", err
	}
	text, _ := result.(string)
	return text, nil
}
