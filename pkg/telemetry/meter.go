package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jordigilh/swarmcore/pkg/telemetry"

// AgentMeter records per-agent-turn token usage through the OpenTelemetry
// metric API, complementing the Prometheus collectors in metrics.go: the
// Prometheus side feeds the dashboard's rolling windows, while these
// instruments travel with whatever meter provider the host process
// installed, alongside the spans from tracing.go.
type AgentMeter struct {
	tokens metric.Int64Counter
	turns  metric.Int64Counter
}

// NewAgentMeter builds the instruments against the globally installed meter
// provider.
func NewAgentMeter() (*AgentMeter, error) {
	meter := otel.Meter(meterName)
	tokens, err := meter.Int64Counter("swarm.agent.tokens",
		metric.WithDescription("Approximate tokens consumed by agent turns, by tier and direction."))
	if err != nil {
		return nil, err
	}
	turns, err := meter.Int64Counter("swarm.agent.turns",
		metric.WithDescription("Agent turns sent, by tier."))
	if err != nil {
		return nil, err
	}
	return &AgentMeter{tokens: tokens, turns: turns}, nil
}

// RecordTurn records one completed agent turn's token usage.
func (m *AgentMeter) RecordTurn(ctx context.Context, tier string, promptTokens, completionTokens int) {
	tierAttr := attribute.String("swarm.tier", tier)
	m.turns.Add(ctx, 1, metric.WithAttributes(tierAttr))
	m.tokens.Add(ctx, int64(promptTokens),
		metric.WithAttributes(tierAttr, attribute.String("direction", "prompt")))
	m.tokens.Add(ctx, int64(completionTokens),
		metric.WithAttributes(tierAttr, attribute.String("direction", "completion")))
}
