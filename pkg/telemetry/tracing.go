// Package telemetry implements the ambient observability surface from
// SPEC_FULL.md §4.L: spans for the swarm's major operations plus the
// Prometheus counters/histograms and read-only dashboard HTTP server that
// aggregate them.
package telemetry

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Span names, fixed per spec.md §6's telemetry interface.
const (
	SpanProcessIssue = "swarm.process_issue"
	SpanIteration    = "swarm.iteration"
	SpanAgent        = "swarm.agent"
	SpanGate         = "swarm.gate"
	SpanEscalation   = "swarm.escalation"
	SpanTool         = "swarm.tool"
	SpanVoting       = "swarm.voting"
	SpanArbitration  = "swarm.arbitration"
)

const tracerName = "github.com/jordigilh/swarmcore/pkg/telemetry"

// NewTracerProvider builds an SDK tracer provider that streams spans to w as
// newline-delimited JSON, suitable for local development or sidecar
// shipping; production deployments should swap in an OTLP exporter without
// touching call sites, since they only ever go through otel.Tracer.
func NewTracerProvider(w io.Writer) (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp, nil
}

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span with the given fixed name and attributes,
// returning the updated context and the span to End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// WithSpan runs fn inside a span named name, recording any returned error on
// the span before propagating it.
func WithSpan(ctx context.Context, name string, fn func(ctx context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := StartSpan(ctx, name, attrs...)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}
