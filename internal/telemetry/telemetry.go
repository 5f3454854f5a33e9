// Package telemetry configures OpenTelemetry tracing for one process run.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentation = "github.com/dshills/sentinel"

// Shutdown flushes and stops the tracer provider.
type Shutdown func(context.Context) error

// Setup returns a tracer. When enabled, spans are written to w as JSON and
// the provider becomes the global one; otherwise the tracer is a no-op.
func Setup(enabled bool, w io.Writer, version string) (trace.Tracer, Shutdown, error) {
	if !enabled {
		return noop.NewTracerProvider().Tracer(instrumentation), func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, nil, fmt.Errorf("create exporter: %w", err)
	}
	res := resource.NewSchemaless(
		attribute.String("service.name", "sentinel"),
		attribute.String("service.version", version),
	)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	return tp.Tracer(instrumentation), tp.Shutdown, nil
}
