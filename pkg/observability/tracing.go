// Package observability provides OpenTelemetry tracing for the data logger's
// slow paths: frame writes, manifest writes and exports. Append is never
// traced.
package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/ajitpratap0/datalogger"

// Tracer returns the data logger tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span with the given attributes.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// Trace runs fn inside a span and records its error, if any, on the span.
func Trace(ctx context.Context, name string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := StartSpan(ctx, name, attrs...)
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

var (
	instrumentsOnce sync.Once
	exportedRows    metric.Int64Counter
)

// RecordExportedRows adds n to the exported rows counter of the global
// meter provider.
func RecordExportedRows(ctx context.Context, format, group string, n int) {
	instrumentsOnce.Do(func() {
		c, err := otel.Meter(instrumentationName).Int64Counter(
			"datalogger.export.rows",
			metric.WithDescription("Rows written by exports"),
			metric.WithUnit("{row}"),
		)
		if err == nil {
			exportedRows = c
		}
	})
	if exportedRows == nil {
		return
	}
	exportedRows.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("format", format),
		attribute.String("group", group),
	))
}
