// Package observer provides OTEL-based observability for the ingestion
// and retrieval pipeline.
//
// It wraps the injected capabilities with instrumented versions that
// emit traces, metrics, and logs via OpenTelemetry. Users export to
// any OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/wei292224644/regdoc/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	DocumentsIngested metric.Int64Counter
	ChunksIngested    metric.Int64Counter
	ParentsIngested   metric.Int64Counter
	ChunksDropped     metric.Int64Counter
	OCRPages          metric.Int64Counter
	EmbedRequests     metric.Int64Counter
	Queries           metric.Int64Counter

	// Histograms
	IngestDuration metric.Float64Histogram
	EmbedDuration  metric.Float64Histogram
	QueryDuration  metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("regdoc")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := NewInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

// NewInstruments creates the instrument set against the globally
// registered providers. Init calls this; tests can call it directly
// against the default no-op providers.
func NewInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.GetLoggerProvider().Logger(scopeName)

	documentsIngested, err := meter.Int64Counter("ingest.documents",
		metric.WithDescription("Documents ingested"),
		metric.WithUnit("{document}"))
	if err != nil {
		return nil, err
	}

	chunksIngested, err := meter.Int64Counter("ingest.chunks",
		metric.WithDescription("Chunks persisted to the vector index"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	parentsIngested, err := meter.Int64Counter("ingest.parents",
		metric.WithDescription("Parent chunks persisted"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	chunksDropped, err := meter.Int64Counter("ingest.chunks.dropped",
		metric.WithDescription("Chunks dropped due to embedding failures"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	ocrPages, err := meter.Int64Counter("ingest.ocr.pages",
		metric.WithDescription("Pages whose text came from the OCR fallback"),
		metric.WithUnit("{page}"))
	if err != nil {
		return nil, err
	}

	embedRequests, err := meter.Int64Counter("embedding.requests",
		metric.WithDescription("Embedding request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	queries, err := meter.Int64Counter("query.requests",
		metric.WithDescription("Retrieval query count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	ingestDuration, err := meter.Float64Histogram("ingest.duration",
		metric.WithDescription("Document ingestion duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	embedDuration, err := meter.Float64Histogram("embedding.duration",
		metric.WithDescription("Embedding call duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram("query.duration",
		metric.WithDescription("Retrieval query duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:            tracer,
		Meter:             meter,
		Logger:            logger,
		DocumentsIngested: documentsIngested,
		ChunksIngested:    chunksIngested,
		ParentsIngested:   parentsIngested,
		ChunksDropped:     chunksDropped,
		OCRPages:          ocrPages,
		EmbedRequests:     embedRequests,
		Queries:           queries,
		IngestDuration:    ingestDuration,
		EmbedDuration:     embedDuration,
		QueryDuration:     queryDuration,
	}, nil
}
