package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RecordIngest emits the per-document ingestion metrics.
func (inst *Instruments) RecordIngest(ctx context.Context, docID, format, strategy string, chunks, parents, dropped, ocrPages int, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		AttrFormat.String(format),
		AttrStrategy.String(strategy),
		attribute.String("status", status),
	)
	inst.DocumentsIngested.Add(ctx, 1, attrs)
	inst.IngestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		return
	}
	inst.ChunksIngested.Add(ctx, int64(chunks), attrs)
	if parents > 0 {
		inst.ParentsIngested.Add(ctx, int64(parents), attrs)
	}
	if dropped > 0 {
		inst.ChunksDropped.Add(ctx, int64(dropped), attrs)
	}
	if ocrPages > 0 {
		inst.OCRPages.Add(ctx, int64(ocrPages), metric.WithAttributes(attribute.String("status", "used")))
	}
}

// RecordQuery emits per-query metrics.
func (inst *Instruments) RecordQuery(ctx context.Context, topK, results int, expandParent bool, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		AttrQueryTopK.Int(topK),
		AttrQueryResultCount.Int(results),
		AttrQueryExpandParent.Bool(expandParent),
		attribute.String("status", status),
	)
	inst.Queries.Add(ctx, 1, attrs)
	inst.QueryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
