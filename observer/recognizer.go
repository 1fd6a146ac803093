package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/wei292224644/regdoc"
)

// ObservedRecognizer wraps a regdoc.TextRecognizer with OTEL
// instrumentation, counting recognized pages and tracing each call.
type ObservedRecognizer struct {
	inner regdoc.TextRecognizer
	inst  *Instruments
}

var _ regdoc.TextRecognizer = (*ObservedRecognizer)(nil)

// WrapRecognizer returns an instrumented text recognizer.
func WrapRecognizer(inner regdoc.TextRecognizer, inst *Instruments) *ObservedRecognizer {
	return &ObservedRecognizer{inner: inner, inst: inst}
}

func (o *ObservedRecognizer) RecognizeText(ctx context.Context, page regdoc.PageImage) (string, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "ocr.recognize", trace.WithAttributes(
		AttrDocID.String(page.DocID),
		AttrOCRPage.Int(page.Page),
	))
	defer span.End()
	start := time.Now()

	text, err := o.inner.RecognizeText(ctx, page)

	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.inst.OCRPages.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	span.SetAttributes(attribute.Int("ocr.text_length", len(text)),
		attribute.Float64("ocr.duration_ms", float64(time.Since(start).Milliseconds())))

	return text, err
}
