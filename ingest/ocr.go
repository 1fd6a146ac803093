package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wei292224644/regdoc"
)

const (
	// DefaultOCRMinTextLength is the extracted-text length below which
	// a page is considered scanned and sent to OCR.
	DefaultOCRMinTextLength = 10

	// DefaultOCRTimeout bounds a single page recognition call.
	DefaultOCRTimeout = 30 * time.Second
)

// OCRFallback decides per page whether extracted text is too sparse to
// trust and, when a recognizer is available, replaces it with
// recognized text. Every failure mode degrades silently: no
// recognizer, recognition errors, and timeouts all leave the original
// text in place.
type OCRFallback struct {
	recognizer regdoc.TextRecognizer
	minLength  int
	timeout    time.Duration
	logger     *slog.Logger
}

func NewOCRFallback(recognizer regdoc.TextRecognizer, minLength int, timeout time.Duration, logger *slog.Logger) *OCRFallback {
	if minLength <= 0 {
		minLength = DefaultOCRMinTextLength
	}
	if timeout <= 0 {
		timeout = DefaultOCRTimeout
	}
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &OCRFallback{
		recognizer: recognizer,
		minLength:  minLength,
		timeout:    timeout,
		logger:     logger,
	}
}

// Needed reports whether the extracted page text falls below the
// scanned-page threshold. Length counts runes, not bytes, so CJK text
// is not penalized.
func (o *OCRFallback) Needed(pageText string) bool {
	return len([]rune(strings.TrimSpace(pageText))) < o.minLength
}

// Recognize runs OCR on one page. The second return is false when the
// page could not be recognized and the caller should keep whatever
// text it already has.
func (o *OCRFallback) Recognize(ctx context.Context, page regdoc.PageImage) (string, bool) {
	if o.recognizer == nil {
		return "", false
	}

	rctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	text, err := o.recognizer.RecognizeText(rctx, page)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &regdoc.CapabilityTimeoutError{
				Capability: "ocr",
				DocID:      page.DocID,
				Err:        err,
			}
		}
		o.logger.Warn("page recognition failed, keeping extracted text",
			"doc_id", page.DocID,
			"page", page.Page,
			"error", err)
		return "", false
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}
