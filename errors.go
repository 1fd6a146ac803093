package regdoc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrParentNotFound is returned by ParentStore.GetParent when the
// referenced parent chunk does not exist. Callers on the read path
// tolerate it: the child content is returned alone.
var ErrParentNotFound = errors.New("parent chunk not found")

// ErrDocumentNotFound is returned when a document ID is unknown.
var ErrDocumentNotFound = errors.New("document not found")

// FormatError reports unreadable bytes or an unsupported declared
// format. Fatal to that document's ingestion; nothing partial is
// committed.
type FormatError struct {
	DocID  string
	Format Format
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %s: %s (doc %s)", e.Format, e.Reason, e.DocID)
}

// StrategyUnsupportedError reports a chunking strategy that cannot be
// applied to the document's source format. Fatal; the caller must pick
// another strategy.
type StrategyUnsupportedError struct {
	DocID    string
	Strategy string
	Format   Format
}

func (e *StrategyUnsupportedError) Error() string {
	return fmt.Sprintf("strategy %s unsupported for %s input (doc %s)", e.Strategy, e.Format, e.DocID)
}

// CapabilityTimeoutError reports an injected capability (embedding,
// structure inference, OCR) exceeding its deadline. Recoverable: OCR
// degrades to "no OCR", an embedding timeout fails only the affected
// chunk.
type CapabilityTimeoutError struct {
	Capability string
	DocID      string
	ChunkID    string
	Err        error
}

func (e *CapabilityTimeoutError) Error() string {
	msg := fmt.Sprintf("%s timed out (doc %s", e.Capability, e.DocID)
	if e.ChunkID != "" {
		msg += ", chunk " + e.ChunkID
	}
	return msg + "): " + e.Err.Error()
}

func (e *CapabilityTimeoutError) Unwrap() error { return e.Err }

// PersistenceError reports a store failure during a document write.
// Committed lists chunk ids already written when the failure occurred,
// so a caller can retry at the narrowest possible scope.
type PersistenceError struct {
	DocID     string
	Op        string
	Committed []string
	Err       error
}

func (e *PersistenceError) Error() string {
	msg := fmt.Sprintf("persist %s failed (doc %s)", e.Op, e.DocID)
	if len(e.Committed) > 0 {
		msg += fmt.Sprintf(", %d chunks committed: %s", len(e.Committed), strings.Join(e.Committed, ","))
	}
	return msg + ": " + e.Err.Error()
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrHTTP reports a non-2xx response from a remote capability (an
// embedding or OCR service). RetryAfter carries the server's
// Retry-After hint when present, 0 otherwise.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// ParseRetryAfter parses an HTTP Retry-After header value, either
// delta-seconds or an HTTP date. Returns 0 when absent or unparseable.
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := time.Parse(time.RFC1123, v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
