package ingest

import (
	"context"
	"log/slog"
)

// discardHandler drops all log records. Used when no logger is
// configured.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

func nopLogger() *slog.Logger { return slog.New(discardHandler{}) }
