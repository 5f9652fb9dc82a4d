// Package logging carries structured log attributes through contexts.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ctxKey string

const (
	slogFields ctxKey = "slog_fields"
)

// ContextHandler decorates an slog handler with attributes stored in the
// request context.
type ContextHandler struct {
	slog.Handler
}

// Handle copies any context-carried attributes onto the record before
// delegating to the wrapped handler.
func (h ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(slogFields).([]slog.Attr); ok {
		for _, v := range attrs {
			r.AddAttrs(v)
		}
	}

	return h.Handler.Handle(ctx, r)
}

// AppendCtx stores an slog attribute in the context so every record logged
// with that context includes it.
func AppendCtx(parent context.Context, attr slog.Attr) context.Context {
	if parent == nil {
		parent = context.Background()
	}

	if v, ok := parent.Value(slogFields).([]slog.Attr); ok {
		v = append(v, attr)
		return context.WithValue(parent, slogFields, v)
	}

	return context.WithValue(parent, slogFields, []slog.Attr{attr})
}

// NewLogger builds the standard process logger writing to stderr.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(&ContextHandler{
		Handler: slog.NewTextHandler(
			os.Stderr,
			&slog.HandlerOptions{
				Level: level,
			}),
	})
}

type nullWriter struct {
	io.Writer
}

func (nullWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

// NullLogger discards everything. Used by tests and as the fallback when no
// logger was provided.
func NullLogger() *ContextHandler {
	return &ContextHandler{
		slog.NewJSONHandler(
			nullWriter{},
			&slog.HandlerOptions{},
		),
	}
}
