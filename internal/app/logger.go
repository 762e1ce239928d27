// v0
// internal/app/logger.go
package app

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// newLogger builds a slog.Logger that fans entries out to stdout as text
// and to the log file as JSON lines. The console stays readable for
// operators tailing a container while the file can be shipped and parsed
// from a mounted volume. Both outputs share the same minimum level.
func newLogger(file io.Writer, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	console := slog.NewTextHandler(os.Stdout, opts)
	fileHandler := slog.NewJSONHandler(file, opts)
	return slog.New(&teeHandler{handlers: []slog.Handler{console, fileHandler}})
}

// teeHandler forwards each record to every wrapped handler that accepts
// its level. A failing handler does not stop the others; the first error
// is returned.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithAttrs(attrs))
	}
	return &teeHandler{handlers: next}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, 0, len(t.handlers))
	for _, h := range t.handlers {
		next = append(next, h.WithGroup(name))
	}
	return &teeHandler{handlers: next}
}
