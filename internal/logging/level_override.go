package logging

import (
	"context"
	"log/slog"
)

// minLevelHandler drops records below a per-logger floor before they reach
// the shared handler, whose own level may be more verbose.
type minLevelHandler struct {
	next  slog.Handler
	floor slog.Level
}

func (h *minLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.floor && h.next.Enabled(ctx, level)
}

func (h *minLevelHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.floor {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *minLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &minLevelHandler{next: h.next.WithAttrs(attrs), floor: h.floor}
}

func (h *minLevelHandler) WithGroup(name string) slog.Handler {
	return &minLevelHandler{next: h.next.WithGroup(name), floor: h.floor}
}

// WithMinLevel returns a logger that suppresses records below the named
// level ("WARN" keeps warnings and errors). Attributes already attached to
// logger are preserved.
func WithMinLevel(logger *slog.Logger, level string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	floor := ParseLevel(level)
	if inner, ok := logger.Handler().(*minLevelHandler); ok {
		return slog.New(&minLevelHandler{next: inner.next, floor: floor})
	}
	return slog.New(&minLevelHandler{next: logger.Handler(), floor: floor})
}
