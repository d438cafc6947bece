package logger

import (
	"context"
	"log/slog"
)

// ContextExtractor pulls one attribute out of a context.
// It reports false when the context carries nothing to log.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// ContextHandler adds the attributes found by its extractors to every record
// before passing it on. A key the record already carries is not added again.
type ContextHandler struct {
	slog.Handler
	extractors []ContextExtractor
}

// NewContextHandler wraps next. Without extractors next is returned as is.
func NewContextHandler(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	if len(extractors) == 0 {
		return next
	}
	return &ContextHandler{Handler: next, extractors: extractors}
}

func (h *ContextHandler) Handle(ctx context.Context, rec slog.Record) error {
	var extra []slog.Attr
	for _, extract := range h.extractors {
		if attr, ok := extract(ctx); ok && !hasAttr(rec, attr.Key) {
			extra = append(extra, attr)
		}
	}
	rec.AddAttrs(extra...)
	return h.Handler.Handle(ctx, rec)
}

func hasAttr(rec slog.Record, key string) bool {
	found := false
	rec.Attrs(func(a slog.Attr) bool {
		found = a.Key == key
		return !found
	})
	return found
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs), extractors: h.extractors}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name), extractors: h.extractors}
}
