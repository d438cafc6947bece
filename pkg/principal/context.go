package principal

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithContext stores the principal in context for call chains that cannot
// pass it explicitly.
func WithContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext retrieves the principal from context.
// Returns nil if no principal was stored.
func FromContext(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(contextKey{}).(*Principal)
	return p
}

// LoggerExtractor returns a ContextExtractor for the logger
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if p := FromContext(ctx); p != nil && p.UserID != "" {
			return slog.String("user_id", p.UserID), true
		}
		return slog.Attr{}, false
	}
}
