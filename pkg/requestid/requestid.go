package requestid

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

const (
	Header      = "X-Request-ID"
	maxIDLength = 128
	idPattern   = "^[a-zA-Z0-9_-]+$"
)

var validIDRegex = regexp.MustCompile(idPattern)

// Ensure returns a context carrying a request ID. An existing valid ID is kept,
// otherwise a new UUID is generated and stored.
func Ensure(ctx context.Context) (context.Context, string) {
	if id := FromContext(ctx); isValidRequestID(id) {
		return ctx, id
	}
	id := uuid.New().String()
	return WithContext(ctx, id), id
}

// Apply sets the request ID header on an outgoing request from its context,
// generating one when the context has none.
func Apply(req *http.Request) *http.Request {
	ctx, id := Ensure(req.Context())
	req = req.WithContext(ctx)
	req.Header.Set(Header, id)
	return req
}

func isValidRequestID(id string) bool {
	if len(id) == 0 || len(id) > maxIDLength {
		return false
	}
	return validIDRegex.MatchString(id)
}

type contextKey struct{}

// WithContext stores the request ID in context.
func WithContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKey{}, requestID)
}

// FromContext returns the request ID stored in context or an empty string.
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// LoggerExtractor returns a ContextExtractor for the logger
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := FromContext(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}
