// Package requestid attaches correlation identifiers to outgoing API calls.
//
// Every billing request carries an "X-Request-ID" header. When the caller's
// context already holds a valid ID it is reused so the backend logs can be
// joined with the caller's own logs; otherwise a new UUIDv4 is generated.
//
//	ctx, id := requestid.Ensure(ctx)
//	logger.InfoContext(ctx, "calling billing api", slog.String("request_id", id))
//
// LoggerExtractor plugs the ID into slog records built by pkg/logger.
//
// Invalid IDs (longer than 128 characters or containing characters outside
// [a-zA-Z0-9_-]) are silently replaced by a fresh UUID.
package requestid
