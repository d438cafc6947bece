// Package logger builds the slog loggers used across the billing client and the
// planctl command.
//
// New returns a *slog.Logger configured by functional options: output format
// (text or JSON), minimum level, static attributes and ContextExtractor callbacks
// that copy request-scoped values (request id, user id) from context.Context into
// every record.
//
// NewFromConfig reads the same settings from a Config loaded from the environment:
//
//	var cfg logger.Config
//	config.MustLoad(&cfg)
//
//	log := logger.NewFromConfig(cfg,
//		logger.WithContextExtractors(
//			requestid.LoggerExtractor(),
//			principal.LoggerExtractor(),
//		),
//	)
//	logger.SetAsDefault(log)
//
// Attribute helpers such as Operation, StatusCode and Attempt keep key names
// consistent between packages. Error and UserID return an empty attribute for
// empty input, so they can be passed unconditionally.
package logger
