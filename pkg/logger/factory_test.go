package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/lifeplanner/pkg/logger"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	t.Run("defaults to JSON at info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf))

		log.Debug("not shown")
		assert.Empty(t, buf.String())

		log.Info("subscription loaded", logger.Operation("fetch_subscription"))
		entry := decodeEntry(t, buf)
		assert.Equal(t, "INFO", entry["level"])
		assert.Equal(t, "subscription loaded", entry["msg"])
		assert.Equal(t, "fetch_subscription", entry["operation"])
	})

	t.Run("last formatter wins", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger.New(logger.WithOutput(buf), logger.WithJSONFormatter(), logger.WithTextFormatter()).
			Info("checkout created", logger.StatusCode(200))
		assert.Contains(t, buf.String(), "msg=\"checkout created\"")
		assert.Contains(t, buf.String(), "status_code=200")

		buf.Reset()
		logger.New(logger.WithOutput(buf), logger.WithTextFormatter(), logger.WithJSONFormatter()).
			Info("checkout created")
		assert.Equal(t, "checkout created", decodeEntry(t, buf)["msg"])
	})

	t.Run("static attributes", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithAttr(logger.Component("billing")))
		log.Warn("billing call failed")
		assert.Equal(t, "billing", decodeEntry(t, buf)["component"])
	})

	t.Run("context extractors", func(t *testing.T) {
		buf := &bytes.Buffer{}
		type key struct{}
		log := logger.New(
			logger.WithOutput(buf),
			logger.WithContextExtractors(nil, func(ctx context.Context) (slog.Attr, bool) {
				if id, ok := ctx.Value(key{}).(string); ok {
					return logger.RequestID(id), true
				}
				return slog.Attr{}, false
			}),
		)

		log.InfoContext(context.WithValue(context.Background(), key{}, "req-42"), "polling started")
		assert.Equal(t, "req-42", decodeEntry(t, buf)["request_id"])

		buf.Reset()
		log.InfoContext(context.Background(), "polling started")
		assert.NotContains(t, decodeEntry(t, buf), "request_id")
	})

	t.Run("level by name", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithOutput(buf), logger.WithLevelName("debug"), logger.WithLevelName("nonsense"))
		log.Debug("retrying")
		assert.Equal(t, "DEBUG", decodeEntry(t, buf)["level"])
	})
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger.SetAsDefault(logger.New(logger.WithOutput(buf)))
	slog.Info("default")
	assert.Equal(t, "default", decodeEntry(t, buf)["msg"])
}

func TestWithFormatPanics(t *testing.T) {
	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestPresets(t *testing.T) {
	t.Run("development is text at debug", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithDevelopment("planctl"), logger.WithOutput(buf))
		log.Debug("msg")
		out := buf.String()
		assert.Contains(t, out, "DEBUG")
		assert.Contains(t, out, "service=planctl")
		assert.Contains(t, out, "env=development")
	})

	t.Run("production is json at info", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithEnvironment("prod", "planctl"), logger.WithOutput(buf))
		log.Debug("hidden")
		assert.Empty(t, buf.String())

		log.Info("msg")
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "planctl", entry["service"])
		assert.Equal(t, "production", entry["env"])
	})

	t.Run("empty service leaves defaults", func(t *testing.T) {
		buf := &bytes.Buffer{}
		log := logger.New(logger.WithStaging(""), logger.WithOutput(buf))
		log.Info("msg")
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.NotContains(t, entry, "service")
	})
}

func TestParseLevel(t *testing.T) {
	lvl, ok := logger.ParseLevel("warn")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelWarn, lvl)

	lvl, ok = logger.ParseLevel("DEBUG")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelDebug, lvl)

	_, ok = logger.ParseLevel("loud")
	assert.False(t, ok)
}

func TestNewFromConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.NewFromConfig(logger.Config{
		Level:       "error",
		Format:      "json",
		Environment: "development",
		Service:     "planctl",
	}, logger.WithOutput(buf))

	log.Warn("dropped")
	assert.Empty(t, buf.String())

	log.Error("kept")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "planctl", entry["service"])
}

func TestDiscard(t *testing.T) {
	log := logger.Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
	log.Error("nothing happens")
}
