package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirewire/notifykit/pkg/logger"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_DefaultsToJSONInfo(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf))

	log.Debug("hidden")
	assert.Zero(t, buf.Len(), "debug is below the default level")

	log.Info("delivery recorded")
	entry := logLine(t, &buf)
	assert.Equal(t, "delivery recorded", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestNew_TextFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithFormat(logger.FormatText))

	log.Info("rules reloaded")
	assert.Contains(t, buf.String(), "msg=\"rules reloaded\"")
}

func TestWithFormat_PanicsOnInvalidFormat(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		logger.New(logger.WithFormat("xml"))
	})
}

func TestNew_StaticAttrs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithAttr(logger.Component("dispatcher")),
	)

	log.Info("tick")
	entry := logLine(t, &buf)
	assert.Equal(t, "dispatcher", entry["component"])
}

func TestNew_ProductionDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithProduction("notifyd"))

	log.Info("started")
	entry := logLine(t, &buf)
	assert.Equal(t, "notifyd", entry["service"])
	assert.Equal(t, "production", entry["env"])
}

func TestNew_DevelopmentDefaults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(logger.WithOutput(&buf), logger.WithDevelopment("notifyd"))

	log.Debug("probe")
	assert.Contains(t, buf.String(), "service=notifyd")
	assert.Contains(t, buf.String(), "env=development")
}

func TestNew_ContextValueExtraction(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextValue("request_id", ctxKey{}),
	)

	ctx := context.WithValue(context.Background(), ctxKey{}, "req-42")
	log.InfoContext(ctx, "handled")

	entry := logLine(t, &buf)
	assert.Equal(t, "req-42", entry["request_id"])
}

func TestNew_ContextExtractorSkipsMissingValues(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(
		logger.WithOutput(&buf),
		logger.WithContextExtractors(
			func(context.Context) (slog.Attr, bool) { return slog.Attr{}, false },
			nil,
		),
	)

	log.Info("plain")
	entry := logLine(t, &buf)
	assert.Equal(t, "plain", entry["msg"])
}
