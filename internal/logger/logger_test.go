package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/shared"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name              string
		logLevel          string
		expectedSlogLevel slog.Level
	}{
		{"DebugLevel", "debug", slog.LevelDebug},
		{"InfoLevel", "info", slog.LevelInfo},
		{"WarnLevel", "WARN", slog.LevelWarn},
		{"ErrorLevel", "error", slog.LevelError},
		{"DefaultToInfo", "unknown", slog.LevelInfo},
		{"EmptyToInfo", "", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{
				Logging: config.LoggingConfig{Level: tc.logLevel},
			}

			logger := NewLoggerWithWriter(cfg, &bytes.Buffer{})
			require.NotNil(t, logger)

			assert.True(t, logger.Enabled(context.Background(), tc.expectedSlogLevel))
			if tc.expectedSlogLevel > slog.LevelDebug {
				assert.False(t, logger.Enabled(context.Background(), tc.expectedSlogLevel-4))
			}
		})
	}
}

func TestNewLogger_AppAttributes(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{
		Application: config.ApplicationConfig{Name: "sudosos-ledger", Env: "test"},
		Logging:     config.LoggingConfig{Level: "info"},
	}

	logger := NewLoggerWithWriter(cfg, &buf)
	buf.Reset()
	logger.Info("hello", "invoice_id", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "sudosos-ledger", line["app"])
	assert.Equal(t, "test", line["env"])
	assert.Equal(t, float64(3), line["invoice_id"])
}

func TestForContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerWithWriter(&config.Config{Logging: config.LoggingConfig{Level: "info"}}, &buf)
	buf.Reset()

	ForContext(shared.WithCorrelationID(context.Background(), "corr-1"), base).Info("with id")
	assert.True(t, strings.Contains(buf.String(), `"correlation_id":"corr-1"`))

	buf.Reset()
	ForContext(context.Background(), base).Info("without id")
	assert.False(t, strings.Contains(buf.String(), "correlation_id"))
}
