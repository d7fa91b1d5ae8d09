package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/sudosos-ledger/internal/config"
	"github.com/sudosos-ledger/internal/domain/shared"
)

// NewLogger creates the JSON logger used by every ledger process
func NewLogger(cfg *config.Config) *slog.Logger {
	return NewLoggerWithWriter(cfg, os.Stdout)
}

// NewLoggerWithWriter creates a JSON logger writing to w
func NewLoggerWithWriter(cfg *config.Config, w io.Writer) *slog.Logger {
	level := ParseLevel(cfg.Logging.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	logger := slog.New(slog.NewJSONHandler(w, opts))
	if cfg.Application.Name != "" {
		logger = logger.With("app", cfg.Application.Name, "env", cfg.Application.Env)
	}

	logger.Info("logger initialized", "level", level)

	return logger
}

// ParseLevel maps a config level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ForContext derives a logger carrying the request correlation id, if any
func ForContext(ctx context.Context, base *slog.Logger) *slog.Logger {
	if id := shared.CorrelationIDFromContext(ctx); id != "" {
		return base.With("correlation_id", id)
	}
	return base
}
