package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/jwebster45206/world-engine/internal/config"
	"github.com/jwebster45206/world-engine/pkg/world"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	logger := New(cfg, os.Stdout)
	slog.SetDefault(logger)
	return logger
}

// New builds a logger writing to w: JSON in production, text elsewhere.
func New(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.Environment == "production" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "world-engine")
}

// WithRequestID adds request ID to logger context
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// WithActor adds the acting user to logger context
func WithActor(logger *slog.Logger, actor world.Actor) *slog.Logger {
	return logger.With("actor_id", actor.ID, "actor_name", actor.Name)
}

// WithError adds error to logger context
func WithError(logger *slog.Logger, err error) *slog.Logger {
	return logger.With("error", err.Error())
}
