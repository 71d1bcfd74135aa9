package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON at info in production, text with
// source locations elsewhere. The test environment only logs warnings.
func NewLogger(env string) *slog.Logger {
	return newLogger(os.Stdout, env)
}

func newLogger(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{
		AddSource: env == "development",
	}

	switch env {
	case "production":
		opts.Level = slog.LevelInfo
		return slog.New(slog.NewJSONHandler(w, opts)).With("service", "phiface")
	case "test":
		opts.Level = slog.LevelWarn
	default:
		opts.Level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
