package logging

import (
	"fmt"
	"io"
	"log/slog"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	FormatJSON = "json"
	FormatZap  = "zap"
	FormatText = "text"
)

// New returns a logger writing to w. "zap" selects zap configured for env;
// "json" and "text" select slog handlers.
func New(env, format string, w io.Writer) (Logger, error) {
	switch format {
	case FormatZap:
		return NewZapLoggerForEnv(env, w), nil
	case FormatText:
		return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelFor(env)}))), nil
	case FormatJSON, "":
		return NewSlogLogger(slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(env)}))), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func levelFor(env string) slog.Level {
	if env == EnvProduction {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}
