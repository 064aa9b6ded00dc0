package middleware

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/mapshock/pkg/logging"
)

// Logger records every search call at debug level and failures at warn.
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = logging.WithComponent("search")
	}
	return &Logger{logger: logger}
}

func (m *Logger) Name() string {
	return "Logger"
}

func (m *Logger) Execute(ctx *Context, next Handler) error {
	start := time.Now()
	err := next(ctx)
	attrs := []any{
		"query", ctx.Query,
		"depth", string(ctx.Depth),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		m.logger.Warn("search failed", append(attrs, "error", err)...)
		return err
	}
	if ctx.Result != nil {
		attrs = append(attrs, "hits", len(ctx.Result.Hits))
	}
	m.logger.Debug("search completed", attrs...)
	return nil
}
