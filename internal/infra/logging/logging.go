// File: internal/infra/logging/logging.go
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"learnhub-checkout/internal/config"
)

// New builds the process logger on stdout. Levels are zerolog's names
// (trace..error); format is "json" or "console". Dev mode forces console
// output and disables sampling.
func New(cfg config.LogConfig, dev bool) *zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg, dev)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, cfg config.LogConfig, dev bool) *zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if dev || strings.EqualFold(cfg.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Str("service", "checkout").Logger()

	if cfg.Sampling && !dev {
		// burst of 100 per second, then every 100th
		l = l.Sample(&zerolog.BurstSampler{Burst: 100, Period: time.Second, NextSampler: &zerolog.BasicSampler{N: 100}})
	}
	return &l
}

type ctxKey string

const (
	ctxTraceID  ctxKey = "trace_id"
	ctxUserID   ctxKey = "user_id"
	ctxCourseID ctxKey = "course_id"
	ctxSessID   ctxKey = "session_id"
)

var ctxFields = []ctxKey{ctxTraceID, ctxUserID, ctxCourseID, ctxSessID}

// With returns base enriched with whichever request ids ctx carries.
func With(ctx context.Context, base *zerolog.Logger) *zerolog.Logger {
	lc := base.With()
	for _, k := range ctxFields {
		if v, ok := ctx.Value(k).(string); ok && v != "" {
			lc = lc.Str(string(k), v)
		}
	}
	l := lc.Logger()
	return &l
}

// TraceDuration logs entry and exit of name at trace level.
//
//	defer logging.TraceDuration(logger, "checkoutUC.Begin")()
func TraceDuration(logger *zerolog.Logger, name string) func() {
	start := time.Now()
	logger.Trace().Str("method", name).Msg("start")
	return func() {
		logger.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}

// Redact masks an email or id for logs unless dev is set.
func Redact(s string, dev bool) string {
	if dev {
		return s
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-2:]
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxTraceID, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxUserID, id)
}

func WithCourseID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxCourseID, id)
}

func WithSessID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxSessID, id)
}

// TraceID returns the trace id carried by ctx, if any.
func TraceID(ctx context.Context) string {
	v, _ := ctx.Value(ctxTraceID).(string)
	return v
}
