// Package logging builds the process logger every adapter wraps.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SystemTraceID and SystemSpanID tag entries written outside any request,
// such as startup and shutdown.
const (
	SystemTraceID = "system"
	SystemSpanID  = "system"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	Service string
	Env     string
	Level   string
	// Format is FormatJSON (default) or FormatConsole.
	Format string
	// File, when set, receives a copy of every entry next to stdout.
	File string
}

// NewLogger builds a zap logger writing to stdout at opts.Level (info when
// empty). Every entry carries the service and env fields.
func NewLogger(opts Options) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: level %q: %w", opts.Level, err)
		}
		level = lvl
	}

	format := opts.Format
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatConsole:
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	sinks := []string{"stdout"}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("logging: log dir: %w", err)
		}
		sinks = append(sinks, opts.File)
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         format,
		EncoderConfig:    encoderConfig(format),
		OutputPaths:      sinks,
		ErrorOutputPaths: sinks,
		InitialFields: map[string]any{
			"service": opts.Service,
			"env":     opts.Env,
		},
	}
	return cfg.Build(zap.AddStacktrace(zapcore.ErrorLevel))
}

func encoderConfig(format string) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.MessageKey = "msg"
	enc.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	enc.EncodeLevel = zapcore.LowercaseLevelEncoder
	if format == FormatConsole {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	}
	return enc
}

// MustNewLogger panics where NewLogger would fail. Meant for the last-resort
// logger used to report a broken configuration.
func MustNewLogger(opts Options) *zap.Logger {
	l, err := NewLogger(opts)
	if err != nil {
		panic(err)
	}
	return l
}

// WithTrace binds trace_id and span_id, substituting "unknown" for empty ids.
// A nil logger means the zap global.
func WithTrace(l *zap.Logger, traceID, spanID string) *zap.Logger {
	if l == nil {
		l = zap.L()
	}
	return l.With(
		zap.String("trace_id", orUnknown(traceID)),
		zap.String("span_id", orUnknown(spanID)),
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
