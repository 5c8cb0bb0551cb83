package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/RexQian/wcf-gateway/internal/infrastructure/config"
)

const (
	// serviceName is attached to every log entry.
	serviceName = "wcf-gateway"

	// maxValueLen clips string attributes. Base64 images and message XML
	// can reach megabytes and must not end up in the log stream.
	maxValueLen = 256
)

// Logger is the gateway's structured logger.
//
// It embeds *slog.Logger, so Debug/Info/Warn/Error take a message followed
// by alternating keys and values. Safe for concurrent use.
type Logger struct {
	*slog.Logger
}

// New builds a Logger from the logging section of the configuration,
// writing to stdout unless cfg.Output is "stderr".
func New(cfg config.LoggingConfig, version string) *Logger {
	var out io.Writer = os.Stdout
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return NewWithWriter(cfg, version, out)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
//
// Every entry carries service and version. Levels are filtered by
// cfg.Level and long string values are clipped.
func NewWithWriter(cfg config.LoggingConfig, version string, out io.Writer) *Logger {
	opts := &slog.HandlerOptions{
		Level:       parseLevel(cfg.Level),
		ReplaceAttr: clipAttr,
	}

	var h slog.Handler = slog.NewJSONHandler(out, opts)
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(out, opts)
	}

	return &Logger{Logger: slog.New(h).With(
		slog.String("service", serviceName),
		slog.String("version", version),
	)}
}

// parseLevel maps debug, info, warn(ing) and error, case-insensitively.
// Anything else is info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// clipAttr shortens string values longer than maxValueLen, keeping the
// prefix and the original length.
func clipAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if s := a.Value.String(); len(s) > maxValueLen {
		a.Value = slog.StringValue(fmt.Sprintf("%s...(%d bytes)", s[:maxValueLen], len(s)))
	}
	return a
}

// With returns a child Logger carrying extra attributes, typically a
// component name:
//
//	log := logger.With("component", "remote")
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// Default is the logger used before configuration is loaded: JSON, info
// level, stdout.
func Default() *Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, "dev")
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
