// Package logging provides structured logging with trace ID support, set up
// from the DCP_LOG_LEVEL / DCP_LOG_FILE environment variables.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context keys carried on a request/operation
// context and mirrored into every log line derived from it.
type ContextKey string

const (
	// TraceIDKey is the context key for the current operation ID.
	TraceIDKey ContextKey = "trace_id"
	// ServiceKey is the context key for the component name (engine,
	// webui, retrydrive, ...).
	ServiceKey ContextKey = "service"
)

// Logger wraps logrus.Logger with service-name tagging and trace-ID
// propagation from context.Context.
type Logger struct {
	*logrus.Logger
	service string
}

// Config controls logger construction.
type Config struct {
	Level     string // trace|debug|info|warn|error|fatal|panic
	Format    string // "json" or "text"
	File      string // optional path; stdout is always written to in addition
	FileLevel string // not applied: the file sink receives the same entries as stdout, at Level
}

// New builds a Logger for service from an explicit Config.
func New(service string, cfg Config) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			out = io.MultiWriter(os.Stdout, f)
		}
	}
	logger.SetOutput(out)

	return &Logger{Logger: logger, service: service}
}

// Setup constructs a Logger for service from the environment: DCP_LOG_LEVEL
// (default "info") and DCP_LOG_FILE (optional additional sink).
// DCP_LOG_FILE_LEVEL is not read: logrus applies one level to the whole
// writer, so a file sink shares the stdout level.
func Setup(service string) *Logger {
	cfg := Config{
		Level:  envOrDefault("DCP_LOG_LEVEL", "info"),
		Format: "json",
		File:   os.Getenv("DCP_LOG_FILE"),
	}
	return New(service, cfg)
}

func envOrDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// WithContext creates a new logger entry carrying the service name and, if
// present on ctx, the trace/operation ID.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("service", l.service)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	return entry
}

// WithFields creates a new logger entry with custom fields plus the
// service name.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["service"] = l.service
	return l.Logger.WithFields(fields)
}

// WithError creates a new logger entry with the error and service name.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.Logger.WithFields(logrus.Fields{"service": l.service, "error": err.Error()})
}

// NewTraceID generates a new operation/trace ID.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from ctx, if any.
func GetTraceID(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
