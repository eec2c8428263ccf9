// Package logging provides structured logging with trace-ID propagation.
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

// ContextKey is the type for context keys.
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	ComponentKey ContextKey = "component_instance"
	TaskKey      ContextKey = "task_id"
)

// Logger wraps logrus.Logger with runtime-domain helpers.
type Logger struct {
	*logrus.Logger
	subsystem string
}

// New creates a new Logger for a named subsystem (e.g. "interpreter", "executor").
func New(subsystem, level, format string) *Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, subsystem: subsystem}
}

// NewFromEnv builds a logger from WRT_LOG_LEVEL / WRT_LOG_FORMAT, defaulting
// to "info" / "json".
func NewFromEnv(subsystem string) *Logger {
	level := strings.TrimSpace(os.Getenv("WRT_LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("WRT_LOG_FORMAT"))
	if format == "" {
		format = "json"
	}
	return New(subsystem, level, format)
}

// SetOutput sets the logger output (used by tests).
func (l *Logger) SetOutput(output io.Writer) {
	l.Logger.SetOutput(output)
}

// WithContext attaches trace/component/task identifiers found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("subsystem", l.subsystem)
	if traceID := ctx.Value(TraceIDKey); traceID != nil {
		entry = entry.WithField("trace_id", traceID)
	}
	if component := ctx.Value(ComponentKey); component != nil {
		entry = entry.WithField("component_instance", component)
	}
	if task := ctx.Value(TaskKey); task != nil {
		entry = entry.WithField("task_id", task)
	}
	return entry
}

// NewTraceID generates a new trace ID.
func NewTraceID() string { return uuid.New().String() }

// WithTraceID adds a trace ID to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithComponent adds a component-instance id to the context.
func WithComponent(ctx context.Context, componentID uint32) context.Context {
	return context.WithValue(ctx, ComponentKey, componentID)
}

// WithTask adds a task id to the context.
func WithTask(ctx context.Context, taskID uint64) context.Context {
	return context.WithValue(ctx, TaskKey, taskID)
}

// Domain-specific structured events, mirrored from the teacher's
// LogBlockchainTx/LogDatabaseQuery/LogAudit shape.

// LogCapabilityGrant logs a capability grant or rejection.
func (l *Logger) LogCapabilityGrant(ctx context.Context, crate string, bytes int64, ok bool, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"crate": crate,
		"bytes": bytes,
		"ok":    ok,
	})
	if err != nil {
		entry.WithError(err).Warn("capability grant rejected")
		return
	}
	entry.Debug("capability grant issued")
}

// LogFuelExhaustion logs a task transitioning to FuelExhausted.
func (l *Logger) LogFuelExhaustion(ctx context.Context, taskID uint64, consumed, budget int64) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"task_id":  taskID,
		"consumed": consumed,
		"budget":   budget,
	}).Warn("task fuel exhausted")
}

// LogTaskTransition logs a task state transition.
func (l *Logger) LogTaskTransition(ctx context.Context, taskID uint64, from, to string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"task_id": taskID,
		"from":    from,
		"to":      to,
	}).Info("task state transition")
}

// LogTrap logs an interpreter trap.
func (l *Logger) LogTrap(ctx context.Context, taskID uint64, kind string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"task_id": taskID,
		"trap":    kind,
	}).Error("trap")
}

// LogChecksumFailure logs an integrity violation on a bounded collection.
func (l *Logger) LogChecksumFailure(ctx context.Context, collection string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"collection": collection,
	}).Error("checksum verification failed")
}

// LogPreemption logs a preemption decision.
func (l *Logger) LogPreemption(ctx context.Context, taskID uint64, reason string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"task_id": taskID,
		"reason":  reason,
	}).Info("task preempted")
}

// LogTypeTierMove logs a type registry promotion (cold→hot/warm) or
// demotion (hot/warm→cold).
func (l *Logger) LogTypeTierMove(ctx context.Context, typeRef uint32, from, to string) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"type_ref": typeRef,
		"from":     from,
		"to":       to,
	}).Debug("type registry tier move")
}

// Global logger instance, initialized once at startup (no lazy-init, per
// spec §9's "forbid lazy-init to keep initialization order deterministic").
var defaultLogger *Logger

// InitDefault initializes the default logger. Must be called once during
// process startup before Default() is used.
func InitDefault(subsystem, level, format string) {
	defaultLogger = New(subsystem, level, format)
}

// Default returns the default logger, or a bare fallback if InitDefault was
// never called (tests only — production code must call InitDefault).
func Default() *Logger {
	if defaultLogger == nil {
		defaultLogger = New("unknown", "info", "json")
	}
	return defaultLogger
}
