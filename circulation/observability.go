package circulation

import (
	"context"
	"time"
)

// Logger interface for operational logging. Messages use slog-style
// alternating key/value args.
//
// Debug level: SQL queries with execution timing (development use)
// Info level: operation outcomes, durations, contention (production-safe)
// Warn level: non-critical issues like cleanup failures
// Error level: failures that cause operation failures.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ContextualLogger is a context-aware Logger variant for backends that
// correlate log records with traces carried in the context.
type ContextualLogger interface {
	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// MetricsCollector collects performance and operational metrics. It is
// dependency-free so any backend (OpenTelemetry, Prometheus, statsd)
// can implement it.
type MetricsCollector interface {
	RecordDuration(metric string, duration time.Duration, labels map[string]string)
	IncrementCounter(metric string, labels map[string]string)
	RecordValue(metric string, value float64, labels map[string]string)
}

// Metric names emitted by the Engine and the storage engines.
const (
	MetricOperationDuration = "circulation_operation_duration_seconds"
	MetricOperationErrors   = "circulation_operation_errors_total"
	MetricContentionRetries = "circulation_contention_retries_total"
	MetricQueryDuration     = "circulation_query_duration_seconds"
)

// Shared metric label keys.
const (
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelErrorType = "error_type"
	LabelStatement = "statement"
)
