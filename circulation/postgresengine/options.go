package postgresengine

import (
	"errors"

	"github.com/libradesk/circulation-go/circulation"
)

var (
	// ErrNilLogger is returned when a nil logger is supplied.
	ErrNilLogger = errors.New("logger must not be nil")

	// ErrNilMetricsCollector is returned when a nil metrics collector is supplied.
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")
)

// Option configures a Store during construction.
type Option func(*Store) error

// WithLogger adds a basic logger for SQL debug output and warnings.
func WithLogger(logger circulation.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			return ErrNilLogger
		}

		s.logger = logger

		return nil
	}
}

// WithContextualLogger adds a context-aware logger. When both loggers are
// configured the contextual one wins.
func WithContextualLogger(logger circulation.ContextualLogger) Option {
	return func(s *Store) error {
		if logger == nil {
			return ErrNilLogger
		}

		s.contextualLogger = logger

		return nil
	}
}

// WithMetrics adds a metrics collector for query instrumentation.
func WithMetrics(collector circulation.MetricsCollector) Option {
	return func(s *Store) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		s.metrics = collector

		return nil
	}
}
