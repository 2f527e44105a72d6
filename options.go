package feather

import "log/slog"

type options struct {
	dimension        int
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Open/Restore/Pull behavior.
type Option func(*options)

// WithDimension sets the expected vector dimensionality.
//
// When opening a path with an existing file, a nonzero dimension must match
// the file's stored dimension. When creating a new index, a positive
// dimension is required: there is no way to infer it from nothing.
func WithDimension(dimension int) Option {
	return func(o *options) {
		o.dimension = dimension
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
