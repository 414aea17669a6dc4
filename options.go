package agentdb

import (
	"log/slog"
)

const (
	// DefaultM is the default maximum neighbor count per graph layer.
	DefaultM = 16

	// DefaultEF is the default construction/search beam width.
	DefaultEF = 100

	// DefaultCacheSize is the advisory bound on the retained record
	// working set.
	DefaultCacheSize = 100_000
)

type options struct {
	m          int
	ef         int
	cacheSize  int
	randomSeed *int64

	maxWorkers       int64
	ingestRatePerSec int

	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures database construction behavior.
type Option func(*options)

// WithM configures the maximum number of neighbors kept per node per
// graph layer. Higher values increase recall and memory usage.
//
// The layer-0 limit is twice this value.
func WithM(m int) Option {
	return func(o *options) {
		o.m = m
	}
}

// WithEF configures the beam width used during graph construction and
// as the default for searches. Higher values trade latency for recall.
func WithEF(ef int) Option {
	return func(o *options) {
		o.ef = ef
	}
}

// WithCacheSize sets the advisory bound on how many records the store
// is expected to retain. It sizes internal structures up front and is
// not a hard limit.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithRandomSeed fixes the seed used for level assignment, making
// graph construction deterministic. Useful for tests.
func WithRandomSeed(seed int64) Option {
	return func(o *options) {
		o.randomSeed = &seed
	}
}

// WithMaxWorkers configures the number of concurrent workers used by
// BatchInsert. Defaults to 1.
func WithMaxWorkers(n int64) Option {
	return func(o *options) {
		o.maxWorkers = n
	}
}

// WithIngestRate throttles BatchInsert to at most n vectors per
// second. Zero means unlimited.
func WithIngestRate(n int) Option {
	return func(o *options) {
		o.ingestRatePerSec = n
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations.
//
// Example with BasicMetricsCollector:
//
//	metrics := &agentdb.BasicMetricsCollector{}
//	db, _ := agentdb.New(128, agentdb.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
//
// Example with JSON logging:
//
//	logger := agentdb.NewJSONLogger(slog.LevelInfo)
//	db, _ := agentdb.New(128, agentdb.WithLogger(logger))
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
		m:                DefaultM,
		ef:               DefaultEF,
		cacheSize:        DefaultCacheSize,
		maxWorkers:       1,
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
