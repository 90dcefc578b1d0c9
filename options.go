package middb

import (
	"log/slog"
	"time"

	"github.com/hupe1980/middb/annindex"
)

// Default write-pipeline and index tuning values.
const (
	DefaultBatchSize    = 100
	DefaultIdleWait     = 5 * time.Second
	DefaultCapacityHint = 20000
)

type options struct {
	batchSize        int
	idleWait         time.Duration
	capacityHint     int
	annOptions       []func(*annindex.Options)
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Engine construction.
type Option func(*options)

// WithBatchSize sets how many queued write-pipeline tasks are folded into
// a single snapshot flush. If n <= 0, DefaultBatchSize is used.
func WithBatchSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithIdleWait sets how long the write pipeline waits for a batch to fill
// before flushing whatever it has queued. If d <= 0, DefaultIdleWait is
// used.
func WithIdleWait(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleWait = d
		}
	}
}

// WithCapacityHint pre-sizes each table's ANN index for approximately n
// points. It is not a hard limit.
func WithCapacityHint(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.capacityHint = n
		}
	}
}

// WithANNOptions passes through functional options to the annindex.Index
// backing each table's embedding search (e.g. connectivity M, search
// breadth EF).
func WithANNOptions(optFns ...func(*annindex.Options)) Option {
	return func(o *options) {
		o.annOptions = optFns
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for the engine.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger at the given level and sets it.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		batchSize:        DefaultBatchSize,
		idleWait:         DefaultIdleWait,
		capacityHint:     DefaultCapacityHint,
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
