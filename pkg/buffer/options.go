package buffer

import (
	"github.com/c360/streamkit/metric"
)

// Option configures buffer behavior using the functional options pattern.
type Option[T any] func(*options[T])

// options holds internal configuration for buffer instances.
type options[T any] struct {
	policy       Policy
	dropCallback DropCallback[T]

	// metricsReg is optional - if provided, buffer stats are also exposed
	// as Prometheus metrics under metricsPrefix
	metricsReg    *metric.Registry
	metricsPrefix string
}

// WithPolicy sets the overflow behavior for a bounded buffer.
// Defaults to Reject if not specified. Ignored by unbounded buffers.
func WithPolicy[T any](policy Policy) Option[T] {
	return func(opts *options[T]) {
		opts.policy = policy
	}
}

// WithMetrics enables Prometheus metrics export for buffer statistics.
// If registry is nil or prefix is empty the option is ignored.
func WithMetrics[T any](registry *metric.Registry, prefix string) Option[T] {
	return func(opts *options[T]) {
		if registry != nil && prefix != "" {
			opts.metricsReg = registry
			opts.metricsPrefix = prefix
		}
	}
}

// WithDropCallback sets a callback invoked with each item discarded by a
// drop policy or by Clear.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *options[T]) {
		opts.dropCallback = callback
	}
}

func applyOptions[T any](opts ...Option[T]) *options[T] {
	o := &options[T]{
		policy: Reject,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}
