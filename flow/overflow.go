package flow

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/buffer"
)

// OverflowStrategy selects how OnBackpressure reconciles an eager upstream
// with a slower downstream.
type OverflowStrategy int

const (
	// OverflowBuffer queues items in a bounded buffer and terminates with an
	// overflow error when the buffer fills.
	OverflowBuffer OverflowStrategy = iota

	// OverflowBufferUnbounded queues items without limit. Memory use is
	// bounded only by the skew between production and consumption.
	OverflowBufferUnbounded

	// OverflowDrop discards items that arrive while the buffer is full. Up
	// to the configured capacity of already-queued items still drains to the
	// downstream as demand arrives; use WithCapacity(1) to keep at most one
	// un-demanded item pending.
	OverflowDrop

	// OverflowLatest keeps only the most recent item, discarding the one it
	// replaces.
	OverflowLatest

	// OverflowError terminates with an overflow error as soon as an item
	// arrives that no outstanding downstream demand can absorb.
	OverflowError
)

// String returns a human-readable representation of the strategy.
func (s OverflowStrategy) String() string {
	switch s {
	case OverflowBuffer:
		return "Buffer"
	case OverflowBufferUnbounded:
		return "BufferUnbounded"
	case OverflowDrop:
		return "Drop"
	case OverflowLatest:
		return "Latest"
	case OverflowError:
		return "Error"
	default:
		return "Unknown"
	}
}

// DefaultOverflowCapacity bounds the Buffer and Drop strategies when
// WithCapacity is not given.
const DefaultOverflowCapacity = 256

// OverflowOption configures OnBackpressure behavior.
type OverflowOption[T any] func(*overflowSettings[T])

type overflowSettings[T any] struct {
	capacity      int
	onDrop        func(T)
	registry      *metric.Registry
	metricsPrefix string
	logger        *slog.Logger
}

// WithCapacity sets the buffer capacity for the Buffer and Drop strategies.
// Ignored by the other strategies.
func WithCapacity[T any](n int) OverflowOption[T] {
	return func(s *overflowSettings[T]) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithDropHandler reports each item discarded by the Drop or Latest strategy.
func WithDropHandler[T any](fn func(T)) OverflowOption[T] {
	return func(s *overflowSettings[T]) {
		s.onDrop = fn
	}
}

// WithBufferMetrics exposes the backing buffer's statistics as Prometheus
// metrics under the given prefix.
func WithBufferMetrics[T any](registry *metric.Registry, prefix string) OverflowOption[T] {
	return func(s *overflowSettings[T]) {
		s.registry = registry
		s.metricsPrefix = prefix
	}
}

// WithOverflowLogger logs dropped items at debug level.
func WithOverflowLogger[T any](logger *slog.Logger) OverflowOption[T] {
	return func(s *overflowSettings[T]) {
		s.logger = logger
	}
}

// OnBackpressure decouples upstream emission from downstream demand. The
// upstream subscription is opened with unlimited demand; items the downstream
// has not yet requested are held or discarded according to the strategy, and
// queued items drain one at a time as demand arrives. An upstream error cuts
// ahead of queued items.
func OnBackpressure[T any](p Producer[T], strategy OverflowStrategy, opts ...OverflowOption[T]) Producer[T] {
	settings := overflowSettings[T]{capacity: DefaultOverflowCapacity}
	for _, opt := range opts {
		opt(&settings)
	}
	return producerFunc[T](func(c Consumer[T]) {
		queue, err := newOverflowQueue(strategy, &settings)
		if err != nil {
			c.OnSubscribe(terminalToken{})
			c.OnError(err)
			return
		}
		p.Subscribe(&overflowConsumer[T]{
			downstream: c,
			strategy:   strategy,
			queue:      queue,
		})
	})
}

func newOverflowQueue[T any](strategy OverflowStrategy, settings *overflowSettings[T]) (buffer.Queue[T], error) {
	dropFn := func(item T) {
		if settings.onDrop != nil {
			settings.onDrop(item)
		}
		if settings.logger != nil {
			settings.logger.Debug("item dropped on overflow", "strategy", strategy.String())
		}
	}
	metrics := buffer.WithMetrics[T](settings.registry, settings.metricsPrefix)

	switch strategy {
	case OverflowBuffer:
		return buffer.NewRing(settings.capacity, buffer.WithPolicy[T](buffer.Reject), metrics)
	case OverflowBufferUnbounded, OverflowError:
		return buffer.NewUnbounded(metrics)
	case OverflowDrop:
		return buffer.NewRing(settings.capacity,
			buffer.WithPolicy[T](buffer.DropNewest),
			buffer.WithDropCallback(dropFn),
			metrics)
	case OverflowLatest:
		return buffer.NewRing(1,
			buffer.WithPolicy[T](buffer.DropOldest),
			buffer.WithDropCallback(dropFn),
			metrics)
	default:
		return nil, errors.WrapMisuse(errors.ErrOverflow, "OnBackpressure", "Subscribe",
			fmt.Sprintf("unknown overflow strategy %d", strategy))
	}
}

// overflowConsumer is the upstream consumer and the downstream token of one
// OnBackpressure subscription.
type overflowConsumer[T any] struct {
	downstream Consumer[T]
	strategy   OverflowStrategy
	queue      buffer.Queue[T]
	upstream   FlowToken

	mu      sync.Mutex
	done    bool
	termErr error

	requested  atomic.Int64
	wip        atomic.Int64
	terminated atomic.Bool
}

func (o *overflowConsumer[T]) OnSubscribe(token FlowToken) {
	o.upstream = token
	o.downstream.OnSubscribe(o)
	token.Request(Unbounded)
}

func (o *overflowConsumer[T]) OnItem(item T) {
	if o.terminated.Load() {
		return
	}
	if o.strategy == OverflowError {
		outstanding := o.requested.Load()
		if outstanding != Unbounded && int64(o.queue.Len()) >= outstanding {
			o.fail(errors.WrapOverflow(errors.ErrOverflow, "OnBackpressure", "OnItem",
				"item arrived without downstream demand"))
			return
		}
	}
	if err := o.queue.Write(item); err != nil {
		o.fail(err)
		return
	}
	o.drain()
}

func (o *overflowConsumer[T]) OnError(err error) {
	o.mu.Lock()
	o.done = true
	if o.termErr == nil {
		o.termErr = err
	}
	o.mu.Unlock()
	o.drain()
}

func (o *overflowConsumer[T]) OnComplete() {
	o.mu.Lock()
	o.done = true
	o.mu.Unlock()
	o.drain()
}

// Request implements the downstream FlowToken.
func (o *overflowConsumer[T]) Request(n int64) {
	if n <= 0 {
		o.fail(errors.WrapMisuse(errors.ErrInvalidDemand, "OnBackpressure", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	addDemand(&o.requested, n)
	o.drain()
}

// Cancel implements the downstream FlowToken.
func (o *overflowConsumer[T]) Cancel() {
	if o.terminated.Swap(true) {
		return
	}
	o.upstream.Cancel()
	o.queue.Clear()
}

func (o *overflowConsumer[T]) fail(err error) {
	o.mu.Lock()
	o.done = true
	if o.termErr == nil {
		o.termErr = err
	}
	o.mu.Unlock()

	o.upstream.Cancel()
	o.drain()
}

// drain delivers queued items one at a time under the downstream demand
// budget, using the same atomic claim the merge engine uses so concurrent
// writers and requesters never deliver in parallel.
func (o *overflowConsumer[T]) drain() {
	if o.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		for {
			if o.terminated.Load() {
				return
			}

			o.mu.Lock()
			err := o.termErr
			o.mu.Unlock()
			if err != nil {
				if !o.terminated.Swap(true) {
					o.queue.Clear()
					o.downstream.OnError(err)
				}
				return
			}

			if o.requested.Load() == 0 {
				break
			}
			item, ok := o.queue.Read()
			if !ok {
				break
			}
			o.downstream.OnItem(item)
			subDemand(&o.requested, 1)
		}

		o.mu.Lock()
		finished := o.done && o.termErr == nil && o.queue.Len() == 0
		o.mu.Unlock()
		if finished {
			if !o.terminated.Swap(true) {
				o.downstream.OnComplete()
			}
			return
		}

		missed = o.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}
