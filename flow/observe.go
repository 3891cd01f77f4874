package flow

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
	"github.com/c360/streamkit/pkg/buffer"
	"github.com/c360/streamkit/pkg/taskpool"
)

// ObserveOption configures ObserveOn.
type ObserveOption func(*observeSettings)

type observeSettings struct {
	prefetch      int
	registry      *metric.Registry
	metricsPrefix string
}

// WithObservePrefetch overrides the upstream demand window ObserveOn keeps
// outstanding while items cross the asynchronous boundary.
func WithObservePrefetch(n int) ObserveOption {
	return func(s *observeSettings) {
		if n > 0 {
			s.prefetch = n
		}
	}
}

// WithObserveMetrics exposes the boundary buffer's statistics as Prometheus
// metrics under the given prefix.
func WithObserveMetrics(registry *metric.Registry, prefix string) ObserveOption {
	return func(s *observeSettings) {
		s.registry = registry
		s.metricsPrefix = prefix
	}
}

// ObserveOn moves downstream signal delivery onto a dedicated goroutine, so
// a slow or blocking consumer never runs on the producer's emission path.
// Each subscription owns a single-worker task pool, which preserves the
// protocol's serialized-delivery guarantee. Upstream demand is windowed at
// the prefetch amount and replenished one-for-one as items cross the
// boundary; downstream demand is honored exactly.
func ObserveOn[T any](p Producer[T], opts ...ObserveOption) Producer[T] {
	settings := observeSettings{prefetch: DefaultPrefetch}
	for _, opt := range opts {
		opt(&settings)
	}
	return producerFunc[T](func(c Consumer[T]) {
		queue, err := buffer.NewRing(settings.prefetch,
			buffer.WithMetrics[T](settings.registry, settings.metricsPrefix))
		if err != nil {
			c.OnSubscribe(terminalToken{})
			c.OnError(err)
			return
		}
		// The pool only ever holds the single active drain task.
		pool, err := taskpool.New(1, 4)
		if err != nil {
			c.OnSubscribe(terminalToken{})
			c.OnError(err)
			return
		}
		if err := pool.Start(context.Background()); err != nil {
			c.OnSubscribe(terminalToken{})
			c.OnError(err)
			return
		}
		p.Subscribe(&observeConsumer[T]{
			downstream: c,
			pool:       pool,
			prefetch:   settings.prefetch,
			queue:      queue,
		})
	})
}

// observeConsumer is the upstream consumer and the downstream token of one
// ObserveOn subscription. Items hop from the producer's goroutine into the
// boundary buffer; the pool's single worker drains them downstream.
type observeConsumer[T any] struct {
	downstream Consumer[T]
	pool       *taskpool.Pool
	prefetch   int
	queue      buffer.Queue[T]
	upstream   FlowToken

	mu      sync.Mutex
	done    bool
	termErr error

	requested  atomic.Int64
	wip        atomic.Int64
	terminated atomic.Bool
}

func (o *observeConsumer[T]) OnSubscribe(token FlowToken) {
	o.upstream = token
	o.downstream.OnSubscribe(o)
	token.Request(int64(o.prefetch))
}

func (o *observeConsumer[T]) OnItem(item T) {
	if o.terminated.Load() {
		return
	}
	// A correct upstream never exceeds the prefetch window; a write failure
	// here is a protocol violation.
	if err := o.queue.Write(item); err != nil {
		o.upstream.Cancel()
		o.setTerminal(err)
		o.schedule()
		return
	}
	o.schedule()
}

func (o *observeConsumer[T]) OnError(err error) {
	o.setTerminal(err)
	o.schedule()
}

func (o *observeConsumer[T]) OnComplete() {
	o.setTerminal(nil)
	o.schedule()
}

func (o *observeConsumer[T]) setTerminal(err error) {
	o.mu.Lock()
	o.done = true
	if err != nil && o.termErr == nil {
		o.termErr = err
	}
	o.mu.Unlock()
}

// Request implements the downstream FlowToken.
func (o *observeConsumer[T]) Request(n int64) {
	if n <= 0 {
		o.upstream.Cancel()
		o.setTerminal(errors.WrapMisuse(errors.ErrInvalidDemand, "ObserveOn", "Request",
			fmt.Sprintf("request of %d", n)))
		o.schedule()
		return
	}
	addDemand(&o.requested, n)
	o.schedule()
}

// Cancel implements the downstream FlowToken.
func (o *observeConsumer[T]) Cancel() {
	if o.terminated.Swap(true) {
		return
	}
	o.upstream.Cancel()
	o.queue.Clear()
	o.shutdown()
}

// schedule claims the drain right and hands the loop to the pool worker.
// The work-in-progress counter guarantees at most one drain task is queued
// or running, so the tiny pool queue cannot overflow.
func (o *observeConsumer[T]) schedule() {
	if o.wip.Add(1) != 1 {
		return
	}
	if err := o.pool.Submit(o.drainLoop); err != nil {
		// Pool already stopped; the subscription is terminal.
		o.wip.Store(0)
	}
}

// drainLoop runs on the pool worker and delivers buffered items under the
// downstream demand budget, replenishing the upstream window one-for-one.
func (o *observeConsumer[T]) drainLoop() {
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
					o.shutdown()
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
			o.upstream.Request(1)
		}

		o.mu.Lock()
		finished := o.done && o.termErr == nil && o.queue.Len() == 0
		o.mu.Unlock()
		if finished {
			if !o.terminated.Swap(true) {
				o.downstream.OnComplete()
				o.shutdown()
			}
			return
		}

		missed = o.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// shutdown stops the pool off the worker goroutine; Stop waits for the
// worker and would deadlock if called from it.
func (o *observeConsumer[T]) shutdown() {
	go func() { _ = o.pool.Stop(time.Second) }()
}
