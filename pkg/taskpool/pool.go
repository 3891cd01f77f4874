package taskpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/streamkit/errors"
	"github.com/c360/streamkit/metric"
)

// Pool is a bounded pool of goroutines executing submitted tasks. Submission
// is non-blocking: a full queue rejects the task instead of stalling the
// caller, which keeps pools safe to feed from inside signal delivery paths.
//
// A pool with a single worker executes tasks strictly in submission order;
// the flow package relies on this to move signal delivery across an
// asynchronous boundary without breaking serialization.
type Pool struct {
	workers   int
	queueSize int

	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	started bool
	stopped bool

	stats   Statistics
	metrics *poolMetrics
}

// Statistics tracks pool activity with atomic counters. Always collected.
type Statistics struct {
	Submitted atomic.Int64
	Executed  atomic.Int64
	Rejected  atomic.Int64
}

// Option configures a Pool.
type Option func(*settings)

type settings struct {
	registry *metric.Registry
	prefix   string
}

// WithMetrics exposes pool statistics as Prometheus metrics under prefix.
// Ignored when registry is nil or prefix empty.
func WithMetrics(registry *metric.Registry, prefix string) Option {
	return func(s *settings) {
		if registry != nil && prefix != "" {
			s.registry = registry
			s.prefix = prefix
		}
	}
}

// New creates a pool. Non-positive workers default to 1; non-positive
// queueSize defaults to 256.
func New(workers, queueSize int, opts ...Option) (*Pool, error) {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}

	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	p := &Pool{
		workers:   workers,
		queueSize: queueSize,
		tasks:     make(chan func(), queueSize),
	}
	if s.registry != nil {
		m, err := newPoolMetrics(s.registry, s.prefix)
		if err != nil {
			return nil, err
		}
		p.metrics = m
	}
	return p, nil
}

// Start launches the workers. Workers exit when ctx is done or the pool is
// stopped.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.WrapMisuse(errors.ErrDisposed, "taskpool", "Start", "pool already started")
	}
	p.started = true

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	return nil
}

// Submit enqueues task for execution. A full queue rejects immediately with
// a classified overflow error.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return errors.WrapMisuse(errors.ErrDisposed, "taskpool", "Submit", "pool not running")
	}
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		p.stats.Submitted.Add(1)
		if p.metrics != nil {
			p.metrics.submitted.Inc()
			p.metrics.queueDepth.Set(float64(len(p.tasks)))
		}
		return nil
	default:
		p.stats.Rejected.Add(1)
		if p.metrics != nil {
			p.metrics.rejected.Inc()
		}
		return errors.WrapOverflow(errors.ErrBufferFull, "taskpool", "Submit", "task queue full")
	}
}

// Stop closes the queue, lets workers drain pending tasks, and waits up to
// timeout for them to finish.
func (p *Pool) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started || p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return errors.Wrap(errors.ErrDisposed, "taskpool", "Stop", "timeout waiting for workers")
	}
}

// Stats returns a snapshot of pool activity.
func (p *Pool) Stats() (submitted, executed, rejected int64) {
	return p.stats.Submitted.Load(), p.stats.Executed.Load(), p.stats.Rejected.Load()
}

// QueueDepth returns the number of tasks waiting for a worker.
func (p *Pool) QueueDepth() int {
	return len(p.tasks)
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task()
			p.stats.Executed.Add(1)
			if p.metrics != nil {
				p.metrics.executed.Inc()
				p.metrics.queueDepth.Set(float64(len(p.tasks)))
			}
		}
	}
}

// poolMetrics exports pool statistics through a metric.Registry.
type poolMetrics struct {
	queueDepth prometheus.Gauge
	submitted  prometheus.Counter
	executed   prometheus.Counter
	rejected   prometheus.Counter
}

func newPoolMetrics(registry *metric.Registry, prefix string) (*poolMetrics, error) {
	m := &poolMetrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_queue_depth",
			Help: "Tasks waiting for a worker.",
		}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_submitted_total",
			Help: "Tasks accepted into the queue.",
		}),
		executed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_executed_total",
			Help: "Tasks executed by workers.",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "_rejected_total",
			Help: "Tasks rejected because the queue was full.",
		}),
	}

	const component = "taskpool"
	if err := registry.RegisterGauge(component, prefix+"_queue_depth", m.queueDepth); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, prefix+"_submitted_total", m.submitted); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, prefix+"_executed_total", m.executed); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(component, prefix+"_rejected_total", m.rejected); err != nil {
		return nil, err
	}
	return m, nil
}
