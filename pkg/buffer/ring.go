package buffer

import (
	"sync"

	"github.com/c360/streamkit/errors"
)

// ring is a thread-safe ring buffer. Bounded rings apply the configured
// overflow policy at capacity; unbounded rings grow instead.
type ring[T any] struct {
	mu        sync.RWMutex
	items     []T
	size      int
	head      int // next write position
	tail      int // next read position
	unbounded bool
	closed    bool
	stats     *Statistics
	metrics   *ringMetrics
	opts      *options[T]
}

func newRing[T any](capacity int, unbounded bool, opts *options[T]) (*ring[T], error) {
	if capacity <= 0 {
		capacity = 1
	}

	var metrics *ringMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		var err error
		metrics, err = newRingMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "Ring", "newRing", "metrics registration")
		}
	}

	return &ring[T]{
		items:     make([]T, capacity),
		unbounded: unbounded,
		stats:     NewStatistics(),
		metrics:   metrics,
		opts:      opts,
	}, nil
}

// Write adds an item, applying the overflow policy when a bounded ring is full.
func (r *ring[T]) Write(item T) error {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return errors.WrapMisuse(errors.ErrDisposed, "Ring", "Write", "write to closed buffer")
	}

	var dropped []T

	if r.size == len(r.items) {
		if r.unbounded {
			r.grow()
		} else {
			switch r.opts.policy {
			case Reject:
				r.stats.Overflow()
				if r.metrics != nil {
					r.metrics.recordOverflow()
				}
				r.mu.Unlock()
				return errors.WrapOverflow(errors.ErrBufferFull, "Ring", "Write", "enqueue")

			case DropOldest:
				old := r.items[r.tail]
				r.tail = (r.tail + 1) % len(r.items)
				r.size--
				r.stats.Overflow()
				r.stats.Drop()
				if r.metrics != nil {
					r.metrics.recordOverflow()
					r.metrics.recordDrop()
				}
				dropped = append(dropped, old)

			case DropNewest:
				r.stats.Overflow()
				r.stats.Drop()
				if r.metrics != nil {
					r.metrics.recordOverflow()
					r.metrics.recordDrop()
				}
				r.mu.Unlock()
				// Drop callback runs outside the lock
				if r.opts.dropCallback != nil {
					r.opts.dropCallback(item)
				}
				return nil
			}
		}
	}

	r.items[r.head] = item
	r.head = (r.head + 1) % len(r.items)
	r.size++

	r.stats.Write()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordWrite(r.size)
	}

	cb := r.opts.dropCallback
	r.mu.Unlock()

	if cb != nil {
		for _, d := range dropped {
			cb(d)
		}
	}
	return nil
}

// grow doubles the backing slice, preserving item order.
func (r *ring[T]) grow() {
	next := make([]T, len(r.items)*2)
	for i := 0; i < r.size; i++ {
		next[i] = r.items[(r.tail+i)%len(r.items)]
	}
	r.items = next
	r.tail = 0
	r.head = r.size
}

// Read retrieves and removes one item.
func (r *ring[T]) Read() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}

	item := r.items[r.tail]
	r.items[r.tail] = zero // release for GC
	r.tail = (r.tail + 1) % len(r.items)
	r.size--

	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))
	if r.metrics != nil {
		r.metrics.recordRead(r.size)
	}

	return item, true
}

// Peek retrieves one item without removing it.
func (r *ring[T]) Peek() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[r.tail], true
}

// Len returns the current number of buffered items.
func (r *ring[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Capacity returns the fixed capacity, or Unlimited for unbounded rings.
func (r *ring[T]) Capacity() int {
	if r.unbounded {
		return Unlimited
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Clear removes all buffered items, reporting each through the drop callback.
func (r *ring[T]) Clear() {
	r.mu.Lock()

	var cleared []T
	if r.opts.dropCallback != nil && r.size > 0 {
		cleared = make([]T, r.size)
		for i := 0; i < r.size; i++ {
			cleared[i] = r.items[(r.tail+i)%len(r.items)]
		}
	}

	var zero T
	for i := range r.items {
		r.items[i] = zero
	}
	r.head = 0
	r.tail = 0
	r.size = 0

	r.stats.UpdateSize(0)
	if r.metrics != nil {
		r.metrics.updateSize(0)
	}

	cb := r.opts.dropCallback
	r.mu.Unlock()

	if cb != nil {
		for _, item := range cleared {
			cb(item)
		}
	}
}

// Stats returns buffer statistics.
func (r *ring[T]) Stats() *Statistics {
	return r.stats
}

// Close marks the buffer closed. Close is idempotent.
func (r *ring[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
