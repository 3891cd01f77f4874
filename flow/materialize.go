package flow

import (
	"fmt"
	"sync"

	"github.com/c360/streamkit/errors"
)

// Materialize returns a producer reifying every upstream signal into a
// Signal[T] item. Upstream items arrive as item-kind signals; the upstream
// terminal arrives as a final error-kind or complete-kind signal item,
// followed by completion. The materialized stream therefore always completes
// normally. The terminal signal item is subject to downstream demand like
// any other item and is held until demand is available.
func Materialize[T any](p Producer[T]) Producer[Signal[T]] {
	return producerFunc[Signal[T]](func(c Consumer[Signal[T]]) {
		p.Subscribe(&materializeConsumer[T]{downstream: c})
	})
}

// materializeConsumer is the upstream consumer and the downstream token of
// one Materialize subscription. It shadows the upstream token so the reified
// terminal signal can be emitted under demand accounting.
type materializeConsumer[T any] struct {
	downstream Consumer[Signal[T]]

	mu         sync.Mutex
	upstream   FlowToken
	requested  int64
	pending    *Signal[T]
	terminated bool
}

func (m *materializeConsumer[T]) OnSubscribe(token FlowToken) {
	m.mu.Lock()
	m.upstream = token
	m.mu.Unlock()
	m.downstream.OnSubscribe(m)
}

func (m *materializeConsumer[T]) OnItem(item T) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	if m.requested != Unbounded && m.requested > 0 {
		m.requested--
	}
	m.mu.Unlock()
	m.downstream.OnItem(ItemSignal(item))
}

func (m *materializeConsumer[T]) OnError(err error) {
	m.finish(ErrorSignal[T](err))
}

func (m *materializeConsumer[T]) OnComplete() {
	m.finish(CompleteSignal[T]())
}

// finish emits the reified terminal signal if demand is outstanding, or
// holds it for the next request.
func (m *materializeConsumer[T]) finish(sig Signal[T]) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	if m.requested == 0 {
		m.pending = &sig
		m.mu.Unlock()
		return
	}
	m.terminated = true
	m.mu.Unlock()

	m.downstream.OnItem(sig)
	m.downstream.OnComplete()
}

// Request implements the downstream FlowToken.
func (m *materializeConsumer[T]) Request(n int64) {
	if n <= 0 {
		upstream := m.currentUpstream()
		if !m.terminate() {
			if upstream != nil {
				upstream.Cancel()
			}
			m.downstream.OnError(errors.WrapMisuse(errors.ErrInvalidDemand, "Materialize", "Request",
				fmt.Sprintf("request of %d", n)))
		}
		return
	}

	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	if m.pending != nil {
		sig := *m.pending
		m.pending = nil
		m.terminated = true
		m.mu.Unlock()
		m.downstream.OnItem(sig)
		m.downstream.OnComplete()
		return
	}
	m.requested = satAdd(m.requested, n)
	upstream := m.upstream
	m.mu.Unlock()

	upstream.Request(n)
}

// Cancel implements the downstream FlowToken.
func (m *materializeConsumer[T]) Cancel() {
	upstream := m.currentUpstream()
	if m.terminate() {
		return
	}
	if upstream != nil {
		upstream.Cancel()
	}
}

func (m *materializeConsumer[T]) currentUpstream() FlowToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upstream
}

func (m *materializeConsumer[T]) terminate() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.terminated
	m.terminated = true
	m.pending = nil
	return was
}
