package flow

import (
	"sync"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// PushProducer bridges a callback- or event-driven source into a producer.
// Emission through Emit is decoupled from downstream demand, so a raw
// PushProducer does not honor backpressure by itself: it is intended to be
// wrapped by OnBackpressure, which requests Unbounded demand and absorbs the
// rate mismatch under a configured overflow strategy.
//
// PushProducer supports a single subscriber. Signals pushed before a
// subscriber attaches, or after cancellation or a terminal signal, are
// discarded and reported through the return value. Emit, Fail and Complete
// serialize delivery internally, so multiple pushing goroutines never
// overlap a signal with the terminal or with each other.
type PushProducer[T any] struct {
	mu        sync.Mutex
	consumer  Consumer[T]
	cancelled atomic.Bool
	terminal  atomic.Bool
}

// NewPushProducer creates an unattached push bridge.
func NewPushProducer[T any]() *PushProducer[T] {
	return &PushProducer[T]{}
}

// Subscribe attaches the single consumer. A second subscription is a
// protocol error, terminated immediately on the late consumer.
func (p *PushProducer[T]) Subscribe(c Consumer[T]) {
	p.mu.Lock()
	if p.consumer != nil {
		p.mu.Unlock()
		c.OnSubscribe(terminalToken{})
		c.OnError(errors.WrapMisuse(errors.ErrDoubleSubscription, "PushProducer", "Subscribe", "attach consumer"))
		return
	}
	p.consumer = c
	p.mu.Unlock()

	c.OnSubscribe(&pushToken[T]{producer: p})
}

// Emit delivers an item to the subscriber. Returns false if the item was
// discarded because no subscriber is attached or the subscription ended.
func (p *PushProducer[T]) Emit(item T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active() {
		return false
	}
	p.consumer.OnItem(item)
	return true
}

// Fail terminates the subscription with err.
func (p *PushProducer[T]) Fail(err error) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active() {
		return false
	}
	p.terminal.Store(true)
	p.consumer.OnError(err)
	return true
}

// Complete terminates the subscription normally.
func (p *PushProducer[T]) Complete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active() {
		return false
	}
	p.terminal.Store(true)
	p.consumer.OnComplete()
	return true
}

// Cancelled reports whether the subscriber cancelled the subscription.
func (p *PushProducer[T]) Cancelled() bool {
	return p.cancelled.Load()
}

// active reports whether signals may still be delivered. Callers hold mu.
func (p *PushProducer[T]) active() bool {
	return p.consumer != nil && !p.cancelled.Load() && !p.terminal.Load()
}

// pushToken ignores demand (the bridge is demand-decoupled by design) and
// records cancellation so the pushing side can stop producing.
type pushToken[T any] struct {
	producer *PushProducer[T]
}

func (t *pushToken[T]) Request(int64) {}

func (t *pushToken[T]) Cancel() {
	t.producer.cancelled.Store(true)
}
