package flow

import (
	"fmt"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// Take returns a producer forwarding the first n upstream items, then
// cancelling the upstream subscription and completing. Take(p, 0) completes
// immediately without subscribing upstream.
func Take[T any](p Producer[T], n int64) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		if n <= 0 {
			c.OnSubscribe(terminalToken{})
			c.OnComplete()
			return
		}
		tc := &takeConsumer[T]{downstream: c}
		tc.remaining.Store(n)
		tc.grantable.Store(n)
		p.Subscribe(tc)
	})
}

type takeConsumer[T any] struct {
	downstream Consumer[T]
	upstream   FlowToken
	remaining  atomic.Int64
	grantable  atomic.Int64
	done       atomic.Bool
}

func (t *takeConsumer[T]) OnSubscribe(token FlowToken) {
	t.upstream = token
	t.downstream.OnSubscribe(t)
}

// Request forwards downstream demand capped so the cumulative demand ever
// forwarded upstream never exceeds the number of items to take, however many
// Request calls the downstream makes.
func (t *takeConsumer[T]) Request(n int64) {
	if n <= 0 {
		if !t.done.Swap(true) {
			t.upstream.Cancel()
			t.downstream.OnError(errors.WrapMisuse(errors.ErrInvalidDemand, "Take", "Request",
				fmt.Sprintf("request of %d", n)))
		}
		return
	}
	for {
		avail := t.grantable.Load()
		if avail == 0 {
			return
		}
		grant := n
		if grant > avail {
			grant = avail
		}
		if t.grantable.CompareAndSwap(avail, avail-grant) {
			t.upstream.Request(grant)
			return
		}
	}
}

func (t *takeConsumer[T]) Cancel() {
	t.done.Store(true)
	t.upstream.Cancel()
}

func (t *takeConsumer[T]) OnItem(item T) {
	if t.done.Load() {
		return
	}
	rem := t.remaining.Add(-1)
	if rem < 0 {
		// Post-cancellation race; discard.
		return
	}
	t.downstream.OnItem(item)
	if rem == 0 {
		t.done.Store(true)
		t.upstream.Cancel()
		t.downstream.OnComplete()
	}
}

func (t *takeConsumer[T]) OnError(err error) {
	if t.done.Swap(true) {
		return
	}
	t.downstream.OnError(err)
}

func (t *takeConsumer[T]) OnComplete() {
	if t.done.Swap(true) {
		return
	}
	t.downstream.OnComplete()
}
