package flow

import (
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// Map returns a producer applying transform to each upstream item. Demand
// passes upstream unchanged. A transform error or panic is caught at the
// operator boundary and converted into a terminal error signal; it never
// propagates as a language-level fault out of the subscription chain.
func Map[T, R any](p Producer[T], transform func(T) (R, error)) Producer[R] {
	return producerFunc[R](func(c Consumer[R]) {
		p.Subscribe(&mapConsumer[T, R]{downstream: c, transform: transform})
	})
}

type mapConsumer[T, R any] struct {
	downstream Consumer[R]
	transform  func(T) (R, error)
	token      FlowToken
	done       atomic.Bool
}

func (m *mapConsumer[T, R]) OnSubscribe(token FlowToken) {
	m.token = token
	// A 1:1 transform consumes exactly one upstream item per downstream
	// item, so the upstream token serves downstream demand directly.
	m.downstream.OnSubscribe(token)
}

func (m *mapConsumer[T, R]) OnItem(item T) {
	if m.done.Load() {
		return
	}
	out, err := m.apply(item)
	if err != nil {
		m.done.Store(true)
		m.token.Cancel()
		m.downstream.OnError(errors.WrapCallback(err, "Map", "OnItem", "transform"))
		return
	}
	m.downstream.OnItem(out)
}

func (m *mapConsumer[T, R]) apply(item T) (out R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "Map", "OnItem")
		}
	}()
	return m.transform(item)
}

func (m *mapConsumer[T, R]) OnError(err error) {
	if m.done.Swap(true) {
		return
	}
	m.downstream.OnError(err)
}

func (m *mapConsumer[T, R]) OnComplete() {
	if m.done.Swap(true) {
		return
	}
	m.downstream.OnComplete()
}
