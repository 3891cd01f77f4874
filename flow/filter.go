package flow

import (
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// Filter returns a producer forwarding only items for which predicate is
// true. A rejected item consumes one unit of upstream demand without
// producing a downstream item, so the operator synthesizes exactly one
// additional upstream request per rejection; downstream demand is never
// starved by rejections.
func Filter[T any](p Producer[T], predicate func(T) bool) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		p.Subscribe(&filterConsumer[T]{downstream: c, predicate: predicate})
	})
}

type filterConsumer[T any] struct {
	downstream Consumer[T]
	predicate  func(T) bool
	token      FlowToken
	done       atomic.Bool
}

func (f *filterConsumer[T]) OnSubscribe(token FlowToken) {
	f.token = token
	f.downstream.OnSubscribe(token)
}

func (f *filterConsumer[T]) OnItem(item T) {
	if f.done.Load() {
		return
	}
	keep, err := f.test(item)
	if err != nil {
		f.done.Store(true)
		f.token.Cancel()
		f.downstream.OnError(err)
		return
	}
	if !keep {
		// Renew the demand consumed by the rejected item.
		f.token.Request(1)
		return
	}
	f.downstream.OnItem(item)
}

func (f *filterConsumer[T]) test(item T) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "Filter", "OnItem")
		}
	}()
	return f.predicate(item), nil
}

func (f *filterConsumer[T]) OnError(err error) {
	if f.done.Swap(true) {
		return
	}
	f.downstream.OnError(err)
}

func (f *filterConsumer[T]) OnComplete() {
	if f.done.Swap(true) {
		return
	}
	f.downstream.OnComplete()
}
