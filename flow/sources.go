package flow

import (
	"fmt"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// Range returns a producer emitting count consecutive int64 values starting
// at start, honoring downstream demand, followed by completion.
func Range(start, count int64) Producer[int64] {
	return producerFunc[int64](func(c Consumer[int64]) {
		if count <= 0 {
			c.OnSubscribe(terminalToken{})
			c.OnComplete()
			return
		}
		c.OnSubscribe(&rangeSubscription{
			consumer: c,
			next:     start,
			end:      start + count,
		})
	})
}

// rangeSubscription delivers a range against demand. Emission runs in a
// drain loop guarded by a work-in-progress counter, so reentrant Request
// calls issued from inside OnItem accumulate demand instead of recursing.
type rangeSubscription struct {
	consumer  Consumer[int64]
	next, end int64

	requested atomic.Int64
	wip       atomic.Int64
	done      atomic.Bool
}

func (s *rangeSubscription) Request(n int64) {
	if n <= 0 {
		s.fail(errors.WrapMisuse(errors.ErrInvalidDemand, "Range", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	if addDemand(&s.requested, n) == Unbounded {
		return
	}
	s.drain()
}

func (s *rangeSubscription) Cancel() {
	s.done.Store(true)
}

func (s *rangeSubscription) fail(err error) {
	if s.done.Swap(true) {
		return
	}
	s.consumer.OnError(err)
}

func (s *rangeSubscription) drain() {
	if s.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		for {
			if s.done.Load() {
				return
			}
			if s.next == s.end {
				s.done.Store(true)
				s.consumer.OnComplete()
				return
			}
			if s.requested.Load() == 0 {
				break
			}
			item := s.next
			s.next++
			s.consumer.OnItem(item)
			subDemand(&s.requested, 1)
		}
		missed = s.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// FromSlice returns a producer emitting the elements of items in order. The
// slice is not copied; callers must not mutate it after subscribing.
func FromSlice[T any](items []T) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		if len(items) == 0 {
			c.OnSubscribe(terminalToken{})
			c.OnComplete()
			return
		}
		c.OnSubscribe(&sliceSubscription[T]{consumer: c, items: items})
	})
}

// Just returns a producer emitting the given items followed by completion.
func Just[T any](items ...T) Producer[T] {
	return FromSlice(items)
}

type sliceSubscription[T any] struct {
	consumer Consumer[T]
	items    []T
	index    int

	requested atomic.Int64
	wip       atomic.Int64
	done      atomic.Bool
}

func (s *sliceSubscription[T]) Request(n int64) {
	if n <= 0 {
		s.fail(errors.WrapMisuse(errors.ErrInvalidDemand, "FromSlice", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	if addDemand(&s.requested, n) == Unbounded {
		return
	}
	s.drain()
}

func (s *sliceSubscription[T]) Cancel() {
	s.done.Store(true)
}

func (s *sliceSubscription[T]) fail(err error) {
	if s.done.Swap(true) {
		return
	}
	s.consumer.OnError(err)
}

func (s *sliceSubscription[T]) drain() {
	if s.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		for {
			if s.done.Load() {
				return
			}
			if s.index == len(s.items) {
				s.done.Store(true)
				s.consumer.OnComplete()
				return
			}
			if s.requested.Load() == 0 {
				break
			}
			item := s.items[s.index]
			s.index++
			s.consumer.OnItem(item)
			subDemand(&s.requested, 1)
		}
		missed = s.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// Empty returns a producer that completes immediately without items.
func Empty[T any]() Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		c.OnSubscribe(terminalToken{})
		c.OnComplete()
	})
}

// Fail returns a producer that terminates immediately with err.
func Fail[T any](err error) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		c.OnSubscribe(terminalToken{})
		c.OnError(err)
	})
}

// Defer returns a producer that invokes factory for each subscription,
// subscribing the consumer to the producer it returns. Each subscriber
// observes a fresh sequence.
func Defer[T any](factory func() Producer[T]) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		p := factory()
		if p == nil {
			c.OnSubscribe(terminalToken{})
			c.OnError(errors.WrapCallback(errors.ErrNotSubscribed, "Defer", "Subscribe", "nil producer from factory"))
			return
		}
		p.Subscribe(c)
	})
}
