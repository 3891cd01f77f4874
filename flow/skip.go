package flow

import "sync/atomic"

// Skip returns a producer discarding the first n upstream items and
// forwarding the rest. Each skipped item consumes one unit of upstream
// demand, so the operator renews it with one additional upstream request,
// the same discipline Filter applies to rejected items.
func Skip[T any](p Producer[T], n int64) Producer[T] {
	if n <= 0 {
		return p
	}
	return producerFunc[T](func(c Consumer[T]) {
		sc := &skipConsumer[T]{downstream: c}
		sc.remaining.Store(n)
		p.Subscribe(sc)
	})
}

type skipConsumer[T any] struct {
	downstream Consumer[T]
	token      FlowToken
	remaining  atomic.Int64
}

func (s *skipConsumer[T]) OnSubscribe(token FlowToken) {
	s.token = token
	s.downstream.OnSubscribe(token)
}

func (s *skipConsumer[T]) OnItem(item T) {
	if s.remaining.Load() > 0 {
		s.remaining.Add(-1)
		s.token.Request(1)
		return
	}
	s.downstream.OnItem(item)
}

func (s *skipConsumer[T]) OnError(err error) {
	s.downstream.OnError(err)
}

func (s *skipConsumer[T]) OnComplete() {
	s.downstream.OnComplete()
}
