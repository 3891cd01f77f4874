package flow

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// ConcatMap transforms each outer item into an inner producer and flattens
// strictly one inner subscription at a time: the next outer item is not
// requested, and the next inner producer is not subscribed, until the
// current inner delivers completion. Downstream item order exactly mirrors
// outer-then-inner emission order, at the cost of serialized latency. An
// error from the active inner or from the outer producer is immediately
// terminal.
//
// Even in sequential mode the outer and the active inner are two independent
// signal sources, so all downstream delivery funnels through a drain claim
// the same way the concurrent merge engine serializes it.
func ConcatMap[T, R any](p Producer[T], transform func(T) Producer[R]) Producer[R] {
	return producerFunc[R](func(c Consumer[R]) {
		p.Subscribe(&concatCoordinator[T, R]{
			downstream: c,
			transform:  transform,
		})
	})
}

// concatCoordinator is the outer consumer and the downstream token of one
// ConcatMap subscription. Outstanding downstream demand is carried across
// inner boundaries by a demand arbiter: each freshly subscribed inner
// receives the demand its predecessors left unmet. The arbiter gates
// upstream demand one-for-one, so every queued item is already covered by
// downstream demand and the drain loop delivers unconditionally.
type concatCoordinator[T, R any] struct {
	downstream Consumer[R]
	transform  func(T) Producer[R]
	arbiter    demandArbiter
	outer      FlowToken

	mu          sync.Mutex
	queue       []R
	innerActive bool
	outerDone   bool
	termErr     error

	wip        atomic.Int64
	terminated atomic.Bool
}

func (cc *concatCoordinator[T, R]) OnSubscribe(token FlowToken) {
	cc.outer = token
	cc.downstream.OnSubscribe(cc)
	// One outer item at a time; the next is requested on inner completion.
	token.Request(1)
}

func (cc *concatCoordinator[T, R]) OnItem(item T) {
	if cc.terminated.Load() {
		return
	}
	inner, err := cc.applyTransform(item)
	if err != nil {
		cc.fail(err)
		return
	}

	cc.mu.Lock()
	cc.innerActive = true
	cc.mu.Unlock()

	inner.Subscribe(&concatInner[T, R]{coord: cc})
}

func (cc *concatCoordinator[T, R]) applyTransform(item T) (p Producer[R], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "ConcatMap", "OnItem")
		}
	}()
	p = cc.transform(item)
	if p == nil {
		err = errors.WrapCallback(errors.ErrNotSubscribed, "ConcatMap", "OnItem", "nil inner producer")
	}
	return p, err
}

func (cc *concatCoordinator[T, R]) OnError(err error) {
	cc.fail(err)
}

func (cc *concatCoordinator[T, R]) OnComplete() {
	cc.mu.Lock()
	cc.outerDone = true
	cc.mu.Unlock()
	cc.drain()
}

// Request implements the downstream FlowToken.
func (cc *concatCoordinator[T, R]) Request(n int64) {
	if n <= 0 {
		cc.fail(errors.WrapMisuse(errors.ErrInvalidDemand, "ConcatMap", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	cc.arbiter.request(n)
}

// Cancel implements the downstream FlowToken.
func (cc *concatCoordinator[T, R]) Cancel() {
	if cc.terminated.Swap(true) {
		return
	}
	cc.arbiter.cancel()
	cc.outer.Cancel()
}

// fail cancels both signal sources and hands the error to the drain loop so
// it is never delivered concurrently with an in-flight item.
func (cc *concatCoordinator[T, R]) fail(err error) {
	cc.mu.Lock()
	first := cc.termErr == nil
	if first {
		cc.termErr = err
	}
	cc.mu.Unlock()
	if !first {
		return
	}
	cc.arbiter.cancel()
	cc.outer.Cancel()
	cc.drain()
}

func (cc *concatCoordinator[T, R]) enqueue(item R) {
	if cc.terminated.Load() {
		return
	}
	cc.mu.Lock()
	cc.queue = append(cc.queue, item)
	cc.mu.Unlock()
	cc.drain()
}

// innerComplete switches to the next outer item or, if the outer producer
// already completed, lets the drain loop terminate the chain once the queue
// is flushed.
func (cc *concatCoordinator[T, R]) innerComplete() {
	cc.arbiter.clearToken()

	cc.mu.Lock()
	cc.innerActive = false
	outerDone := cc.outerDone
	cc.mu.Unlock()

	if outerDone {
		cc.drain()
		return
	}
	if !cc.terminated.Load() {
		cc.outer.Request(1)
	}
}

// drain delivers queued items one at a time under an atomically claimed
// delivery right shared with the terminal paths.
func (cc *concatCoordinator[T, R]) drain() {
	if cc.wip.Add(1) != 1 {
		return
	}
	missed := int64(1)
	for {
		for {
			if cc.terminated.Load() {
				return
			}

			cc.mu.Lock()
			err := cc.termErr
			if err != nil {
				cc.queue = nil
				cc.mu.Unlock()
				if !cc.terminated.Swap(true) {
					cc.downstream.OnError(err)
				}
				return
			}
			if len(cc.queue) == 0 {
				cc.mu.Unlock()
				break
			}
			item := cc.queue[0]
			cc.queue = cc.queue[1:]
			cc.mu.Unlock()

			cc.downstream.OnItem(item)
		}

		cc.mu.Lock()
		finished := cc.outerDone && !cc.innerActive && len(cc.queue) == 0 && cc.termErr == nil
		cc.mu.Unlock()
		if finished {
			if !cc.terminated.Swap(true) {
				cc.downstream.OnComplete()
			}
			return
		}

		missed = cc.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// concatInner is the consumer of the single active inner subscription.
type concatInner[T, R any] struct {
	coord *concatCoordinator[T, R]
}

func (ci *concatInner[T, R]) OnSubscribe(token FlowToken) {
	ci.coord.arbiter.setToken(token)
}

func (ci *concatInner[T, R]) OnItem(item R) {
	// The item was covered by arbiter-gated demand; account for it against
	// the current token before queuing it for serialized delivery.
	ci.coord.arbiter.produced()
	ci.coord.enqueue(item)
}

func (ci *concatInner[T, R]) OnError(err error) {
	ci.coord.fail(err)
}

func (ci *concatInner[T, R]) OnComplete() {
	ci.coord.innerComplete()
}
