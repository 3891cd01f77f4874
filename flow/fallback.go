package flow

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360/streamkit/errors"
)

// OnErrorReturn returns a producer that substitutes a terminal error with a
// single fallback item followed by completion. The fallback item is subject
// to downstream demand like any other item: if no demand is outstanding when
// the error arrives, the item is held until the next request. A panic in the
// fallback function is itself terminal.
func OnErrorReturn[T any](p Producer[T], fallback func(error) T) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		p.Subscribe(&errorReturnConsumer[T]{downstream: c, fallback: fallback})
	})
}

// errorReturnConsumer is the upstream consumer and the downstream token of
// one OnErrorReturn subscription. It shadows the upstream token so it can
// account demand for the substituted fallback item.
type errorReturnConsumer[T any] struct {
	downstream Consumer[T]
	fallback   func(error) T

	mu         sync.Mutex
	upstream   FlowToken
	requested  int64
	pending    *T
	terminated bool
}

func (e *errorReturnConsumer[T]) OnSubscribe(token FlowToken) {
	e.mu.Lock()
	e.upstream = token
	e.mu.Unlock()
	e.downstream.OnSubscribe(e)
}

func (e *errorReturnConsumer[T]) OnItem(item T) {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return
	}
	if e.requested != Unbounded && e.requested > 0 {
		e.requested--
	}
	e.mu.Unlock()
	e.downstream.OnItem(item)
}

func (e *errorReturnConsumer[T]) OnError(err error) {
	item, fbErr := e.applyFallback(err)
	if fbErr != nil {
		e.terminate()
		e.downstream.OnError(fbErr)
		return
	}

	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return
	}
	if e.requested == 0 {
		// No outstanding demand; hold the fallback item for the next request.
		e.pending = &item
		e.mu.Unlock()
		return
	}
	e.terminated = true
	e.mu.Unlock()

	e.downstream.OnItem(item)
	e.downstream.OnComplete()
}

func (e *errorReturnConsumer[T]) applyFallback(cause error) (item T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "OnErrorReturn", "OnError")
		}
	}()
	return e.fallback(cause), nil
}

func (e *errorReturnConsumer[T]) OnComplete() {
	if e.terminate() {
		return
	}
	e.downstream.OnComplete()
}

// Request implements the downstream FlowToken.
func (e *errorReturnConsumer[T]) Request(n int64) {
	if n <= 0 {
		upstream := e.currentUpstream()
		if !e.terminate() {
			if upstream != nil {
				upstream.Cancel()
			}
			e.downstream.OnError(errors.WrapMisuse(errors.ErrInvalidDemand, "OnErrorReturn", "Request",
				fmt.Sprintf("request of %d", n)))
		}
		return
	}

	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return
	}
	if e.pending != nil {
		item := *e.pending
		e.pending = nil
		e.terminated = true
		e.mu.Unlock()
		e.downstream.OnItem(item)
		e.downstream.OnComplete()
		return
	}
	e.requested = satAdd(e.requested, n)
	upstream := e.upstream
	e.mu.Unlock()

	upstream.Request(n)
}

// Cancel implements the downstream FlowToken.
func (e *errorReturnConsumer[T]) Cancel() {
	upstream := e.currentUpstream()
	if e.terminate() {
		return
	}
	if upstream != nil {
		upstream.Cancel()
	}
}

func (e *errorReturnConsumer[T]) currentUpstream() FlowToken {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.upstream
}

// terminate marks the subscription terminal, reporting whether it already was.
func (e *errorReturnConsumer[T]) terminate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	was := e.terminated
	e.terminated = true
	e.pending = nil
	return was
}

// OnErrorResume returns a producer that substitutes a terminal error with a
// fallback producer chosen from the error. Outstanding downstream demand
// carries over to the fallback subscription. An error from the fallback
// itself is terminal; there is no second substitution.
func OnErrorResume[T any](p Producer[T], resume func(error) Producer[T]) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		p.Subscribe(&errorResumeCoordinator[T]{downstream: c, resume: resume})
	})
}

// errorResumeCoordinator is the primary consumer and the downstream token of
// one OnErrorResume subscription.
type errorResumeCoordinator[T any] struct {
	downstream Consumer[T]
	resume     func(error) Producer[T]
	arbiter    demandArbiter

	mu         sync.Mutex
	terminated bool
}

func (ec *errorResumeCoordinator[T]) OnSubscribe(token FlowToken) {
	ec.arbiter.setToken(token)
	ec.downstream.OnSubscribe(ec)
}

func (ec *errorResumeCoordinator[T]) OnItem(item T) {
	if ec.isTerminated() {
		return
	}
	ec.downstream.OnItem(item)
	ec.arbiter.produced()
}

func (ec *errorResumeCoordinator[T]) OnError(err error) {
	if ec.isTerminated() {
		return
	}
	ec.arbiter.clearToken()

	fallback, fbErr := ec.applyResume(err)
	if fbErr != nil {
		ec.fail(fbErr)
		return
	}
	fallback.Subscribe(&resumeFallbackConsumer[T]{coord: ec})
}

func (ec *errorResumeCoordinator[T]) applyResume(cause error) (p Producer[T], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "OnErrorResume", "OnError")
		}
	}()
	p = ec.resume(cause)
	if p == nil {
		err = errors.WrapCallback(errors.ErrNotSubscribed, "OnErrorResume", "OnError", "nil fallback producer")
	}
	return p, err
}

func (ec *errorResumeCoordinator[T]) OnComplete() {
	if ec.markTerminated() {
		return
	}
	ec.downstream.OnComplete()
}

// Request implements the downstream FlowToken.
func (ec *errorResumeCoordinator[T]) Request(n int64) {
	if n <= 0 {
		ec.fail(errors.WrapMisuse(errors.ErrInvalidDemand, "OnErrorResume", "Request",
			fmt.Sprintf("request of %d", n)))
		return
	}
	ec.arbiter.request(n)
}

// Cancel implements the downstream FlowToken.
func (ec *errorResumeCoordinator[T]) Cancel() {
	if ec.markTerminated() {
		return
	}
	ec.arbiter.cancel()
}

func (ec *errorResumeCoordinator[T]) fail(err error) {
	if ec.markTerminated() {
		return
	}
	ec.arbiter.cancel()
	ec.downstream.OnError(err)
}

func (ec *errorResumeCoordinator[T]) isTerminated() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	return ec.terminated
}

func (ec *errorResumeCoordinator[T]) markTerminated() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	was := ec.terminated
	ec.terminated = true
	return was
}

// resumeFallbackConsumer feeds the fallback subscription into the coordinator
// without re-announcing a subscription downstream.
type resumeFallbackConsumer[T any] struct {
	coord *errorResumeCoordinator[T]
}

func (rf *resumeFallbackConsumer[T]) OnSubscribe(token FlowToken) {
	rf.coord.arbiter.setToken(token)
}

func (rf *resumeFallbackConsumer[T]) OnItem(item T) {
	rf.coord.OnItem(item)
}

func (rf *resumeFallbackConsumer[T]) OnError(err error) {
	// A fallback error is terminal; substitution happens at most once.
	if rf.coord.markTerminated() {
		return
	}
	rf.coord.downstream.OnError(err)
}

func (rf *resumeFallbackConsumer[T]) OnComplete() {
	rf.coord.OnComplete()
}

// MapError returns a producer rewriting a terminal error through transform
// before it reaches downstream. Items and completion pass through untouched,
// as does demand. A nil transform result or a transform panic preserves the
// original error.
func MapError[T any](p Producer[T], transform func(error) error) Producer[T] {
	return producerFunc[T](func(c Consumer[T]) {
		p.Subscribe(&mapErrorConsumer[T]{downstream: c, transform: transform})
	})
}

type mapErrorConsumer[T any] struct {
	downstream Consumer[T]
	transform  func(error) error
}

func (m *mapErrorConsumer[T]) OnSubscribe(token FlowToken) {
	m.downstream.OnSubscribe(token)
}

func (m *mapErrorConsumer[T]) OnItem(item T) {
	m.downstream.OnItem(item)
}

func (m *mapErrorConsumer[T]) OnError(err error) {
	m.downstream.OnError(m.apply(err))
}

func (m *mapErrorConsumer[T]) apply(cause error) (out error) {
	out = cause
	defer func() {
		if r := recover(); r != nil {
			out = cause
		}
	}()
	if mapped := m.transform(cause); mapped != nil {
		out = mapped
	}
	return out
}

func (m *mapErrorConsumer[T]) OnComplete() {
	m.downstream.OnComplete()
}

// MapOrSkip returns a producer applying transform to each upstream item and
// silently skipping items the transform rejects with an error. Each rejected
// item is reported and its unit of demand renewed upstream, the same
// discipline Filter applies. A transform panic, unlike a returned error, is
// terminal. A nil report falls back to warn-level logging on the default
// logger.
func MapOrSkip[T, R any](p Producer[T], transform func(T) (R, error), report func(T, error)) Producer[R] {
	if report == nil {
		report = func(_ T, err error) {
			slog.Default().Warn("item skipped by transform", "error", err)
		}
	}
	return producerFunc[R](func(c Consumer[R]) {
		p.Subscribe(&mapOrSkipConsumer[T, R]{downstream: c, transform: transform, report: report})
	})
}

type mapOrSkipConsumer[T, R any] struct {
	downstream Consumer[R]
	transform  func(T) (R, error)
	report     func(T, error)
	token      FlowToken
	done       bool
}

func (m *mapOrSkipConsumer[T, R]) OnSubscribe(token FlowToken) {
	m.token = token
	m.downstream.OnSubscribe(token)
}

func (m *mapOrSkipConsumer[T, R]) OnItem(item T) {
	if m.done {
		return
	}
	out, panicked, err := m.apply(item)
	if panicked {
		m.done = true
		m.token.Cancel()
		m.downstream.OnError(err)
		return
	}
	if err != nil {
		m.report(item, err)
		// The skipped item consumed one unit of upstream demand; renew it.
		m.token.Request(1)
		return
	}
	m.downstream.OnItem(out)
}

func (m *mapOrSkipConsumer[T, R]) apply(item T) (out R, panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Recovered(r, "MapOrSkip", "OnItem")
			panicked = true
		}
	}()
	out, err = m.transform(item)
	return out, false, err
}

func (m *mapOrSkipConsumer[T, R]) OnError(err error) {
	if m.done {
		return
	}
	m.done = true
	m.downstream.OnError(err)
}

func (m *mapOrSkipConsumer[T, R]) OnComplete() {
	if m.done {
		return
	}
	m.done = true
	m.downstream.OnComplete()
}
