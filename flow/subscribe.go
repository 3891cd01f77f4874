package flow

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/streamkit/errors"
)

// Callbacks bundles the lifecycle hooks of the convenience subscribe surface.
// Any subset may be set; omitted hooks default to no-ops, except that an
// omitted OnSubscribe requests Unbounded demand and an omitted OnError logs
// the terminal error rather than swallowing it.
type Callbacks[T any] struct {
	// OnSubscribe receives the FlowToken and may issue an initial request.
	// When nil, Unbounded demand is requested on the caller's behalf.
	OnSubscribe func(FlowToken)

	// OnItem receives each sequence item.
	OnItem func(T)

	// OnError receives the terminal error, if any.
	OnError func(error)

	// OnComplete observes normal termination.
	OnComplete func()

	// Finally runs exactly once, regardless of which terminal path was
	// taken: error, completion, or external disposal.
	Finally func()

	// Logger receives protocol-misuse reports and unhandled terminal errors.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// Subscribe attaches cb to p and returns a CancelHandle for the resulting
// subscription. The returned handle's Dispose is idempotent and propagates
// cancellation synchronously up the operator chain.
func Subscribe[T any](p Producer[T], cb Callbacks[T]) CancelHandle {
	s := newSafeConsumer(cb)
	p.Subscribe(s)
	return s
}

// safeConsumer enforces the protocol contract around user callbacks: at most
// one terminal signal, no delivery after disposal, the finally hook exactly
// once, and loud reporting of protocol misuse.
type safeConsumer[T any] struct {
	cb Callbacks[T]

	mu    sync.Mutex
	token FlowToken

	disposed   atomic.Bool
	terminated atomic.Bool
	finalized  atomic.Bool
}

func newSafeConsumer[T any](cb Callbacks[T]) *safeConsumer[T] {
	return &safeConsumer[T]{cb: cb}
}

func (s *safeConsumer[T]) OnSubscribe(token FlowToken) {
	s.mu.Lock()
	if s.token != nil {
		s.mu.Unlock()
		token.Cancel()
		s.report(errors.WrapMisuse(errors.ErrDoubleSubscription, "Subscribe", "OnSubscribe", "attach token"))
		return
	}
	s.token = token
	disposed := s.disposed.Load()
	s.mu.Unlock()

	if disposed {
		token.Cancel()
		return
	}

	if s.cb.OnSubscribe != nil {
		s.cb.OnSubscribe(token)
		return
	}
	token.Request(Unbounded)
}

func (s *safeConsumer[T]) OnItem(item T) {
	// Deliveries racing with disposal or arriving after a terminal signal
	// are discarded.
	if s.disposed.Load() || s.terminated.Load() {
		return
	}
	if s.cb.OnItem != nil {
		s.cb.OnItem(item)
	}
}

func (s *safeConsumer[T]) OnError(err error) {
	if s.terminated.Swap(true) {
		s.report(errors.WrapMisuse(errors.ErrSignalAfterTerminal, "Subscribe", "OnError", "deliver terminal"))
		return
	}
	if s.disposed.Load() {
		return
	}
	if s.cb.OnError != nil {
		s.cb.OnError(err)
	} else {
		s.logger().Error("unhandled subscription error", "error", err)
	}
	s.finalize()
}

func (s *safeConsumer[T]) OnComplete() {
	if s.terminated.Swap(true) {
		s.report(errors.WrapMisuse(errors.ErrSignalAfterTerminal, "Subscribe", "OnComplete", "deliver terminal"))
		return
	}
	if s.disposed.Load() {
		return
	}
	if s.cb.OnComplete != nil {
		s.cb.OnComplete()
	}
	s.finalize()
}

// Dispose cancels the subscription and runs the finally hook if no terminal
// signal has run it already.
func (s *safeConsumer[T]) Dispose() {
	if s.disposed.Swap(true) {
		return
	}
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	if token != nil {
		token.Cancel()
	}
	s.finalize()
}

func (s *safeConsumer[T]) IsDisposed() bool {
	return s.disposed.Load() || s.terminated.Load()
}

// finalize runs the finally hook exactly once across all terminal paths.
func (s *safeConsumer[T]) finalize() {
	if s.finalized.Swap(true) {
		return
	}
	if s.cb.Finally != nil {
		s.cb.Finally()
	}
}

func (s *safeConsumer[T]) logger() *slog.Logger {
	if s.cb.Logger != nil {
		return s.cb.Logger
	}
	return slog.Default()
}

// report surfaces protocol misuse immediately and loudly. Misuse is a
// programming error and is never silently swallowed.
func (s *safeConsumer[T]) report(err error) {
	s.logger().Error("protocol misuse", "error", err)
}
