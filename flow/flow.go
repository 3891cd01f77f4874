package flow

import "math"

// Unbounded is the sentinel demand value at which a FlowToken's demand
// counter saturates. Requesting Unbounded disables backpressure accounting
// for the subscription.
const Unbounded = int64(math.MaxInt64)

// Producer is a source of a bounded or unbounded sequence of items. A
// producer delivers items only against demand expressed through the
// FlowToken it hands to its consumer, and delivers at most one terminal
// signal (error or completion) per subscription.
//
// Subscribe may be called multiple times; each call establishes an
// independent subscription.
type Producer[T any] interface {
	Subscribe(Consumer[T])
}

// Consumer receives the signals of one subscription. OnSubscribe is invoked
// exactly once, before any other signal; OnItem zero or more times, never
// exceeding cumulative requested demand; then at most one of OnError or
// OnComplete. Signal delivery to a consumer is strictly sequential.
type Consumer[T any] interface {
	OnSubscribe(FlowToken)
	OnItem(T)
	OnError(error)
	OnComplete()
}

// FlowToken mediates demand and cancellation between exactly one
// producer/consumer pair.
type FlowToken interface {
	// Request authorizes the producer to deliver up to n additional items.
	// Demand accumulates and saturates at Unbounded. Requesting n <= 0 is a
	// protocol error, signaled to the consumer as an immediate error signal.
	Request(n int64)

	// Cancel terminates the subscription. Cancel is idempotent; once
	// observed, it suppresses all further signal delivery. Deliveries racing
	// with cancellation are discarded, not delivered.
	Cancel()
}

// CancelHandle is the externally held capability to terminate an active
// subscription, returned by the convenience subscribe surface.
type CancelHandle interface {
	// Dispose cancels the subscription. Dispose is idempotent and propagates
	// cancellation synchronously through every hop of the operator chain.
	Dispose()

	// IsDisposed reports whether the subscription has been disposed or has
	// reached a terminal signal.
	IsDisposed() bool
}

// producerFunc adapts a subscribe function to the Producer interface.
type producerFunc[T any] func(Consumer[T])

func (f producerFunc[T]) Subscribe(c Consumer[T]) { f(c) }

// terminalToken is handed to consumers of already-terminal producers
// (Empty, Fail) and to consumers whose subscription failed during setup.
// Demand and cancellation on a terminal subscription are no-ops.
type terminalToken struct{}

func (terminalToken) Request(int64) {}
func (terminalToken) Cancel()       {}
