// Package flow implements a demand-driven asynchronous sequence protocol:
// producers deliver items only against demand their consumers have expressed,
// so a slow consumer throttles a fast producer instead of being buried by it.
//
// # Protocol
//
// Four small interfaces carry the protocol. A Producer is subscribed with a
// Consumer; the producer hands the consumer a FlowToken through OnSubscribe;
// the consumer requests demand through the token and the producer answers
// with at most that many OnItem calls followed by at most one terminal
// signal, OnError or OnComplete. A CancelHandle is the externally held
// capability to tear the subscription down.
//
// The contract every operator in this package upholds:
//
//   - OnSubscribe exactly once, before any other signal
//   - items never exceed cumulative requested demand
//   - at most one terminal signal, and nothing after it
//   - signal delivery to a consumer is strictly sequential
//   - cancellation is idempotent and suppresses further delivery
//   - a panic in a user callback becomes a terminal error signal, never a
//     language-level fault escaping the chain
//
// Demand accumulates in a saturating counter: requesting Unbounded (or
// overflowing the counter) disables backpressure accounting for the
// subscription.
//
// # Quick Start
//
//	squares := flow.Map(flow.Range(1, 10), func(v int64) (int64, error) {
//		return v * v, nil
//	})
//	even := flow.Filter(squares, func(v int64) bool { return v%2 == 0 })
//
//	handle := flow.Subscribe(even, flow.Callbacks[int64]{
//		OnItem:  func(v int64) { fmt.Println(v) },
//		OnError: func(err error) { log.Println(err) },
//	})
//	defer handle.Dispose()
//
// # Operators
//
// Sources: Range, Just, FromSlice, Empty, Fail, Defer, Interval, and
// PushProducer for bridging externally driven emission.
//
// Linear operators preserve the upstream demand discipline: Map and Filter
// (Filter renews the demand a rejected item consumed), Take, Skip, Throttle,
// MapOrSkip, Materialize.
//
// Flattening: FlatMap subscribes inner producers concurrently and interleaves
// their items; ConcatMap runs one inner at a time and preserves order.
//
// Backpressure reconciliation: OnBackpressure decouples an eager upstream
// from a slower downstream with a buffering, dropping, keep-latest, or
// fail-fast strategy.
//
// Error substitution and recovery: OnErrorReturn, OnErrorResume, MapError,
// Retry.
//
// Blocking bridges for tests and batch callers: Collect and First.
//
// # Scheduling
//
// Timed operators (Interval, Retry) take a Scheduler so tests can substitute
// virtual time. TimerScheduler is the production default.
package flow
