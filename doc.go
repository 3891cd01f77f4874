// Package streamkit provides a demand-driven asynchronous sequence protocol
// for Go: producers emit items only when a consumer has expressed demand,
// subscriptions support cooperative cancellation, and streams compose through
// chainable transformation operators.
//
// # Architecture
//
// The framework is organized around a small protocol core and a set of
// supporting packages:
//
//   - flow: the Producer/Consumer/FlowToken protocol, sources, operators,
//     the merge engine (concurrent and sequential flattening), overflow
//     strategies, and error-substitution operators
//   - errors: classified error handling for upstream, callback, overflow,
//     and protocol-misuse failures
//   - metric: Prometheus metrics registry shared by instrumented components
//   - config: YAML-based tuning configuration for pipeline defaults
//   - pkg/buffer: thread-safe ring buffers with configurable overflow policies
//   - pkg/backoff: exponential backoff delay computation for resubscription
//   - pkg/taskpool: bounded goroutine pool backing asynchronous delivery
//   - testutil: recording consumers and a virtual scheduler for tests
//
// # Backpressure Model
//
// Every subscription is mediated by a FlowToken that carries a saturating
// demand counter. A producer never delivers more items than its consumer has
// cumulatively requested, and signal delivery to a single consumer is always
// strictly sequential, even when items originate from multiple concurrent
// inner streams. Rate mismatch between decoupled producers and pulled chains
// is absorbed by explicit overflow strategies (buffer, drop, latest, error)
// rather than by hidden blocking.
//
// # Quick Start
//
//	done := make(chan struct{})
//	evens := flow.Filter(flow.Range(0, 100), func(v int64) bool { return v%2 == 0 })
//	flow.Subscribe(evens, flow.Callbacks[int64]{
//		OnItem:     func(v int64) { fmt.Println(v) },
//		OnComplete: func() { close(done) },
//	})
//	<-done
//
// Or collect synchronously:
//
//	items, err := flow.Collect(ctx, flow.Map(flow.Range(0, 10), double))
package streamkit
