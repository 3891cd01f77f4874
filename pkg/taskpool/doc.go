// Package taskpool provides a bounded goroutine pool with non-blocking
// submission, always-on statistics, and optional Prometheus metrics.
//
// # Overview
//
// A Pool runs a fixed number of workers draining a bounded task queue.
// Submit never blocks: a full queue rejects the task with a classified
// overflow error, so pools are safe to feed from latency-sensitive paths
// such as signal delivery in a subscription chain.
//
// # Quick Start
//
//	pool, err := taskpool.New(4, 1024)
//	if err != nil {
//		return err
//	}
//	if err := pool.Start(ctx); err != nil {
//		return err
//	}
//	defer pool.Stop(5 * time.Second)
//
//	if err := pool.Submit(func() { process(item) }); err != nil {
//		// queue full or pool stopped
//	}
//
// # Ordering
//
// A pool with a single worker executes tasks strictly in submission order.
// flow.ObserveOn relies on this to move a subscription's signal delivery
// onto pool goroutines without breaking the protocol's serialization
// guarantee. Pools with multiple workers make no ordering promise.
package taskpool
