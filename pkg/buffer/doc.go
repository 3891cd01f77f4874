// Package buffer provides thread-safe ring buffers with configurable overflow
// policies, built-in statistics, and optional Prometheus metrics integration.
//
// # Overview
//
// Buffers hold items awaiting downstream demand wherever producer-side
// emission is decoupled from consumer-side demand. The flow package's
// backpressure operators are built on them, but the buffers themselves are
// protocol-agnostic and reusable.
//
// # Quick Start
//
// Bounded buffer that fails on overflow:
//
//	buf, err := buffer.NewRing[int](256)
//	if err != nil {
//		return err
//	}
//	err = buf.Write(42)          // ErrBufferFull once 256 items are pending
//	value, ok := buf.Read()
//
// Keep-latest buffer (capacity 1, oldest evicted):
//
//	buf, _ := buffer.NewRing[int](1, buffer.WithPolicy[int](buffer.DropOldest))
//
// Unbounded buffer with metrics:
//
//	buf, err := buffer.NewUnbounded[[]byte](
//		buffer.WithMetrics[[]byte](registry, "ingest"),
//	)
//
// # Overflow Policies
//
// Bounded buffers support three behaviors at capacity:
//
//   - Reject: the write fails with a classified overflow error (default)
//   - DropOldest: the oldest pending item is evicted to make room
//   - DropNewest: the incoming item is discarded
//
// Unbounded buffers grow instead of overflowing; their memory use is bounded
// only by the skew between production and consumption.
//
// # Observability
//
// Statistics (writes, reads, overflows, drops, occupancy high-water mark) are
// always collected. WithMetrics additionally exports them through a
// metric.Registry. WithDropCallback reports every discarded item to the
// caller, which the flow package uses for drop logging and side-channel
// reporting.
package buffer
