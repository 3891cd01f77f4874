package buffer

// Queue is the generic interface satisfied by all buffer implementations.
// Buffers hold items awaiting downstream demand and are safe for concurrent
// use by one writer and one reader goroutine or any combination thereof.
type Queue[T any] interface {
	// Write adds an item to the buffer. Behavior when the buffer is full
	// depends on the configured overflow policy; Reject returns ErrBufferFull
	// wrapped as a classified overflow error.
	Write(item T) error

	// Read retrieves and removes one item from the buffer.
	// Returns the zero value and false if the buffer is empty.
	Read() (T, bool)

	// Peek retrieves one item without removing it.
	Peek() (T, bool)

	// Len returns the current number of buffered items.
	Len() int

	// Capacity returns the maximum number of items the buffer can hold,
	// or Unlimited for unbounded buffers.
	Capacity() int

	// Clear removes all buffered items.
	Clear()

	// Stats returns buffer statistics (always collected).
	Stats() *Statistics

	// Close marks the buffer closed; subsequent writes fail.
	Close() error
}

// Unlimited is the Capacity() value reported by unbounded buffers.
const Unlimited = -1

// Policy defines how a bounded buffer behaves when it reaches capacity.
type Policy int

const (
	// Reject fails the write with a classified overflow error. This backs
	// the bounded-buffer and error overflow strategies, where exceeding
	// capacity must terminate the subscription rather than lose data silently.
	Reject Policy = iota

	// DropOldest removes the oldest item to make room for the new one.
	// With capacity 1 this implements keep-latest semantics.
	DropOldest

	// DropNewest discards the incoming item when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the policy.
func (p Policy) String() string {
	switch p {
	case Reject:
		return "Reject"
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is called with each item discarded by a drop policy or Clear.
type DropCallback[T any] func(item T)

// NewRing creates a bounded ring buffer with the given capacity and options.
// Statistics are always collected; Prometheus metrics are optional via
// WithMetrics.
func NewRing[T any](capacity int, options ...Option[T]) (Queue[T], error) {
	opts := applyOptions(options...)
	return newRing[T](capacity, false, opts)
}

// NewUnbounded creates a growable buffer that never overflows. Memory use is
// bounded only by the skew between production and consumption.
func NewUnbounded[T any](options ...Option[T]) (Queue[T], error) {
	opts := applyOptions(options...)
	return newRing[T](defaultInitialCapacity, true, opts)
}

const defaultInitialCapacity = 16
