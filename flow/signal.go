package flow

import "fmt"

// SignalKind identifies one of the three possible events in a subscription.
type SignalKind uint8

const (
	// KindItem carries one sequence item.
	KindItem SignalKind = iota
	// KindError carries the terminal error of a subscription.
	KindError
	// KindComplete marks normal termination of a subscription.
	KindComplete
)

// String returns a human-readable representation of the signal kind.
func (k SignalKind) String() string {
	switch k {
	case KindItem:
		return "Item"
	case KindError:
		return "Error"
	case KindComplete:
		return "Complete"
	default:
		return "Unknown"
	}
}

// Signal is the tagged variant flowing through a subscription: an item, a
// terminal error, or terminal completion. At most one terminal signal is
// ever delivered per subscription, and no item follows a terminal signal.
type Signal[T any] struct {
	Kind SignalKind
	Item T
	Err  error
}

// ItemSignal wraps a sequence item.
func ItemSignal[T any](item T) Signal[T] {
	return Signal[T]{Kind: KindItem, Item: item}
}

// ErrorSignal wraps a terminal error.
func ErrorSignal[T any](err error) Signal[T] {
	return Signal[T]{Kind: KindError, Err: err}
}

// CompleteSignal marks normal termination.
func CompleteSignal[T any]() Signal[T] {
	return Signal[T]{Kind: KindComplete}
}

// Terminal reports whether the signal terminates its subscription.
func (s Signal[T]) Terminal() bool {
	return s.Kind == KindError || s.Kind == KindComplete
}

// String returns a human-readable representation of the signal.
func (s Signal[T]) String() string {
	switch s.Kind {
	case KindItem:
		return fmt.Sprintf("Item(%v)", s.Item)
	case KindError:
		return fmt.Sprintf("Error(%v)", s.Err)
	default:
		return "Complete"
	}
}
