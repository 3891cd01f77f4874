package flow

import "sync/atomic"

// satAdd adds n to a demand value, saturating at Unbounded instead of
// overflowing.
func satAdd(current, n int64) int64 {
	if current == Unbounded {
		return Unbounded
	}
	next := current + n
	if next < current {
		return Unbounded
	}
	return next
}

// addDemand atomically adds n to a saturating demand counter and returns the
// demand value before the add.
func addDemand(counter *atomic.Int64, n int64) int64 {
	for {
		current := counter.Load()
		if current == Unbounded {
			return current
		}
		if counter.CompareAndSwap(current, satAdd(current, n)) {
			return current
		}
	}
}

// subDemand atomically subtracts n delivered items from a demand counter.
// Unbounded demand is never decremented; the floor is zero. Returns the
// demand remaining after the subtraction.
func subDemand(counter *atomic.Int64, n int64) int64 {
	for {
		current := counter.Load()
		if current == Unbounded {
			return current
		}
		next := current - n
		if next < 0 {
			next = 0
		}
		if counter.CompareAndSwap(current, next) {
			return next
		}
	}
}
