package flow

import "sync/atomic"

// funcHandle is a CancelHandle running a cleanup function exactly once.
type funcHandle struct {
	disposed atomic.Bool
	onClose  func()
}

// NewCancelHandle wraps a cleanup function in a CancelHandle. The function
// runs at most once, on the first Dispose call. Schedulers and timer-driven
// producers use this to expose cancelable deferred work.
func NewCancelHandle(onClose func()) CancelHandle {
	return &funcHandle{onClose: onClose}
}

func (h *funcHandle) Dispose() {
	if h.disposed.Swap(true) {
		return
	}
	if h.onClose != nil {
		h.onClose()
	}
}

func (h *funcHandle) IsDisposed() bool {
	return h.disposed.Load()
}
