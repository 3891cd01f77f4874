package flow

import "time"

// Scheduler supplies execution contexts for timed work. Timer-driven
// producers (Interval) and deferred resubscription (Retry) consume a
// Scheduler; the protocol core deliberately implements no thread pool of its
// own. Schedulers are injected at construction, never looked up from ambient
// state.
type Scheduler interface {
	// Schedule runs task once after delay. The returned handle cancels the
	// pending task; disposing after the task has run is a no-op.
	Schedule(delay time.Duration, task func()) CancelHandle
}

// TimerScheduler is a thin adapter over the runtime timer. It is the default
// Scheduler for production use; tests typically substitute a virtual
// scheduler.
type TimerScheduler struct{}

// Schedule runs task on a runtime timer goroutine after delay.
func (TimerScheduler) Schedule(delay time.Duration, task func()) CancelHandle {
	timer := time.AfterFunc(delay, task)
	return NewCancelHandle(func() { timer.Stop() })
}
