package flow

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/streamkit/errors"
)

// Interval returns a producer emitting an increasing counter every period,
// driven by sched. Emission is decoupled from demand: a tick that finds no
// outstanding demand terminates the subscription with an overflow error.
// Compose with OnBackpressure to absorb rate mismatch instead.
func Interval(sched Scheduler, period time.Duration) Producer[int64] {
	return producerFunc[int64](func(c Consumer[int64]) {
		s := &intervalSubscription{
			consumer: c,
			sched:    sched,
			period:   period,
		}
		c.OnSubscribe(s)
		s.scheduleNext()
	})
}

type intervalSubscription struct {
	consumer Consumer[int64]
	sched    Scheduler
	period   time.Duration
	count    int64

	requested atomic.Int64
	done      atomic.Bool

	mu    sync.Mutex
	timer CancelHandle
}

func (s *intervalSubscription) Request(n int64) {
	if n <= 0 {
		if !s.done.Swap(true) {
			s.stopTimer()
			s.consumer.OnError(errors.WrapMisuse(errors.ErrInvalidDemand, "Interval", "Request",
				fmt.Sprintf("request of %d", n)))
		}
		return
	}
	addDemand(&s.requested, n)
}

func (s *intervalSubscription) Cancel() {
	if s.done.Swap(true) {
		return
	}
	s.stopTimer()
}

func (s *intervalSubscription) scheduleNext() {
	if s.done.Load() {
		return
	}
	timer := s.sched.Schedule(s.period, s.tick)
	s.mu.Lock()
	s.timer = timer
	done := s.done.Load()
	s.mu.Unlock()
	// Cancel raced with scheduling; stop the fresh timer too.
	if done {
		timer.Dispose()
	}
}

func (s *intervalSubscription) tick() {
	if s.done.Load() {
		return
	}
	if s.requested.Load() == 0 {
		s.done.Store(true)
		s.consumer.OnError(errors.WrapOverflow(errors.ErrMissingBackfill, "Interval", "tick",
			fmt.Sprintf("tick %d arrived with no outstanding demand", s.count)))
		return
	}
	item := s.count
	s.count++
	subDemand(&s.requested, 1)
	s.consumer.OnItem(item)
	s.scheduleNext()
}

func (s *intervalSubscription) stopTimer() {
	s.mu.Lock()
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()
	if timer != nil {
		timer.Dispose()
	}
}
