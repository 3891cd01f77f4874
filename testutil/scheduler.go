package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/c360/streamkit/flow"
)

// ManualScheduler is a flow.Scheduler running on virtual time. Scheduled
// tasks fire only when the test advances the clock, making timer-driven
// operators deterministic.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	next  int
	tasks []*manualTask
}

type manualTask struct {
	id       int
	deadline time.Duration
	run      func()
	disposed bool
}

// NewManualScheduler creates a scheduler at virtual time zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule registers task to fire once the virtual clock has advanced by
// delay from the current virtual time.
func (m *ManualScheduler) Schedule(delay time.Duration, task func()) flow.CancelHandle {
	m.mu.Lock()
	t := &manualTask{
		id:       m.next,
		deadline: m.now + delay,
		run:      task,
	}
	m.next++
	m.tasks = append(m.tasks, t)
	m.mu.Unlock()

	return flow.NewCancelHandle(func() {
		m.mu.Lock()
		t.disposed = true
		m.mu.Unlock()
	})
}

// Advance moves the virtual clock forward by d, firing every due task in
// deadline order. Tasks scheduled by a firing task are themselves fired if
// their deadline falls within the advanced window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		task := m.popDue(target)
		if task == nil {
			break
		}
		task.run()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

// popDue removes and returns the earliest undisposed task due at or before
// target, advancing the clock to its deadline, or nil when none remain.
func (m *ManualScheduler) popDue(target time.Duration) *manualTask {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.tasks, func(i, j int) bool {
		if m.tasks[i].deadline != m.tasks[j].deadline {
			return m.tasks[i].deadline < m.tasks[j].deadline
		}
		return m.tasks[i].id < m.tasks[j].id
	})

	for i, t := range m.tasks {
		if t.disposed {
			continue
		}
		if t.deadline > target {
			break
		}
		m.tasks = append(m.tasks[:i:i], m.tasks[i+1:]...)
		if t.deadline > m.now {
			m.now = t.deadline
		}
		return t
	}
	return nil
}

// Pending reports the number of undisposed tasks waiting for the clock.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.disposed {
			n++
		}
	}
	return n
}

// Now returns the current virtual time.
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}
