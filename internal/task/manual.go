package task

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a Timer driven by Advance instead of a ticker. Tasks run on the goroutine
// calling Advance, in deadline order, FIFO among equal deadlines.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Duration
	seq     uint64
	pending map[string]*Task
}

// NewManualScheduler creates a manual clock at t=0
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[string]*Task)}
}

// ScheduleAfter implements Timer
func (m *ManualScheduler) ScheduleAfter(delay time.Duration, target string, fn TaskFunc) (*Task, error) {
	if delay < 0 {
		delay = 0
	}
	t := NewTask("", target, delay, fn)

	m.mu.Lock()
	m.seq++
	t.seq = m.seq
	t.deadline = int64(m.now + delay)
	t.owner = m
	m.pending[t.ID] = t
	m.mu.Unlock()

	return t, nil
}

func (m *ManualScheduler) remove(t *Task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending[t.ID]; !ok {
		return false
	}
	delete(m.pending, t.ID)
	return true
}

// Advance moves the clock forward by d and runs everything that falls due, including
// tasks scheduled by those tasks within the window.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		next := m.popNext(target)
		if next == nil {
			break
		}
		_ = next.Execute(context.Background())
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
}

func (m *ManualScheduler) popNext(limit time.Duration) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*Task
	for _, t := range m.pending {
		if t.deadline <= int64(limit) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})

	next := due[0]
	delete(m.pending, next.ID)
	if time.Duration(next.deadline) > m.now {
		m.now = time.Duration(next.deadline)
	}
	return next
}

// Now returns the manual clock position
func (m *ManualScheduler) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.now
}

// Pending returns the number of scheduled, not yet run tasks
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pending)
}
