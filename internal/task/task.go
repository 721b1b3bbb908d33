package task

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// TaskFunc task body. target names the object the task acts on (tile id, unit id) and is only used for logging.
type TaskFunc func(ctx context.Context, target string, metadata map[string]any) error

// Timer schedules delayed callbacks. The returned *Task is the cancellation token.
type Timer interface {
	ScheduleAfter(delay time.Duration, target string, fn TaskFunc) (*Task, error)
}

// canceller is implemented by whatever currently holds the task (wheel or manual clock).
type canceller interface {
	remove(t *Task) bool
}

// Task a delayed unit of work
type Task struct {
	ID        string         `json:"id"`
	Target    string         `json:"target"`
	Delay     time.Duration  `json:"delay"`
	Fn        TaskFunc       `json:"-"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt time.Time      `json:"createdAt"`

	rounds    int   // full wheel revolutions left before firing
	slot      int   // slot index inside the wheel
	deadline  int64 // manual clock deadline in nanoseconds
	seq       uint64
	cancelled atomic.Bool
	owner     canceller
}

// NewTask creates a task; an empty id gets a random one.
func NewTask(id, target string, delay time.Duration, fn TaskFunc) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	return &Task{
		ID:        id,
		Target:    target,
		Delay:     delay,
		Fn:        fn,
		Metadata:  make(map[string]any),
		CreatedAt: time.Now(),
	}
}

// WithMetadata attaches a metadata entry
func (t *Task) WithMetadata(key string, value any) *Task {
	t.Metadata[key] = value
	return t
}

// Cancel prevents the task from running. It returns false if the task was already cancelled.
// A task already handed to a worker is skipped before Fn runs.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	if !t.cancelled.CompareAndSwap(false, true) {
		return false
	}
	if t.owner != nil {
		t.owner.remove(t)
	}
	return true
}

// Cancelled reports whether Cancel has been called.
func (t *Task) Cancelled() bool {
	return t.cancelled.Load()
}

// Execute runs the task body unless it was cancelled.
func (t *Task) Execute(ctx context.Context) error {
	if t.Fn == nil || t.cancelled.Load() {
		return nil
	}
	return t.Fn(ctx, t.Target, t.Metadata)
}
