package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func noop(ctx context.Context, target string, metadata map[string]any) error { return nil }

// TestNewTask task construction
func TestNewTask(t *testing.T) {
	task := NewTask("task-1", "tile-3", 50*time.Millisecond, noop)

	if task.ID != "task-1" {
		t.Errorf("expected ID = task-1, got %s", task.ID)
	}
	if task.Target != "tile-3" {
		t.Errorf("expected Target = tile-3, got %s", task.Target)
	}
	if task.Delay != 50*time.Millisecond {
		t.Errorf("expected Delay = 50ms, got %v", task.Delay)
	}

	anon := NewTask("", "tile-3", 0, noop)
	if anon.ID == "" {
		t.Error("expected a generated id")
	}
}

// TestSlotAddAndRemove slot bookkeeping
func TestSlotAddAndRemove(t *testing.T) {
	slot := NewSlot()

	slot.AddTask(NewTask("task-1", "a", 0, nil))
	slot.AddTask(NewTask("task-2", "b", 0, nil))

	if slot.Count() != 2 {
		t.Errorf("expected count = 2, got %d", slot.Count())
	}
	if !slot.RemoveTask("task-1") {
		t.Error("expected removal to succeed")
	}
	if slot.Count() != 1 {
		t.Errorf("expected count = 1, got %d", slot.Count())
	}
	if slot.RemoveTask("missing") {
		t.Error("expected removal of unknown id to fail")
	}
}

// TestSlotExpireRounds tasks with rounds left stay in the slot
func TestSlotExpireRounds(t *testing.T) {
	slot := NewSlot()

	now := NewTask("now", "a", 0, nil)
	later := NewTask("later", "b", 0, nil)
	later.rounds = 1
	slot.AddTask(now)
	slot.AddTask(later)

	due := slot.Expire()
	if len(due) != 1 || due[0].ID != "now" {
		t.Fatalf("expected only 'now' to expire, got %d tasks", len(due))
	}
	if slot.Count() != 1 {
		t.Errorf("expected 'later' to remain, count = %d", slot.Count())
	}

	due = slot.Expire()
	if len(due) != 1 || due[0].ID != "later" {
		t.Errorf("expected 'later' on the second pass")
	}
}

// TestTimeWheelPlacement slot and rounds computation
func TestTimeWheelPlacement(t *testing.T) {
	tw := NewTimeWheel(10*time.Millisecond, 8)

	tests := []struct {
		name   string
		delay  time.Duration
		slot   int
		rounds int
	}{
		{"zero delay fires next tick", 0, 1, 0},
		{"exact ticks", 30 * time.Millisecond, 3, 0},
		{"rounded up", 31 * time.Millisecond, 4, 0},
		{"full revolution", 80 * time.Millisecond, 0, 0},
		{"beyond one revolution", 90 * time.Millisecond, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := NewTask("", "x", tt.delay, nil)
			if err := tw.AddTask(task); err != nil {
				t.Fatalf("AddTask: %v", err)
			}
			if task.slot != tt.slot {
				t.Errorf("expected slot = %d, got %d", tt.slot, task.slot)
			}
			if task.rounds != tt.rounds {
				t.Errorf("expected rounds = %d, got %d", tt.rounds, task.rounds)
			}
			tw.RemoveTask(task.ID)
		})
	}
}

// TestTimeWheelTick a task fires after the right number of ticks
func TestTimeWheelTick(t *testing.T) {
	tw := NewTimeWheel(10*time.Millisecond, 4)

	task := NewTask("t", "x", 60*time.Millisecond, nil) // 6 ticks: slot 2, 1 round
	tw.AddTask(task)

	for i := 1; i <= 5; i++ {
		if due := tw.Tick(); len(due) != 0 {
			t.Fatalf("tick %d: task fired early", i)
		}
	}
	due := tw.Tick()
	if len(due) != 1 {
		t.Fatalf("expected task on tick 6, got %d", len(due))
	}
	if tw.GetTotalTaskCount() != 0 {
		t.Errorf("expected empty wheel, got %d", tw.GetTotalTaskCount())
	}
}

// TestTaskCancelRemovesFromWheel Cancel pulls the task out of its slot
func TestTaskCancelRemovesFromWheel(t *testing.T) {
	tw := NewTimeWheel(10*time.Millisecond, 8)

	task := NewTask("t", "x", 20*time.Millisecond, noop)
	tw.AddTask(task)

	if tw.GetSlotTaskCount(task.slot) != 1 {
		t.Fatal("expected task in its slot")
	}
	if !task.Cancel() {
		t.Fatal("expected first Cancel to succeed")
	}
	if task.Cancel() {
		t.Error("expected second Cancel to report false")
	}
	if tw.GetTotalTaskCount() != 0 {
		t.Errorf("expected wheel empty after cancel, got %d", tw.GetTotalTaskCount())
	}
	if !task.Cancelled() {
		t.Error("expected Cancelled() = true")
	}
}

// TestCancelledTaskSkipsExecute a cancelled task body never runs
func TestCancelledTaskSkipsExecute(t *testing.T) {
	var ran bool
	task := NewTask("t", "x", 0, func(ctx context.Context, target string, metadata map[string]any) error {
		ran = true
		return nil
	})
	task.Cancel()

	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if ran {
		t.Error("cancelled task ran")
	}
}

// TestSchedulerStartStop lifecycle
func TestSchedulerStartStop(t *testing.T) {
	s := NewScheduler(Config{Tick: 5 * time.Millisecond, Slots: 16, WorkerCount: 2})

	if _, err := s.ScheduleAfter(time.Millisecond, "x", noop); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning before Start, got %v", err)
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected running")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("expected stopped")
	}
	s.Stop()
}

// TestSchedulerExecutesTasks tasks fire after their delay
func TestSchedulerExecutesTasks(t *testing.T) {
	s := NewScheduler(Config{Tick: 5 * time.Millisecond, Slots: 16, WorkerCount: 2})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		_, err := s.ScheduleAfter(20*time.Millisecond, "x", func(ctx context.Context, target string, metadata map[string]any) error {
			count.Add(1)
			wg.Done()
			return nil
		})
		if err != nil {
			t.Fatalf("ScheduleAfter: %v", err)
		}
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("tasks did not run, count = %d", count.Load())
	}
	if count.Load() != 3 {
		t.Errorf("expected 3 executions, got %d", count.Load())
	}
}

// TestSchedulerRemoveTask removed tasks never fire
func TestSchedulerRemoveTask(t *testing.T) {
	s := NewScheduler(Config{Tick: 5 * time.Millisecond, Slots: 16, WorkerCount: 1})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	var ran atomic.Bool
	task, err := s.ScheduleAfter(50*time.Millisecond, "x", func(ctx context.Context, target string, metadata map[string]any) error {
		ran.Store(true)
		return nil
	})
	if err != nil {
		t.Fatalf("ScheduleAfter: %v", err)
	}

	if err := s.RemoveTask(task.ID); err != nil {
		t.Fatalf("RemoveTask: %v", err)
	}
	if err := s.RemoveTask(task.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound on second removal, got %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	if ran.Load() {
		t.Error("removed task ran")
	}

	stats := s.GetStats()
	if stats["totalTaskCount"].(int) != 0 {
		t.Errorf("expected no pending tasks, got %v", stats["totalTaskCount"])
	}
}

// TestSchedulerPanicRecovered a panicking task does not kill the worker
func TestSchedulerPanicRecovered(t *testing.T) {
	s := NewScheduler(Config{Tick: 5 * time.Millisecond, Slots: 16, WorkerCount: 1})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	s.ScheduleAfter(5*time.Millisecond, "boom", func(ctx context.Context, target string, metadata map[string]any) error {
		panic("boom")
	})

	done := make(chan struct{})
	s.ScheduleAfter(30*time.Millisecond, "ok", func(ctx context.Context, target string, metadata map[string]any) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
}

// TestManualSchedulerOrder deadline order, FIFO among equal deadlines
func TestManualSchedulerOrder(t *testing.T) {
	m := NewManualScheduler()

	var order []string
	record := func(ctx context.Context, target string, metadata map[string]any) error {
		order = append(order, target)
		return nil
	}

	m.ScheduleAfter(30*time.Millisecond, "c", record)
	m.ScheduleAfter(10*time.Millisecond, "a", record)
	m.ScheduleAfter(10*time.Millisecond, "b", record)
	m.ScheduleAfter(100*time.Millisecond, "late", record)

	m.Advance(30 * time.Millisecond)

	want := []string{"a", "b", "c"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
	if m.Pending() != 1 {
		t.Errorf("expected 1 pending, got %d", m.Pending())
	}
	if m.Now() != 30*time.Millisecond {
		t.Errorf("expected clock at 30ms, got %v", m.Now())
	}
}

// TestManualSchedulerChained tasks scheduled inside the window fire in the same Advance
func TestManualSchedulerChained(t *testing.T) {
	m := NewManualScheduler()

	var fired []time.Duration
	m.ScheduleAfter(10*time.Millisecond, "first", func(ctx context.Context, target string, metadata map[string]any) error {
		fired = append(fired, m.Now())
		m.ScheduleAfter(15*time.Millisecond, "second", func(ctx context.Context, target string, metadata map[string]any) error {
			fired = append(fired, m.Now())
			return nil
		})
		return nil
	})

	m.Advance(20 * time.Millisecond)
	if len(fired) != 1 {
		t.Fatalf("expected only the first task by 20ms, got %d", len(fired))
	}

	m.Advance(5 * time.Millisecond)
	if len(fired) != 2 {
		t.Fatalf("expected the chained task at 25ms, got %d", len(fired))
	}
	if fired[0] != 10*time.Millisecond || fired[1] != 25*time.Millisecond {
		t.Errorf("unexpected fire times %v", fired)
	}
}

// TestManualSchedulerCancel cancelled tasks are dropped
func TestManualSchedulerCancel(t *testing.T) {
	m := NewManualScheduler()

	var ran bool
	task, _ := m.ScheduleAfter(10*time.Millisecond, "x", func(ctx context.Context, target string, metadata map[string]any) error {
		ran = true
		return nil
	})

	if !task.Cancel() {
		t.Fatal("expected Cancel to succeed")
	}
	if m.Pending() != 0 {
		t.Errorf("expected no pending tasks, got %d", m.Pending())
	}

	m.Advance(time.Second)
	if ran {
		t.Error("cancelled task ran")
	}
}
