package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrAlreadyRunning Start called twice
	ErrAlreadyRunning = errors.New("scheduler already running")
	// ErrNotRunning task added to a stopped scheduler
	ErrNotRunning = errors.New("scheduler not running")
	// ErrNilTask nil task or empty id
	ErrNilTask = errors.New("task must not be nil and must have an id")
	// ErrTaskNotFound RemoveTask on an unknown id
	ErrTaskNotFound = errors.New("task not found")
)

// Config scheduler settings
type Config struct {
	Tick        time.Duration `mapstructure:"tick"`
	Slots       int           `mapstructure:"slots"`
	WorkerCount int           `mapstructure:"workers"`
}

// Scheduler drives a TimeWheel from a ticker and hands due tasks to a WorkerPool
type Scheduler struct {
	wheel      *TimeWheel
	workerPool *WorkerPool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *slog.Logger
	running    bool
	runningMu  sync.RWMutex
}

// NewScheduler creates a scheduler
func NewScheduler(cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		wheel:      NewTimeWheel(cfg.Tick, cfg.Slots),
		workerPool: NewWorkerPool(cfg.WorkerCount),
		ctx:        ctx,
		cancel:     cancel,
		logger:     slog.Default().With("component", "Scheduler"),
	}
}

// Start starts the workers and the tick loop
func (s *Scheduler) Start() error {
	s.runningMu.Lock()
	if s.running {
		s.runningMu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.runningMu.Unlock()

	s.workerPool.Start()

	ticker := s.wheel.Start()
	s.wg.Add(1)
	go s.tickLoop(ticker)

	s.logger.Info("Scheduler started", "tick", s.wheel.tick, "slots", len(s.wheel.slots))
	return nil
}

func (s *Scheduler) tickLoop(ticker *time.Ticker) {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-ticker.C:
			s.onTick()
		}
	}
}

func (s *Scheduler) onTick() {
	tasks := s.wheel.Tick()
	if len(tasks) == 0 {
		return
	}

	s.logger.Debug("Tick",
		"currentSlot", s.wheel.GetCurrentSlot(),
		"taskCount", len(tasks))

	s.workerPool.SubmitBatch(tasks)
}

// Stop stops the tick loop and the workers. Pending tasks are dropped.
func (s *Scheduler) Stop() {
	s.runningMu.Lock()
	if !s.running {
		s.runningMu.Unlock()
		return
	}
	s.running = false
	s.runningMu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.wheel.Stop()
	s.workerPool.Stop()

	s.logger.Info("Scheduler stopped")
}

// AddTask schedules a prepared task
func (s *Scheduler) AddTask(task *Task) error {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	if !s.running {
		return ErrNotRunning
	}
	if task == nil || task.ID == "" {
		return ErrNilTask
	}

	s.logger.Debug("Task added",
		"taskID", task.ID,
		"target", task.Target,
		"delay", task.Delay)

	return s.wheel.AddTask(task)
}

// ScheduleAfter implements Timer
func (s *Scheduler) ScheduleAfter(delay time.Duration, target string, fn TaskFunc) (*Task, error) {
	t := NewTask("", target, delay, fn)
	if err := s.AddTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// RemoveTask cancels a pending task by id
func (s *Scheduler) RemoveTask(taskID string) error {
	if taskID == "" {
		return ErrNilTask
	}

	v, ok := s.wheel.index.Load(taskID)
	if !ok {
		return ErrTaskNotFound
	}
	if !v.(*Task).Cancel() {
		return ErrTaskNotFound
	}
	return nil
}

// IsRunning reports whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.runningMu.RLock()
	defer s.runningMu.RUnlock()

	return s.running
}

// GetStats returns scheduler statistics
func (s *Scheduler) GetStats() map[string]any {
	return map[string]any{
		"running":        s.IsRunning(),
		"currentSlot":    s.wheel.GetCurrentSlot(),
		"totalTaskCount": s.wheel.GetTotalTaskCount(),
		"workerCount":    s.workerPool.workerCount,
	}
}
