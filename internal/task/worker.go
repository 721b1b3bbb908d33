package task

import (
	"context"
	"log/slog"
	"sync"
)

// WorkerPool runs due tasks
type WorkerPool struct {
	workerCount int
	taskChan    chan *Task
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	logger      *slog.Logger
}

// NewWorkerPool creates a worker pool
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 4
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workerCount: workerCount,
		taskChan:    make(chan *Task, workerCount*64),
		ctx:         ctx,
		cancel:      cancel,
		logger:      slog.Default().With("component", "WorkerPool"),
	}
}

// Start launches the workers
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}

	wp.logger.Info("Worker pool started", "workerCount", wp.workerCount)
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return

		case task := <-wp.taskChan:
			if task == nil {
				continue
			}

			wp.executeTask(id, task)
		}
	}
}

func (wp *WorkerPool) executeTask(workerID int, task *Task) {
	defer func() {
		if r := recover(); r != nil {
			wp.logger.Error("Task panicked",
				"workerID", workerID,
				"taskID", task.ID,
				"target", task.Target,
				"panic", r)
		}
	}()

	if task.Cancelled() {
		wp.logger.Debug("Skipping cancelled task", "taskID", task.ID, "target", task.Target)
		return
	}

	if err := task.Execute(wp.ctx); err != nil {
		wp.logger.Error("Task failed",
			"workerID", workerID,
			"taskID", task.ID,
			"target", task.Target,
			"error", err)
	}
}

// Submit hands a task to the workers, blocking when the buffer is full
func (wp *WorkerPool) Submit(task *Task) {
	select {
	case wp.taskChan <- task:
	case <-wp.ctx.Done():
		wp.logger.Warn("Worker pool stopped, task dropped", "taskID", task.ID)
	default:
		wp.logger.Warn("Task buffer full, task may run late", "taskID", task.ID)
		select {
		case wp.taskChan <- task:
		case <-wp.ctx.Done():
		}
	}
}

// SubmitBatch submits several tasks
func (wp *WorkerPool) SubmitBatch(tasks []*Task) {
	for _, task := range tasks {
		wp.Submit(task)
	}
}

// Stop stops the workers and waits for them
func (wp *WorkerPool) Stop() {
	wp.cancel()
	wp.wg.Wait()

	wp.logger.Info("Worker pool stopped")
}
