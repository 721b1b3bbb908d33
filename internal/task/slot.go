package task

import "sync"

// Slot one bucket of the time wheel
type Slot struct {
	mu    sync.Mutex
	tasks map[string]*Task // key: taskID
}

// NewSlot creates an empty slot
func NewSlot() *Slot {
	return &Slot{
		tasks: make(map[string]*Task),
	}
}

// AddTask adds a task to the slot
func (s *Slot) AddTask(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks[task.ID] = task
}

// RemoveTask removes a task from the slot
func (s *Slot) RemoveTask(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[taskID]; exists {
		delete(s.tasks, taskID)
		return true
	}
	return false
}

// Expire removes and returns every task whose rounds reached zero; the others lose one round.
func (s *Slot) Expire() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.tasks) == 0 {
		return nil
	}

	var due []*Task
	for id, task := range s.tasks {
		if task.rounds > 0 {
			task.rounds--
			continue
		}
		due = append(due, task)
		delete(s.tasks, id)
	}
	return due
}

// Count returns the number of tasks in the slot
func (s *Slot) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}
