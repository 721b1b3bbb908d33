package task

import (
	"sync"
	"time"
)

const (
	// DefaultTick wheel resolution
	DefaultTick = 10 * time.Millisecond
	// DefaultSlotCount slots per revolution (5.12s at the default tick)
	DefaultSlotCount = 512
)

// TimeWheel hashed timing wheel
type TimeWheel struct {
	slots       []*Slot
	tick        time.Duration
	currentSlot int
	slotMu      sync.Mutex // guards currentSlot; held across add/expire so a task never lands in a slot that was just drained
	index       sync.Map   // taskID -> *Task
	ticker      *time.Ticker
}

// NewTimeWheel creates a wheel; non-positive arguments fall back to the defaults.
func NewTimeWheel(tick time.Duration, slotCount int) *TimeWheel {
	if tick <= 0 {
		tick = DefaultTick
	}
	if slotCount <= 0 {
		slotCount = DefaultSlotCount
	}

	tw := &TimeWheel{
		slots: make([]*Slot, slotCount),
		tick:  tick,
	}
	for i := range tw.slots {
		tw.slots[i] = NewSlot()
	}

	return tw
}

// AddTask places a task in the slot its delay maps to
func (tw *TimeWheel) AddTask(task *Task) error {
	ticks := int((task.Delay + tw.tick - 1) / tw.tick)
	if ticks < 1 {
		ticks = 1
	}

	n := len(tw.slots)

	tw.slotMu.Lock()
	defer tw.slotMu.Unlock()

	task.slot = (tw.currentSlot + ticks) % n
	task.rounds = (ticks - 1) / n
	task.owner = tw
	tw.slots[task.slot].AddTask(task)
	tw.index.Store(task.ID, task)

	return nil
}

// RemoveTask removes a task by id
func (tw *TimeWheel) RemoveTask(taskID string) bool {
	v, ok := tw.index.Load(taskID)
	if !ok {
		return false
	}
	return tw.remove(v.(*Task))
}

func (tw *TimeWheel) remove(t *Task) bool {
	tw.index.Delete(t.ID)
	return tw.slots[t.slot].RemoveTask(t.ID)
}

// Tick advances one slot and returns the tasks that fell due
func (tw *TimeWheel) Tick() []*Task {
	tw.slotMu.Lock()
	tw.currentSlot = (tw.currentSlot + 1) % len(tw.slots)
	due := tw.slots[tw.currentSlot].Expire()
	tw.slotMu.Unlock()

	for _, t := range due {
		tw.index.Delete(t.ID)
	}
	return due
}

// Start creates the ticker driving the wheel
func (tw *TimeWheel) Start() *time.Ticker {
	tw.ticker = time.NewTicker(tw.tick)
	return tw.ticker
}

// Stop stops the ticker
func (tw *TimeWheel) Stop() {
	if tw.ticker != nil {
		tw.ticker.Stop()
	}
}

// GetCurrentSlot returns the current slot index
func (tw *TimeWheel) GetCurrentSlot() int {
	tw.slotMu.Lock()
	defer tw.slotMu.Unlock()

	return tw.currentSlot
}

// GetSlotTaskCount returns the number of tasks in one slot
func (tw *TimeWheel) GetSlotTaskCount(slot int) int {
	if slot < 0 || slot >= len(tw.slots) {
		return 0
	}
	return tw.slots[slot].Count()
}

// GetTotalTaskCount returns the number of pending tasks
func (tw *TimeWheel) GetTotalTaskCount() int {
	total := 0
	for _, s := range tw.slots {
		total += s.Count()
	}
	return total
}
