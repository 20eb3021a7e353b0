// Package stream reveals response text incrementally on a tick schedule.
package stream

import (
	"sort"
	"sync"
	"time"
)

// Scheduler runs fn repeatedly. The returned stop function ends the schedule;
// it never blocks and is safe to call from inside fn.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// MinInterval is used when a non-positive interval is requested.
const MinInterval = time.Millisecond

// TickerScheduler drives each schedule from its own goroutine and time.Ticker.
type TickerScheduler struct{}

// Every implements Scheduler.
func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	if interval <= 0 {
		interval = MinInterval
	}

	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }
}

// ManualScheduler fires schedules only when told to. Tests use it as a
// deterministic clock.
type ManualScheduler struct {
	mu     sync.Mutex
	nextID int
	tasks  map[int]func()
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{tasks: make(map[int]func())}
}

// Every implements Scheduler. The interval is ignored.
func (m *ManualScheduler) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.tasks[id] = fn

	return func() {
		m.mu.Lock()
		delete(m.tasks, id)
		m.mu.Unlock()
	}
}

// Tick fires every active schedule once, in registration order. Schedules
// stopped during the tick by an earlier one are skipped.
func (m *ManualScheduler) Tick() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	m.mu.Unlock()
	sort.Ints(ids)

	for _, id := range ids {
		m.mu.Lock()
		fn, ok := m.tasks[id]
		m.mu.Unlock()
		if ok {
			fn()
		}
	}
}

// Advance fires n ticks.
func (m *ManualScheduler) Advance(n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

// RunUntilIdle ticks until no schedule is active or max ticks have fired.
// It returns the number of ticks fired.
func (m *ManualScheduler) RunUntilIdle(max int) int {
	n := 0
	for n < max && m.Active() > 0 {
		m.Tick()
		n++
	}
	return n
}

// Active returns the number of running schedules.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
