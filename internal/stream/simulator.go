package stream

import (
	"sync"
	"sync/atomic"
	"time"
)

// Simulator reveals text one rune per tick. It knows nothing about messages.
type Simulator struct {
	sched Scheduler
}

// NewSimulator creates a simulator on sched. A nil scheduler uses real tickers.
func NewSimulator(sched Scheduler) *Simulator {
	if sched == nil {
		sched = TickerScheduler{}
	}
	return &Simulator{sched: sched}
}

// Handle controls one running reveal.
type Handle struct {
	done atomic.Bool

	mu   sync.Mutex
	stop func()
}

// Cancel stops future ticks. It does not wait for a tick already running on
// another goroutine; such a tick may still deliver its chunk, so owners that
// need a hard cutoff compare handles before applying it. Idempotent.
func (h *Handle) Cancel() {
	h.done.Store(true)
	h.mu.Lock()
	stop := h.stop
	h.stop = nil
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

// Done reports whether the reveal completed or was cancelled.
func (h *Handle) Done() bool {
	return h.done.Load()
}

// Begin starts revealing text. onChunk receives the growing prefix after each
// tick; onComplete fires once after the full text has been delivered and
// never after Cancel. Empty text completes on the first tick.
func (s *Simulator) Begin(text string, onChunk func(prefix string), onComplete func(), interval time.Duration) *Handle {
	runes := []rune(text)
	revealed := 0
	h := &Handle{}

	tick := func() {
		if h.done.Load() {
			return
		}
		if revealed < len(runes) {
			revealed++
			if onChunk != nil {
				onChunk(string(runes[:revealed]))
			}
		}
		if revealed < len(runes) {
			return
		}
		if h.done.CompareAndSwap(false, true) {
			h.Cancel()
			if onComplete != nil {
				onComplete()
			}
		}
	}

	stop := s.sched.Every(interval, tick)

	h.mu.Lock()
	if h.done.Load() {
		h.mu.Unlock()
		stop()
		return h
	}
	h.stop = stop
	h.mu.Unlock()
	return h
}
