package clock

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance is called.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*manualTimer
}

type manualTimer struct {
	clock    *Manual
	seq      int
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

// NewManual returns a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the current manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers a repeating timer whose first tick is one interval from now.
func (m *Manual) Every(interval time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{clock: m, interval: interval, fn: fn}
	if interval <= 0 || fn == nil {
		t.stopped = true
		return t
	}
	m.seq++
	t.seq = m.seq
	t.next = m.now.Add(interval)
	m.timers = append(m.timers, t)
	return t
}

// Advance moves time forward by d, firing due ticks in chronological order.
// Callbacks run on the caller's goroutine and may stop or schedule timers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		t := m.nextDueLocked(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = t.next
		t.next = t.next.Add(t.interval)
		fn := t.fn
		m.mu.Unlock()

		fn()
	}
}

// Pending returns the number of live timers.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

func (m *Manual) nextDueLocked(target time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].next.Equal(m.timers[j].next) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].next.Before(m.timers[j].next)
	})
	if first := m.timers[0]; !first.next.After(target) {
		return first
	}
	return nil
}

func (t *manualTimer) Stop() {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	for i, candidate := range m.timers {
		if candidate == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			break
		}
	}
}
