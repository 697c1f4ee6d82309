package clock

import (
	"sync/atomic"
	"time"
)

// Handle cancels a scheduled task. Stop is idempotent.
type Handle interface {
	Stop()
}

// Clock is the time source injected into playback and session code.
type Clock interface {
	Now() time.Time
	// Every schedules fn repeatedly at interval until the handle is stopped.
	Every(interval time.Duration, fn func()) Handle
}

// Real schedules ticks with time.Ticker and delivers them through a Loop.
type Real struct {
	loop *Loop
}

// NewReal returns a wall clock whose ticks run on loop.
func NewReal(loop *Loop) *Real {
	return &Real{loop: loop}
}

// Now returns the wall clock time.
func (r *Real) Now() time.Time {
	return time.Now()
}

// Every starts a ticker goroutine. Each tick is posted to the loop and runs
// only if the handle is still live when the loop reaches it.
func (r *Real) Every(interval time.Duration, fn func()) Handle {
	h := &tickerHandle{done: make(chan struct{})}
	if interval <= 0 || fn == nil {
		h.Stop()
		return h
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-h.done:
				return
			case <-ticker.C:
				posted := r.loop.Post(func() {
					if h.stopped.Load() {
						return
					}
					fn()
				})
				if !posted {
					return
				}
			}
		}
	}()
	return h
}

type tickerHandle struct {
	stopped atomic.Bool
	done    chan struct{}
}

func (h *tickerHandle) Stop() {
	if h.stopped.CompareAndSwap(false, true) {
		close(h.done)
	}
}
