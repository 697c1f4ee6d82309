package clock

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned when posting to a loop that has stopped.
var ErrLoopClosed = errors.New("event loop closed")

// Loop runs queued functions one at a time on a single goroutine.
type Loop struct {
	tasks     chan func()
	closed    chan struct{}
	closeOnce sync.Once
	finished  chan struct{}
}

// NewLoop returns a loop with the given queue depth. Run must be called to
// start processing.
func NewLoop(buffer int) *Loop {
	if buffer < 1 {
		buffer = 64
	}
	return &Loop{
		tasks:    make(chan func(), buffer),
		closed:   make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Run processes tasks until ctx is cancelled or Close is called. Tasks still
// queued at that point are dropped.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.finished)
	for {
		select {
		case <-ctx.Done():
			l.Close()
			return
		case <-l.closed:
			return
		case fn := <-l.tasks:
			fn()
		}
	}
}

// Post enqueues fn, blocking while the queue is full. It returns false once
// the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.closed:
		return false
	default:
	}
	select {
	case <-l.closed:
		return false
	case l.tasks <- fn:
		return true
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.finished:
		select {
		case <-done:
			return nil
		default:
			return ErrLoopClosed
		}
	}
}

// Close stops the loop. It is safe to call more than once.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		close(l.closed)
	})
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.finished
}
