package session

import "context"

// Executor runs functions on the session's event thread. clock.Loop
// satisfies it.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Inline runs functions on the calling goroutine. It suits tests driven by a
// manual clock where the test itself is the only thread.
type Inline struct{}

// Do runs fn immediately unless ctx is already done.
func (Inline) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

// Alerter shows messages to the annotator.
type Alerter interface {
	Alert(message string)
}

// AlertFunc adapts a function to Alerter.
type AlertFunc func(message string)

// Alert implements Alerter.
func (f AlertFunc) Alert(message string) {
	if f != nil {
		f(message)
	}
}
