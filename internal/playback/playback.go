package playback

import (
	"errors"
	"fmt"
	"time"

	"clipmark/internal/clock"
)

// ErrInvalidSpeed is returned for speed multipliers outside (0, MaxSpeed].
var ErrInvalidSpeed = errors.New("playback speed out of range")

const (
	// DefaultFrameRate is the base frames per second at speed 1.
	DefaultFrameRate = 5
	// DefaultTotalFrames is used when a clip does not report its length.
	DefaultTotalFrames = 50
	// MaxSpeed is the largest accepted speed multiplier.
	MaxSpeed = 16
)

// State is a snapshot of the controller.
type State struct {
	CurrentFrame     int
	TotalFrames      int
	Playing          bool
	Speed            float64
	Watched          bool
	AccumulatedWatch time.Duration
}

// Option customizes a Controller.
type Option func(*Controller)

// WithFrameRate sets the base frame rate.
func WithFrameRate(fps float64) Option {
	return func(c *Controller) {
		if fps > 0 {
			c.baseRate = fps
		}
	}
}

// WithTotalFrames sets the initial clip length.
func WithTotalFrames(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.total = n
		}
	}
}

// WithFrameObserver registers a callback invoked with the new frame index
// whenever the current frame changes.
func WithFrameObserver(fn func(frame int)) Option {
	return func(c *Controller) {
		c.onFrame = fn
	}
}

// Controller owns frame position, play state, speed, and watch accounting
// for one clip at a time. It must be driven from a single goroutine, the same
// one the clock delivers ticks on.
type Controller struct {
	clock    clock.Clock
	baseRate float64
	total    int
	onFrame  func(int)

	frame       int
	playing     bool
	speed       float64
	watched     bool
	accumulated time.Duration
	startedAt   time.Time
	ticker      clock.Handle
}

// New constructs a paused controller at frame zero and speed 1.
func New(clk clock.Clock, opts ...Option) *Controller {
	c := &Controller{
		clock:    clk,
		baseRate: DefaultFrameRate,
		total:    DefaultTotalFrames,
		speed:    1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Interval returns the tick period at the current speed.
func (c *Controller) Interval() time.Duration {
	return time.Duration(float64(time.Second) / (c.baseRate * c.speed))
}

// Play starts autoplay. Calling Play while playing reschedules ticks without
// restarting the watch interval.
func (c *Controller) Play() {
	c.watched = true
	if c.startedAt.IsZero() {
		c.startedAt = c.clock.Now()
	}
	c.playing = true
	c.stopTicker()
	c.ticker = c.clock.Every(c.Interval(), c.tick)
}

// Pause stops autoplay and flushes elapsed watch time. It is safe to call
// while already paused.
func (c *Controller) Pause() {
	if !c.startedAt.IsZero() {
		c.accumulated += c.clock.Now().Sub(c.startedAt)
		c.startedAt = time.Time{}
	}
	c.playing = false
	c.stopTicker()
}

// Toggle flips between playing and paused.
func (c *Controller) Toggle() {
	if c.playing {
		c.Pause()
		return
	}
	c.Play()
}

// SetSpeed changes the multiplier. While playing, playback is paused and
// resumed so the new interval applies at once.
func (c *Controller) SetSpeed(speed float64) error {
	if !(speed > 0) || speed > MaxSpeed {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	if time.Duration(float64(time.Second)/(c.baseRate*speed)) <= 0 {
		return fmt.Errorf("%w: %v at %v fps", ErrInvalidSpeed, speed, c.baseRate)
	}
	c.speed = speed
	if c.playing {
		c.Pause()
		c.Play()
	}
	return nil
}

// Seek jumps to frame, clamped to the clip.
func (c *Controller) Seek(frame int) {
	c.watched = true
	if c.playing {
		c.Pause()
	}
	c.setFrame(c.clamp(frame))
}

// Step moves by delta frames, clamped to the clip.
func (c *Controller) Step(delta int) {
	c.Seek(c.frame + delta)
}

// Next advances one frame.
func (c *Controller) Next() { c.Step(1) }

// Previous goes back one frame.
func (c *Controller) Previous() { c.Step(-1) }

// Skip moves by n frames; negative n skips backward.
func (c *Controller) Skip(n int) { c.Step(n) }

// Reset cancels ticking and restores initial state for a clip of totalFrames
// frames. Speed is kept across clips. The frame observer is not notified.
func (c *Controller) Reset(totalFrames int) {
	c.stopTicker()
	c.playing = false
	c.startedAt = time.Time{}
	c.accumulated = 0
	c.watched = false
	if totalFrames > 0 {
		c.total = totalFrames
	}
	c.frame = 0
}

// WatchTime returns accumulated watch time plus any interval in progress.
func (c *Controller) WatchTime() time.Duration {
	total := c.accumulated
	if !c.startedAt.IsZero() {
		total += c.clock.Now().Sub(c.startedAt)
	}
	return total
}

// State returns a snapshot.
func (c *Controller) State() State {
	return State{
		CurrentFrame:     c.frame,
		TotalFrames:      c.total,
		Playing:          c.playing,
		Speed:            c.speed,
		Watched:          c.watched,
		AccumulatedWatch: c.accumulated,
	}
}

// Frame returns the current frame index.
func (c *Controller) Frame() int { return c.frame }

// Playing reports whether autoplay is active.
func (c *Controller) Playing() bool { return c.playing }

// Watched reports whether the clip has been played or navigated.
func (c *Controller) Watched() bool { return c.watched }

// TotalFrames returns the clip length.
func (c *Controller) TotalFrames() int { return c.total }

func (c *Controller) tick() {
	if !c.playing {
		return
	}
	next := c.frame + 1
	if next >= c.total {
		next = 0
	}
	c.setFrame(next)
}

func (c *Controller) setFrame(frame int) {
	changed := frame != c.frame
	c.frame = frame
	if changed && c.onFrame != nil {
		c.onFrame(frame)
	}
}

func (c *Controller) clamp(frame int) int {
	if frame < 0 {
		return 0
	}
	if frame > c.total-1 {
		return c.total - 1
	}
	return frame
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}
