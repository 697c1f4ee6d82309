package canvas

import (
	"fmt"
	"slices"

	"clipmark/internal/geometry"
)

// TargetKind classifies what lies under the pointer.
type TargetKind int

const (
	TargetNone TargetKind = iota
	// TargetCanvas is empty drawing surface; pointer-down starts a draw.
	TargetCanvas
	// TargetBody is the body of an unrated box; it absorbs pointer-down.
	TargetBody
	TargetHandle
	TargetDelete
	TargetRating
)

func (k TargetKind) String() string {
	switch k {
	case TargetCanvas:
		return "canvas"
	case TargetBody:
		return "body"
	case TargetHandle:
		return "handle"
	case TargetDelete:
		return "delete"
	case TargetRating:
		return "rating"
	default:
		return "none"
	}
}

// Target is the resolved element under a pointer position.
type Target struct {
	Kind   TargetKind
	Box    BoxID
	Handle Handle
	Rating int
}

// EventKind names an observable change to the box collection.
type EventKind int

const (
	EventCommitted EventKind = iota
	EventDiscarded
	EventResized
	EventRated
	EventConfidenceChanged
	EventDeleted
	EventCleared
)

// Event describes one change. Position is the box's zero-based index at the
// time of the event, or -1 when it has none.
type Event struct {
	Kind     EventKind
	Box      Box
	Position int
}

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDraw
	gestureResize
)

type gesture struct {
	kind   gestureKind
	draft  Box
	box    BoxID
	handle Handle
}

// Option customizes a Controller.
type Option func(*Controller)

// WithMinBoxSize overrides the minimum committed width and height.
func WithMinBoxSize(size float64) Option {
	return func(c *Controller) {
		if size >= 0 {
			c.minSize = size
		}
	}
}

// WithListener registers a callback for collection changes.
func WithListener(fn func(Event)) Option {
	return func(c *Controller) {
		c.listener = fn
	}
}

// WithLayout seeds the initial layout.
func WithLayout(layout geometry.Layout) Option {
	return func(c *Controller) {
		c.layout = layout
	}
}

// Controller owns the boxes for the current clip and the active gesture.
// It is not safe for concurrent use; callers serialize events through a
// single loop.
type Controller struct {
	layout   geometry.Layout
	boxes    []Box
	nextID   BoxID
	gesture  gesture
	minSize  float64
	listener func(Event)
}

// New constructs an empty controller.
func New(opts ...Option) *Controller {
	c := &Controller{minSize: DefaultMinBoxSize, nextID: 1}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// SetLayout records the current placement of the canvas and frame image.
// Mapping is rebuilt from it on every event.
func (c *Controller) SetLayout(layout geometry.Layout) {
	c.layout = layout
}

// Layout returns the current layout.
func (c *Controller) Layout() geometry.Layout {
	return c.layout
}

func (c *Controller) toLogical(p geometry.Point) (geometry.Point, bool) {
	return c.layout.Mapper().ToLogical(p)
}

// PointerDown starts a draw on empty canvas or a resize on a handle. It
// returns false when nothing started.
func (c *Controller) PointerDown(p geometry.Point, target Target) bool {
	if c.gesture.kind != gestureNone {
		return false
	}
	switch target.Kind {
	case TargetCanvas:
		lp, ok := c.toLogical(p)
		if !ok {
			return false
		}
		c.gesture = gesture{
			kind: gestureDraw,
			draft: Box{
				ID:    c.allocateID(),
				Rect:  geometry.Collapsed(lp),
				State: StateDrafting,
			},
		}
		return true
	case TargetHandle:
		if !c.layout.Measurable() {
			return false
		}
		if _, ok := c.indexOf(target.Box); !ok {
			return false
		}
		c.gesture = gesture{kind: gestureResize, box: target.Box, handle: target.Handle}
		return true
	default:
		return false
	}
}

// PointerMove moves the drafting corner or the grabbed handle.
func (c *Controller) PointerMove(p geometry.Point) bool {
	switch c.gesture.kind {
	case gestureDraw:
		lp, ok := c.toLogical(p)
		if !ok {
			return false
		}
		c.gesture.draft.Rect.X2 = lp.X
		c.gesture.draft.Rect.Y2 = lp.Y
		return true
	case gestureResize:
		lp, ok := c.toLogical(p)
		if !ok {
			return false
		}
		idx, found := c.indexOf(c.gesture.box)
		if !found {
			c.gesture = gesture{}
			return false
		}
		c.boxes[idx].Rect = moveCorner(c.boxes[idx].Rect, c.gesture.handle, lp)
		return true
	default:
		return false
	}
}

// PointerUp applies the final position and ends the gesture.
func (c *Controller) PointerUp(p geometry.Point) bool {
	if c.gesture.kind == gestureNone {
		return false
	}
	c.PointerMove(p)
	return c.endGesture()
}

// PointerLeave ends the gesture at the last known position.
func (c *Controller) PointerLeave() bool {
	return c.endGesture()
}

func (c *Controller) endGesture() bool {
	g := c.gesture
	c.gesture = gesture{}

	switch g.kind {
	case gestureDraw:
		box := g.draft
		box.Rect = box.Rect.Normalize()
		if box.Rect.Width() < c.minSize || box.Rect.Height() < c.minSize {
			c.emit(Event{Kind: EventDiscarded, Box: box, Position: -1})
			return false
		}
		box.State = StateCommitted
		c.boxes = append(c.boxes, box)
		c.emit(Event{Kind: EventCommitted, Box: box, Position: len(c.boxes) - 1})
		return true
	case gestureResize:
		idx, ok := c.indexOf(g.box)
		if !ok {
			return false
		}
		c.boxes[idx].Rect = c.boxes[idx].Rect.Normalize()
		c.emit(Event{Kind: EventResized, Box: c.boxes[idx], Position: idx})
		return true
	default:
		return false
	}
}

// Rate sets a box's confidence. The first rating moves the box from
// committed to rated; later ratings only overwrite the value.
func (c *Controller) Rate(id BoxID, value int) error {
	if !validRating(value) {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, value)
	}
	idx, ok := c.indexOf(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBox, id)
	}
	box := &c.boxes[idx]
	switch {
	case box.State != StateRated:
		box.State = StateRated
		box.Confidence = value
		c.emit(Event{Kind: EventRated, Box: *box, Position: idx})
	case box.Confidence != value:
		box.Confidence = value
		c.emit(Event{Kind: EventConfidenceChanged, Box: *box, Position: idx})
	}
	return nil
}

// Delete removes a box. Boxes after it shift down one label.
func (c *Controller) Delete(id BoxID) error {
	if c.gesture.kind == gestureResize && c.gesture.box == id {
		return fmt.Errorf("%w: %d", ErrBoxBusy, id)
	}
	idx, ok := c.indexOf(id)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBox, id)
	}
	removed := c.boxes[idx]
	c.boxes = slices.Delete(c.boxes, idx, idx+1)
	removed.State = StateDeleted
	c.emit(Event{Kind: EventDeleted, Box: removed, Position: idx})
	return nil
}

// Clear drops every box and any active gesture.
func (c *Controller) Clear() {
	c.gesture = gesture{}
	hadBoxes := len(c.boxes) > 0
	c.boxes = nil
	if hadBoxes {
		c.emit(Event{Kind: EventCleared, Position: -1})
	}
}

// Ready reports whether the clip can be submitted: no box is being drawn and
// every box is rated.
func (c *Controller) Ready() bool {
	if c.gesture.kind == gestureDraw {
		return false
	}
	for _, box := range c.boxes {
		if !box.Rated() {
			return false
		}
	}
	return true
}

// Unrated returns the number of committed boxes still waiting for a rating.
func (c *Controller) Unrated() int {
	n := 0
	for _, box := range c.boxes {
		if !box.Rated() {
			n++
		}
	}
	return n
}

// Len returns the number of boxes in the collection.
func (c *Controller) Len() int {
	return len(c.boxes)
}

// Boxes returns a copy of the collection in label order.
func (c *Controller) Boxes() []Box {
	return slices.Clone(c.boxes)
}

// BoxAt returns the box at a zero-based position.
func (c *Controller) BoxAt(position int) (Box, bool) {
	if position < 0 || position >= len(c.boxes) {
		return Box{}, false
	}
	return c.boxes[position], true
}

// Lookup returns a box and its position.
func (c *Controller) Lookup(id BoxID) (Box, int, bool) {
	idx, ok := c.indexOf(id)
	if !ok {
		return Box{}, -1, false
	}
	return c.boxes[idx], idx, true
}

// StateOf reports the lifecycle state of any id this controller issued.
func (c *Controller) StateOf(id BoxID) (State, bool) {
	if c.gesture.kind == gestureDraw && c.gesture.draft.ID == id {
		return StateDrafting, true
	}
	if idx, ok := c.indexOf(id); ok {
		return c.boxes[idx].State, true
	}
	if id > 0 && id < c.nextID {
		return StateDeleted, true
	}
	return 0, false
}

// Draft returns the box being drawn, if any.
func (c *Controller) Draft() (Box, bool) {
	if c.gesture.kind != gestureDraw {
		return Box{}, false
	}
	return c.gesture.draft, true
}

// Gesturing reports whether a draw or resize is in progress.
func (c *Controller) Gesturing() bool {
	return c.gesture.kind != gestureNone
}

// Groups returns the boxes in submission form.
func (c *Controller) Groups() []Group {
	groups := make([]Group, 0, len(c.boxes))
	for i, box := range c.boxes {
		groups = append(groups, Group{
			GroupID:    i + 1,
			BBox:       box.Rect.Normalize().Rounded(),
			Confidence: box.Confidence,
		})
	}
	return groups
}

func (c *Controller) allocateID() BoxID {
	id := c.nextID
	c.nextID++
	return id
}

func (c *Controller) indexOf(id BoxID) (int, bool) {
	for i := range c.boxes {
		if c.boxes[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (c *Controller) emit(event Event) {
	if c.listener != nil {
		c.listener(event)
	}
}
