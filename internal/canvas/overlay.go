package canvas

import (
	"clipmark/internal/geometry"
)

// Overlay sizes in display pixels.
const (
	HandleSize        = 10.0
	LabelWidth        = 200.0
	LabelHeight       = 24.0
	LabelTextWidth    = 80.0
	RatingButtonSize  = 20.0
	RatingButtonGap   = 4.0
	DeleteButtonSize  = 20.0
	DeleteButtonInset = 15.0
)

// HandleOverlay is one resize square centered on a box corner.
type HandleOverlay struct {
	Handle Handle
	Rect   geometry.Rect
}

// RatingOverlay is one rating button.
type RatingOverlay struct {
	Value    int
	Rect     geometry.Rect
	Selected bool
}

// Overlay is the display projection of a box relative to the canvas origin.
// Drafting boxes carry only a body.
type Overlay struct {
	Box      BoxID
	Position int
	State    State
	Body     geometry.Rect

	Label        string
	LabelRect    geometry.Rect
	LabelFlipped bool
	Handles      []HandleOverlay
	Delete       geometry.Rect
	Ratings      []RatingOverlay

	// PassThrough means the body no longer intercepts pointer events aimed at
	// the frame beneath it. Its controls stay interactive.
	PassThrough bool
}

// Overlays projects every box (and the draft, last) onto the layout. It
// returns nil when the layout cannot be measured.
func (c *Controller) Overlays(layout geometry.Layout) []Overlay {
	if !layout.Measurable() {
		return nil
	}
	out := make([]Overlay, 0, len(c.boxes)+1)
	for i, box := range c.boxes {
		body, ok := layout.RectToCanvas(box.Rect)
		if !ok {
			return nil
		}
		out = append(out, decorate(layout, box, i, body))
	}
	if draft, ok := c.Draft(); ok {
		body, _ := layout.RectToCanvas(draft.Rect)
		out = append(out, Overlay{Box: draft.ID, Position: -1, State: StateDrafting, Body: body})
	}
	return out
}

func decorate(layout geometry.Layout, box Box, position int, body geometry.Rect) Overlay {
	o := Overlay{
		Box:         box.ID,
		Position:    position,
		State:       box.State,
		Body:        body,
		Label:       Label(position),
		PassThrough: box.State == StateRated,
	}

	o.LabelFlipped = body.X+LabelWidth > layout.Canvas.Width
	labelX := body.X
	deleteX := body.X - DeleteButtonInset
	if o.LabelFlipped {
		labelX = body.X + body.Width - LabelWidth
		deleteX = body.X + body.Width + DeleteButtonInset - DeleteButtonSize
	}
	o.LabelRect = geometry.Rect{X: labelX, Y: body.Y - LabelHeight, Width: LabelWidth, Height: LabelHeight}
	o.Delete = geometry.Rect{
		X:      deleteX,
		Y:      body.Y - DeleteButtonSize/2,
		Width:  DeleteButtonSize,
		Height: DeleteButtonSize,
	}

	corners := map[Handle]geometry.Point{
		HandleTopLeft:     {X: body.X, Y: body.Y},
		HandleTopRight:    {X: body.X + body.Width, Y: body.Y},
		HandleBottomLeft:  {X: body.X, Y: body.Y + body.Height},
		HandleBottomRight: {X: body.X + body.Width, Y: body.Y + body.Height},
	}
	o.Handles = make([]HandleOverlay, 0, len(Handles))
	for _, h := range Handles {
		pt := corners[h]
		o.Handles = append(o.Handles, HandleOverlay{
			Handle: h,
			Rect: geometry.Rect{
				X:      pt.X - HandleSize/2,
				Y:      pt.Y - HandleSize/2,
				Width:  HandleSize,
				Height: HandleSize,
			},
		})
	}

	o.Ratings = make([]RatingOverlay, 0, MaxConfidence)
	x := o.LabelRect.X + LabelTextWidth
	y := o.LabelRect.Y + (LabelHeight-RatingButtonSize)/2
	for v := MinConfidence; v <= MaxConfidence; v++ {
		o.Ratings = append(o.Ratings, RatingOverlay{
			Value:    v,
			Rect:     geometry.Rect{X: x, Y: y, Width: RatingButtonSize, Height: RatingButtonSize},
			Selected: box.State == StateRated && box.Confidence == v,
		})
		x += RatingButtonSize + RatingButtonGap
	}
	return o
}

// HitTest resolves a display-space pointer position. Controls of the
// topmost box win; a rated body lets the pointer through to whatever lies
// below, an unrated body absorbs it.
func (c *Controller) HitTest(layout geometry.Layout, p geometry.Point) Target {
	if !layout.Measurable() {
		return Target{}
	}
	local := geometry.Point{X: p.X - layout.Canvas.X, Y: p.Y - layout.Canvas.Y}
	overlays := c.Overlays(layout)

	for i := len(overlays) - 1; i >= 0; i-- {
		o := overlays[i]
		if o.State == StateDrafting {
			continue
		}
		for _, h := range o.Handles {
			if h.Rect.Contains(local) {
				return Target{Kind: TargetHandle, Box: o.Box, Handle: h.Handle}
			}
		}
		if o.Delete.Contains(local) {
			return Target{Kind: TargetDelete, Box: o.Box}
		}
		for _, r := range o.Ratings {
			if r.Rect.Contains(local) {
				return Target{Kind: TargetRating, Box: o.Box, Rating: r.Value}
			}
		}
	}
	for i := len(overlays) - 1; i >= 0; i-- {
		o := overlays[i]
		if o.State == StateDrafting || o.PassThrough {
			continue
		}
		if o.Body.Contains(local) || o.LabelRect.Contains(local) {
			return Target{Kind: TargetBody, Box: o.Box}
		}
	}
	if layout.Canvas.Contains(p) {
		return Target{Kind: TargetCanvas}
	}
	return Target{}
}

// Dispatch routes a pointer-down through HitTest: canvas and handles start
// gestures, rating and delete controls act immediately.
func (c *Controller) Dispatch(p geometry.Point) (Target, error) {
	target := c.HitTest(c.layout, p)
	switch target.Kind {
	case TargetCanvas, TargetHandle:
		c.PointerDown(p, target)
	case TargetRating:
		return target, c.Rate(target.Box, target.Rating)
	case TargetDelete:
		return target, c.Delete(target.Box)
	}
	return target, nil
}
