package canvas

import (
	"errors"
	"fmt"

	"clipmark/internal/geometry"
)

var (
	// ErrUnknownBox is returned when an operation names a box that is not in
	// the collection.
	ErrUnknownBox = errors.New("unknown box")
	// ErrInvalidRating is returned for confidence values outside 1..5.
	ErrInvalidRating = errors.New("confidence must be between 1 and 5")
	// ErrBoxBusy is returned when deleting a box that is being resized.
	ErrBoxBusy = errors.New("box is mid-gesture")
)

const (
	// MinConfidence is the lowest rating a box accepts.
	MinConfidence = 1
	// MaxConfidence is the highest rating a box accepts.
	MaxConfidence = 5
	// DefaultMinBoxSize is the smallest committed width and height in logical units.
	DefaultMinBoxSize = 10
)

// BoxID identifies a box for the lifetime of a session. IDs are never reused.
type BoxID int64

// State is a box's position in its lifecycle.
type State int

const (
	StateDrafting State = iota
	StateCommitted
	StateRated
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateDrafting:
		return "drafting"
	case StateCommitted:
		return "committed"
	case StateRated:
		return "rated"
	case StateDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Handle names a resize corner.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

// Handles lists every corner in display order.
var Handles = [4]Handle{HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight}

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "tl"
	case HandleTopRight:
		return "tr"
	case HandleBottomLeft:
		return "bl"
	case HandleBottomRight:
		return "br"
	default:
		return fmt.Sprintf("handle(%d)", int(h))
	}
}

// ParseHandle accepts tl/tr/bl/br or the long corner names.
func ParseHandle(value string) (Handle, error) {
	switch value {
	case "tl", "top-left":
		return HandleTopLeft, nil
	case "tr", "top-right":
		return HandleTopRight, nil
	case "bl", "bottom-left":
		return HandleBottomLeft, nil
	case "br", "bottom-right":
		return HandleBottomRight, nil
	default:
		return 0, fmt.Errorf("unknown handle %q", value)
	}
}

// Box is one annotated region. Confidence is zero until rated.
type Box struct {
	ID         BoxID
	Rect       geometry.LogicalRect
	Confidence int
	State      State
}

// Rated reports whether the box carries a valid confidence.
func (b Box) Rated() bool {
	return b.State == StateRated && b.Confidence >= MinConfidence && b.Confidence <= MaxConfidence
}

// Label returns the display label for a box at the zero-based position.
func Label(position int) string {
	return fmt.Sprintf("Group %d", position+1)
}

// Group is the submitted form of a box.
type Group struct {
	GroupID    int
	BBox       [4]int
	Confidence int
}

func validRating(value int) bool {
	return value >= MinConfidence && value <= MaxConfidence
}

// moveCorner updates the coordinates owned by handle; the opposite corner
// stays put. Handles address the rectangle as currently normalized.
func moveCorner(r geometry.LogicalRect, handle Handle, p geometry.Point) geometry.LogicalRect {
	switch handle {
	case HandleTopLeft:
		r.X1, r.Y1 = p.X, p.Y
	case HandleTopRight:
		r.X2, r.Y1 = p.X, p.Y
	case HandleBottomLeft:
		r.X1, r.Y2 = p.X, p.Y
	case HandleBottomRight:
		r.X2, r.Y2 = p.X, p.Y
	}
	return r
}
