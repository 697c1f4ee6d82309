package geometry

import "math"

const (
	// LogicalWidth is the width of the logical coordinate space.
	LogicalWidth = 1920
	// LogicalHeight is the height of the logical coordinate space.
	LogicalHeight = 1080
)

// Point is a position in either display pixels or logical units.
type Point struct {
	X float64
	Y float64
}

// Rect is an on-screen rectangle in display pixels.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Measurable reports whether the rectangle has a usable size.
func (r Rect) Measurable() bool {
	return r.Width > 0 && r.Height > 0 &&
		!math.IsNaN(r.Width) && !math.IsNaN(r.Height) &&
		!math.IsInf(r.Width, 0) && !math.IsInf(r.Height, 0)
}

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// LogicalRect is a rectangle in logical units given by two corners. It is
// only guaranteed to satisfy X1<=X2 and Y1<=Y2 after Normalize.
type LogicalRect struct {
	X1 float64
	Y1 float64
	X2 float64
	Y2 float64
}

// Collapsed returns a zero-size rectangle at p.
func Collapsed(p Point) LogicalRect {
	return LogicalRect{X1: p.X, Y1: p.Y, X2: p.X, Y2: p.Y}
}

// Normalize orders the corners so that X1<=X2 and Y1<=Y2.
func (r LogicalRect) Normalize() LogicalRect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Width returns the absolute horizontal extent.
func (r LogicalRect) Width() float64 { return math.Abs(r.X2 - r.X1) }

// Height returns the absolute vertical extent.
func (r LogicalRect) Height() float64 { return math.Abs(r.Y2 - r.Y1) }

// Rounded returns the corners as integers in x1, y1, x2, y2 order.
func (r LogicalRect) Rounded() [4]int {
	return [4]int{
		int(math.Round(r.X1)),
		int(math.Round(r.Y1)),
		int(math.Round(r.X2)),
		int(math.Round(r.Y2)),
	}
}

// Mapper converts between display pixels and logical units for one image
// placement.
type Mapper struct {
	Image Rect
}

// NewMapper returns a mapper for the image's current on-screen rectangle.
func NewMapper(image Rect) Mapper {
	return Mapper{Image: image}
}

// ToLogical maps a display position into logical space.
func (m Mapper) ToLogical(p Point) (Point, bool) {
	if !m.Image.Measurable() {
		return Point{}, false
	}
	return Point{
		X: (p.X - m.Image.X) / m.Image.Width * LogicalWidth,
		Y: (p.Y - m.Image.Y) / m.Image.Height * LogicalHeight,
	}, true
}

// ToDisplay maps a logical position to display pixels, offset by the image's
// on-screen position.
func (m Mapper) ToDisplay(p Point) (Point, bool) {
	if !m.Image.Measurable() {
		return Point{}, false
	}
	return Point{
		X: m.Image.X + p.X/LogicalWidth*m.Image.Width,
		Y: m.Image.Y + p.Y/LogicalHeight*m.Image.Height,
	}, true
}

// RectToDisplay maps a logical rectangle to a display rectangle.
func (m Mapper) RectToDisplay(r LogicalRect) (Rect, bool) {
	n := r.Normalize()
	tl, ok := m.ToDisplay(Point{X: n.X1, Y: n.Y1})
	if !ok {
		return Rect{}, false
	}
	br, _ := m.ToDisplay(Point{X: n.X2, Y: n.Y2})
	return Rect{X: tl.X, Y: tl.Y, Width: br.X - tl.X, Height: br.Y - tl.Y}, true
}

// Layout captures where the drawing canvas and the displayed image sit on
// screen. Overlays are positioned relative to the canvas origin.
type Layout struct {
	Canvas Rect
	Image  Rect
}

// Mapper builds a fresh mapper from the current image placement.
func (l Layout) Mapper() Mapper {
	return NewMapper(l.Image)
}

// Measurable reports whether mapping can proceed.
func (l Layout) Measurable() bool {
	return l.Image.Measurable()
}

// ToCanvas maps a logical point to coordinates relative to the canvas origin.
func (l Layout) ToCanvas(p Point) (Point, bool) {
	d, ok := l.Mapper().ToDisplay(p)
	if !ok {
		return Point{}, false
	}
	return Point{X: d.X - l.Canvas.X, Y: d.Y - l.Canvas.Y}, true
}

// RectToCanvas maps a logical rectangle to canvas-relative display pixels.
func (l Layout) RectToCanvas(r LogicalRect) (Rect, bool) {
	d, ok := l.Mapper().RectToDisplay(r)
	if !ok {
		return Rect{}, false
	}
	d.X -= l.Canvas.X
	d.Y -= l.Canvas.Y
	return d, true
}

// Fit returns the rectangle an image of the logical aspect ratio occupies
// when letterboxed into a container of the given size.
func Fit(container Rect) Rect {
	if !container.Measurable() {
		return Rect{X: container.X, Y: container.Y}
	}
	// The limiting axis takes the container size exactly so its offset is 0.
	w, h := container.Width, container.Height
	if container.Width/LogicalWidth <= container.Height/LogicalHeight {
		h = math.Min(h, container.Width*LogicalHeight/LogicalWidth)
	} else {
		w = math.Min(w, container.Height*LogicalWidth/LogicalHeight)
	}
	return Rect{
		X:      container.X + math.Max(0, container.Width-w)/2,
		Y:      container.Y + math.Max(0, container.Height-h)/2,
		Width:  w,
		Height: h,
	}
}
