package canvas

import (
	"errors"
	"testing"

	"clipmark/internal/geometry"
)

// halfScale displays the logical space at 960x540, so display = logical/2.
var halfScale = geometry.Layout{
	Canvas: geometry.Rect{Width: 960, Height: 540},
	Image:  geometry.Rect{Width: 960, Height: 540},
}

func newTestController(opts ...Option) *Controller {
	return New(append([]Option{WithLayout(halfScale)}, opts...)...)
}

func drawLogical(t *testing.T, c *Controller, x1, y1, x2, y2 float64) bool {
	t.Helper()
	if !c.PointerDown(geometry.Point{X: x1 / 2, Y: y1 / 2}, Target{Kind: TargetCanvas}) {
		t.Fatalf("pointer down at (%v,%v) did not start a draw", x1, y1)
	}
	c.PointerMove(geometry.Point{X: (x1 + x2) / 4, Y: (y1 + y2) / 4})
	return c.PointerUp(geometry.Point{X: x2 / 2, Y: y2 / 2})
}

func TestDrawNormalizesRegardlessOfDirection(t *testing.T) {
	forward := newTestController()
	backward := newTestController()

	if !drawLogical(t, forward, 100, 100, 500, 400) {
		t.Fatal("expected forward draw to commit")
	}
	if !drawLogical(t, backward, 500, 400, 100, 100) {
		t.Fatal("expected backward draw to commit")
	}

	want := geometry.LogicalRect{X1: 100, Y1: 100, X2: 500, Y2: 400}
	for name, c := range map[string]*Controller{"forward": forward, "backward": backward} {
		box, ok := c.BoxAt(0)
		if !ok {
			t.Fatalf("%s: missing box", name)
		}
		if box.Rect.Rounded() != want.Rounded() {
			t.Fatalf("%s: got %+v want %+v", name, box.Rect, want)
		}
		if box.State != StateCommitted || box.Confidence != 0 {
			t.Fatalf("%s: unexpected state %v confidence %d", name, box.State, box.Confidence)
		}
	}
}

func TestSmallDrawsAreDiscarded(t *testing.T) {
	var events []Event
	c := newTestController(WithListener(func(e Event) { events = append(events, e) }))

	tests := []struct {
		name           string
		x1, y1, x2, y2 float64
	}{
		{"narrow", 100, 100, 108, 400},
		{"short", 100, 100, 400, 109.9},
		{"point", 300, 300, 300, 300},
		{"narrow reversed", 400, 400, 392, 100},
	}
	for _, tc := range tests {
		if drawLogical(t, c, tc.x1, tc.y1, tc.x2, tc.y2) {
			t.Fatalf("%s: expected discard", tc.name)
		}
	}
	if c.Len() != 0 {
		t.Fatalf("expected no committed boxes, got %d", c.Len())
	}
	for _, e := range events {
		if e.Kind != EventDiscarded {
			t.Fatalf("unexpected event %v", e.Kind)
		}
	}
	if !c.Ready() {
		t.Fatal("empty collection should be ready")
	}
}

func TestJustAboveMinimumSizeCommits(t *testing.T) {
	c := newTestController()
	if !drawLogical(t, c, 100, 100, 111, 111) {
		t.Fatal("11x11 box should commit")
	}
}

func TestUnmeasurableLayoutIgnoresGestures(t *testing.T) {
	c := New(WithLayout(geometry.Layout{Canvas: geometry.Rect{Width: 100, Height: 100}}))
	if c.PointerDown(geometry.Point{X: 10, Y: 10}, Target{Kind: TargetCanvas}) {
		t.Fatal("expected pointer down to be ignored without image size")
	}
	if c.Gesturing() {
		t.Fatal("no gesture should be active")
	}

	c.SetLayout(halfScale)
	if !c.PointerDown(geometry.Point{X: 10, Y: 10}, Target{Kind: TargetCanvas}) {
		t.Fatal("expected draw once layout is measurable")
	}
	c.SetLayout(geometry.Layout{})
	if c.PointerMove(geometry.Point{X: 300, Y: 300}) {
		t.Fatal("move should be ignored while layout is unmeasurable")
	}
	draft, _ := c.Draft()
	if got := draft.Rect.Rounded(); got[2] != 20 || got[3] != 20 {
		t.Fatalf("draft moved without layout: %+v", draft.Rect)
	}
}

func TestRateIsIdempotent(t *testing.T) {
	var events []Event
	c := newTestController(WithListener(func(e Event) { events = append(events, e) }))
	drawLogical(t, c, 100, 100, 500, 400)
	box, _ := c.BoxAt(0)
	events = nil

	if err := c.Rate(box.ID, 3); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := c.Rate(box.ID, 3); err != nil {
		t.Fatalf("Rate again: %v", err)
	}
	if len(events) != 1 || events[0].Kind != EventRated {
		t.Fatalf("expected a single rated event, got %+v", events)
	}
	got, _ := c.BoxAt(0)
	if got.State != StateRated || got.Confidence != 3 {
		t.Fatalf("unexpected box: %+v", got)
	}

	if err := c.Rate(box.ID, 5); err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	got, _ = c.BoxAt(0)
	if got.Confidence != 5 || got.State != StateRated {
		t.Fatalf("re-rate did not overwrite: %+v", got)
	}
	if events[len(events)-1].Kind != EventConfidenceChanged {
		t.Fatalf("expected confidence change event, got %v", events[len(events)-1].Kind)
	}
}

func TestRateRejectsInvalidInput(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 100, 100, 500, 400)
	box, _ := c.BoxAt(0)

	for _, v := range []int{0, 6, -1} {
		if err := c.Rate(box.ID, v); !errors.Is(err, ErrInvalidRating) {
			t.Fatalf("rating %d: expected ErrInvalidRating, got %v", v, err)
		}
	}
	if err := c.Rate(box.ID+100, 2); !errors.Is(err, ErrUnknownBox) {
		t.Fatalf("expected ErrUnknownBox, got %v", err)
	}
	got, _ := c.BoxAt(0)
	if got.State != StateCommitted || got.Confidence != 0 {
		t.Fatalf("invalid rating mutated box: %+v", got)
	}
}

func TestDeleteRenumbersAndNeverReusesIDs(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 0, 0, 100, 100)
	drawLogical(t, c, 200, 200, 300, 300)
	drawLogical(t, c, 400, 400, 500, 500)

	second, _ := c.BoxAt(1)
	third, _ := c.BoxAt(2)
	if err := c.Delete(second.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	moved, pos, ok := c.Lookup(third.ID)
	if !ok || pos != 1 {
		t.Fatalf("expected third box at position 1, got %d (ok=%v)", pos, ok)
	}
	overlays := c.Overlays(halfScale)
	if overlays[1].Label != "Group 2" || overlays[1].Box != moved.ID {
		t.Fatalf("expected renumbered label, got %q", overlays[1].Label)
	}
	if state, ok := c.StateOf(second.ID); !ok || state != StateDeleted {
		t.Fatalf("expected deleted state, got %v (ok=%v)", state, ok)
	}

	drawLogical(t, c, 600, 600, 700, 700)
	for _, box := range c.Boxes() {
		if box.ID == second.ID {
			t.Fatal("deleted id reappeared")
		}
	}
	if err := c.Delete(second.ID); !errors.Is(err, ErrUnknownBox) {
		t.Fatalf("expected ErrUnknownBox deleting twice, got %v", err)
	}
}

func TestDeleteRejectedMidResize(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 100, 100, 500, 400)
	box, _ := c.BoxAt(0)

	if !c.PointerDown(geometry.Point{X: 250, Y: 200}, Target{Kind: TargetHandle, Box: box.ID, Handle: HandleBottomRight}) {
		t.Fatal("expected resize to start")
	}
	if err := c.Delete(box.ID); !errors.Is(err, ErrBoxBusy) {
		t.Fatalf("expected ErrBoxBusy, got %v", err)
	}
	c.PointerLeave()
	if err := c.Delete(box.ID); err != nil {
		t.Fatalf("delete after gesture: %v", err)
	}
}

func TestResizeMovesOnlyGrabbedCorner(t *testing.T) {
	tests := []struct {
		handle Handle
		to     geometry.Point
		want   geometry.LogicalRect
	}{
		{HandleTopLeft, geometry.Point{X: 20, Y: 30}, geometry.LogicalRect{X1: 40, Y1: 60, X2: 500, Y2: 400}},
		{HandleTopRight, geometry.Point{X: 300, Y: 25}, geometry.LogicalRect{X1: 100, Y1: 50, X2: 600, Y2: 400}},
		{HandleBottomLeft, geometry.Point{X: 10, Y: 250}, geometry.LogicalRect{X1: 20, Y1: 100, X2: 500, Y2: 500}},
		{HandleBottomRight, geometry.Point{X: 400, Y: 300}, geometry.LogicalRect{X1: 100, Y1: 100, X2: 800, Y2: 600}},
		// Dragging past the opposite corner normalizes on release.
		{HandleBottomRight, geometry.Point{X: 25, Y: 25}, geometry.LogicalRect{X1: 50, Y1: 50, X2: 100, Y2: 100}},
	}
	for _, tc := range tests {
		t.Run(tc.handle.String(), func(t *testing.T) {
			c := newTestController()
			drawLogical(t, c, 100, 100, 500, 400)
			box, _ := c.BoxAt(0)
			if err := c.Rate(box.ID, 2); err != nil {
				t.Fatalf("Rate: %v", err)
			}

			c.PointerDown(tc.to, Target{Kind: TargetHandle, Box: box.ID, Handle: tc.handle})
			c.PointerUp(tc.to)

			got, _ := c.BoxAt(0)
			if got.Rect.Rounded() != tc.want.Rounded() {
				t.Fatalf("got %+v want %+v", got.Rect, tc.want)
			}
			if got.State != StateRated || got.Confidence != 2 {
				t.Fatalf("resize changed rating: %+v", got)
			}
		})
	}
}

func TestResizeWithUnknownBoxIsNoop(t *testing.T) {
	c := newTestController()
	if c.PointerDown(geometry.Point{X: 1, Y: 1}, Target{Kind: TargetHandle, Box: 42, Handle: HandleTopLeft}) {
		t.Fatal("expected stale handle to be ignored")
	}
	if c.PointerMove(geometry.Point{X: 5, Y: 5}) || c.PointerLeave() {
		t.Fatal("expected no gesture")
	}
}

func TestReadinessTracksRatings(t *testing.T) {
	c := newTestController()
	if !c.Ready() {
		t.Fatal("empty collection should be ready")
	}
	drawLogical(t, c, 0, 0, 100, 100)
	drawLogical(t, c, 200, 200, 300, 300)
	if c.Ready() {
		t.Fatal("unrated boxes should block readiness")
	}
	for _, box := range c.Boxes() {
		if err := c.Rate(box.ID, 4); err != nil {
			t.Fatalf("Rate: %v", err)
		}
	}
	if !c.Ready() {
		t.Fatal("all rated should be ready")
	}

	c.PointerDown(geometry.Point{X: 300, Y: 300}, Target{Kind: TargetCanvas})
	if c.Ready() {
		t.Fatal("a drafting box should block readiness")
	}
	c.PointerUp(geometry.Point{X: 400, Y: 400})
	if c.Ready() {
		t.Fatal("adding one unrated box should flip readiness to false")
	}
	if c.Unrated() != 1 {
		t.Fatalf("expected one unrated box, got %d", c.Unrated())
	}

	c.Clear()
	if c.Len() != 0 || !c.Ready() {
		t.Fatal("clear should empty the collection")
	}
}

func TestGroupsRoundAndNumber(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 100, 100, 500, 400)
	box, _ := c.BoxAt(0)
	if err := c.Rate(box.ID, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	groups := c.Groups()
	if len(groups) != 1 {
		t.Fatalf("expected one group, got %d", len(groups))
	}
	want := Group{GroupID: 1, BBox: [4]int{100, 100, 500, 400}, Confidence: 4}
	if groups[0] != want {
		t.Fatalf("got %+v want %+v", groups[0], want)
	}
}

func TestParseHandle(t *testing.T) {
	for input, want := range map[string]Handle{"tl": HandleTopLeft, "top-right": HandleTopRight, "bl": HandleBottomLeft, "br": HandleBottomRight} {
		got, err := ParseHandle(input)
		if err != nil || got != want {
			t.Fatalf("ParseHandle(%q) = %v, %v", input, got, err)
		}
	}
	if _, err := ParseHandle("middle"); err == nil {
		t.Fatal("expected error for unknown handle")
	}
}
