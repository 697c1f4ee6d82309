package canvas

import (
	"math"
	"testing"

	"clipmark/internal/geometry"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestOverlaysProjectFromModel(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 100, 100, 500, 400)

	overlays := c.Overlays(halfScale)
	if len(overlays) != 1 {
		t.Fatalf("expected one overlay, got %d", len(overlays))
	}
	o := overlays[0]
	if !near(o.Body.X, 50) || !near(o.Body.Y, 50) || !near(o.Body.Width, 200) || !near(o.Body.Height, 150) {
		t.Fatalf("unexpected body: %+v", o.Body)
	}
	if o.Label != "Group 1" || o.LabelFlipped {
		t.Fatalf("unexpected label %q flipped=%v", o.Label, o.LabelFlipped)
	}
	if len(o.Handles) != 4 || len(o.Ratings) != 5 {
		t.Fatalf("expected 4 handles and 5 rating buttons, got %d/%d", len(o.Handles), len(o.Ratings))
	}
	if o.PassThrough {
		t.Fatal("unrated body must intercept pointer events")
	}

	// Same logical box on a larger viewport keeps its meaning.
	wide := geometry.Layout{
		Canvas: geometry.Rect{X: 10, Y: 10, Width: 1920, Height: 1080},
		Image:  geometry.Rect{X: 10, Y: 10, Width: 1920, Height: 1080},
	}
	big := c.Overlays(wide)[0]
	if !near(big.Body.X, 100) || !near(big.Body.Width, 400) {
		t.Fatalf("unexpected body on wide layout: %+v", big.Body)
	}
	box, _ := c.BoxAt(0)
	if box.Rect.Rounded() != [4]int{100, 100, 500, 400} {
		t.Fatalf("layout change altered model: %+v", box.Rect)
	}
}

func TestOverlaysFlipLabelAtRightEdge(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 1700, 100, 1900, 300)

	o := c.Overlays(halfScale)[0]
	if !o.LabelFlipped {
		t.Fatal("expected label to flip near the right edge")
	}
	if !near(o.LabelRect.X+o.LabelRect.Width, o.Body.X+o.Body.Width) {
		t.Fatalf("flipped label should align to the box's right edge: %+v body %+v", o.LabelRect, o.Body)
	}
}

func TestOverlaysIncludeDraftAndRefuseUnmeasurable(t *testing.T) {
	c := newTestController()
	c.PointerDown(geometry.Point{X: 10, Y: 10}, Target{Kind: TargetCanvas})
	c.PointerMove(geometry.Point{X: 60, Y: 60})
	overlays := c.Overlays(halfScale)
	if len(overlays) != 1 || overlays[0].State != StateDrafting || overlays[0].Label != "" {
		t.Fatalf("expected undecorated draft overlay, got %+v", overlays)
	}
	if got := c.Overlays(geometry.Layout{}); got != nil {
		t.Fatalf("expected nil overlays for unmeasurable layout, got %d", len(got))
	}
}

func TestHitTestResolvesControls(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 100, 100, 500, 400)
	box, _ := c.BoxAt(0)

	tests := []struct {
		name string
		at   geometry.Point
		want Target
	}{
		{"top-left handle", geometry.Point{X: 50, Y: 50}, Target{Kind: TargetHandle, Box: box.ID, Handle: HandleTopLeft}},
		{"bottom-right handle", geometry.Point{X: 252, Y: 198}, Target{Kind: TargetHandle, Box: box.ID, Handle: HandleBottomRight}},
		{"delete", geometry.Point{X: 37, Y: 42}, Target{Kind: TargetDelete, Box: box.ID}},
		{"rating 1", geometry.Point{X: 140, Y: 35}, Target{Kind: TargetRating, Box: box.ID, Rating: 1}},
		{"rating 2", geometry.Point{X: 160, Y: 35}, Target{Kind: TargetRating, Box: box.ID, Rating: 2}},
		{"unrated body", geometry.Point{X: 150, Y: 150}, Target{Kind: TargetBody, Box: box.ID}},
		{"empty canvas", geometry.Point{X: 600, Y: 400}, Target{Kind: TargetCanvas}},
		{"outside", geometry.Point{X: 2000, Y: 2000}, Target{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.HitTest(halfScale, tc.at); got != tc.want {
				t.Fatalf("got %+v want %+v", got, tc.want)
			}
		})
	}
}

func TestRatedBodyPassesThroughButControlsStayLive(t *testing.T) {
	c := newTestController()
	drawLogical(t, c, 100, 100, 500, 400)
	drawLogical(t, c, 800, 600, 1200, 900)
	rated, _ := c.BoxAt(0)
	unrated, _ := c.BoxAt(1)
	if err := c.Rate(rated.ID, 3); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	if got := c.HitTest(halfScale, geometry.Point{X: 150, Y: 150}); got.Kind != TargetCanvas {
		t.Fatalf("rated body should pass through, got %+v", got)
	}
	if got := c.HitTest(halfScale, geometry.Point{X: 50, Y: 50}); got.Kind != TargetHandle || got.Box != rated.ID {
		t.Fatalf("rated handles should stay interactive, got %+v", got)
	}
	if got := c.HitTest(halfScale, geometry.Point{X: 500, Y: 400}); got.Kind != TargetBody || got.Box != unrated.ID {
		t.Fatalf("sibling unrated body should stay interactive, got %+v", got)
	}
	overlays := c.Overlays(halfScale)
	if !overlays[0].PassThrough || overlays[1].PassThrough {
		t.Fatalf("unexpected pass-through flags: %v %v", overlays[0].PassThrough, overlays[1].PassThrough)
	}
	if !overlays[0].Ratings[2].Selected {
		t.Fatal("expected rating 3 to be selected")
	}
}

func TestDispatchRoutesPointerDown(t *testing.T) {
	c := newTestController()
	if target, err := c.Dispatch(geometry.Point{X: 50, Y: 50}); err != nil || target.Kind != TargetCanvas {
		t.Fatalf("expected draw start, got %+v %v", target, err)
	}
	c.PointerUp(geometry.Point{X: 250, Y: 200})
	box, _ := c.BoxAt(0)

	if _, err := c.Dispatch(geometry.Point{X: 180, Y: 35}); err != nil {
		t.Fatalf("rating dispatch: %v", err)
	}
	got, _ := c.BoxAt(0)
	if got.Confidence != 3 {
		t.Fatalf("expected rating 3 from dispatch, got %d", got.Confidence)
	}

	if _, err := c.Dispatch(geometry.Point{X: 37, Y: 42}); err != nil {
		t.Fatalf("delete dispatch: %v", err)
	}
	if _, _, ok := c.Lookup(box.ID); ok {
		t.Fatal("expected box to be deleted")
	}
}
