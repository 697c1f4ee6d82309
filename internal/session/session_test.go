package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"clipmark/internal/canvas"
	"clipmark/internal/clock"
	"clipmark/internal/gateway"
	"clipmark/internal/geometry"
	"clipmark/internal/logging"
)

type fakeGateway struct {
	mu          sync.Mutex
	annotatorID string
	idErr       error
	list        gateway.ClipList
	listErr     error
	frameErrs   map[int]error
	submitErr   error
	summaryErr  error

	frameCalls []int
	submitted  []gateway.AnnotationRecord
	summaries  []gateway.SessionSummary

	// When set, SubmitAnnotation signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeGateway) GetAnnotatorID(context.Context) (string, error) {
	return f.annotatorID, f.idErr
}

func (f *fakeGateway) ListClips(context.Context) (gateway.ClipList, error) {
	return f.list, f.listErr
}

func (f *fakeGateway) GetFrameImage(_ context.Context, clipIndex, frameIndex int) (gateway.Frame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frameCalls = append(f.frameCalls, frameIndex)
	if err := f.frameErrs[frameIndex]; err != nil {
		return gateway.Frame{}, err
	}
	return gateway.Frame{Data: []byte{byte(clipIndex), byte(frameIndex)}, ContentType: "image/jpeg"}, nil
}

func (f *fakeGateway) SubmitAnnotation(_ context.Context, record gateway.AnnotationRecord) (gateway.Ack, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return gateway.Ack{}, f.submitErr
	}
	f.submitted = append(f.submitted, record)
	return gateway.Ack{Success: true, AnnotationID: int64(len(f.submitted))}, nil
}

func (f *fakeGateway) SubmitSessionSummary(_ context.Context, summary gateway.SessionSummary) (gateway.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.summaryErr != nil {
		return gateway.Ack{}, f.summaryErr
	}
	f.summaries = append(f.summaries, summary)
	return gateway.Ack{Success: true, Stored: len(summary.Annotations)}, nil
}

var halfScale = geometry.Layout{
	Canvas: geometry.Rect{Width: 960, Height: 540},
	Image:  geometry.Rect{Width: 960, Height: 540},
}

type harness struct {
	session *Session
	gw      *fakeGateway
	clock   *clock.Manual
	alerts  []string
}

func newHarness(t *testing.T, gw *fakeGateway, opts Options) *harness {
	t.Helper()
	h := &harness{gw: gw, clock: clock.NewManual(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))}
	h.session = New(Dependencies{
		Gateway:  gw,
		Clock:    h.clock,
		Executor: Inline{},
		Logger:   logging.NewNop(),
		Alerter:  AlertFunc(func(msg string) { h.alerts = append(h.alerts, msg) }),
		Spawn:    func(fn func()) { fn() },
	}, opts)
	h.session.Canvas().SetLayout(halfScale)
	return h
}

func twoClips() *fakeGateway {
	return &fakeGateway{
		annotatorID: "ann-1",
		list: gateway.ClipList{
			StartIndex: 30,
			Clips: []gateway.Clip{
				{Index: 30, Folder: "clip_030", Frames: 50},
				{Index: 31, Folder: "clip_031"},
			},
			TotalClips: 2,
		},
	}
}

// draw drags between two logical points on the half-scale layout.
func draw(t *testing.T, c *canvas.Controller, x1, y1, x2, y2 float64) canvas.Box {
	t.Helper()
	if !c.PointerDown(geometry.Point{X: x1 / 2, Y: y1 / 2}, canvas.Target{Kind: canvas.TargetCanvas}) {
		t.Fatal("draw did not start")
	}
	if !c.PointerUp(geometry.Point{X: x2 / 2, Y: y2 / 2}) {
		t.Fatal("draw did not commit")
	}
	box, _ := c.BoxAt(c.Len() - 1)
	return box
}

func TestSubmitEndToEndExample(t *testing.T) {
	h := newHarness(t, twoClips(), Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	box := draw(t, h.session.Canvas(), 100, 100, 500, 400)
	if err := h.session.Canvas().Rate(box.ID, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	outcome, err := h.session.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(h.gw.submitted) != 1 {
		t.Fatalf("expected one submission, got %d", len(h.gw.submitted))
	}
	record := h.gw.submitted[0]
	if record.GroupCount != 1 || len(record.Groups) != 1 {
		t.Fatalf("unexpected groups: %+v", record.Groups)
	}
	want := gateway.Group{GroupID: 1, BBox: [4]int{100, 100, 500, 400}, Confidence: 4}
	if record.Groups[0] != want {
		t.Fatalf("group = %+v, want %+v", record.Groups[0], want)
	}
	if record.ClipPosition != 1 || record.GlobalIndex != 31 || record.ClipFolder != "clip_030" {
		t.Fatalf("unexpected clip identity: %+v", record)
	}
	if record.ClipInfo != gateway.NewClipInfo(50) {
		t.Fatalf("unexpected clip info: %+v", record.ClipInfo)
	}
	if !record.Timestamp.Equal(h.clock.Now()) {
		t.Fatalf("unexpected timestamp: %v", record.Timestamp)
	}
	if err := record.Validate(); err != nil {
		t.Fatalf("record invalid: %v", err)
	}
	if outcome.Completed || outcome.Next != 1 {
		t.Fatalf("expected to advance to clip 2, got %+v", outcome)
	}
}

func TestSubmitRejectedWhileUnrated(t *testing.T) {
	h := newHarness(t, twoClips(), Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	rated := draw(t, h.session.Canvas(), 0, 0, 200, 200)
	if err := h.session.Canvas().Rate(rated.ID, 2); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	draw(t, h.session.Canvas(), 300, 300, 600, 600)

	if _, err := h.session.Submit(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
	if len(h.gw.submitted) != 0 {
		t.Fatal("backend must not be contacted")
	}
	if len(h.alerts) != 1 || h.alerts[0] != MessageNotReady {
		t.Fatalf("unexpected alerts: %v", h.alerts)
	}
	if h.session.Canvas().Len() != 2 || h.session.Snapshot().Position != 0 {
		t.Fatal("rejected submit must keep local state")
	}
}

func TestSubmitWithNoBoxesIsAllowed(t *testing.T) {
	h := newHarness(t, twoClips(), Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := h.session.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rec := h.gw.submitted[0]
	if rec.GroupCount != 0 || rec.Groups == nil || len(rec.Groups) != 0 {
		t.Fatalf("expected empty non-nil groups, got %+v", rec.Groups)
	}
	if rec.WasWatched {
		t.Fatal("clip was never played")
	}
}

func TestSubmitFailureKeepsStateForRetry(t *testing.T) {
	gw := twoClips()
	gw.submitErr = errors.New("connection reset")
	h := newHarness(t, gw, Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	box := draw(t, h.session.Canvas(), 100, 100, 500, 400)
	_ = h.session.Canvas().Rate(box.ID, 5)

	if _, err := h.session.Submit(ctx); !errors.Is(err, ErrSubmitFailed) {
		t.Fatalf("expected ErrSubmitFailed, got %v", err)
	}
	snap := h.session.Snapshot()
	if snap.Position != 0 || len(snap.Boxes) != 1 || snap.Boxes[0].Confidence != 5 {
		t.Fatalf("state lost after failure: %+v", snap)
	}
	if len(h.alerts) == 0 || h.alerts[len(h.alerts)-1] != MessageSubmitFailed {
		t.Fatalf("expected submit failure alert, got %v", h.alerts)
	}

	gw.mu.Lock()
	gw.submitErr = nil
	gw.mu.Unlock()
	if _, err := h.session.Submit(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(gw.submitted) != 1 || gw.submitted[0].GlobalIndex != 31 {
		t.Fatalf("unexpected retry submission: %+v", gw.submitted)
	}
}

func TestSecondSubmitWhileInFlightIsRejected(t *testing.T) {
	gw := twoClips()
	gw.entered = make(chan struct{})
	gw.release = make(chan struct{})
	h := newHarness(t, gw, Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.session.Submit(ctx)
		done <- err
	}()
	<-gw.entered

	if !h.session.Submitting() {
		t.Fatal("expected submission to be outstanding")
	}
	if _, err := h.session.Submit(ctx); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(gw.release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if len(gw.submitted) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(gw.submitted))
	}
}

func TestLoadClipRefusedWhileSubmitting(t *testing.T) {
	gw := twoClips()
	gw.list.Clips = append(gw.list.Clips, gateway.Clip{Index: 32, Folder: "clip_032", Frames: 50})
	gw.list.TotalClips = 3
	gw.entered = make(chan struct{})
	gw.release = make(chan struct{})
	h := newHarness(t, gw, Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		outcome, err := h.session.Submit(ctx)
		done <- result{outcome, err}
	}()
	<-gw.entered

	if err := h.session.LoadClip(ctx, 2); !errors.Is(err, ErrSubmitInProgress) {
		t.Fatalf("expected ErrSubmitInProgress, got %v", err)
	}
	close(gw.release)
	res := <-done
	if res.err != nil {
		t.Fatalf("submit: %v", res.err)
	}
	if res.outcome.Completed || res.outcome.Next != 1 {
		t.Fatalf("expected advance to position 1, got %+v", res.outcome)
	}
	snap := h.session.Snapshot()
	if snap.Completed || snap.Position != 1 || snap.Clip.Folder != "clip_031" {
		t.Fatalf("unexpected snapshot after submit: %+v", snap)
	}
	if snap.GlobalIndex != 32 {
		t.Fatalf("global index = %d, want 32", snap.GlobalIndex)
	}
}

func TestWatchTimeAndClipResetAcrossSubmit(t *testing.T) {
	h := newHarness(t, twoClips(), Options{})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	p := h.session.Playback()

	p.Play()
	h.clock.Advance(2 * time.Second)
	p.Pause()
	p.Play()
	h.clock.Advance(time.Second)

	if _, err := h.session.Submit(ctx); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rec := h.gw.submitted[0]
	if !rec.WasWatched || rec.TotalWatchTimeMs != 3000 {
		t.Fatalf("unexpected watch accounting: watched=%v ms=%d", rec.WasWatched, rec.TotalWatchTimeMs)
	}
	if h.clock.Pending() != 0 {
		t.Fatal("timer must be cancelled when the clip changes")
	}

	h.clock.Advance(5 * time.Second)
	snap := h.session.Snapshot()
	if snap.Clip.Folder != "clip_031" || snap.GlobalIndex != 32 || snap.Position != 1 {
		t.Fatalf("unexpected clip after advance: %+v", snap)
	}
	if snap.Playback.CurrentFrame != 0 || snap.Playback.Playing || snap.Playback.Watched || snap.WatchTime != 0 {
		t.Fatalf("playback not reset: %+v", snap.Playback)
	}
	if snap.Playback.TotalFrames != 50 {
		t.Fatalf("expected default frame count for clip without frames, got %d", snap.Playback.TotalFrames)
	}
}

func TestCompletionSendsSummaryWhenAggregating(t *testing.T) {
	gw := twoClips()
	h := newHarness(t, gw, Options{AggregateSummary: true})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := h.session.Submit(ctx); err != nil {
		t.Fatalf("Submit 1: %v", err)
	}
	outcome, err := h.session.Submit(ctx)
	if err != nil {
		t.Fatalf("Submit 2: %v", err)
	}
	if !outcome.Completed || outcome.Next != -1 {
		t.Fatalf("expected completion, got %+v", outcome)
	}
	if len(gw.summaries) != 1 || gw.summaries[0].TotalClips != 2 || len(gw.summaries[0].Annotations) != 2 {
		t.Fatalf("unexpected summaries: %+v", gw.summaries)
	}
	if _, err := h.session.Submit(ctx); !errors.Is(err, ErrCompleted) {
		t.Fatalf("expected ErrCompleted, got %v", err)
	}
	if !h.session.Snapshot().Completed {
		t.Fatal("snapshot should report completion")
	}
}

func TestSummaryFailureIsBestEffort(t *testing.T) {
	gw := twoClips()
	gw.list.Clips = gw.list.Clips[:1]
	gw.summaryErr = errors.New("boom")
	h := newHarness(t, gw, Options{AggregateSummary: true})
	ctx := context.Background()
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	outcome, err := h.session.Submit(ctx)
	if err != nil {
		t.Fatalf("summary failure must not fail submit: %v", err)
	}
	if !outcome.Completed {
		t.Fatal("expected completion")
	}
	if h.alerts[len(h.alerts)-1] != MessageSummaryFailed {
		t.Fatalf("expected summary alert, got %v", h.alerts)
	}
}

func TestStartFailures(t *testing.T) {
	listDown := twoClips()
	listDown.listErr = errors.New("503")
	h := newHarness(t, listDown, Options{})
	if err := h.session.Start(context.Background()); !errors.Is(err, ErrClipListUnavailable) {
		t.Fatalf("expected ErrClipListUnavailable, got %v", err)
	}
	if len(h.alerts) != 1 || h.alerts[0] != MessageClipListFailed {
		t.Fatalf("unexpected alerts: %v", h.alerts)
	}

	empty := twoClips()
	empty.list = gateway.ClipList{}
	h = newHarness(t, empty, Options{})
	if err := h.session.Start(context.Background()); !errors.Is(err, ErrNoClips) {
		t.Fatalf("expected ErrNoClips, got %v", err)
	}
	if _, err := h.session.Submit(context.Background()); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	empty.list = twoClips().list
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("Start should be retryable after an empty clip list: %v", err)
	}

	idDown := twoClips()
	idDown.idErr = errors.New("no cookie")
	h = newHarness(t, idDown, Options{})
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("annotator id failure should not block start: %v", err)
	}
	if err := h.session.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestFrameFetchFailureKeepsPreviousFrame(t *testing.T) {
	gw := twoClips()
	gw.frameErrs = map[int]error{1: errors.New("404")}
	h := newHarness(t, gw, Options{})
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	frame, idx, ok := h.session.Frame()
	if !ok || idx != 0 || frame.Data[1] != 0 {
		t.Fatalf("expected reference frame 0, got idx=%d ok=%v", idx, ok)
	}

	h.session.Playback().Next()
	frame, idx, ok = h.session.Frame()
	if !ok || idx != 0 || frame.Data[1] != 0 {
		t.Fatalf("failed fetch replaced frame: idx=%d", idx)
	}
	if len(h.alerts) != 1 {
		t.Fatalf("expected one alert, got %v", h.alerts)
	}

	h.session.Playback().Next()
	_, idx, _ = h.session.Frame()
	if idx != 2 {
		t.Fatalf("expected frame 2 after recovery, got %d", idx)
	}
}

func TestAutoplayRequestsEachFrame(t *testing.T) {
	gw := twoClips()
	h := newHarness(t, gw, Options{FrameRate: 5})
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	h.session.Playback().Play()
	h.clock.Advance(time.Second)

	want := []int{0, 1, 2, 3, 4, 5}
	if len(gw.frameCalls) != len(want) {
		t.Fatalf("frame calls = %v, want %v", gw.frameCalls, want)
	}
	for i := range want {
		if gw.frameCalls[i] != want[i] {
			t.Fatalf("frame calls = %v, want %v", gw.frameCalls, want)
		}
	}
}

func TestLoadClipValidatesPosition(t *testing.T) {
	h := newHarness(t, twoClips(), Options{})
	ctx := context.Background()
	if err := h.session.LoadClip(ctx, 0); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("expected ErrNotStarted, got %v", err)
	}
	if err := h.session.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.session.LoadClip(ctx, 5); err == nil {
		t.Fatal("expected out-of-range error")
	}
	draw(t, h.session.Canvas(), 0, 0, 100, 100)
	if err := h.session.LoadClip(ctx, 1); err != nil {
		t.Fatalf("LoadClip: %v", err)
	}
	if h.session.Canvas().Len() != 0 {
		t.Fatal("loading a clip must clear boxes")
	}
}
