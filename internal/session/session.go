package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"clipmark/internal/canvas"
	"clipmark/internal/clock"
	"clipmark/internal/config"
	"clipmark/internal/gateway"
	"clipmark/internal/logging"
	"clipmark/internal/playback"
	"clipmark/internal/services"
)

// Options tunes clip handling.
type Options struct {
	FrameRate          float64
	DefaultTotalFrames int
	MinBoxSize         float64
	// AggregateSummary sends every record again as one batch when the last
	// clip is submitted.
	AggregateSummary bool
}

// OptionsFromConfig derives session options from the [annotation] section.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		FrameRate:          cfg.Annotation.BaseFrameRate,
		DefaultTotalFrames: cfg.Annotation.DefaultTotalFrames,
		MinBoxSize:         cfg.Annotation.MinBoxSize,
		AggregateSummary:   cfg.Annotation.AggregateSummary,
	}
}

// Dependencies are the collaborators a Session is built from.
type Dependencies struct {
	Gateway  gateway.Gateway
	Clock    clock.Clock
	Executor Executor
	Logger   *slog.Logger
	Alerter  Alerter
	// Spawn runs background work such as frame fetches. Defaults to a new
	// goroutine.
	Spawn func(func())
}

// Outcome describes a successful submission.
type Outcome struct {
	Record    gateway.AnnotationRecord
	Ack       gateway.Ack
	Completed bool
	// Next is the position of the clip now loaded, or -1 when complete.
	Next int
}

// Session is one annotator's pass over their assigned clips.
type Session struct {
	gw      gateway.Gateway
	clock   clock.Clock
	exec    Executor
	logger  *slog.Logger
	alerter Alerter
	spawn   func(func())
	opts    Options

	canvas   *canvas.Controller
	playback *playback.Controller

	started    atomic.Bool
	submitting atomic.Bool

	// Fields below are owned by the executor thread.
	ctx         context.Context
	annotatorID string
	clips       []gateway.Clip
	totalClips  int
	position    int
	globalIndex int
	loaded      bool
	completed   bool
	generation  int
	wantFrame   int
	frame       gateway.Frame
	frameIndex  int
	hasFrame    bool
	records     []gateway.AnnotationRecord
}

// New constructs a session. Call Start to fetch clips.
func New(deps Dependencies, opts Options) *Session {
	if opts.FrameRate <= 0 {
		opts.FrameRate = playback.DefaultFrameRate
	}
	if opts.DefaultTotalFrames <= 0 {
		opts.DefaultTotalFrames = playback.DefaultTotalFrames
	}
	if opts.MinBoxSize <= 0 {
		opts.MinBoxSize = canvas.DefaultMinBoxSize
	}
	s := &Session{
		gw:      deps.Gateway,
		clock:   deps.Clock,
		exec:    deps.Executor,
		logger:  logging.NewComponentLogger(deps.Logger, "session"),
		alerter: deps.Alerter,
		spawn:   deps.Spawn,
		opts:    opts,
		ctx:     context.Background(),
	}
	if s.exec == nil {
		s.exec = Inline{}
	}
	if s.alerter == nil {
		s.alerter = AlertFunc(nil)
	}
	if s.spawn == nil {
		s.spawn = func(fn func()) { go fn() }
	}
	s.canvas = canvas.New(canvas.WithMinBoxSize(opts.MinBoxSize))
	s.playback = playback.New(deps.Clock,
		playback.WithFrameRate(opts.FrameRate),
		playback.WithTotalFrames(opts.DefaultTotalFrames),
		playback.WithFrameObserver(s.requestFrame),
	)
	return s
}

// Canvas returns the box controller for the current clip. Use it only on
// the executor thread.
func (s *Session) Canvas() *canvas.Controller { return s.canvas }

// Playback returns the playback controller. Use it only on the executor
// thread.
func (s *Session) Playback() *playback.Controller { return s.playback }

// Start fetches the annotator id and clip list once and loads the first
// clip. A clip list failure is fatal.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	annotatorID, err := s.gw.GetAnnotatorID(ctx)
	if err != nil {
		logging.WarnWithContext(s.logger, "annotator id unavailable", "annotator_id_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "records are attributed by cookie only"),
		)
	}

	list, err := s.gw.ListClips(ctx)
	if err != nil {
		s.started.Store(false)
		s.alert(ctx, MessageClipListFailed)
		logging.ErrorWithContext(s.logger, "clip list fetch failed", "clip_list_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that the backend is reachable"),
		)
		return fmt.Errorf("%w: %w", ErrClipListUnavailable, err)
	}
	if len(list.Clips) == 0 {
		s.started.Store(false)
		s.alert(ctx, MessageNoClips)
		return ErrNoClips
	}

	return s.exec.Do(ctx, func() {
		s.ctx = context.WithoutCancel(ctx)
		s.annotatorID = annotatorID
		s.clips = list.Clips
		s.totalClips = len(list.Clips)
		s.globalIndex = list.StartIndex
		s.logger.Info("session started",
			logging.String(logging.FieldAnnotatorID, annotatorID),
			logging.Int("clips", s.totalClips),
			logging.Int("start_index", list.StartIndex),
		)
		s.loadClip(0)
	})
}

// LoadClip jumps to the clip at position, discarding unsaved boxes. It is
// refused while a submission is outstanding.
func (s *Session) LoadClip(ctx context.Context, position int) error {
	var loadErr error
	if err := s.exec.Do(ctx, func() {
		switch {
		case s.submitting.Load():
			loadErr = ErrSubmitInProgress
		case !s.loaded:
			loadErr = ErrNotStarted
		case position < 0 || position >= s.totalClips:
			loadErr = services.Wrap(services.ErrValidation, "session", "load clip",
				fmt.Sprintf("position %d outside [0, %d)", position, s.totalClips), nil)
		default:
			s.completed = false
			s.loadClip(position)
		}
	}); err != nil {
		return err
	}
	return loadErr
}

// loadClip resets playback and the canvas for the clip at position. Runs on
// the executor.
func (s *Session) loadClip(position int) {
	clip := s.clips[position]
	totalFrames := clip.Frames
	if totalFrames <= 0 {
		totalFrames = s.opts.DefaultTotalFrames
	}

	s.playback.Reset(totalFrames)
	s.canvas.Clear()
	s.position = position
	s.globalIndex++
	s.generation++
	s.loaded = true

	s.logger.Debug("clip loaded",
		logging.String(logging.FieldClip, clip.Folder),
		logging.Int("position", position+1),
		logging.Int("global_index", s.globalIndex),
		logging.Int("frames", totalFrames),
	)
	s.requestFrame(0)
}

// Submit validates readiness, sends the current clip's record, and advances.
// It must not be called from the executor thread.
func (s *Session) Submit(ctx context.Context) (Outcome, error) {
	if !s.submitting.CompareAndSwap(false, true) {
		return Outcome{}, ErrSubmitInProgress
	}
	defer s.submitting.Store(false)

	var (
		record  gateway.AnnotationRecord
		prepErr error
	)
	if err := s.exec.Do(ctx, func() { record, prepErr = s.prepareSubmit() }); err != nil {
		return Outcome{}, err
	}
	if prepErr != nil {
		return Outcome{}, prepErr
	}

	ack, sendErr := s.gw.SubmitAnnotation(ctx, record)

	var (
		outcome Outcome
		summary *gateway.SessionSummary
	)
	if err := s.exec.Do(ctx, func() { outcome, summary = s.finishSubmit(record, ack, sendErr) }); err != nil {
		return Outcome{}, err
	}
	if sendErr != nil {
		return Outcome{}, fmt.Errorf("%w: %w", ErrSubmitFailed, sendErr)
	}
	if summary != nil {
		s.sendSummary(ctx, *summary)
	}
	return outcome, nil
}

// Submitting reports whether a submission is outstanding.
func (s *Session) Submitting() bool {
	return s.submitting.Load()
}

func (s *Session) prepareSubmit() (gateway.AnnotationRecord, error) {
	if s.completed {
		return gateway.AnnotationRecord{}, ErrCompleted
	}
	if !s.loaded {
		return gateway.AnnotationRecord{}, ErrNotStarted
	}
	if !s.canvas.Ready() {
		s.alerter.Alert(MessageNotReady)
		return gateway.AnnotationRecord{}, ErrNotReady
	}
	s.playback.Pause()
	return s.buildRecord(), nil
}

func (s *Session) buildRecord() gateway.AnnotationRecord {
	clip := s.clips[s.position]
	groups := s.canvas.Groups()
	wire := make([]gateway.Group, 0, len(groups))
	for _, g := range groups {
		wire = append(wire, gateway.Group{GroupID: g.GroupID, BBox: g.BBox, Confidence: g.Confidence})
	}
	return gateway.AnnotationRecord{
		Timestamp:        s.clock.Now().UTC(),
		ClipPosition:     s.position + 1,
		GlobalIndex:      s.globalIndex,
		ClipFolder:       clip.Folder,
		WasWatched:       s.playback.Watched(),
		TotalWatchTimeMs: s.playback.WatchTime().Milliseconds(),
		GroupCount:       len(wire),
		Groups:           wire,
		ClipInfo:         gateway.NewClipInfo(s.playback.TotalFrames()),
	}
}

func (s *Session) finishSubmit(record gateway.AnnotationRecord, ack gateway.Ack, sendErr error) (Outcome, *gateway.SessionSummary) {
	if sendErr != nil {
		s.alerter.Alert(MessageSubmitFailed)
		logging.ErrorWithContext(s.logger, "annotation submit failed", "submit_failed",
			logging.String(logging.FieldClip, record.ClipFolder),
			logging.Int("global_index", record.GlobalIndex),
			logging.Error(sendErr),
			logging.String(logging.FieldErrorHint, "retry submit; boxes are kept"),
		)
		return Outcome{}, nil
	}

	s.logger.Info("annotation submitted",
		logging.String(logging.FieldClip, record.ClipFolder),
		logging.Int("global_index", record.GlobalIndex),
		logging.Int("groups", record.GroupCount),
		logging.Int64("watch_ms", record.TotalWatchTimeMs),
	)
	if s.opts.AggregateSummary {
		s.records = append(s.records, record)
	}

	// Advance from the clip that was sent, not whatever is loaded now.
	submitted := record.ClipPosition - 1
	outcome := Outcome{Record: record, Ack: ack, Next: -1}
	if submitted < s.totalClips-1 {
		s.loadClip(submitted + 1)
		outcome.Next = s.position
		return outcome, nil
	}

	s.playback.Reset(s.playback.TotalFrames())
	s.canvas.Clear()
	s.completed = true
	outcome.Completed = true
	s.logger.Info("session completed", logging.Int("clips", s.totalClips))

	if !s.opts.AggregateSummary {
		return outcome, nil
	}
	return outcome, &gateway.SessionSummary{
		CompletedAt: s.clock.Now().UTC(),
		TotalClips:  s.totalClips,
		Annotations: append([]gateway.AnnotationRecord(nil), s.records...),
	}
}

func (s *Session) sendSummary(ctx context.Context, summary gateway.SessionSummary) {
	if _, err := s.gw.SubmitSessionSummary(ctx, summary); err != nil {
		s.alert(ctx, MessageSummaryFailed)
		logging.WarnWithContext(s.logger, "session summary not saved", "summary_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "per-clip annotations are already stored"),
		)
	}
}

// requestFrame fetches a frame for the current clip in the background and
// applies it only if the clip has not changed and no newer frame was asked
// for. Runs on the executor.
func (s *Session) requestFrame(frame int) {
	if !s.loaded {
		return
	}
	gen := s.generation
	clip := s.clips[s.position]
	s.wantFrame = frame
	ctx := s.ctx
	s.spawn(func() {
		data, err := s.gw.GetFrameImage(ctx, clip.Index, frame)
		_ = s.exec.Do(ctx, func() { s.applyFrame(gen, frame, data, err) })
	})
}

func (s *Session) applyFrame(gen, frame int, data gateway.Frame, err error) {
	if gen != s.generation || frame != s.wantFrame {
		return
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.alerter.Alert(fmt.Sprintf(MessageFrameFailed, frame+1))
		logging.WarnWithContext(s.logger, "frame fetch failed", "frame_fetch_failed",
			logging.String(logging.FieldClip, s.clips[s.position].Folder),
			logging.Int("frame", frame),
			logging.Error(err),
			logging.String(logging.FieldImpact, "previous frame stays visible"),
		)
		return
	}
	s.frame = data
	s.frameIndex = frame
	s.hasFrame = true
}

func (s *Session) alert(ctx context.Context, message string) {
	_ = s.exec.Do(ctx, func() { s.alerter.Alert(message) })
}

// Snapshot is a read-only view of the session for display.
type Snapshot struct {
	AnnotatorID  string
	Position     int
	TotalClips   int
	GlobalIndex  int
	Clip         gateway.Clip
	Playback     playback.State
	WatchTime    time.Duration
	DisplayFrame int
	HasFrame     bool
	Boxes        []canvas.Box
	Ready        bool
	Completed    bool
	Started      bool
}

// Snapshot captures the current state. Run it on the executor thread.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		AnnotatorID:  s.annotatorID,
		Position:     s.position,
		TotalClips:   s.totalClips,
		GlobalIndex:  s.globalIndex,
		Playback:     s.playback.State(),
		WatchTime:    s.playback.WatchTime(),
		DisplayFrame: s.frameIndex,
		HasFrame:     s.hasFrame,
		Boxes:        s.canvas.Boxes(),
		Ready:        s.canvas.Ready(),
		Completed:    s.completed,
		Started:      s.loaded,
	}
	if s.loaded {
		snap.Clip = s.clips[s.position]
	}
	return snap
}

// Frame returns the last successfully fetched frame for the current clip.
// Run it on the executor thread.
func (s *Session) Frame() (gateway.Frame, int, bool) {
	return s.frame, s.frameIndex, s.hasFrame
}

// Records returns the records kept for the session summary.
func (s *Session) Records() []gateway.AnnotationRecord {
	return append([]gateway.AnnotationRecord(nil), s.records...)
}
