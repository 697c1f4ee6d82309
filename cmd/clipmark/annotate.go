package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"clipmark/internal/canvas"
	"clipmark/internal/clock"
	"clipmark/internal/geometry"
	"clipmark/internal/keymap"
	"clipmark/internal/session"
)

const annotateHelp = `Commands (display pixel coordinates):
  draw X1 Y1 X2 Y2          drag a new box from one corner to the other
  click X Y                 press and release at a point
  resize GROUP HANDLE X Y   drag a corner handle (tl, tr, bl, br) to a point
  rate GROUP N              set a group's confidence (1-5)
  delete GROUP              remove a group
  key NAME [shift] [FOCUS]  press a key; FOCUS is input, textarea, or select
  play | pause | toggle     control playback
  speed X                   set the playback speed multiplier
  seek FRAME | step N       jump to a frame or move by N frames
  status | boxes            show the current clip or its groups
  save PATH                 write the displayed frame image to PATH
  clip N                    jump to clip N, discarding unsaved groups
  wait MS                   let playback run for MS milliseconds
  submit                    send this clip's annotation and move on
  quit                      leave the session`

// lockedWriter serializes output from the command reader and the event loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, format, args...)
}

// annotator drives a session from text commands. Canvas and playback
// commands run on the event loop; submit and clip changes run on the
// reading goroutine.
type annotator struct {
	sess *session.Session
	loop *clock.Loop
	keys keymap.Bindings
	out  *lockedWriter
}

type loopCommand func(a *annotator, args []string) error

var loopCommands = map[string]loopCommand{
	"draw":   (*annotator).draw,
	"click":  (*annotator).click,
	"resize": (*annotator).resize,
	"rate":   (*annotator).rate,
	"delete": (*annotator).remove,
	"key":    (*annotator).key,
	"play":   func(a *annotator, _ []string) error { a.sess.Playback().Play(); return nil },
	"pause":  func(a *annotator, _ []string) error { a.sess.Playback().Pause(); return nil },
	"toggle": func(a *annotator, _ []string) error { a.sess.Playback().Toggle(); return nil },
	"speed":  (*annotator).speed,
	"seek":   (*annotator).seek,
	"step":   (*annotator).step,
	"status": func(a *annotator, _ []string) error { a.printStatus(); return nil },
	"boxes":  (*annotator).boxes,
	"save":   (*annotator).save,
}

func (a *annotator) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return ctx.Err()
				}
			}
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			quit, err := a.exec(ctx, line)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.out.printf("error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (a *annotator) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := strings.ToLower(fields[0]), fields[1:]

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		a.out.printf("%s\n  keys: %s\n", annotateHelp, a.keys.Describe())
		return false, nil
	case "submit":
		return false, a.submit(ctx)
	case "clip":
		n, err := intArg(args, 0, "clip number")
		if err != nil {
			return false, err
		}
		if err := a.sess.LoadClip(ctx, n-1); err != nil {
			return false, err
		}
		return false, a.loop.Do(ctx, a.printStatus)
	case "wait":
		ms, err := intArg(args, 0, "milliseconds")
		if err != nil {
			return false, err
		}
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-timer.C:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	cmd, ok := loopCommands[name]
	if !ok {
		return false, fmt.Errorf("unknown command %q (try help)", name)
	}
	var cmdErr error
	if err := a.loop.Do(ctx, func() { cmdErr = cmd(a, args) }); err != nil {
		return false, err
	}
	return false, cmdErr
}

func (a *annotator) submit(ctx context.Context) error {
	outcome, err := a.sess.Submit(ctx)
	switch {
	case errors.Is(err, session.ErrNotReady):
		return nil
	case err != nil:
		return err
	}

	rec := outcome.Record
	msg := fmt.Sprintf("saved %s (global %d, %d groups)", rec.ClipFolder, rec.GlobalIndex, rec.GroupCount)
	if outcome.Ack.AnnotationID > 0 {
		msg += fmt.Sprintf(" as #%d", outcome.Ack.AnnotationID)
	}
	if outcome.Ack.Score != nil {
		msg += fmt.Sprintf(", score %.2f", *outcome.Ack.Score)
	}
	a.out.printf("%s\n", msg)

	if outcome.Completed {
		a.out.printf("All clips annotated.\n")
		return nil
	}
	return a.loop.Do(ctx, a.printStatus)
}

func (a *annotator) draw(args []string) error {
	pts, err := floatArgs(args, 4)
	if err != nil {
		return err
	}
	start := geometry.Point{X: pts[0], Y: pts[1]}
	end := geometry.Point{X: pts[2], Y: pts[3]}

	c := a.sess.Canvas()
	target := c.HitTest(c.Layout(), start)
	if target.Kind != canvas.TargetCanvas {
		return fmt.Errorf("(%g, %g) is on a %s, not empty canvas", start.X, start.Y, target.Kind)
	}
	before := c.Len()
	if !c.PointerDown(start, target) {
		return errors.New("cannot start a box there")
	}
	c.PointerMove(end)
	c.PointerUp(end)
	if c.Len() == before {
		a.out.printf("box too small, discarded\n")
		return nil
	}
	box, _ := c.BoxAt(c.Len() - 1)
	a.out.printf("%s drawn at %v; rate it 1-5\n", canvas.Label(c.Len()-1), box.Rect.Rounded())
	return nil
}

func (a *annotator) click(args []string) error {
	pts, err := floatArgs(args, 2)
	if err != nil {
		return err
	}
	c := a.sess.Canvas()
	target, err := c.Dispatch(geometry.Point{X: pts[0], Y: pts[1]})
	if c.Gesturing() {
		c.PointerLeave()
	}
	if err != nil {
		return err
	}
	a.out.printf("clicked %s\n", target.Kind)
	return nil
}

func (a *annotator) resize(args []string) error {
	if len(args) != 4 {
		return errors.New("usage: resize GROUP HANDLE X Y")
	}
	box, err := a.group(args[0])
	if err != nil {
		return err
	}
	handle, err := canvas.ParseHandle(args[1])
	if err != nil {
		return err
	}
	pts, err := floatArgs(args[2:], 2)
	if err != nil {
		return err
	}
	p := geometry.Point{X: pts[0], Y: pts[1]}

	c := a.sess.Canvas()
	if !c.PointerDown(p, canvas.Target{Kind: canvas.TargetHandle, Box: box.ID, Handle: handle}) {
		return errors.New("cannot resize now")
	}
	c.PointerUp(p)
	resized, pos, _ := c.Lookup(box.ID)
	a.out.printf("%s now %v\n", canvas.Label(pos), resized.Rect.Rounded())
	return nil
}

func (a *annotator) rate(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: rate GROUP N")
	}
	box, err := a.group(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid confidence %q", args[1])
	}
	return a.sess.Canvas().Rate(box.ID, value)
}

func (a *annotator) remove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: delete GROUP")
	}
	box, err := a.group(args[0])
	if err != nil {
		return err
	}
	return a.sess.Canvas().Delete(box.ID)
}

func (a *annotator) group(arg string) (canvas.Box, error) {
	n, err := strconv.Atoi(arg)
	if err != nil {
		return canvas.Box{}, fmt.Errorf("invalid group %q", arg)
	}
	box, ok := a.sess.Canvas().BoxAt(n - 1)
	if !ok {
		return canvas.Box{}, fmt.Errorf("no group %d", n)
	}
	return box, nil
}

func (a *annotator) key(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: key NAME [shift] [FOCUS]")
	}
	ev := keymap.KeyEvent{Key: args[0]}
	for _, mod := range args[1:] {
		if strings.EqualFold(mod, "shift") {
			ev.Shift = true
			continue
		}
		ev.Focus = keymap.ParseFocus(mod)
	}
	action, ok := a.keys.Apply(ev, a.sess.Playback())
	if !ok {
		a.out.printf("key %s ignored\n", args[0])
		return nil
	}
	state := a.sess.Playback().State()
	a.out.printf("%s: frame %d/%d\n", action, state.CurrentFrame+1, state.TotalFrames)
	return nil
}

func (a *annotator) speed(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: speed X")
	}
	value, err := strconv.ParseFloat(strings.TrimSuffix(args[0], "x"), 64)
	if err != nil {
		return fmt.Errorf("invalid speed %q", args[0])
	}
	return a.sess.Playback().SetSpeed(value)
}

func (a *annotator) seek(args []string) error {
	frame, err := intArg(args, 0, "frame")
	if err != nil {
		return err
	}
	a.sess.Playback().Seek(frame - 1)
	return nil
}

func (a *annotator) step(args []string) error {
	delta, err := intArg(args, 0, "frame delta")
	if err != nil {
		return err
	}
	a.sess.Playback().Step(delta)
	return nil
}

func (a *annotator) boxes(_ []string) error {
	c := a.sess.Canvas()
	if c.Len() == 0 {
		a.out.printf("no groups\n")
		return nil
	}
	view := tableView{
		headers: []string{"Group", "State", "BBox", "Confidence"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
	}
	for i, box := range c.Boxes() {
		confidence := "-"
		if box.Rated() {
			confidence = strconv.Itoa(box.Confidence)
		}
		view.rows = append(view.rows, []string{
			canvas.Label(i), box.State.String(), fmt.Sprint(box.Rect.Rounded()), confidence,
		})
	}
	a.out.printf("%s\n", view.render())
	return nil
}

func (a *annotator) save(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: save PATH")
	}
	frame, index, ok := a.sess.Frame()
	if !ok {
		return errors.New("no frame loaded yet")
	}
	if err := os.WriteFile(args[0], frame.Data, 0o644); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	a.out.printf("frame %d (%s) written to %s\n", index+1, frame.ContentType, args[0])
	return nil
}

func (a *annotator) printStatus() {
	snap := a.sess.Snapshot()
	switch {
	case !snap.Started:
		a.out.printf("no clip loaded\n")
		return
	case snap.Completed:
		a.out.printf("all %d clips submitted\n", snap.TotalClips)
		return
	}
	shown := "-"
	if snap.HasFrame {
		shown = strconv.Itoa(snap.DisplayFrame + 1)
	}
	pb := snap.Playback
	a.out.printf("clip %d/%d %s (global %d) frame %d/%d shown %s playing=%s speed=%gx watched=%s watch=%s groups=%d ready=%s\n",
		snap.Position+1, snap.TotalClips, snap.Clip.Folder, snap.GlobalIndex,
		pb.CurrentFrame+1, pb.TotalFrames, shown,
		yesNo(pb.Playing), pb.Speed, yesNo(pb.Watched), formatSeconds(snap.WatchTime),
		len(snap.Boxes), yesNo(snap.Ready),
	)
}

func intArg(args []string, i int, what string) (int, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing %s", what)
	}
	n, err := strconv.Atoi(args[i])
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[i])
	}
	return n, nil
}

func floatArgs(args []string, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("expected %d coordinates, got %d", n, len(args))
	}
	values := make([]float64, n)
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", arg)
		}
		values[i] = v
	}
	return values, nil
}
