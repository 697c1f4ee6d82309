package keymap

import (
	"fmt"
	"strings"

	"clipmark/internal/config"
)

// Action is what a key press asks playback to do.
type Action int

const (
	ActionNone Action = iota
	ActionTogglePlay
	ActionStepForward
	ActionStepBack
	ActionSkipForward
	ActionSkipBack
)

func (a Action) String() string {
	switch a {
	case ActionTogglePlay:
		return "toggle-play"
	case ActionStepForward:
		return "step-forward"
	case ActionStepBack:
		return "step-back"
	case ActionSkipForward:
		return "skip-forward"
	case ActionSkipBack:
		return "skip-back"
	default:
		return "none"
	}
}

// Focus describes the element holding keyboard focus.
type Focus int

const (
	FocusSurface Focus = iota
	FocusTextInput
	FocusTextArea
	FocusSelect
)

// ParseFocus maps element tag names onto Focus values. Unknown names count
// as the annotation surface.
func ParseFocus(tag string) Focus {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "input":
		return FocusTextInput
	case "textarea":
		return FocusTextArea
	case "select":
		return FocusSelect
	default:
		return FocusSurface
	}
}

// KeyEvent is a key press. Key uses DOM key names (Shift, ArrowRight, " ").
type KeyEvent struct {
	Key   string
	Shift bool
	Focus Focus
}

// Bindings maps keys to actions.
type Bindings struct {
	PlayPause   string
	StepForward string
	StepBack    string
	SkipFrames  int
}

// Default returns the stock bindings.
func Default() Bindings {
	return Bindings{PlayPause: "Shift", StepForward: "ArrowRight", StepBack: "ArrowLeft", SkipFrames: 5}
}

// FromConfig builds bindings from the [keys] section.
func FromConfig(keys config.Keys) Bindings {
	b := Bindings{
		PlayPause:   keys.PlayPause,
		StepForward: keys.StepForward,
		StepBack:    keys.StepBack,
		SkipFrames:  keys.SkipFrames,
	}
	def := Default()
	if strings.TrimSpace(b.PlayPause) == "" {
		b.PlayPause = def.PlayPause
	}
	if strings.TrimSpace(b.StepForward) == "" {
		b.StepForward = def.StepForward
	}
	if strings.TrimSpace(b.StepBack) == "" {
		b.StepBack = def.StepBack
	}
	if b.SkipFrames <= 0 {
		b.SkipFrames = def.SkipFrames
	}
	return b
}

// Resolve returns the action for ev. Key presses inside text inputs, text
// areas, and selectors resolve to ActionNone.
func (b Bindings) Resolve(ev KeyEvent) Action {
	if ev.Focus != FocusSurface {
		return ActionNone
	}
	key := canonical(ev.Key)
	switch key {
	case "":
		return ActionNone
	case canonical(b.PlayPause):
		return ActionTogglePlay
	case canonical(b.StepForward):
		if ev.Shift {
			return ActionSkipForward
		}
		return ActionStepForward
	case canonical(b.StepBack):
		if ev.Shift {
			return ActionSkipBack
		}
		return ActionStepBack
	}
	return ActionNone
}

// Player is the part of playback the shortcuts drive.
type Player interface {
	Toggle()
	Step(delta int)
}

// Apply resolves ev and performs it on p. It reports whether the event was
// consumed.
func (b Bindings) Apply(ev KeyEvent, p Player) (Action, bool) {
	action := b.Resolve(ev)
	switch action {
	case ActionTogglePlay:
		p.Toggle()
	case ActionStepForward:
		p.Step(1)
	case ActionStepBack:
		p.Step(-1)
	case ActionSkipForward:
		p.Step(b.SkipFrames)
	case ActionSkipBack:
		p.Step(-b.SkipFrames)
	default:
		return ActionNone, false
	}
	return action, true
}

// Describe renders the bindings for help output.
func (b Bindings) Describe() string {
	return fmt.Sprintf("%s play/pause, %s/%s step, shift+arrow skips %d",
		b.PlayPause, b.StepBack, b.StepForward, b.SkipFrames)
}

func canonical(key string) string {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" && key != "" {
		return "space"
	}
	lower := strings.ToLower(trimmed)
	switch lower {
	case "spacebar":
		return "space"
	case "right":
		return "arrowright"
	case "left":
		return "arrowleft"
	}
	return lower
}
