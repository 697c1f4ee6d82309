// Package keymap resolves keyboard events into playback actions.
//
// Bindings come from the [keys] config section. Holding shift turns a step
// into a skip of SkipFrames. Keys typed while focus is in a text input, text
// area, or selector are ignored.
package keymap
