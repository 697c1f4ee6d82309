// Package session drives an annotator through their assigned clips.
//
// A Session owns the canvas and playback controllers for the current clip and
// talks to the backend through a gateway.Gateway. Clip state is only touched
// on the session's Executor (normally a clock.Loop), the same thread playback
// ticks run on. Start and Submit are called from outside that thread: they
// hop onto it for state changes and perform network calls off it, so a second
// Submit issued while one is outstanding is rejected rather than queued.
//
// Loading a clip always cancels the playback timer before resetting state, so
// a stale tick or frame response never lands on a replaced clip.
package session
