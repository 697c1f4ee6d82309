// Package playback steps through a clip's frames and accounts for how long
// the annotator watched it.
//
// Autoplay ticks wrap from the last frame back to zero. Every manual
// navigation (seek, step, skip) pauses first, marks the clip watched, and
// clamps into [0, totalFrames-1]. Watch time accrues only while playing and is
// flushed into the running total whenever playback stops.
package playback
