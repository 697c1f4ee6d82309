// Package catalog discovers clip folders on disk and hands them out to
// annotators in fixed-size blocks.
//
// A clip is a sub-folder of the videos directory holding frame images named
// by their one-based frame number, zero padded (00001.jpeg, 00002.jpeg, ...).
// Folders without a first frame are ignored. Clips are numbered in sorted
// folder order and that number is the clip index used in frame URLs; the
// clip's global index is its index plus one.
//
// The Assigner groups clips into blocks. An annotator resumes a block they
// started; otherwise they receive a random block that still needs
// annotators. Frame serving can downscale and transcode frames to WebP.
package catalog
