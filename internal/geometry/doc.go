// Package geometry converts between display pixels and the fixed 1920x1080
// logical space in which every annotation box is stored.
//
// A Mapper is built from the on-screen rectangle of the displayed frame each
// time it is needed; callers should never cache one across layout changes.
// Mapping is refused (ok=false) while the image has no measurable size.
package geometry
