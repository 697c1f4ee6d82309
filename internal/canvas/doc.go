// Package canvas owns the annotation boxes drawn on a clip's reference frame.
//
// The Controller is the single source of truth for the ordered box collection
// and the active pointer gesture (draw or resize). Boxes live in logical
// coordinates; Overlays and HitTest project them onto the current layout on
// every call and never feed display state back into the model.
//
// Box lifecycle:
//
//	drafting -> committed -> rated
//	    \           \          \
//	  discarded    deleted    deleted
//
// Group labels ("Group N") are derived from position in the collection, so
// deleting a box renumbers every box after it.
package canvas
