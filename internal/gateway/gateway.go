package gateway

import "context"

// Gateway is the backend collaborator of an annotation session.
type Gateway interface {
	// GetAnnotatorID returns the caller's stable identity.
	GetAnnotatorID(ctx context.Context) (string, error)
	// ListClips returns the clips assigned to the caller.
	ListClips(ctx context.Context) (ClipList, error)
	// GetFrameImage fetches one zero-based frame of the clip with the given index.
	GetFrameImage(ctx context.Context, clipIndex, frameIndex int) (Frame, error)
	// SubmitAnnotation stores the record for one clip.
	SubmitAnnotation(ctx context.Context, record AnnotationRecord) (Ack, error)
	// SubmitSessionSummary stores every record of a finished session.
	SubmitSessionSummary(ctx context.Context, summary SessionSummary) (Ack, error)
}
