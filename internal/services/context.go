package services

import "context"

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	annotatorIDKey contextKey = "annotator_id"
	clipKey        contextKey = "clip"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, requestIDKey)
}

// WithAnnotatorID annotates context with the annotator identity.
func WithAnnotatorID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, annotatorIDKey, id)
}

// AnnotatorIDFromContext returns the annotator identity if present.
func AnnotatorIDFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, annotatorIDKey)
}

// WithClip annotates context with the clip folder being worked on.
func WithClip(ctx context.Context, folder string) context.Context {
	if folder == "" {
		return ctx
	}
	return context.WithValue(ctx, clipKey, folder)
}

// ClipFromContext returns the clip folder if present.
func ClipFromContext(ctx context.Context) (string, bool) {
	return stringValue(ctx, clipKey)
}

func stringValue(ctx context.Context, key contextKey) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v, ok := ctx.Value(key).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
