package logging

import (
	"context"
	"log/slog"

	"clipmark/internal/services"
)

const (
	FieldComponent = "component"
	// FieldEventType classifies notable events (submit_failed, frame_fetch_failed).
	FieldEventType = "event_type"
	// FieldErrorHint suggests the next step for an operator.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact        = "impact"
	FieldAnnotatorID   = "annotator_id"
	FieldClip          = "clip"
	FieldCorrelationID = "correlation_id"
)

// contextExtractors lists the request-scoped values stamped onto log lines,
// in the order the console handler prints them.
var contextExtractors = []struct {
	key string
	get func(context.Context) (string, bool)
}{
	{FieldCorrelationID, services.RequestIDFromContext},
	{FieldAnnotatorID, services.AnnotatorIDFromContext},
	{FieldClip, services.ClipFromContext},
}

// ContextFields returns the request-scoped fields carried by ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	var fields []slog.Attr
	for _, ex := range contextExtractors {
		if v, ok := ex.get(ctx); ok {
			fields = append(fields, slog.String(ex.key, v))
		}
	}
	return fields
}

// WithContext returns logger with the fields from ContextFields attached.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
