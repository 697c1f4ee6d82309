package services_test

import (
	"context"
	"testing"

	"clipmark/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRequestID(ctx, "req-123")
	ctx = services.WithAnnotatorID(ctx, "ann-1")
	ctx = services.WithClip(ctx, "clip_0001")

	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
	if id, ok := services.AnnotatorIDFromContext(ctx); !ok || id != "ann-1" {
		t.Fatalf("unexpected annotator id: %v %v", id, ok)
	}
	if clip, ok := services.ClipFromContext(ctx); !ok || clip != "clip_0001" {
		t.Fatalf("unexpected clip: %v %v", clip, ok)
	}
}

func TestBlankValuesPreserveContext(t *testing.T) {
	ctx := services.WithClip(context.Background(), "")
	if _, ok := services.ClipFromContext(ctx); ok {
		t.Fatal("expected no clip value")
	}
}
