package testsupport

import (
	"context"
	"testing"
	"time"

	"clipmark/internal/config"
	"clipmark/internal/gateway"
	"clipmark/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// Record returns a valid one-group record for folder at globalIndex.
func Record(folder string, globalIndex int) gateway.AnnotationRecord {
	return gateway.AnnotationRecord{
		Timestamp:        time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
		ClipPosition:     1,
		GlobalIndex:      globalIndex,
		ClipFolder:       folder,
		WasWatched:       true,
		TotalWatchTimeMs: 4200,
		GroupCount:       1,
		Groups:           []gateway.Group{{GroupID: 1, BBox: [4]int{100, 100, 500, 400}, Confidence: 4}},
		ClipInfo:         gateway.NewClipInfo(50),
	}
}

// MustInsert stores record for annotatorID.
func MustInsert(t testing.TB, st *store.Store, annotatorID string, record gateway.AnnotationRecord) *store.Annotation {
	t.Helper()

	annotation, err := st.Insert(context.Background(), annotatorID, record)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return annotation
}
