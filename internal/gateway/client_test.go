package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clipmark/internal/gateway"
	"clipmark/internal/services"
)

func TestClientKeepsIdentityCookie(t *testing.T) {
	const cookieName = "clipmark_annotator"
	var seenCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/annotator-id":
			http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "signed-abc", Path: "/"})
			_ = json.NewEncoder(w).Encode(gateway.AnnotatorIdentity{AnnotatorID: "abc"})
		case "/api/clips":
			if c, err := r.Cookie(cookieName); err == nil {
				seenCookie = c.Value
			}
			_ = json.NewEncoder(w).Encode(gateway.ClipList{
				StartIndex: 14,
				Clips:      []gateway.Clip{{Index: 15, Folder: "clip_015", Frames: 40}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client, err := gateway.NewClient(srv.URL + "/")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	id, err := client.GetAnnotatorID(context.Background())
	if err != nil {
		t.Fatalf("GetAnnotatorID: %v", err)
	}
	if id != "abc" {
		t.Fatalf("unexpected id %q", id)
	}
	list, err := client.ListClips(context.Background())
	if err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	if seenCookie != "signed-abc" {
		t.Fatalf("identity cookie not replayed, got %q", seenCookie)
	}
	if list.StartIndex != 14 || list.TotalClips != 1 || list.Clips[0].Frames != 40 {
		t.Fatalf("unexpected clip list: %+v", list)
	}
}

func TestClientSubmitAnnotationEncodesWireFormat(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/annotations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(gateway.Ack{Success: true, AnnotationID: 7})
	}))
	defer srv.Close()

	client, err := gateway.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	record := gateway.AnnotationRecord{
		Timestamp:        time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		ClipPosition:     1,
		GlobalIndex:      15,
		ClipFolder:       "clip_015",
		WasWatched:       true,
		TotalWatchTimeMs: 3000,
		GroupCount:       1,
		Groups:           []gateway.Group{{GroupID: 1, BBox: [4]int{100, 100, 500, 400}, Confidence: 4}},
		ClipInfo:         gateway.NewClipInfo(50),
	}
	ack, err := client.SubmitAnnotation(context.Background(), record)
	if err != nil {
		t.Fatalf("SubmitAnnotation: %v", err)
	}
	if ack.AnnotationID != 7 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	for _, key := range []string{"timestamp", "clipPosition", "globalIndex", "clipFolder", "wasWatched", "totalWatchTimeMs", "groupCount", "groups", "clipInfo"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing %q in %v", key, body)
		}
	}
	if body["timestamp"] != "2025-05-01T10:00:00Z" {
		t.Fatalf("unexpected timestamp encoding: %v", body["timestamp"])
	}
	info := body["clipInfo"].(map[string]any)
	if info["coordinateSystem"] != "normalized" || info["normalizedWidth"].(float64) != 1920 || info["annotationFrame"].(float64) != 1 {
		t.Fatalf("unexpected clip info: %v", info)
	}
}

func TestClientValidationModeUsesValidationRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch {
		case strings.HasSuffix(r.URL.Path, "/frames/3"):
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		case r.URL.Path == "/api/validation/annotations":
			score := 0.5
			_ = json.NewEncoder(w).Encode(gateway.Ack{Success: true, Score: &score})
		default:
			_ = json.NewEncoder(w).Encode(gateway.ClipList{Clips: []gateway.Clip{{Index: 0, Folder: "v1"}}})
		}
	}))
	defer srv.Close()

	client, err := gateway.NewClient(srv.URL, gateway.WithValidation(true), gateway.WithTimeout(time.Second))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ctx := context.Background()
	if _, err := client.ListClips(ctx); err != nil {
		t.Fatalf("ListClips: %v", err)
	}
	frame, err := client.GetFrameImage(ctx, 0, 3)
	if err != nil {
		t.Fatalf("GetFrameImage: %v", err)
	}
	if frame.ContentType != "image/jpeg" || len(frame.Data) != 3 {
		t.Fatalf("unexpected frame: %+v", frame)
	}
	ack, err := client.SubmitAnnotation(ctx, gateway.AnnotationRecord{ClipFolder: "v1", ClipPosition: 1})
	if err != nil {
		t.Fatalf("SubmitAnnotation: %v", err)
	}
	if ack.Score == nil || *ack.Score != 0.5 {
		t.Fatalf("expected score in ack: %+v", ack)
	}

	want := []string{"/api/validation/clips", "/api/validation/clips/0/frames/3", "/api/validation/annotations"}
	if strings.Join(paths, ",") != strings.Join(want, ",") {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
}

func TestClientMapsStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		marker error
	}{
		{http.StatusNotFound, services.ErrNotFound},
		{http.StatusBadRequest, services.ErrValidation},
		{http.StatusConflict, services.ErrConflict},
		{http.StatusServiceUnavailable, services.ErrTransient},
		{http.StatusForbidden, services.ErrExternal},
	}
	for _, tc := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(gateway.ErrorResponse{Error: "frame missing"})
		}))
		client, err := gateway.NewClient(srv.URL)
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		_, err = client.GetFrameImage(context.Background(), 1, 2)
		srv.Close()
		if !errors.Is(err, tc.marker) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.marker, err)
		}
		if !strings.Contains(err.Error(), "frame missing") {
			t.Fatalf("status %d: expected server message in %v", tc.status, err)
		}
	}
}

func TestClientRejectsUnsuccessfulAck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(gateway.Ack{Success: false, Message: "disk full"})
	}))
	defer srv.Close()

	client, err := gateway.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.SubmitAnnotation(context.Background(), gateway.AnnotationRecord{}); !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected external error, got %v", err)
	}
}

func TestClientRejectsOversizedFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	exact, err := gateway.NewClient(srv.URL, gateway.WithMaxFrameBytes(64))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	frame, err := exact.GetFrameImage(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("frame at the limit rejected: %v", err)
	}
	if len(frame.Data) != 64 {
		t.Fatalf("frame length = %d, want 64", len(frame.Data))
	}

	small, err := gateway.NewClient(srv.URL, gateway.WithMaxFrameBytes(63))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := small.GetFrameImage(context.Background(), 0, 0); !errors.Is(err, services.ErrExternal) {
		t.Fatalf("expected oversized frame error, got %v", err)
	}
}

func TestClientTimeoutSurvivesCustomHTTPClient(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := gateway.NewClient(srv.URL,
		gateway.WithTimeout(50*time.Millisecond),
		gateway.WithHTTPClient(&http.Client{}),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	start := time.Now()
	if _, err := client.ListClips(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout not applied, request took %s", elapsed)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := gateway.NewClient("  "); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestRecordValidate(t *testing.T) {
	valid := gateway.AnnotationRecord{
		ClipFolder:   "c",
		ClipPosition: 1,
		GroupCount:   1,
		Groups:       []gateway.Group{{GroupID: 1, BBox: [4]int{0, 0, 10, 10}, Confidence: 5}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	mismatch := valid
	mismatch.GroupCount = 2
	badRating := valid
	badRating.Groups = []gateway.Group{{GroupID: 1, BBox: [4]int{0, 0, 10, 10}, Confidence: 0}}
	flipped := valid
	flipped.Groups = []gateway.Group{{GroupID: 1, BBox: [4]int{10, 0, 0, 10}, Confidence: 3}}
	for name, rec := range map[string]gateway.AnnotationRecord{"count": mismatch, "rating": badRating, "bbox": flipped} {
		if err := rec.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
