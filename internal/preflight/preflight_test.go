package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmark/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckDirectoryReadable("test", f); result.Passed {
		t.Fatal("expected failure for file path")
	}
	if result := CheckDirectoryReadable("test", ""); result.Passed || result.Detail != "not configured" {
		t.Fatalf("expected not configured, got %+v", result)
	}
}

func TestCheckSecretKey(t *testing.T) {
	if CheckSecretKey("  ").Passed {
		t.Fatal("expected missing key to fail")
	}
	short := CheckSecretKey("abc")
	if !short.Passed || !short.Optional {
		t.Fatalf("expected short key to pass with warning, got %+v", short)
	}
	if r := CheckSecretKey("0123456789abcdef0123"); !r.Passed || r.Optional {
		t.Fatalf("expected long key to pass, got %+v", r)
	}
}

func TestCheckClips(t *testing.T) {
	dir := t.TempDir()
	for i := range 4 {
		testsupport.WriteClip(t, dir, fmt.Sprintf("clip_%d", i), 1, ".jpeg")
	}
	result := CheckClips("clips", dir, ".jpeg", 5, 3)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if result.Detail != "4 clips in 1 blocks (1 trailing clips unassigned)" {
		t.Fatalf("unexpected detail: %s", result.Detail)
	}
	if CheckClips("clips", dir, ".jpeg", 5, 15).Passed {
		t.Fatal("expected failure without a full block")
	}
}

func TestCheckBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok","clips":30,"annotations":12}`))
	}))
	defer srv.Close()

	result := CheckBackend(context.Background(), srv.URL+"/")
	if !result.Passed || !strings.Contains(result.Detail, "30 clips, 12 annotations") {
		t.Fatalf("unexpected result: %+v", result)
	}

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	if r := CheckBackend(context.Background(), down.URL); r.Passed || r.Detail != "health check failed (503)" {
		t.Fatalf("unexpected result: %+v", r)
	}
	if CheckBackend(context.Background(), "").Passed {
		t.Fatal("expected missing url to fail")
	}
}

func TestRunServer(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBlocks(2, 1))
	testsupport.WriteClip(t, cfg.Paths.VideosDir, "a", 2, ".jpeg")
	testsupport.WriteClip(t, cfg.Paths.VideosDir, "b", 2, ".jpeg")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunServer(cfg)
	if Failed(results) {
		t.Fatalf("expected all required checks to pass: %+v", results)
	}
	var sawValidation bool
	for _, r := range results {
		if r.Name == "Validation videos" {
			sawValidation = true
			if r.Passed || !r.Optional {
				t.Fatalf("missing validation dir should be an optional failure: %+v", r)
			}
		}
	}
	if !sawValidation {
		t.Fatal("expected validation check when configured")
	}

	cfg.Server.SecretKey = ""
	if !Failed(RunServer(cfg)) {
		t.Fatal("expected missing secret to fail")
	}
}
