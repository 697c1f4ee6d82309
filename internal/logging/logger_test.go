package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipmark/internal/config"
	"clipmark/internal/logging"
	"clipmark/internal/services"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestConsoleFormatIncludesComponentAndFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := logging.NewComponentLogger(logger, "session")
	component.Info("clip loaded", logging.Args(logging.String("clip", "clip 01"), logging.Int("frames", 50))...)
	component.Debug("dropped")

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %v", len(lines), lines)
	}
	line := lines[0]
	if !strings.Contains(line, "INFO session: clip loaded") {
		t.Fatalf("missing level/component/message: %q", line)
	}
	if !strings.Contains(line, `clip="clip 01"`) || !strings.Contains(line, "frames=50") {
		t.Fatalf("missing fields: %q", line)
	}
}

func TestJSONFormatRenamesTimeAndLowercasesLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "json.log")
	logger, err := logging.New(logging.Options{Level: "warn", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("ignored")
	logging.WarnWithContext(logger, "frame fetch failed", "frame_fetch_failed", logging.Int("frame", 3))

	lines := readLines(t, path)
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d", len(lines))
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key: %v", payload)
	}
	if payload[logging.FieldEventType] != "frame_fetch_failed" {
		t.Fatalf("unexpected event type: %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldImpact] == nil || payload[logging.FieldErrorHint] == nil {
		t.Fatalf("expected default hint and impact: %v", payload)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesJSONCopy(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Level = "info"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("server started", logging.Args(logging.String("bind", "127.0.0.1:0"))...)

	lines := readLines(t, filepath.Join(cfg.Paths.LogDir, "clipmark.log"))
	var payload map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload["msg"] != "server started" || payload["bind"] != "127.0.0.1:0" {
		t.Fatalf("unexpected record: %v", payload)
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctx.log")
	logger, err := logging.New(logging.Options{Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithRequestID(context.Background(), "req-1")
	ctx = services.WithAnnotatorID(ctx, "ann-7")
	ctx = services.WithClip(ctx, "clip_a")

	logging.WithContext(ctx, logger).Info("annotation stored")

	var payload map[string]any
	if err := json.Unmarshal([]byte(readLines(t, path)[0]), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldCorrelationID] != "req-1" ||
		payload[logging.FieldAnnotatorID] != "ann-7" ||
		payload[logging.FieldClip] != "clip_a" {
		t.Fatalf("missing context fields: %v", payload)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.ErrorWithContext(nil, "ignored", "noop")
}

func TestConsolePutsRequestFieldsFirst(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.log")
	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithClip(services.WithRequestID(context.Background(), "req-9"), "clip_b")

	logging.WithContext(ctx, logger).WithGroup("frame").Info("served", logging.Int("index", 2))

	line := readLines(t, path)[0]
	want := "INFO served correlation_id=req-9 clip=clip_b frame.index=2"
	if !strings.HasSuffix(line, want) {
		t.Fatalf("expected suffix %q, got %q", want, line)
	}
}

func TestConsoleColorWrapsLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "color.log")
	logger, err := logging.New(logging.Options{Format: "console", Color: true, OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("slow frame")

	line := readLines(t, path)[0]
	if !strings.Contains(line, "\x1b[33mWARN\x1b[0m slow frame") {
		t.Fatalf("expected colored level, got %q", line)
	}
}

func TestLevelParsingAcceptsWarning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Level: "Warning", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warning level")
	}
	if !logger.Enabled(context.Background(), slog.LevelWarn) {
		t.Fatal("warn should be enabled")
	}
}
