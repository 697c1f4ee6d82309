package testsupport

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// FrameWidth and FrameHeight are the dimensions of generated test frames.
const (
	FrameWidth  = 64
	FrameHeight = 36
)

// WriteClip creates dir/folder with frames numbered 00001 upward. The image
// format follows ext (".jpeg", ".jpg", ".png" or ".webp").
func WriteClip(t testing.TB, dir, folder string, frames int, ext string) string {
	t.Helper()

	clipDir := filepath.Join(dir, folder)
	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", clipDir, err)
	}
	for i := 1; i <= frames; i++ {
		path := filepath.Join(clipDir, fmt.Sprintf("%05d%s", i, ext))
		WriteFrame(t, path, uint8(i))
	}
	return clipDir
}

// WriteFrame writes one solid-colour frame whose red channel is shade.
func WriteFrame(t testing.TB, path string, shade uint8) {
	t.Helper()

	img := imaging.New(FrameWidth, FrameHeight, color.NRGBA{R: shade, G: 80, B: 160, A: 255})
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		file, err := os.Create(path)
		if err != nil {
			t.Fatalf("create %s: %v", path, err)
		}
		defer file.Close()
		if err := webp.Encode(file, img, &webp.Options{Lossless: true}); err != nil {
			t.Fatalf("encode %s: %v", path, err)
		}
		return
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
