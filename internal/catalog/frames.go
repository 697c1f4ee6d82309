package catalog

import (
	"bytes"
	"fmt"
	"image"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"clipmark/internal/services"
)

// FrameOptions controls how a frame is served.
type FrameOptions struct {
	// MaxWidth downscales wider frames, keeping the aspect ratio. Zero keeps
	// the original size.
	MaxWidth int
	// Format re-encodes the frame: "webp", "jpeg" or "png". Empty keeps the
	// file's own encoding.
	Format string
	// Quality applies to lossy formats. Zero uses 85.
	Quality int
}

const defaultQuality = 85

// EncodedFrame is frame data ready to send.
type EncodedFrame struct {
	Data        []byte
	ContentType string
}

// ParseFormat normalizes a requested format name.
func ParseFormat(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		return "", nil
	case "webp":
		return "webp", nil
	case "jpg", "jpeg":
		return "jpeg", nil
	case "png":
		return "png", nil
	default:
		return "", services.Wrap(services.ErrValidation, "catalog", "parse format",
			fmt.Sprintf("unsupported frame format %q", value), nil)
	}
}

// ContentTypeFor returns the MIME type for a frame file extension.
func ContentTypeFor(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// LoadFrame reads the frame at path, transcoding only when opts require it.
func LoadFrame(path string, opts FrameOptions) (EncodedFrame, error) {
	ext := filepath.Ext(path)
	format, err := ParseFormat(opts.Format)
	if err != nil {
		return EncodedFrame{}, err
	}
	sourceFormat, _ := ParseFormat(strings.TrimPrefix(ext, "."))

	if opts.MaxWidth <= 0 && (format == "" || format == sourceFormat) {
		data, err := os.ReadFile(path)
		if err != nil {
			return EncodedFrame{}, fmt.Errorf("read frame: %w", err)
		}
		return EncodedFrame{Data: data, ContentType: ContentTypeFor(ext)}, nil
	}

	img, err := imaging.Open(path)
	if err != nil {
		return EncodedFrame{}, fmt.Errorf("decode frame %s: %w", filepath.Base(path), err)
	}
	if opts.MaxWidth > 0 && img.Bounds().Dx() > opts.MaxWidth {
		img = imaging.Resize(img, opts.MaxWidth, 0, imaging.Lanczos)
	}
	if format == "" {
		format = sourceFormat
	}
	if format == "" {
		format = "jpeg"
	}
	return Encode(img, format, opts.Quality)
}

// Encode writes img in format ("webp", "jpeg" or "png").
func Encode(img image.Image, format string, quality int) (EncodedFrame, error) {
	if quality <= 0 {
		quality = defaultQuality
	}
	var buf bytes.Buffer
	switch format {
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return EncodedFrame{}, fmt.Errorf("encode webp: %w", err)
		}
		return EncodedFrame{Data: buf.Bytes(), ContentType: "image/webp"}, nil
	case "png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return EncodedFrame{}, fmt.Errorf("encode png: %w", err)
		}
		return EncodedFrame{Data: buf.Bytes(), ContentType: "image/png"}, nil
	case "jpeg":
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return EncodedFrame{}, fmt.Errorf("encode jpeg: %w", err)
		}
		return EncodedFrame{Data: buf.Bytes(), ContentType: "image/jpeg"}, nil
	default:
		return EncodedFrame{}, services.Wrap(services.ErrValidation, "catalog", "encode",
			fmt.Sprintf("unsupported frame format %q", format), nil)
	}
}
