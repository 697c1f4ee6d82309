package testsupport

import (
	"path/filepath"
	"testing"

	"clipmark/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Clip directories are named but not created; use WriteClip to populate them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.VideosDir = filepath.Join(base, "videos")
	cfgVal.Paths.ValidationVideosDir = filepath.Join(base, "validation_videos")
	cfgVal.Paths.ValidationGTsDir = filepath.Join(base, "validation_gts")
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "data", "logs")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Server.SecretKey = "test-secret"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithBlocks overrides block sizing.
func WithBlocks(clipsPerBlock, annotatorsPerBlock int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Clips.ClipsPerBlock = clipsPerBlock
		b.cfg.Clips.AnnotatorsPerBlock = annotatorsPerBlock
	}
}

// WithSecretKey sets the cookie signing key.
func WithSecretKey(key string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.SecretKey = key
	}
}

// WithFrameExtension sets the frame file extension, including the dot.
func WithFrameExtension(ext string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Clips.FrameExtension = ext
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.VideosDir)
}
