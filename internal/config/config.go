package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	VideosDir           string `toml:"videos_dir"`
	ValidationVideosDir string `toml:"validation_videos_dir"`
	ValidationGTsDir    string `toml:"validation_gts_dir"`
	DataDir             string `toml:"data_dir"`
	LogDir              string `toml:"log_dir"`
	APIBind             string `toml:"api_bind"`
}

// Server contains backend settings for identity cookies and frame serving.
type Server struct {
	SecretKey        string `toml:"secret_key"`
	CookieName       string `toml:"cookie_name"`
	CookieMaxAgeDays int    `toml:"cookie_max_age_days"`
	// MaxFrameWidth downscales served frames wider than this many pixels.
	// Zero serves frames untouched.
	MaxFrameWidth int `toml:"max_frame_width"`
}

// Clips describes how clip folders are laid out on disk and handed out.
type Clips struct {
	FrameExtension     string `toml:"frame_extension"`
	FramePadding       int    `toml:"frame_padding"`
	ClipsPerBlock      int    `toml:"clips_per_block"`
	AnnotatorsPerBlock int    `toml:"annotators_per_block"`
}

// Annotation contains settings for the annotation surface.
type Annotation struct {
	BaseFrameRate      float64 `toml:"base_frame_rate"`
	DefaultTotalFrames int     `toml:"default_total_frames"`
	MinBoxSize         float64 `toml:"min_box_size"`
	AggregateSummary   bool    `toml:"aggregate_summary"`
}

// Client contains settings for talking to a clipmark backend.
type Client struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Validation     bool   `toml:"validation"`
}

// Keys contains keyboard bindings for playback shortcuts.
type Keys struct {
	PlayPause   string `toml:"play_pause"`
	StepForward string `toml:"step_forward"`
	StepBack    string `toml:"step_back"`
	SkipFrames  int    `toml:"skip_frames"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for clipmark.
//
// Configuration sections by subsystem:
//   - Paths: clip folders, ground truth, database, logs, and bind address
//   - Server: identity cookie and frame serving
//   - Clips: frame naming and block assignment
//   - Annotation: playback rate and box rules
//   - Client: backend URL used by the annotate command
//   - Keys: playback keyboard shortcuts
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Server     Server     `toml:"server"`
	Clips      Clips      `toml:"clips"`
	Annotation Annotation `toml:"annotation"`
	Client     Client     `toml:"client"`
	Keys       Keys       `toml:"keys"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load reads the configuration at path, or at the first existing default
// location when path is empty, then normalizes and validates it. It returns
// the config, the file it came from, and whether that file existed. A
// missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	source, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(source, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, source, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return fmt.Errorf("parse config %s:%d:%d: %w", path, row, col, err)
		}
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// locate resolves an explicit path, or searches the user config directory
// and then ./clipmark.toml.
func locate(path string) (string, bool, error) {
	if strings.TrimSpace(path) != "" {
		resolved, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(resolved)
		return resolved, exists, err
	}

	userPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	localPath, err := filepath.Abs("clipmark.toml")
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, localPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat config: %w", err)
	}
	return !info.IsDir(), nil
}

// EnsureDirectories creates the directories the server writes to. Clip
// folders are read-only inputs and are never created.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the annotation database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "annotations.db")
}

// LockPath returns the location of the single-instance server lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "clipmark.lock")
}

// ClientTimeout returns the HTTP timeout for backend requests.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.Client.TimeoutSeconds) * time.Second
}

// CookieMaxAge returns the lifetime of the annotator identity cookie.
func (c *Config) CookieMaxAge() time.Duration {
	return time.Duration(c.Server.CookieMaxAgeDays) * 24 * time.Hour
}

// expandPath resolves a leading ~ to the home directory and returns a clean
// absolute path. Empty input stays empty.
func expandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") || strings.HasPrefix(value, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, value[1:])
	}
	abs, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return abs, nil
}

// ExpandPath applies the same ~ and absolute-path rules used for config paths.
func ExpandPath(value string) (string, error) {
	return expandPath(value)
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
