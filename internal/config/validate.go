package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateClips(); err != nil {
		return err
	}
	if err := c.validateAnnotation(); err != nil {
		return err
	}
	if err := c.validateClient(); err != nil {
		return err
	}
	return c.validateKeys()
}

// ValidateServer checks the settings only the backend needs. It is separate
// from Validate so the annotate command can run without a secret key.
func (c *Config) ValidateServer() error {
	if c.Server.SecretKey == "" {
		return errors.New("server.secret_key is required (or set CLIPMARK_SECRET_KEY)")
	}
	if strings.TrimSpace(c.Paths.VideosDir) == "" {
		return errors.New("paths.videos_dir is required")
	}
	return nil
}

func (c *Config) validateClips() error {
	if c.Clips.FramePadding <= 0 {
		return errors.New("clips.frame_padding must be positive")
	}
	if c.Clips.ClipsPerBlock <= 0 {
		return errors.New("clips.clips_per_block must be positive")
	}
	if c.Clips.AnnotatorsPerBlock <= 0 {
		return errors.New("clips.annotators_per_block must be positive")
	}
	return nil
}

func (c *Config) validateAnnotation() error {
	if c.Annotation.BaseFrameRate <= 0 {
		return errors.New("annotation.base_frame_rate must be positive")
	}
	if c.Annotation.DefaultTotalFrames <= 0 {
		return errors.New("annotation.default_total_frames must be positive")
	}
	if c.Annotation.MinBoxSize < 0 {
		return errors.New("annotation.min_box_size must not be negative")
	}
	return nil
}

func (c *Config) validateClient() error {
	parsed, err := url.Parse(c.Client.BaseURL)
	if err != nil {
		return fmt.Errorf("client.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("client.base_url: unsupported scheme %q", parsed.Scheme)
	}
	return nil
}

func (c *Config) validateKeys() error {
	if c.Keys.SkipFrames <= 0 {
		return errors.New("keys.skip_frames must be positive")
	}
	seen := map[string]string{}
	for name, key := range map[string]string{
		"keys.play_pause":   c.Keys.PlayPause,
		"keys.step_forward": c.Keys.StepForward,
		"keys.step_back":    c.Keys.StepBack,
	} {
		lower := strings.ToLower(key)
		if other, ok := seen[lower]; ok {
			return fmt.Errorf("%s and %s are both bound to %q", other, name, key)
		}
		seen[lower] = name
	}
	return nil
}
