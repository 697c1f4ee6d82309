package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeClips()
	c.normalizeAnnotation()
	c.normalizeClient()
	c.normalizeKeys()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.VideosDir, err = expandPath(strings.TrimSpace(c.Paths.VideosDir)); err != nil {
		return fmt.Errorf("paths.videos_dir: %w", err)
	}
	if c.Paths.ValidationVideosDir, err = expandPath(strings.TrimSpace(c.Paths.ValidationVideosDir)); err != nil {
		return fmt.Errorf("paths.validation_videos_dir: %w", err)
	}
	if c.Paths.ValidationGTsDir, err = expandPath(strings.TrimSpace(c.Paths.ValidationGTsDir)); err != nil {
		return fmt.Errorf("paths.validation_gts_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.SecretKey = strings.TrimSpace(c.Server.SecretKey)
	if c.Server.SecretKey == "" {
		if value, ok := os.LookupEnv(secretKeyEnv); ok {
			c.Server.SecretKey = strings.TrimSpace(value)
		}
	}
	c.Server.CookieName = strings.TrimSpace(c.Server.CookieName)
	if c.Server.CookieName == "" {
		c.Server.CookieName = defaultCookieName
	}
	if c.Server.CookieMaxAgeDays <= 0 {
		c.Server.CookieMaxAgeDays = defaultCookieMaxAgeDays
	}
	if c.Server.MaxFrameWidth < 0 {
		c.Server.MaxFrameWidth = 0
	}
}

func (c *Config) normalizeClips() {
	ext := strings.ToLower(strings.TrimSpace(c.Clips.FrameExtension))
	if ext == "" {
		ext = defaultFrameExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	c.Clips.FrameExtension = ext
}

func (c *Config) normalizeAnnotation() {
	if c.Annotation.BaseFrameRate == 0 {
		c.Annotation.BaseFrameRate = defaultBaseFrameRate
	}
	if c.Annotation.DefaultTotalFrames == 0 {
		c.Annotation.DefaultTotalFrames = defaultTotalFrames
	}
	if c.Annotation.MinBoxSize == 0 {
		c.Annotation.MinBoxSize = defaultMinBoxSize
	}
}

func (c *Config) normalizeClient() {
	c.Client.BaseURL = strings.TrimRight(strings.TrimSpace(c.Client.BaseURL), "/")
	if value, ok := os.LookupEnv(baseURLEnv); ok && strings.TrimSpace(value) != "" {
		c.Client.BaseURL = strings.TrimRight(strings.TrimSpace(value), "/")
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = defaultClientBaseURL
	}
	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = defaultClientTimeout
	}
}

func (c *Config) normalizeKeys() {
	c.Keys.PlayPause = strings.TrimSpace(c.Keys.PlayPause)
	if c.Keys.PlayPause == "" {
		c.Keys.PlayPause = defaultPlayPauseKey
	}
	c.Keys.StepForward = strings.TrimSpace(c.Keys.StepForward)
	if c.Keys.StepForward == "" {
		c.Keys.StepForward = defaultStepForwardKey
	}
	c.Keys.StepBack = strings.TrimSpace(c.Keys.StepBack)
	if c.Keys.StepBack == "" {
		c.Keys.StepBack = defaultStepBackKey
	}
	if c.Keys.SkipFrames == 0 {
		c.Keys.SkipFrames = defaultSkipFrames
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
