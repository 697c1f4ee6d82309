package config

const (
	defaultConfigPath          = "~/.config/clipmark/config.toml"
	defaultVideosDir           = "videos"
	defaultValidationVideosDir = "validation_videos"
	defaultValidationGTsDir    = "validation_gts"
	defaultDataDir             = "~/.local/share/clipmark"
	defaultLogDir              = "~/.local/share/clipmark/logs"
	defaultAPIBind             = "127.0.0.1:5000"
	defaultCookieName          = "clipmark_annotator"
	defaultCookieMaxAgeDays    = 181
	defaultFrameExtension      = ".jpeg"
	defaultFramePadding        = 5
	defaultClipsPerBlock       = 15
	defaultAnnotatorsPerBlock  = 5
	defaultBaseFrameRate       = 5
	defaultTotalFrames         = 50
	defaultMinBoxSize          = 10
	defaultClientBaseURL       = "http://127.0.0.1:5000"
	defaultClientTimeout       = 15
	defaultPlayPauseKey        = "Shift"
	defaultStepForwardKey      = "ArrowRight"
	defaultStepBackKey         = "ArrowLeft"
	defaultSkipFrames          = 5
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"

	secretKeyEnv = "CLIPMARK_SECRET_KEY"
	baseURLEnv   = "CLIPMARK_URL"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			VideosDir:           defaultVideosDir,
			ValidationVideosDir: defaultValidationVideosDir,
			ValidationGTsDir:    defaultValidationGTsDir,
			DataDir:             defaultDataDir,
			LogDir:              defaultLogDir,
			APIBind:             defaultAPIBind,
		},
		Server: Server{
			CookieName:       defaultCookieName,
			CookieMaxAgeDays: defaultCookieMaxAgeDays,
		},
		Clips: Clips{
			FrameExtension:     defaultFrameExtension,
			FramePadding:       defaultFramePadding,
			ClipsPerBlock:      defaultClipsPerBlock,
			AnnotatorsPerBlock: defaultAnnotatorsPerBlock,
		},
		Annotation: Annotation{
			BaseFrameRate:      defaultBaseFrameRate,
			DefaultTotalFrames: defaultTotalFrames,
			MinBoxSize:         defaultMinBoxSize,
		},
		Client: Client{
			BaseURL:        defaultClientBaseURL,
			TimeoutSeconds: defaultClientTimeout,
		},
		Keys: Keys{
			PlayPause:   defaultPlayPauseKey,
			StepForward: defaultStepForwardKey,
			StepBack:    defaultStepBackKey,
			SkipFrames:  defaultSkipFrames,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
