package preflight

import (
	"context"
	"strings"

	"clipmark/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// Failed reports whether any required check failed.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}

// RunServer executes the checks a backend needs before it starts.
func RunServer(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := []Result{
		CheckSecretKey(cfg.Server.SecretKey),
		CheckDirectoryReadable("Videos directory", cfg.Paths.VideosDir),
		CheckClips("Clip catalog", cfg.Paths.VideosDir, cfg.Clips.FrameExtension, cfg.Clips.FramePadding, cfg.Clips.ClipsPerBlock),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
	}
	if strings.TrimSpace(cfg.Paths.LogDir) != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	if strings.TrimSpace(cfg.Paths.ValidationVideosDir) != "" {
		validation := CheckDirectoryReadable("Validation videos", cfg.Paths.ValidationVideosDir)
		validation.Optional = true
		results = append(results, validation)
		gts := CheckDirectoryReadable("Validation ground truth", cfg.Paths.ValidationGTsDir)
		gts.Optional = true
		results = append(results, gts)
	}
	return results
}

// RunAll executes the server checks plus a reachability probe of the
// configured client backend.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	results := RunServer(cfg)
	backend := CheckBackend(ctx, cfg.Client.BaseURL)
	backend.Optional = true
	return append(results, backend)
}
