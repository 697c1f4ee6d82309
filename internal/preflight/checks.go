package preflight

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"clipmark/internal/catalog"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that the directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSecretKey verifies a cookie signing key is configured.
func CheckSecretKey(key string) Result {
	const name = "Secret key"
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return Result{Name: name, Detail: "missing (set server.secret_key or CLIPMARK_SECRET_KEY)"}
	case len(key) < 16:
		return Result{Name: name, Passed: true, Optional: true, Detail: "set (shorter than 16 characters)"}
	default:
		return Result{Name: name, Passed: true, Detail: "set"}
	}
}

// CheckClips scans dir and verifies at least one full block of clips exists.
func CheckClips(name, dir, ext string, padding, clipsPerBlock int) Result {
	cat, err := catalog.Scan(dir, ext, padding)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	n := cat.Len()
	if clipsPerBlock < 1 {
		clipsPerBlock = 1
	}
	blocks := n / clipsPerBlock
	if blocks == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%d clips found, need at least %d for one block", n, clipsPerBlock)}
	}
	detail := fmt.Sprintf("%d clips in %d blocks", n, blocks)
	if rest := n % clipsPerBlock; rest > 0 {
		detail += fmt.Sprintf(" (%d trailing clips unassigned)", rest)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckBackend verifies a clipmark backend answers /api/health.
func CheckBackend(ctx context.Context, baseURL string) Result {
	const name = "Backend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/api/health", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeNetError(base, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Name: name, Detail: fmt.Sprintf("health check failed (%d)", resp.StatusCode)}
	}
	var health struct {
		Clips       int `json:"clips"`
		Annotations int `json:"annotations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (unexpected response: %v)", base, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d clips, %d annotations)", base, health.Clips, health.Annotations)}
}

func summarizeNetError(base string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("%s (health check timed out)", base)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Sprintf("%s (health check timed out)", base)
	}
	return fmt.Sprintf("%s (unreachable: %v)", base, err)
}
