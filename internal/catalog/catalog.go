package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"clipmark/internal/services"
)

// Clip is one discovered clip folder.
type Clip struct {
	Index  int    `json:"index"`
	Folder string `json:"folder"`
	Path   string `json:"path"`
	Frames int    `json:"frames"`
}

// GlobalIndex is the one-based position of the clip across the catalog.
func (c Clip) GlobalIndex() int { return c.Index + 1 }

// Catalog is a snapshot of the clip folders under one directory.
type Catalog struct {
	dir     string
	ext     string
	padding int

	mu    sync.RWMutex
	clips []Clip
}

// Scan discovers clips under dir. ext includes the leading dot.
func Scan(dir, ext string, padding int) (*Catalog, error) {
	c := &Catalog{dir: dir, ext: strings.ToLower(ext), padding: padding}
	if err := c.Refresh(); err != nil {
		return nil, err
	}
	return c, nil
}

// Refresh rescans the directory. Indexes shift if folders were added or
// removed before existing ones.
func (c *Catalog) Refresh() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrConfiguration, "catalog", "scan",
				fmt.Sprintf("clip directory %q does not exist", c.dir), err)
		}
		return fmt.Errorf("read clip directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	clips := make([]Clip, 0, len(names))
	for _, name := range names {
		path := filepath.Join(c.dir, name)
		frames, err := c.countFrames(path)
		if err != nil {
			return err
		}
		if frames == 0 {
			continue
		}
		clips = append(clips, Clip{Index: len(clips), Folder: name, Path: path, Frames: frames})
	}

	c.mu.Lock()
	c.clips = clips
	c.mu.Unlock()
	return nil
}

// countFrames returns the length of the unbroken frame sequence starting at
// frame one.
func (c *Catalog) countFrames(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read clip folder %s: %w", dir, err)
	}
	present := make(map[int]struct{}, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		if !strings.EqualFold(ext, c.ext) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(name, ext))
		if err != nil || n < 1 {
			continue
		}
		present[n] = struct{}{}
	}
	count := 0
	for {
		if _, ok := present[count+1]; !ok {
			return count, nil
		}
		count++
	}
}

// Dir returns the scanned directory.
func (c *Catalog) Dir() string { return c.dir }

// Len returns the number of clips.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.clips)
}

// Clips returns a copy of every clip in index order.
func (c *Catalog) Clips() []Clip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Clip(nil), c.clips...)
}

// Range returns clips with index in [from, to), clamped to the catalog.
func (c *Catalog) Range(from, to int) []Clip {
	c.mu.RLock()
	defer c.mu.RUnlock()
	from = max(from, 0)
	to = min(to, len(c.clips))
	if from >= to {
		return nil
	}
	return append([]Clip(nil), c.clips[from:to]...)
}

// Clip returns the clip with the given index.
func (c *Catalog) Clip(index int) (Clip, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if index < 0 || index >= len(c.clips) {
		return Clip{}, services.Wrap(services.ErrNotFound, "catalog", "lookup clip",
			fmt.Sprintf("clip %d not found", index), nil)
	}
	return c.clips[index], nil
}

// Lookup finds a clip by folder name.
func (c *Catalog) Lookup(folder string) (Clip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, clip := range c.clips {
		if clip.Folder == folder {
			return clip, true
		}
	}
	return Clip{}, false
}

// FrameName returns the file name of zero-based frame.
func (c *Catalog) FrameName(frame int) string {
	return FrameName(frame, c.padding, c.ext)
}

// FramePath resolves zero-based frame of clip index to a file on disk.
func (c *Catalog) FramePath(index, frame int) (string, error) {
	clip, err := c.Clip(index)
	if err != nil {
		return "", err
	}
	if frame < 0 {
		return "", services.Wrap(services.ErrValidation, "catalog", "resolve frame",
			fmt.Sprintf("frame %d is negative", frame), nil)
	}
	path := filepath.Join(clip.Path, c.FrameName(frame))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", services.Wrap(services.ErrNotFound, "catalog", "resolve frame",
			fmt.Sprintf("frame %d of %s not found", frame, clip.Folder), err)
	}
	return path, nil
}

// FrameName formats zero-based frame as its one-based padded file name.
func FrameName(frame, padding int, ext string) string {
	return fmt.Sprintf("%0*d%s", padding, frame+1, ext)
}
