package scoring

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"clipmark/internal/services"
)

// ParseGroundTruth reads one "x1 y1 x2 y2" box per line. Blank lines are
// skipped.
func ParseGroundTruth(r io.Reader) ([]Box, error) {
	var boxes []Box
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 4 {
			return nil, services.Wrap(services.ErrValidation, "scoring", "parse ground truth",
				fmt.Sprintf("line %d: expected 4 values, got %d", line, len(fields)), nil)
		}
		var box Box
		for i, field := range fields {
			v, err := strconv.Atoi(field)
			if err != nil {
				return nil, services.Wrap(services.ErrValidation, "scoring", "parse ground truth",
					fmt.Sprintf("line %d: value %q is not an integer", line, field), err)
			}
			box[i] = v
		}
		boxes = append(boxes, box)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ground truth: %w", err)
	}
	return boxes, nil
}

// LoadGroundTruth reads <dir>/<folder>.txt.
func LoadGroundTruth(dir, folder string) ([]Box, error) {
	name := filepath.Base(filepath.Clean(folder))
	if name == "." || name == string(filepath.Separator) || name != folder {
		return nil, services.Wrap(services.ErrValidation, "scoring", "load ground truth",
			fmt.Sprintf("invalid clip folder %q", folder), nil)
	}
	path := filepath.Join(dir, name+".txt")
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "scoring", "load ground truth",
				fmt.Sprintf("no ground truth for %q", folder), err)
		}
		return nil, fmt.Errorf("open ground truth: %w", err)
	}
	defer file.Close()
	return ParseGroundTruth(file)
}
