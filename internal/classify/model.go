// Package classify implements the final pipeline stage: applying a
// pre-trained two-class signage model to each cached image.
package classify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

// Weight file extensions considered when falling back to the newest
// model in the directory.
var weightExtensions = map[string]bool{
	".onnx": true,
	".pt":   true,
	".pth":  true,
	".h5":   true,
}

// ResolveModel returns the model file to apply. An explicit reference
// wins; otherwise the most recently modified weight file under dir is
// chosen.
func ResolveModel(dir, explicit string) (string, error) {
	if explicit != "" {
		return filepath.Join(dir, explicit), nil
	}
	return latestModel(dir)
}

func latestModel(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("error reading model directory: %w", err)
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	var candidates []candidate

	for _, e := range entries {
		if e.IsDir() || !weightExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return "", fmt.Errorf("error reading model file info: %w", err)
		}
		candidates = append(candidates, candidate{name: e.Name(), modTime: info.ModTime()})
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("no model weight files in %s", dir)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.After(candidates[j].modTime)
	})
	return filepath.Join(dir, candidates[0].name), nil
}

// LoadLabels reads the class-label mapping file, an ordered list of
// class names indexed by the classifier's output.
func LoadLabels(path string) ([]models.SignLabel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading labels file: %w", err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("error decoding labels file: %w", err)
	}
	if len(names) != 2 {
		return nil, fmt.Errorf("expected 2 class labels, got %d", len(names))
	}

	labels := make([]models.SignLabel, len(names))
	for i, n := range names {
		labels[i] = models.ParseSignLabel(n)
	}
	return labels, nil
}
