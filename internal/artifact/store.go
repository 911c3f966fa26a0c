// Package artifact persists the tabular files each pipeline stage
// produces and the next one consumes. Artifacts live under a per-run
// directory and are named by run ID and stage purpose.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
)

const (
	StageSchools     = "schools"
	StageRoadPoints  = "road_points"
	StageImagery     = "imagery"
	StagePredictions = "predictions"
)

type Store struct {
	dataDir string
	runID   string
}

func NewStore(dataDir, runID string) (*Store, error) {
	s := &Store{
		dataDir: dataDir,
		runID:   runID,
	}
	if err := os.MkdirAll(s.ImagesDir(), 0o755); err != nil {
		return nil, fmt.Errorf("error creating run directory: %w", err)
	}
	return s, nil
}

func (s *Store) RunID() string {
	return s.runID
}

func (s *Store) RunDir() string {
	return filepath.Join(s.dataDir, s.runID)
}

func (s *Store) ImagesDir() string {
	return filepath.Join(s.RunDir(), "images")
}

// Path returns the artifact file for a stage, e.g.
// <dataDir>/<runID>/<runID>_road_points.csv.
func (s *Store) Path(stage string) string {
	return filepath.Join(s.RunDir(), fmt.Sprintf("%s_%s.csv", s.runID, stage))
}

// Write persists rows (a slice of stage records) as the stage's
// artifact, replacing any previous file.
func (s *Store) Write(stage string, rows any) error {
	f, err := os.Create(s.Path(stage))
	if err != nil {
		return fmt.Errorf("error creating %s artifact: %w", stage, err)
	}
	defer f.Close()

	if err := gocsv.MarshalFile(rows, f); err != nil {
		return fmt.Errorf("error writing %s artifact: %w", stage, err)
	}
	return nil
}

// Read loads a stage artifact into out, a pointer to a slice of stage
// records.
func (s *Store) Read(stage string, out any) error {
	f, err := os.Open(s.Path(stage))
	if err != nil {
		return fmt.Errorf("error opening %s artifact: %w", stage, err)
	}
	defer f.Close()

	if err := gocsv.UnmarshalFile(f, out); err != nil {
		return fmt.Errorf("error reading %s artifact: %w", stage, err)
	}
	return nil
}
