package classify

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/config"
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

// Stage classifies each cached image, one inference call per row.
// Rows without an image are excluded from the final export.
type Stage struct {
	cfg    config.ClassifierConfig
	client InferenceClient
	store  *artifact.Store
}

func NewStage(cfg config.ClassifierConfig, client InferenceClient, store *artifact.Store) *Stage {
	return &Stage{
		cfg:    cfg,
		client: client,
		store:  store,
	}
}

func (s *Stage) Name() string {
	return "signage-classifier"
}

func (s *Stage) Run(ctx context.Context) error {
	modelRef, err := ResolveModel(s.cfg.ModelDir, s.cfg.ModelRef)
	if err != nil {
		return fmt.Errorf("signage classifier: %w", err)
	}

	labels, err := LoadLabels(filepath.Join(s.cfg.ModelDir, s.cfg.LabelsFile))
	if err != nil {
		return fmt.Errorf("signage classifier: %w", err)
	}

	slog.Info("classifier ready", "model", modelRef)

	var records []models.ImageryRecord
	if err := s.store.Read(artifact.StageImagery, &records); err != nil {
		return fmt.Errorf("signage classifier: %w", err)
	}

	predictions := make([]models.Prediction, 0, len(records))
	for _, rec := range records {
		if !rec.HasImage() {
			continue
		}

		idx, score, err := s.client.Classify(ctx, modelRef, rec.ImagePath)
		if err != nil {
			slog.Warn("classification failed", "image", rec.ImagePath, "error", err)
			continue
		}
		if idx < 0 || idx >= len(labels) {
			slog.Warn("classifier returned unknown class", "image", rec.ImagePath, "class", idx)
			continue
		}

		predictions = append(predictions, models.Prediction{
			ImageryRecord: rec,
			Label:         labels[idx],
			Score:         toPercent(score),
		})
	}

	if err := s.store.Write(artifact.StagePredictions, predictions); err != nil {
		return fmt.Errorf("signage classifier: %w", err)
	}

	slog.Info("images classified", "rows", len(records), "predictions", len(predictions))
	return nil
}

// toPercent maps a probability to a confidence score in [0, 100].
func toPercent(p float64) float64 {
	return math.Min(100, math.Max(0, p*100))
}
