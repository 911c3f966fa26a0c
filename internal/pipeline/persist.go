package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
	"github.com/mr1hm/go-schoolzone-scan/internal/repository"
)

// PersistStage copies the final predictions artifact into the
// prediction store so the results API can serve it.
type PersistStage struct {
	repo  repository.PredictionRepository
	store *artifact.Store
}

func NewPersistStage(repo repository.PredictionRepository, store *artifact.Store) *PersistStage {
	return &PersistStage{
		repo:  repo,
		store: store,
	}
}

func (s *PersistStage) Name() string {
	return "persist-predictions"
}

func (s *PersistStage) Run(ctx context.Context) error {
	var predictions []models.Prediction
	if err := s.store.Read(artifact.StagePredictions, &predictions); err != nil {
		return fmt.Errorf("persist predictions: %w", err)
	}

	now := time.Now()
	rows := make([]models.StoredPrediction, 0, len(predictions))
	for _, p := range predictions {
		rows = append(rows, models.StoredPrediction{
			RunID:     s.store.RunID(),
			SchoolID:  p.SchoolID,
			RoadName:  p.RoadName,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Bearing:   p.Bearing,
			ImagePath: p.ImagePath,
			Label:     p.Label,
			Score:     p.Score,
			CreatedAt: now,
		})
	}

	if err := s.repo.ReplaceRun(ctx, s.store.RunID(), rows); err != nil {
		return fmt.Errorf("persist predictions: %w", err)
	}

	slog.Info("predictions persisted", "run", s.store.RunID(), "rows", len(rows))
	return nil
}
