package repository

import (
	"context"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

type Filter struct {
	Limit    int
	Offset   int
	RunID    string
	SchoolID string
	Label    *models.SignLabel
	MinScore *float64
}

type PredictionRepository interface {
	ReplaceRun(ctx context.Context, runID string, rows []models.StoredPrediction) error
	List(ctx context.Context, opts Filter) ([]models.StoredPrediction, error)
	Runs(ctx context.Context) ([]string, error)
}
