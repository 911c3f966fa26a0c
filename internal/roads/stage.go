package roads

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mr1hm/go-schoolzone-scan/internal/artifact"
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

// Stage reads the schools artifact, fetches road geometry near each
// school, and emits densified sample points. Schools are processed in
// artifact order, one at a time; output row order follows input order.
type Stage struct {
	provider GeometryProvider
	sampler  *Sampler
	store    *artifact.Store
}

func NewStage(provider GeometryProvider, sampler *Sampler, store *artifact.Store) *Stage {
	return &Stage{
		provider: provider,
		sampler:  sampler,
		store:    store,
	}
}

func (s *Stage) Name() string {
	return "road-point-sampler"
}

func (s *Stage) Run(ctx context.Context) error {
	var schools []models.School
	if err := s.store.Read(artifact.StageSchools, &schools); err != nil {
		return fmt.Errorf("road sampler: %w", err)
	}

	var points []models.SamplePoint
	for _, school := range schools {
		geoms, err := s.provider.RoadsNear(ctx, school)
		if err != nil {
			slog.Warn("road geometry lookup failed", "school", school.ID, "error", err)
			continue
		}

		sampled := 0
		for _, road := range geoms {
			pts := s.sampler.Sample(road)
			if pts == nil {
				continue
			}
			points = append(points, pts...)
			sampled++
		}
		slog.Debug("sampled roads", "school", school.ID, "roads", sampled)
	}

	if err := s.store.Write(artifact.StageRoadPoints, points); err != nil {
		return fmt.Errorf("road sampler: %w", err)
	}

	slog.Info("road points sampled", "schools", len(schools), "points", len(points))
	return nil
}
