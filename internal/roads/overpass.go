package roads

import (
	"context"
	"fmt"
	"net/http"
	"time"

	overpass "github.com/serjvanilla/go-overpass"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

// GeometryProvider supplies road paths near a school.
type GeometryProvider interface {
	RoadsNear(ctx context.Context, school models.School) ([]models.RoadGeometry, error)
}

// OverpassProvider queries an Overpass endpoint for highway-tagged
// ways within a radius of each school.
type OverpassProvider struct {
	client  *overpass.Client
	radiusM float64
	timeout time.Duration
}

func NewOverpassProvider(endpoint string, radiusM float64, timeout time.Duration) *OverpassProvider {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 1, httpClient)
	return &OverpassProvider{
		client:  &client,
		radiusM: radiusM,
		timeout: timeout,
	}
}

func (p *OverpassProvider) RoadsNear(ctx context.Context, school models.School) ([]models.RoadGeometry, error) {
	query := fmt.Sprintf(`
		[out:json];
		(
			way["highway"](around:%.0f,%f,%f);
		);
		out body;
		>;
		out skel qt;
	`, p.radiusM, school.Latitude, school.Longitude)

	result, err := p.executeQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute road query for school %s: %w", school.ID, err)
	}

	return convertWays(school.ID, result), nil
}

func (p *OverpassProvider) executeQuery(ctx context.Context, query string) (*overpass.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.client.Query(query)
	if err != nil {
		return nil, fmt.Errorf("overpass query failed: %w", err)
	}

	return &result, nil
}

func convertWays(schoolID string, result *overpass.Result) []models.RoadGeometry {
	var geoms []models.RoadGeometry

	for _, way := range result.Ways {
		path := make([]models.Coordinate, 0, len(way.Nodes))
		for _, node := range way.Nodes {
			if node == nil {
				continue
			}
			path = append(path, models.Coordinate{
				Longitude: node.Lon,
				Latitude:  node.Lat,
			})
		}

		geoms = append(geoms, models.RoadGeometry{
			SchoolID: schoolID,
			Name:     way.Tags["name"],
			Highway:  way.Tags["highway"],
			Path:     path,
		})
	}

	return geoms
}
