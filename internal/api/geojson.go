package api

import (
	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

func toGeoJSON(predictions []models.StoredPrediction) FeatureCollection {
	features := make([]Feature, 0, len(predictions))

	for _, p := range predictions {
		f := Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{p.Longitude, p.Latitude},
			},
			Properties: map[string]any{
				"run_id":     p.RunID,
				"school_id":  p.SchoolID,
				"road_name":  p.RoadName,
				"bearing":    p.Bearing,
				"image_path": p.ImagePath,
				"label":      string(p.Label),
				"score":      p.Score,
				"created_at": p.CreatedAt,
			},
		}
		features = append(features, f)
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
