package roads

import (
	"math"

	"github.com/mr1hm/go-schoolzone-scan/internal/models"
)

// Roads with this highway classification are never sampled.
const excludedHighway = "service"

// Sampler densifies road paths into evenly spaced sample points. The
// step is in coordinate units; interpolation is arc-length
// parameterized and locally planar, with no geodesic correction.
type Sampler struct {
	step float64
}

func NewSampler(step float64) *Sampler {
	return &Sampler{step: step}
}

// Sample produces position-ordered points along the road path, spaced
// at the sampler's step. Excluded highway classes and missing geometry
// yield nil, as do paths too short to produce at least 2 points.
func (s *Sampler) Sample(road models.RoadGeometry) []models.SamplePoint {
	if road.Highway == excludedHighway || len(road.Path) < 2 {
		return nil
	}

	pts := densify(road.Path, s.step)
	if pts == nil {
		return nil
	}

	lengthM := pathLengthM(road.Path)

	out := make([]models.SamplePoint, len(pts))
	for i, p := range pts {
		var bearing float64
		if i == 0 {
			// Reverse of the 2nd->1st direction, so the first point's
			// orientation stays consistent with the rest of the path.
			bearing = ReverseBearing(Bearing(
				pts[1].Latitude, pts[1].Longitude,
				pts[0].Latitude, pts[0].Longitude,
			))
		} else {
			bearing = Bearing(
				pts[i-1].Latitude, pts[i-1].Longitude,
				p.Latitude, p.Longitude,
			)
		}

		out[i] = models.SamplePoint{
			SchoolID:    road.SchoolID,
			RoadName:    road.Name,
			Longitude:   p.Longitude,
			Latitude:    p.Latitude,
			RoadLengthM: lengthM,
			Bearing:     bearing,
		}
	}
	return out
}

// densify interpolates floor(length/step) points along the path at
// multiples of step, starting at the first vertex. Returns nil when
// fewer than 2 points fit.
func densify(path []models.Coordinate, step float64) []models.Coordinate {
	total := planarLength(path)
	n := int(math.Floor(total / step))
	if n < 2 {
		return nil
	}

	points := make([]models.Coordinate, 0, n)
	seg := 0
	segStart := 0.0

	for k := 0; k < n; k++ {
		target := float64(k) * step

		for seg < len(path)-2 && segStart+segmentLength(path[seg], path[seg+1]) < target {
			segStart += segmentLength(path[seg], path[seg+1])
			seg++
		}

		l := segmentLength(path[seg], path[seg+1])
		t := 0.0
		if l > 0 {
			t = (target - segStart) / l
		}
		if t > 1 {
			t = 1
		}

		points = append(points, models.Coordinate{
			Longitude: path[seg].Longitude + t*(path[seg+1].Longitude-path[seg].Longitude),
			Latitude:  path[seg].Latitude + t*(path[seg+1].Latitude-path[seg].Latitude),
		})
	}
	return points
}

func segmentLength(a, b models.Coordinate) float64 {
	return math.Hypot(b.Longitude-a.Longitude, b.Latitude-a.Latitude)
}

func planarLength(path []models.Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += segmentLength(path[i-1], path[i])
	}
	return total
}

func pathLengthM(path []models.Coordinate) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += HaversineM(
			path[i-1].Latitude, path[i-1].Longitude,
			path[i].Latitude, path[i].Longitude,
		)
	}
	return total
}
