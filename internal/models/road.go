package models

// Coordinate is a single road vertex, ordered lon/lat to match the
// upstream geometry provider.
type Coordinate struct {
	Longitude float64
	Latitude  float64
}

// RoadGeometry is a piecewise-linear road path near a school, as
// returned by the road-network provider.
type RoadGeometry struct {
	SchoolID string
	Name     string
	Highway  string // highway-type classification, e.g. "residential"
	Path     []Coordinate
}

// SamplePoint is one densified location along a road path. Points are
// position-ordered along the source path.
type SamplePoint struct {
	SchoolID    string  `csv:"school_id"`
	RoadName    string  `csv:"road_name"`
	Longitude   float64 `csv:"longitude"`
	Latitude    float64 `csv:"latitude"`
	RoadLengthM float64 `csv:"road_length_m"`
	Bearing     float64 `csv:"bearing"` // direction of travel, degrees in [0, 360)
}
