package models

import "time"

// SignLabel is the two-class vocabulary of the signage classifier.
type SignLabel string

const (
	SignLabelSchoolZone SignLabel = "school_zone_sign"
	SignLabelNone       SignLabel = "no_sign"
)

// ParseSignLabel maps a class index from the label mapping file to a
// SignLabel, defaulting to SignLabelNone for anything unrecognized.
func ParseSignLabel(s string) SignLabel {
	if SignLabel(s) == SignLabelSchoolZone {
		return SignLabelSchoolZone
	}
	return SignLabelNone
}

// Prediction is an imagery record plus the classifier's output.
// Score is a confidence percentage in [0, 100].
type Prediction struct {
	ImageryRecord
	Label SignLabel `csv:"label"`
	Score float64   `csv:"score"`
}

// StoredPrediction is the repository row backing the results API.
type StoredPrediction struct {
	RunID     string    `db:"run_id"`
	SchoolID  string    `db:"school_id"`
	RoadName  string    `db:"road_name"`
	Latitude  float64   `db:"latitude"`
	Longitude float64   `db:"longitude"`
	Bearing   float64   `db:"bearing"`
	ImagePath string    `db:"image_path"`
	Label     SignLabel `db:"label"`
	Score     float64   `db:"score"`
	CreatedAt time.Time `db:"created_at"`
}
