package models

// School is a normalized row from the source schools dataset. The raw
// source uses provider-specific column names for position; the locator
// stage renames those into this schema and filters to the target region.
type School struct {
	ID        string  `csv:"school_id"`
	Name      string  `csv:"school_name"`
	Latitude  float64 `csv:"latitude"`
	Longitude float64 `csv:"longitude"`
	Region    string  `csv:"region"`
	Suburb    string  `csv:"suburb"`
}
