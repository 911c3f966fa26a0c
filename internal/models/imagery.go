package models

// ImageryRecord ties a sample point to its cached street-level image.
// ImagePath is empty when the metadata lookup failed or returned no
// result; such rows carry no image downstream.
type ImageryRecord struct {
	SamplePoint
	ImagePath string `csv:"image_path"`
}

// HasImage reports whether an image was retrieved for this point.
func (r ImageryRecord) HasImage() bool {
	return r.ImagePath != ""
}
