package model

import "encoding/json"

// CreateInput carries the fields of a new task. Only present fields are sent.
type CreateInput struct {
	Title     string
	Completed *bool
	Latitude  *float64
	Longitude *float64
	PhotoURI  *string
}

// MarshalJSON sends title always, location only when both coordinates exist.
func (in CreateInput) MarshalJSON() ([]byte, error) {
	m := map[string]any{"title": in.Title}
	if in.Completed != nil {
		m["completed"] = *in.Completed
	}
	if in.Latitude != nil && in.Longitude != nil {
		m["latitude"] = *in.Latitude
		m["longitude"] = *in.Longitude
	}
	if in.PhotoURI != nil {
		m["photoUri"] = *in.PhotoURI
	}
	return json.Marshal(m)
}

// UpdateInput is a partial update. Nil fields are left alone by the server.
// ClearPhoto sends an explicit null for photoUri and wins over PhotoURI.
type UpdateInput struct {
	Title      *string
	Completed  *bool
	Latitude   *float64
	Longitude  *float64
	PhotoURI   *string
	ClearPhoto bool
}

// HasLocation reports whether both coordinates were supplied.
func (in UpdateInput) HasLocation() bool {
	return in.Latitude != nil && in.Longitude != nil
}

// HasPhoto reports whether the photo reference was explicitly provided.
func (in UpdateInput) HasPhoto() bool {
	return in.ClearPhoto || in.PhotoURI != nil
}

// Empty reports whether the update carries no field at all.
func (in UpdateInput) Empty() bool {
	return in.Title == nil && in.Completed == nil && in.Latitude == nil &&
		in.Longitude == nil && !in.HasPhoto()
}

func (in UpdateInput) MarshalJSON() ([]byte, error) {
	m := map[string]any{}
	if in.Title != nil {
		m["title"] = *in.Title
	}
	if in.Completed != nil {
		m["completed"] = *in.Completed
	}
	if in.Latitude != nil {
		m["latitude"] = *in.Latitude
	}
	if in.Longitude != nil {
		m["longitude"] = *in.Longitude
	}
	switch {
	case in.ClearPhoto:
		m["photoUri"] = nil
	case in.PhotoURI != nil:
		m["photoUri"] = *in.PhotoURI
	}
	return json.Marshal(m)
}

// UploadedImage is what the image endpoint returns for a stored photo.
type UploadedImage struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}

// Ptr returns a pointer to v. Handy for building inputs.
func Ptr[T any](v T) *T { return &v }
