package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Makepad-fr/tada/internal/model"
)

const (
	defaultPhotoName = "photo.jpg"
	defaultPhotoType = "image/jpeg"
)

// Image uploads task photos.
type Image struct {
	t Transport
}

func NewImage(t Transport) *Image { return &Image{t: t} }

// Upload stores a photo and returns where the server put it.
func (s *Image) Upload(ctx context.Context, filename, contentType string, r io.Reader) (model.UploadedImage, error) {
	if filename == "" {
		filename = defaultPhotoName
	}
	if contentType == "" {
		contentType = defaultPhotoType
	}
	var raw json.RawMessage
	if err := s.t.Upload(ctx, "/images", "image", filename, contentType, r, &raw); err != nil {
		return model.UploadedImage{}, err
	}
	if len(raw) == 0 {
		return model.UploadedImage{}, fmt.Errorf("upload: %w", ErrEmptyResponse)
	}
	var img model.UploadedImage
	if err := json.Unmarshal(unwrapData(raw), &img); err != nil {
		return model.UploadedImage{}, fmt.Errorf("decode image: %w", err)
	}
	if img.URL == "" {
		return model.UploadedImage{}, fmt.Errorf("upload: %w", ErrEmptyResponse)
	}
	return img, nil
}
