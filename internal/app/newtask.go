package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/Makepad-fr/tada/internal/capture"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/service"
)

// NewTask is what the creation form collects.
type NewTask struct {
	Title     string
	Completed bool
	// PhotoPath is an image file to attach; empty means no photo.
	PhotoPath string
	// Location overrides the configured locator when set.
	Location *model.Location
}

// CreateTask validates the form, uploads the photo, resolves the location and
// creates the todo. Validation failures return before any network call.
func (a *App) CreateTask(ctx context.Context, in NewTask) (model.Item, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Item{}, service.ErrEmptyTitle
	}
	if err := a.Policy.Check(in.PhotoPath != ""); err != nil {
		return model.Item{}, err
	}

	var photo *capture.Photo
	if in.PhotoPath != "" {
		p, err := capture.OpenPhoto(in.PhotoPath)
		if err != nil {
			return model.Item{}, err
		}
		defer p.Close()
		photo = p
	}

	create := model.CreateInput{Title: title}
	if in.Completed {
		create.Completed = model.Ptr(true)
	}

	if photo != nil {
		img, err := a.Images.Upload(ctx, photo.Name, photo.ContentType, photo)
		if err != nil {
			return model.Item{}, fmt.Errorf("upload photo: %w", err)
		}
		a.Log.Debug("photo uploaded", "url", img.URL, "size", img.Size)
		create.PhotoURI = model.Ptr(img.URL)
	}

	loc := in.Location
	if loc == nil {
		loc = capture.TryLocate(ctx, a.Locator)
	}
	if loc != nil {
		create.Latitude = model.Ptr(loc.Latitude)
		create.Longitude = model.Ptr(loc.Longitude)
	}

	return a.Todos.Create(ctx, create)
}
