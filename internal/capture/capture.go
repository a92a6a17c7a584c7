// Package capture stands in for the device camera and GPS: a photo is an image
// file on disk and a location is a coordinate pair from flags or config.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
)

var (
	ErrNoPhoto       = errors.New("no photo")
	ErrNotImage      = errors.New("file is not an image")
	ErrPhotoRequired = errors.New("Debes tomar una foto antes de guardar la tarea.")
	ErrPhotoDisabled = errors.New("photos are disabled by photo-policy")
	ErrBadPolicy     = errors.New("unknown photo policy")
	ErrBadLocation   = errors.New("latitude must be in [-90,90] and longitude in [-180,180]")
)

// Policy decides whether a photo must accompany a new task.
type Policy string

const (
	PhotoOptional Policy = "optional"
	PhotoRequired Policy = "required"
	PhotoOff      Policy = "off"
)

// ParsePolicy accepts optional, required or off. Empty means optional.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PhotoOptional, nil
	case PhotoOptional, PhotoRequired, PhotoOff:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrBadPolicy, s)
	}
}

// Check validates whether having a photo (or not) is allowed.
func (p Policy) Check(hasPhoto bool) error {
	switch {
	case p == PhotoRequired && !hasPhoto:
		return ErrPhotoRequired
	case p == PhotoOff && hasPhoto:
		return ErrPhotoDisabled
	}
	return nil
}

// Photo is a captured image ready for upload.
type Photo struct {
	Name        string
	ContentType string
	Size        int64
	body        io.ReadSeekCloser
}

func (p *Photo) Read(b []byte) (int, error) { return p.body.Read(b) }
func (p *Photo) Close() error               { return p.body.Close() }

// OpenPhoto opens path and checks it holds an image.
func OpenPhoto(path string) (*Photo, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, ErrNoPhoto
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoPhoto, path)
		}
		return nil, fmt.Errorf("open photo: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat photo: %w", err)
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		f.Close()
		return nil, fmt.Errorf("read photo: %w", err)
	}
	ctype := http.DetectContentType(head[:n])
	if !strings.HasPrefix(ctype, "image/") {
		f.Close()
		return nil, fmt.Errorf("%w: %s (%s)", ErrNotImage, path, ctype)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, fmt.Errorf("rewind photo: %w", err)
	}
	return &Photo{
		Name:        filepath.Base(path),
		ContentType: ctype,
		Size:        info.Size(),
		body:        f,
	}, nil
}

// Locator produces the position to attach to a new task. A nil location with
// a nil error means none is available.
type Locator interface {
	Locate(ctx context.Context) (*model.Location, error)
}

// NoLocator never has a position.
type NoLocator struct{}

func (NoLocator) Locate(context.Context) (*model.Location, error) { return nil, nil }

// StaticLocator always reports the same position.
type StaticLocator struct {
	Location model.Location
}

func (l StaticLocator) Locate(context.Context) (*model.Location, error) {
	loc := l.Location
	return &loc, nil
}

// NewLocation validates a coordinate pair.
func NewLocation(lat, lon float64) (model.Location, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return model.Location{}, ErrBadLocation
	}
	return model.Location{Latitude: lat, Longitude: lon}, nil
}

// TryLocate asks l for a position and degrades to none on failure.
func TryLocate(ctx context.Context, l Locator) *model.Location {
	if l == nil {
		return nil
	}
	loc, err := l.Locate(ctx)
	if err != nil {
		return nil
	}
	return loc
}
