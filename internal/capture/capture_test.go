package capture

import (
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/Makepad-fr/tada/internal/model"
)

func writePNG(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "shot.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenPhoto(t *testing.T) {
	path := writePNG(t, t.TempDir())
	p, err := OpenPhoto(path)
	if err != nil {
		t.Fatalf("OpenPhoto: %v", err)
	}
	defer p.Close()
	if p.Name != "shot.png" || p.ContentType != "image/png" || p.Size == 0 {
		t.Errorf("photo = %+v", p)
	}
	b, err := io.ReadAll(p)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(b)) != p.Size {
		t.Errorf("read %d bytes, want %d (not rewound?)", len(b), p.Size)
	}
}

func TestOpenPhotoErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenPhoto(""); !errors.Is(err, ErrNoPhoto) {
		t.Errorf("empty path: %v", err)
	}
	if _, err := OpenPhoto(filepath.Join(dir, "missing.jpg")); !errors.Is(err, ErrNoPhoto) {
		t.Errorf("missing file: %v", err)
	}
	txt := filepath.Join(dir, "notes.txt")
	os.WriteFile(txt, []byte("hello"), 0o644)
	if _, err := OpenPhoto(txt); !errors.Is(err, ErrNotImage) {
		t.Errorf("text file: %v", err)
	}
}

func TestPolicy(t *testing.T) {
	tests := []struct {
		in       string
		hasPhoto bool
		wantErr  error
	}{
		{"", false, nil},
		{"optional", true, nil},
		{"REQUIRED", false, ErrPhotoRequired},
		{"required", true, nil},
		{"off", true, ErrPhotoDisabled},
		{"off", false, nil},
	}
	for _, tt := range tests {
		p, err := ParsePolicy(tt.in)
		if err != nil {
			t.Fatalf("ParsePolicy(%q): %v", tt.in, err)
		}
		if err := p.Check(tt.hasPhoto); !errors.Is(err, tt.wantErr) {
			t.Errorf("%q.Check(%v) = %v, want %v", tt.in, tt.hasPhoto, err, tt.wantErr)
		}
	}
	if _, err := ParsePolicy("sometimes"); !errors.Is(err, ErrBadPolicy) {
		t.Errorf("expected ErrBadPolicy, got %v", err)
	}
}

type brokenLocator struct{}

func (brokenLocator) Locate(context.Context) (*model.Location, error) {
	return nil, errors.New("no fix")
}

func TestTryLocate(t *testing.T) {
	ctx := context.Background()
	if loc := TryLocate(ctx, brokenLocator{}); loc != nil {
		t.Errorf("broken locator gave %+v", loc)
	}
	if loc := TryLocate(ctx, NoLocator{}); loc != nil {
		t.Errorf("NoLocator gave %+v", loc)
	}
	loc := TryLocate(ctx, StaticLocator{Location: model.Location{Latitude: 1, Longitude: 2}})
	if loc == nil || loc.Longitude != 2 {
		t.Errorf("static = %+v", loc)
	}
	if _, err := NewLocation(91, 0); !errors.Is(err, ErrBadLocation) {
		t.Errorf("expected ErrBadLocation, got %v", err)
	}
}
