package camera

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	_ "image/jpeg"
)

const defaultGPhoto2 = "gphoto2"

// GPhoto2 drives a tethered camera through the gphoto2 command line tool.
type GPhoto2 struct {
	bin string
	run runFunc
}

// NewGPhoto2 returns a backend using bin, or "gphoto2" from PATH.
func NewGPhoto2(bin string) *GPhoto2 {
	if bin == "" {
		bin = defaultGPhoto2
	}
	return &GPhoto2{bin: bin, run: runCommand}
}

func (g *GPhoto2) Name() string { return "gphoto2" }

// Start checks that the tool is installed.
func (g *GPhoto2) Start(context.Context) error {
	if _, err := exec.LookPath(g.bin); err != nil {
		return &Error{Backend: g.Name(), Op: "start", Err: fmt.Errorf("%w: %s not found", ErrUnavailable, g.bin)}
	}
	return nil
}

func (g *GPhoto2) Stop() error { return nil }

func (g *GPhoto2) Capture(ctx context.Context, path string) error {
	_, err := g.run(ctx, g.bin, "--capture-image-and-download", "--force-overwrite", "--filename", path)
	if err != nil {
		os.Remove(path)
		return &Error{Backend: g.Name(), Op: "capture", Err: err}
	}
	if _, err := os.Stat(path); err != nil {
		return &Error{Backend: g.Name(), Op: "capture", Err: fmt.Errorf("no image downloaded: %w", err)}
	}
	return nil
}

// CapturePreview grabs one live view frame through a temp file.
func (g *GPhoto2) CapturePreview(ctx context.Context) (image.Image, error) {
	dir, err := os.MkdirTemp("", "portrait-preview-")
	if err != nil {
		return nil, &Error{Backend: g.Name(), Op: "preview", Err: err}
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "preview.jpg")
	if _, err := g.run(ctx, g.bin, "--capture-preview", "--force-overwrite", "--filename", path); err != nil {
		return nil, &Error{Backend: g.Name(), Op: "preview", Err: err}
	}
	img, err := decodeFile(path)
	if err != nil {
		return nil, &Error{Backend: g.Name(), Op: "preview", Err: err}
	}
	return img, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
