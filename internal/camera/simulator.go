package camera

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"os"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Simulator renders a gray frame with the current time.
type Simulator struct {
	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewSimulator returns a simulator camera.
func NewSimulator() *Simulator {
	return &Simulator{now: time.Now}
}

func (s *Simulator) Name() string { return "simulator" }

func (s *Simulator) Start(context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return nil
}

func (s *Simulator) Stop() error {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

// Capture writes a 1920x1080 JPEG frame to path.
func (s *Simulator) Capture(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return &Error{Backend: s.Name(), Op: "capture", Err: err}
	}
	img := s.frame(1920, 1080, color.RGBA{128, 128, 128, 255})

	f, err := os.Create(path)
	if err != nil {
		return &Error{Backend: s.Name(), Op: "capture", Err: err}
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 95}); err != nil {
		f.Close()
		return &Error{Backend: s.Name(), Op: "capture", Err: err}
	}
	if err := f.Close(); err != nil {
		return &Error{Backend: s.Name(), Op: "capture", Err: err}
	}
	return nil
}

// CapturePreview returns a 640x480 frame.
func (s *Simulator) CapturePreview(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Backend: s.Name(), Op: "preview", Err: err}
	}
	return s.frame(640, 480, color.RGBA{80, 80, 80, 255}), nil
}

func (s *Simulator) frame(w, h int, bg color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(10, 10+basicfont.Face7x13.Ascent),
	}
	d.DrawString(s.now().Format("15:04:05"))
	return img
}
