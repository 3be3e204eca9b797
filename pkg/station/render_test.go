package station

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/marcus/portrait/internal/config"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestFitCells(t *testing.T) {
	tests := []struct {
		name             string
		w, h             int
		maxCols, maxRows int
		wantCols         int
		wantRows         int
	}{
		{"landscape limited by width", 640, 480, 40, 100, 40, 15},
		{"portrait limited by height", 300, 400, 100, 20, 30, 20},
		{"empty", 0, 0, 10, 10, 0, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cols, rows := fitCells(image.Rect(0, 0, tc.w, tc.h), tc.maxCols, tc.maxRows)
			if cols != tc.wantCols || rows != tc.wantRows {
				t.Errorf("fitCells = %dx%d, want %dx%d", cols, rows, tc.wantCols, tc.wantRows)
			}
		})
	}
}

func TestRenderImage_Lines(t *testing.T) {
	out := RenderImage(solid(64, 48, color.RGBA{80, 80, 80, 255}), 32, 50, nil)
	lines := strings.Split(out, "\n")
	if len(lines) != 12 {
		t.Fatalf("lines = %d, want 12", len(lines))
	}
	if n := strings.Count(lines[0], "▀"); n != 32 {
		t.Errorf("cells per line = %d, want 32", n)
	}
}

func TestApplyGuides_Thirds(t *testing.T) {
	dark := color.RGBA{0, 0, 0, 255}
	img := solid(90, 90, dark)
	ApplyGuides(img, Guides{Mode: config.OverlayThirds, Opacity: 1})

	if got := img.RGBAAt(30, 10); got.R != 255 {
		t.Errorf("vertical third not drawn: %v", got)
	}
	if got := img.RGBAAt(10, 60); got.R != 255 {
		t.Errorf("horizontal third not drawn: %v", got)
	}
	if got := img.RGBAAt(10, 10); got != dark {
		t.Errorf("unexpected pixel change: %v", got)
	}
}

func TestApplyGuides_Opacity(t *testing.T) {
	img := solid(90, 90, color.RGBA{0, 0, 0, 255})
	ApplyGuides(img, Guides{Mode: config.OverlayCrosshair, Opacity: 0.5})
	// on the horizontal arm only, so blended once
	got := img.RGBAAt(40, 45)
	if got.R < 120 || got.R > 135 {
		t.Errorf("arm pixel = %v, want half blend", got)
	}

	untouched := solid(10, 10, color.RGBA{0, 0, 0, 255})
	ApplyGuides(untouched, Guides{Mode: config.OverlayThirds, Opacity: 0})
	if untouched.RGBAAt(3, 3).R != 0 {
		t.Error("zero opacity should draw nothing")
	}
}

func TestApplyGuides_AspectFrame(t *testing.T) {
	img := solid(120, 90, color.RGBA{0, 0, 0, 255})
	ApplyGuides(img, Guides{Mode: config.OverlayNone, Opacity: 1, Aspect: config.AspectRatio{W: 1, H: 1}})
	// 1:1 frame inside 120x90 spans x 15..104
	if img.RGBAAt(15, 40).R != 255 || img.RGBAAt(104, 40).R != 255 {
		t.Error("crop frame edges not drawn")
	}
	if img.RGBAAt(5, 40).R != 0 {
		t.Error("outside frame should be untouched")
	}
}

func TestApplyGuides_OverlayImage(t *testing.T) {
	img := solid(20, 20, color.RGBA{0, 0, 0, 255})
	overlay := solid(4, 4, color.RGBA{0, 0, 255, 255})
	ApplyGuides(img, Guides{Mode: config.OverlayNone, Opacity: 1, Image: overlay})
	if got := img.RGBAAt(10, 10); got.B < 250 {
		t.Errorf("overlay not composited: %v", got)
	}
}
