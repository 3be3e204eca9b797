package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/marcus/portrait/internal/config"
)

func writeJPEG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatal(err)
	}
}

func TestCropCenter(t *testing.T) {
	tests := []struct {
		name  string
		w, h  int
		ratio config.AspectRatio
		wantW int
		wantH int
	}{
		{"landscape to portrait", 1920, 1080, config.AspectRatio{W: 3, H: 4}, 810, 1080},
		{"portrait to square", 600, 800, config.AspectRatio{W: 1, H: 1}, 600, 600},
		{"already matching", 300, 400, config.AspectRatio{W: 3, H: 4}, 300, 400},
		{"zero ratio", 640, 480, config.AspectRatio{}, 640, 480},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			img := image.NewRGBA(image.Rect(0, 0, tc.w, tc.h))
			got := CropCenter(img, tc.ratio).Bounds()
			if got.Dx() != tc.wantW || got.Dy() != tc.wantH {
				t.Errorf("got %dx%d, want %dx%d", got.Dx(), got.Dy(), tc.wantW, tc.wantH)
			}
		})
	}
}

func TestCropCenter_Centered(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	got := CropCenter(img, config.AspectRatio{W: 1, H: 1}).Bounds()
	if got.Min.X != 50 || got.Max.X != 150 {
		t.Errorf("crop not centered: %v", got)
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "1001.jpg")
	writeJPEG(t, path, 400, 300)

	opts := Options{Width: 60, Height: 80, Quality: 85, Aspect: config.AspectRatio{W: 3, H: 4}}
	if err := (JPEGProcessor{}).Process(path, path, opts); err != nil {
		t.Fatalf("Process: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if cfg.Width != 60 || cfg.Height != 80 {
		t.Errorf("size = %dx%d, want 60x80", cfg.Width, cfg.Height)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestProcess_Comment(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "raw.jpg")
	dest := filepath.Join(dir, "out.jpg")
	writeJPEG(t, src, 40, 40)

	opts := Options{Width: 20, Height: 20, Quality: 90, Comment: "Schulfoto AG - (c) 2026"}
	if err := (JPEGProcessor{}).Process(src, dest, opts); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := ReadComment(data)
	if !ok || got != opts.Comment {
		t.Errorf("ReadComment = %q, %v", got, ok)
	}
	if _, err := jpeg.DecodeConfig(bytesReader(data)); err != nil {
		t.Errorf("jpeg with comment does not decode: %v", err)
	}
}

func TestProcess_NotAnImage(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jpg")
	os.WriteFile(src, []byte("not a jpeg"), 0644)

	if err := (JPEGProcessor{}).Process(src, src, Options{Width: 10, Height: 10}); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestInsertComment_Rejects(t *testing.T) {
	if _, err := InsertComment([]byte{0x00, 0x01}, "x"); err == nil {
		t.Fatal("expected error for non-jpeg input")
	}
}

func TestCopyrightComment(t *testing.T) {
	tests := []struct {
		in   config.CopyrightSettings
		want string
	}{
		{config.CopyrightSettings{}, ""},
		{config.CopyrightSettings{Artist: "A"}, "A"},
		{config.CopyrightSettings{Notice: "N"}, "N"},
		{config.CopyrightSettings{Artist: "A", Notice: "N"}, "A - N"},
	}
	for _, tc := range tests {
		if got := CopyrightComment(tc.in); got != tc.want {
			t.Errorf("CopyrightComment(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func bytesReader(b []byte) *bytes.Reader { return bytes.NewReader(b) }
