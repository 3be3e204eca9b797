package camera

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marcus/portrait/internal/config"
)

func TestSimulator_Capture(t *testing.T) {
	sim := NewSimulator()
	if err := sim.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "raw.jpg")
	if err := sim.Capture(context.Background(), path); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := jpeg.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 {
		t.Errorf("size = %dx%d", cfg.Width, cfg.Height)
	}
}

func TestSimulator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewSimulator().CapturePreview(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		backend string
		want    string
		wantErr bool
	}{
		{config.BackendSimulator, "simulator", false},
		{config.BackendGPhoto2, "gphoto2", false},
		{config.BackendWebcam, "webcam", false},
		{"canon", "", true},
	}
	for _, tc := range tests {
		cam, err := New(config.CameraSettings{Backend: tc.backend})
		if tc.wantErr {
			if err == nil {
				t.Errorf("New(%q): expected error", tc.backend)
			}
			continue
		}
		if err != nil || cam.Name() != tc.want {
			t.Errorf("New(%q) = %v, %v", tc.backend, cam, err)
		}
	}
}

func TestOpen_FallsBackToSimulator(t *testing.T) {
	cfg := config.CameraSettings{Backend: config.BackendGPhoto2, GPhoto2Bin: "portrait-no-such-binary", TimeoutMs: 500}
	cam, fallback := Open(context.Background(), cfg, nil)
	if cam == nil || cam.Name() != "simulator" {
		t.Fatalf("camera = %v, want simulator", cam)
	}
	if !errors.Is(fallback, ErrUnavailable) {
		t.Errorf("fallback = %v, want ErrUnavailable", fallback)
	}
}

func TestOpen_Simulator(t *testing.T) {
	cam, fallback := Open(context.Background(), config.CameraSettings{Backend: config.BackendSimulator}, nil)
	if fallback != nil || cam.Name() != "simulator" {
		t.Errorf("Open = %v, %v", cam.Name(), fallback)
	}
}

func TestGPhoto2_Capture(t *testing.T) {
	var gotArgs []string
	g := NewGPhoto2("")
	g.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = args
		return nil, os.WriteFile(args[len(args)-1], []byte("jpeg"), 0644)
	}

	path := filepath.Join(t.TempDir(), "1001.jpg")
	if err := g.Capture(context.Background(), path); err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if gotArgs[0] != "--capture-image-and-download" {
		t.Errorf("args = %v", gotArgs)
	}
}

func TestGPhoto2_CaptureFailureRemovesFile(t *testing.T) {
	g := NewGPhoto2("")
	g.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		os.WriteFile(args[len(args)-1], []byte("partial"), 0644)
		return nil, errors.New("no camera found")
	}

	path := filepath.Join(t.TempDir(), "1001.jpg")
	err := g.Capture(context.Background(), path)
	var camErr *Error
	if !errors.As(err, &camErr) || camErr.Op != "capture" {
		t.Fatalf("err = %v, want *Error", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("partial file not removed")
	}
}

func encodedFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, 48, 64)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestWebcam_Preview(t *testing.T) {
	frame := encodedFrame(t)
	w := &Webcam{bin: "ffmpeg", device: 1}
	w.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if args[len(args)-1] != "-" {
			t.Errorf("preview should write to stdout, args = %v", args)
		}
		return frame, nil
	}

	img, err := w.CapturePreview(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 48 {
		t.Errorf("width = %d", img.Bounds().Dx())
	}
}

func TestWebcam_Switch(t *testing.T) {
	present := map[int]bool{1: true, 2: true}
	w := &Webcam{bin: "ffmpeg", device: 1}
	w.statDevice = func(d int) error {
		if !present[d] {
			return os.ErrNotExist
		}
		return nil
	}

	if err := w.Switch(context.Background(), 2); err != nil {
		t.Fatalf("Switch(2): %v", err)
	}
	if w.Device() != 2 {
		t.Errorf("device = %d, want 2", w.Device())
	}

	err := w.Switch(context.Background(), 3)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Switch(3) err = %v, want ErrUnavailable", err)
	}
	if w.Device() != 2 {
		t.Errorf("failed switch changed device to %d", w.Device())
	}
}

func TestWebcam_CaptureArgs(t *testing.T) {
	var got string
	w := &Webcam{bin: "ffmpeg", device: 1}
	w.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		got = strings.Join(args, " ")
		return nil, nil
	}
	path := filepath.Join(t.TempDir(), "x.jpg")
	if err := w.Capture(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "-frames:v 1") || !strings.HasSuffix(got, path) {
		t.Errorf("args = %q", got)
	}
}
