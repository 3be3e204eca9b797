package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
)

const defaultFFmpeg = "ffmpeg"

// Webcam grabs single frames from a video device with ffmpeg.
// Frames are rotated 90 degrees counter-clockwise for portrait mounting.
type Webcam struct {
	bin string
	run runFunc

	mu     sync.Mutex
	device int
	// statDevice reports whether a device node exists, nil to skip the check.
	statDevice func(int) error
}

// NewWebcam returns a webcam backend for device.
func NewWebcam(bin string, device int) *Webcam {
	if bin == "" {
		bin = defaultFFmpeg
	}
	w := &Webcam{bin: bin, run: runCommand, device: device}
	if runtime.GOOS == "linux" {
		w.statDevice = func(d int) error {
			_, err := os.Stat(devicePath(d))
			return err
		}
	}
	return w
}

func (w *Webcam) Name() string { return "webcam" }

// Device returns the current device index.
func (w *Webcam) Device() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.device
}

func (w *Webcam) Start(context.Context) error {
	if _, err := exec.LookPath(w.bin); err != nil {
		return &Error{Backend: w.Name(), Op: "start", Err: fmt.Errorf("%w: %s not found", ErrUnavailable, w.bin)}
	}
	return w.checkDevice(w.Device())
}

func (w *Webcam) checkDevice(d int) error {
	if w.statDevice == nil {
		return nil
	}
	if err := w.statDevice(d); err != nil {
		return &Error{Backend: w.Name(), Op: "open", Err: fmt.Errorf("%w: device %d: %v", ErrUnavailable, d, err)}
	}
	return nil
}

func (w *Webcam) Stop() error { return nil }

// Switch moves to device. The previous device stays selected on failure.
func (w *Webcam) Switch(ctx context.Context, device int) error {
	if device < 0 {
		return &Error{Backend: w.Name(), Op: "switch", Err: fmt.Errorf("invalid device %d", device)}
	}
	if err := w.checkDevice(device); err != nil {
		return err
	}
	w.mu.Lock()
	w.device = device
	w.mu.Unlock()
	return nil
}

func (w *Webcam) Capture(ctx context.Context, path string) error {
	args := append(w.inputArgs(), "-frames:v", "1", "-vf", "transpose=2", "-q:v", "2", "-y", path)
	if _, err := w.run(ctx, w.bin, args...); err != nil {
		os.Remove(path)
		return &Error{Backend: w.Name(), Op: "capture", Err: err}
	}
	return nil
}

func (w *Webcam) CapturePreview(ctx context.Context) (image.Image, error) {
	args := append(w.inputArgs(), "-frames:v", "1", "-vf", "transpose=2,scale=480:-2",
		"-f", "image2pipe", "-vcodec", "mjpeg", "-")
	out, err := w.run(ctx, w.bin, args...)
	if err != nil {
		return nil, &Error{Backend: w.Name(), Op: "preview", Err: err}
	}
	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, &Error{Backend: w.Name(), Op: "preview", Err: err}
	}
	return img, nil
}

func (w *Webcam) inputArgs() []string {
	d := w.Device()
	base := []string{"-hide_banner", "-loglevel", "error"}
	switch runtime.GOOS {
	case "windows":
		return append(base, "-f", "dshow", "-video_device_number", strconv.Itoa(d), "-i", "video=")
	case "darwin":
		return append(base, "-f", "avfoundation", "-i", strconv.Itoa(d))
	default:
		return append(base, "-f", "v4l2", "-i", devicePath(d))
	}
}

func devicePath(d int) string {
	return "/dev/video" + strconv.Itoa(d)
}
