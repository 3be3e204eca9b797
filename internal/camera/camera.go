// Package camera provides the capture backends of the station.
package camera

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/marcus/portrait/internal/config"
)

// ErrUnavailable reports that a backend cannot be used on this machine.
var ErrUnavailable = errors.New("camera unavailable")

// Camera acquires still images and preview frames
type Camera interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	// Capture writes a full resolution image to path.
	Capture(ctx context.Context, path string) error
	CapturePreview(ctx context.Context) (image.Image, error)
}

// Switcher is implemented by backends with several devices.
type Switcher interface {
	Device() int
	Switch(ctx context.Context, device int) error
}

// Error wraps a backend failure
type Error struct {
	Backend string
	Op      string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// runFunc executes an external command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// New constructs the configured backend without starting it.
func New(cfg config.CameraSettings) (Camera, error) {
	switch cfg.Backend {
	case config.BackendSimulator:
		return NewSimulator(), nil
	case config.BackendGPhoto2:
		return NewGPhoto2(cfg.GPhoto2Bin), nil
	case config.BackendWebcam, "":
		return NewWebcam(cfg.FFmpegBin, cfg.Device), nil
	default:
		return nil, fmt.Errorf("unknown camera backend %q", cfg.Backend)
	}
}

// Open constructs and starts the configured backend. When that fails the
// simulator is started instead and the cause is returned as fallback.
// The returned camera is never nil.
func Open(ctx context.Context, cfg config.CameraSettings, logger *slog.Logger) (cam Camera, fallback error) {
	if logger == nil {
		logger = slog.Default()
	}

	cam, err := New(cfg)
	if err == nil {
		startCtx, cancel := context.WithTimeout(ctx, Timeout(cfg))
		err = cam.Start(startCtx)
		cancel()
		if err == nil {
			logger.Info("camera started", "backend", cam.Name())
			return cam, nil
		}
	}

	logger.Warn("camera backend unavailable, using simulator", "backend", cfg.Backend, "err", err)
	sim := NewSimulator()
	_ = sim.Start(ctx)
	return sim, err
}

// Timeout returns the per-operation timeout from cfg.
func Timeout(cfg config.CameraSettings) time.Duration {
	if cfg.TimeoutMs <= 0 {
		return 5 * time.Second
	}
	return time.Duration(cfg.TimeoutMs) * time.Millisecond
}
