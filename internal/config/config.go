// Package config loads, validates and saves the station settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// DefaultPath is the settings file used when none is given.
const DefaultPath = "settings.json"

// Camera backends
const (
	BackendWebcam    = "webcam"
	BackendGPhoto2   = "gphoto2"
	BackendSimulator = "simulator"
)

// Overlay guide modes
const (
	OverlayThirds    = "thirds"
	OverlayCrosshair = "crosshair"
	OverlayNone      = "none"
)

var _ pflag.Value = (*AspectRatio)(nil)

// Settings is the full persisted configuration
type Settings struct {
	OutputDir     string `json:"output_dir" validate:"required"`
	MissedLogPath string `json:"missed_log_path" validate:"required"`
	LogDir        string `json:"log_dir" validate:"required"`
	RosterPath    string `json:"roster_path,omitempty"`

	Image     ImageSettings     `json:"image"`
	Overlay   OverlaySettings   `json:"overlay"`
	Camera    CameraSettings    `json:"camera"`
	Archive   ArchiveSettings   `json:"archive"`
	Copyright CopyrightSettings `json:"copyright"`
	Roster    RosterColumns     `json:"roster"`
	Journal   JournalSettings   `json:"journal"`
	Metrics   MetricsSettings   `json:"metrics"`

	// Keymap maps "context:key" to a command, e.g. {"main:c": "capture"}.
	Keymap map[string]string `json:"keymap,omitempty"`
}

// ImageSettings controls crop, resize and encoding of captured photos
type ImageSettings struct {
	Width   int         `json:"width" validate:"gt=0"`
	Height  int         `json:"height" validate:"gt=0"`
	Quality int         `json:"quality" validate:"min=1,max=100"`
	Aspect  AspectRatio `json:"aspect"`
}

// OverlaySettings controls the live preview guides
type OverlaySettings struct {
	Enabled bool    `json:"enabled"`
	Mode    string  `json:"mode" validate:"oneof=thirds crosshair none"`
	Opacity float64 `json:"opacity" validate:"min=0,max=1"`
	Image   string  `json:"image,omitempty" validate:"omitempty,file"`
}

// CameraSettings selects and tunes the camera backend
type CameraSettings struct {
	Backend    string `json:"backend" validate:"oneof=webcam gphoto2 simulator"`
	Device     int    `json:"device" validate:"min=0"`
	PreviewFPS int    `json:"preview_fps" validate:"min=1,max=60"`
	TimeoutMs  int    `json:"timeout_ms" validate:"min=100"`
	GPhoto2Bin string `json:"gphoto2_bin,omitempty"`
	FFmpegBin  string `json:"ffmpeg_bin,omitempty"`
}

// ArchiveSettings controls class archive chunking
type ArchiveSettings struct {
	// MaxEntries is the entry limit per zip; 0 puts all photos in one zip.
	MaxEntries int `json:"max_entries" validate:"min=0"`
}

// CopyrightSettings is embedded into processed photos when set
type CopyrightSettings struct {
	Artist string `json:"artist,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// RosterColumns maps roster fields to spreadsheet column letters.
// Field names match roster.Columns so the two convert directly.
type RosterColumns struct {
	Class        string `json:"class" validate:"column"`
	LastName     string `json:"last_name" validate:"column"`
	FirstName    string `json:"first_name" validate:"column"`
	StudentID    string `json:"student_id" validate:"column"`
	Photographed string `json:"photographed,omitempty" validate:"omitempty,column"`
	Date         string `json:"date,omitempty" validate:"omitempty,column"`
	Reason       string `json:"reason,omitempty" validate:"omitempty,column"`
}

// JournalSettings locates the capture journal database
type JournalSettings struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty" validate:"required_if=Enabled true"`
}

// MetricsSettings controls the Prometheus textfile export
type MetricsSettings struct {
	Textfile string `json:"textfile,omitempty"`
}

// Default returns the settings written on first start.
func Default() *Settings {
	return &Settings{
		OutputDir:     "output",
		MissedLogPath: filepath.Join("output", "verpasst.xlsx"),
		LogDir:        "logs",
		Image: ImageSettings{
			Width:   1200,
			Height:  1600,
			Quality: 90,
			Aspect:  AspectRatio{W: 3, H: 4},
		},
		Overlay: OverlaySettings{
			Enabled: true,
			Mode:    OverlayThirds,
			Opacity: 0.3,
		},
		Camera: CameraSettings{
			Backend:    BackendWebcam,
			Device:     1,
			PreviewFPS: 20,
			TimeoutMs:  5000,
		},
		Roster: RosterColumns{
			Class:        "A",
			LastName:     "B",
			FirstName:    "C",
			StudentID:    "D",
			Photographed: "E",
			Date:         "F",
			Reason:       "G",
		},
		Journal: JournalSettings{
			Enabled: true,
			Path:    filepath.Join("output", "journal.db"),
		},
	}
}

// ValidationError lists every invalid settings field
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid settings: " + strings.Join(e.Fields, "; ")
}

var columnPattern = regexp.MustCompile(`^[A-Z]{1,3}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("column", func(fl validator.FieldLevel) bool {
		return columnPattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks every section and reports all failures at once.
func (s *Settings) Validate() error {
	err := newValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Settings.")
		switch fe.Tag() {
		case "file":
			out.Fields = append(out.Fields, fmt.Sprintf("%s: file %q not found", field, fe.Value()))
		case "column":
			out.Fields = append(out.Fields, fmt.Sprintf("%s: %q is not a column letter", field, fe.Value()))
		default:
			out.Fields = append(out.Fields, fmt.Sprintf("%s: failed %s=%s (got %v)", field, fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return out
}

// Load reads settings from path. A missing file is created with defaults.
// The result is validated; an invalid file is an error.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg := Default()
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default settings: %w", err)
		}
		return cfg, nil
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the settings to disk using atomic write (temp file + rename)
func Save(path string, cfg *Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "settings-*.json.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, path)
}

// MaxArchiveEntries resolves the archive limit for n photos.
func (s *Settings) MaxArchiveEntries(n int) int {
	if s.Archive.MaxEntries > 0 {
		return s.Archive.MaxEntries
	}
	if n < 1 {
		return 1
	}
	return n
}
