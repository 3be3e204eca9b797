package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/camera"
	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/imaging"
	"github.com/marcus/portrait/internal/journal"
	"github.com/marcus/portrait/internal/output"
	"github.com/marcus/portrait/internal/roster"
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	Short:   "Check settings, camera, roster and output folders",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		testCapture, _ := cmd.Flags().GetBool("capture")
		failed := 0
		for _, c := range doctorChecks(cmd.Context(), settings, testCapture) {
			fmt.Println(output.CheckLine(c.name, c.err, c.detail))
			if c.err != nil {
				failed++
			}
		}
		if failed > 0 {
			return reported{fmt.Errorf("%d checks failed", failed)}
		}
		return nil
	},
}

type check struct {
	name   string
	detail string
	err    error
}

func doctorChecks(ctx context.Context, s *config.Settings, testCapture bool) []check {
	if ctx == nil {
		ctx = context.Background()
	}
	checks := []check{
		{name: "settings", detail: configPath, err: s.Validate()},
		checkWritable("output", s.OutputDir),
		checkWritable("logs", s.LogDir),
	}
	checks = append(checks, checkRoster(s)...)
	checks = append(checks, checkCamera(ctx, s.Camera, testCapture))
	if s.Journal.Enabled {
		checks = append(checks, checkJournal(s.Journal.Path))
	}
	return checks
}

func checkWritable(name, dir string) check {
	c := check{name: name, detail: dir}
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.err = err
		return c
	}
	f, err := os.CreateTemp(dir, ".portrait-doctor-*")
	if err != nil {
		c.err = fmt.Errorf("not writable: %w", err)
		return c
	}
	f.Close()
	os.Remove(f.Name())
	return c
}

func checkRoster(s *config.Settings) []check {
	c := check{name: "roster", detail: s.RosterPath}
	if s.RosterPath == "" {
		c.err = errors.New("roster_path not set (start needs --roster)")
		return []check{c}
	}
	wb, err := openWorkbook(s)
	if err != nil {
		c.err = err
		return []check{c}
	}
	defer wb.Close()
	locations, err := wb.Locations()
	if err != nil {
		c.err = err
		return []check{c}
	}
	c.detail = fmt.Sprintf("%s, %d locations", filepath.Base(s.RosterPath), len(locations))

	editor := check{name: "editor"}
	editor.err = roster.NewEditorDetector(s.RosterPath, logger).Check()
	if editor.err == nil {
		editor.detail = "no spreadsheet editor holds the roster"
	}
	return []check{c, editor}
}

func checkCamera(ctx context.Context, cfg config.CameraSettings, testCapture bool) check {
	c := check{name: "camera", detail: cfg.Backend}
	cam, err := camera.New(cfg)
	if err != nil {
		c.err = err
		return c
	}
	startCtx, cancel := context.WithTimeout(ctx, camera.Timeout(cfg))
	defer cancel()
	if err := cam.Start(startCtx); err != nil {
		c.err = err
		return c
	}
	defer cam.Stop()

	if !testCapture {
		return c
	}
	dir, err := os.MkdirTemp("", "portrait-doctor-")
	if err != nil {
		c.err = err
		return c
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "test.jpg")
	captureCtx, cancelCapture := context.WithTimeout(ctx, camera.Timeout(cfg))
	defer cancelCapture()
	if err := cam.Capture(captureCtx, path); err != nil {
		c.err = err
		return c
	}
	img, err := imaging.Decode(path)
	if err != nil {
		c.err = fmt.Errorf("test capture unreadable: %w", err)
		return c
	}
	b := img.Bounds()
	c.detail = fmt.Sprintf("%s, test capture %dx%d", cam.Name(), b.Dx(), b.Dy())
	return c
}

func checkJournal(path string) check {
	c := check{name: "journal", detail: path}
	j, err := journal.Open(path)
	if err != nil {
		c.err = err
		return c
	}
	defer j.Close()
	v, err := j.SchemaVersion()
	if err != nil {
		c.err = err
		return c
	}
	c.detail = fmt.Sprintf("%s, schema v%d", path, v)
	return c
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().Bool("capture", false, "take a test photo with the configured camera")
}
