// Package session coordinates one photo session: the selected class, the
// roster cursor, the camera and the capture and skip flows.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marcus/portrait/internal/archive"
	"github.com/marcus/portrait/internal/camera"
	"github.com/marcus/portrait/internal/capture"
	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/imaging"
	"github.com/marcus/portrait/internal/journal"
	"github.com/marcus/portrait/internal/metrics"
	"github.com/marcus/portrait/internal/missed"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/paths"
	"github.com/marcus/portrait/internal/roster"
	"github.com/marcus/portrait/internal/skip"
)

var (
	// ErrBusy is returned while another action is outstanding.
	ErrBusy = errors.New("another action is in progress")
	// ErrNoClass is returned by actions that need a selected class.
	ErrNoClass = errors.New("no class selected")
	// ErrNoRoster is returned when no roster is loaded.
	ErrNoRoster = errors.New("no roster loaded")
)

// Options wires a Controller
type Options struct {
	Settings *config.Settings
	Roster   roster.Source       // nil until a roster is opened
	Editor   capture.EditorCheck // nil disables the editor check
	Missed   missed.Appender     // defaults to the log at Settings.MissedLogPath
	Camera   camera.Camera       // defaults to camera.Open with Settings.Camera
	Journal  journal.Recorder    // optional
	Metrics  *metrics.Metrics    // optional
	Logger   *slog.Logger
	Now      func() time.Time

	// NewCamera builds a backend for re-initialisation, default camera.New.
	NewCamera func(config.CameraSettings) (camera.Camera, error)
}

// FinishResult reports the archives written for a class
type FinishResult struct {
	Archives  []string
	Photos    int
	OutputDir string
}

// Controller owns the session state. Methods that touch the cursor must be
// called from a single goroutine; I/O halves may run elsewhere.
type Controller struct {
	mu   sync.Mutex
	busy bool

	id        string
	settings  config.Settings
	source    roster.Source
	editor    capture.EditorCheck
	cursor    *roster.Cursor
	cam       camera.Camera
	pipeline  *capture.Pipeline
	recorder  *skip.Recorder
	journal   journal.Recorder
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
	newCamera func(config.CameraSettings) (camera.Camera, error)

	location string
	class    string
}

// New builds a controller. The camera is opened when none is given,
// falling back to the simulator; the fallback reason is logged.
func New(ctx context.Context, opts Options) *Controller {
	settings := config.Default()
	if opts.Settings != nil {
		settings = opts.Settings
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newCamera := opts.NewCamera
	if newCamera == nil {
		newCamera = camera.New
	}

	c := &Controller{
		id:        uuid.NewString(),
		settings:  *settings,
		source:    opts.Roster,
		editor:    opts.Editor,
		cursor:    roster.NewCursor(nil),
		cam:       opts.Camera,
		journal:   opts.Journal,
		metrics:   opts.Metrics,
		now:       now,
		newCamera: newCamera,
	}
	c.logger = logger.With("session", c.id)

	if c.cam == nil {
		c.cam, _ = camera.Open(ctx, settings.Camera, c.logger)
	}

	appender := opts.Missed
	if appender == nil {
		appender = missed.NewLog(settings.MissedLogPath)
	}
	c.recorder = skip.NewRecorder(appender, c.marker(), c.logger)
	c.recorder.Now = now
	c.pipeline = c.newPipeline()
	return c
}

func (c *Controller) marker() roster.Marker {
	if c.source == nil {
		return nil
	}
	return c.source
}

func (c *Controller) newPipeline() *capture.Pipeline {
	return capture.New(capture.Config{
		Layout:  paths.Layout{Base: c.settings.OutputDir},
		Camera:  c.cam,
		Options: imaging.OptionsFromSettings(c.settings),
		Marker:  c.marker(),
		Editor:  c.editor,
		Timeout: camera.Timeout(c.settings.Camera),
		Now:     c.now,
		Logger:  c.logger,
	})
}

// ID returns the session id used on journal rows.
func (c *Controller) ID() string { return c.id }

// Busy reports whether an action is outstanding.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *Controller) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Controller) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

// Settings returns a copy of the active settings.
func (c *Controller) Settings() config.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// Camera returns the active camera.
func (c *Controller) Camera() camera.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam
}

// Preview grabs a live view frame from the active camera.
func (c *Controller) Preview(ctx context.Context) (image.Image, error) {
	return c.Camera().CapturePreview(ctx)
}

// Selection returns the selected location and class.
func (c *Controller) Selection() (location, class string) {
	return c.location, c.class
}

// Cursor exposes the roster cursor for read access.
func (c *Controller) Cursor() *roster.Cursor { return c.cursor }

// Current returns the person to photograph next.
func (c *Controller) Current() (models.Person, bool) { return c.cursor.Current() }

// Locations lists the roster locations.
func (c *Controller) Locations() ([]string, error) {
	if c.source == nil {
		return nil, ErrNoRoster
	}
	return c.source.Locations()
}

// Classes lists the classes of location.
func (c *Controller) Classes(location string) ([]string, error) {
	if c.source == nil {
		return nil, ErrNoRoster
	}
	return c.source.Classes(location)
}

// SelectClass loads the people of class into the cursor.
func (c *Controller) SelectClass(location, class string) error {
	if c.source == nil {
		return ErrNoRoster
	}
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()

	people, err := c.source.People(location, class)
	if err != nil {
		return fmt.Errorf("load class %s: %w", class, err)
	}
	c.cursor.Load(people)
	c.location, c.class = location, class
	c.logger.Info("class selected", "location", location, "class", class, "people", len(people))
	return nil
}

// BeginCapture raises the busy gate and snapshots the current person.
// The gate stays up until CompleteCapture.
func (c *Controller) BeginCapture() (*capture.Attempt, error) {
	if c.class == "" {
		return nil, ErrNoClass
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	a, err := c.pipeline.Prepare(c.cursor, c.location)
	if err != nil {
		c.release()
		return nil, err
	}
	return a, nil
}

// Acquire captures and processes a. Safe to call off the UI goroutine.
func (c *Controller) Acquire(ctx context.Context, a *capture.Attempt) error {
	start := c.now()
	err := c.pipeline.Acquire(ctx, a)
	if err != nil {
		phase := "unknown"
		var perr *capture.Error
		if errors.As(err, &perr) {
			phase = perr.Phase.String()
		}
		c.logger.Error("capture failed", "phase", phase, "person", a.Person.String(), "err", err)
		if c.metrics != nil {
			c.metrics.Failures.WithLabelValues(phase).Inc()
		}
		c.record(models.EventFailed, a.Person, a.Path, err.Error())
		return err
	}
	if c.metrics != nil {
		c.metrics.CaptureTime.Observe(c.now().Sub(start).Seconds())
	}
	return nil
}

// Resolve commits or discards a reviewed attempt. Safe to call off the
// UI goroutine; the cursor moves in CompleteCapture.
func (c *Controller) Resolve(a *capture.Attempt, d models.Decision) (capture.Result, error) {
	if d == models.DecisionRetry {
		if err := c.pipeline.Discard(a); err != nil {
			return capture.Result{Attempt: a}, err
		}
		if c.metrics != nil {
			c.metrics.Retakes.WithLabelValues(a.Location).Inc()
		}
		c.record(models.EventDiscarded, a.Person, a.Path, "")
		return capture.Result{Attempt: a, Decision: models.DecisionRetry}, nil
	}

	res, err := c.pipeline.Commit(a)
	if err != nil {
		return res, err
	}
	if c.metrics != nil {
		c.metrics.Captures.WithLabelValues(a.Location).Inc()
		c.metrics.Warnings.Add(float64(len(res.Warnings)))
	}
	c.record(models.EventCommitted, a.Person, a.Path, joinErrors(res.Warnings))
	return res, nil
}

// CompleteCapture advances past a committed person and lowers the gate.
// Call it after every BeginCapture, also on failure.
func (c *Controller) CompleteCapture(res capture.Result) {
	if res.Committed {
		c.pipeline.Advance(c.cursor)
	}
	c.release()
}

// AbortCapture ends an attempt that got no decision. A photo still
// waiting for review is discarded, then the gate is lowered.
func (c *Controller) AbortCapture(a *capture.Attempt) {
	if a != nil && c.pipeline.Phase() == capture.PhaseReview {
		if _, err := c.Resolve(a, models.DecisionRetry); err != nil {
			c.logger.Warn("abort capture: discard failed", "path", a.Path, "err", err)
		}
	}
	c.release()
}

// Capture runs a whole attempt with a synchronous reviewer.
func (c *Controller) Capture(ctx context.Context, reviewer capture.Reviewer) (capture.Result, error) {
	a, err := c.BeginCapture()
	if err != nil {
		return capture.Result{}, err
	}
	var res capture.Result
	defer func() { c.CompleteCapture(res) }()

	if err = c.Acquire(ctx, a); err != nil {
		return capture.Result{Attempt: a}, err
	}
	d, rerr := reviewer.Review(ctx, a)
	if rerr != nil {
		c.Resolve(a, models.DecisionRetry)
		return capture.Result{Attempt: a}, &capture.Error{Phase: capture.PhaseReview, Err: rerr}
	}
	res, err = c.Resolve(a, d)
	return res, err
}

// BeginSkip raises the gate and returns the person to skip.
func (c *Controller) BeginSkip() (models.Person, error) {
	if c.class == "" {
		return models.Person{}, ErrNoClass
	}
	if err := c.acquire(); err != nil {
		return models.Person{}, err
	}
	p, ok := c.cursor.Current()
	if !ok {
		c.release()
		return models.Person{}, capture.ErrNoSubject
	}
	if c.editor != nil {
		if err := c.editor.Check(); err != nil {
			c.release()
			return models.Person{}, err
		}
	}
	return p, nil
}

// RecordSkip writes the skip of p. Safe to call off the UI goroutine.
func (c *Controller) RecordSkip(p models.Person, reason string) skip.Result {
	res := c.recorder.Record(p, c.location, reason)
	if c.metrics != nil {
		c.metrics.Skips.WithLabelValues(skipLabel(res.Entry.Reason)).Inc()
		c.metrics.Warnings.Add(float64(len(res.Warnings)))
	}
	c.record(models.EventSkipped, p, "", res.Entry.Reason)
	return res
}

// CompleteSkip advances the cursor and lowers the gate.
func (c *Controller) CompleteSkip() {
	c.cursor.Advance()
	c.release()
}

// Skip records the current person as missed and advances.
func (c *Controller) Skip(reason string) (skip.Result, error) {
	p, err := c.BeginSkip()
	if err != nil {
		return skip.Result{}, err
	}
	res := c.RecordSkip(p, reason)
	c.CompleteSkip()
	return res, nil
}

func skipLabel(reason string) string {
	switch reason {
	case models.ReasonSick, models.ReasonRefused:
		return reason
	default:
		return "other"
	}
}

// AddWalkIn inserts a new person at the cursor position.
func (c *Controller) AddWalkIn(firstName, lastName string) (models.Person, error) {
	if c.class == "" {
		return models.Person{}, ErrNoClass
	}
	firstName, lastName = strings.TrimSpace(firstName), strings.TrimSpace(lastName)
	if firstName == "" || lastName == "" {
		return models.Person{}, errors.New("first and last name are required")
	}
	if err := c.acquire(); err != nil {
		return models.Person{}, err
	}
	defer c.release()

	p := models.NewWalkIn(c.class, firstName, lastName)
	c.cursor.InsertWalkIn(p)
	c.record(models.EventWalkIn, p, "", "")
	c.logger.Info("walk-in added", "person", p.String())
	return p, nil
}

// JumpTo moves the cursor to index.
func (c *Controller) JumpTo(index int) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.cursor.JumpTo(index)
}

// Finish archives the photos of a class into one or more zip files. A class
// without photos yields an empty archive list and no error.
func (c *Controller) Finish(location, class string) (FinishResult, error) {
	if err := c.acquire(); err != nil {
		return FinishResult{}, err
	}
	defer c.release()

	settings := c.Settings()
	dir := paths.Layout{Base: settings.OutputDir}.ClassDir(location, class)
	res := FinishResult{OutputDir: dir}

	files, err := paths.ListPhotos(dir)
	if err != nil {
		return res, err
	}
	if len(files) == 0 {
		c.logger.Info("class finished without photos", "location", location, "class", class)
		return res, nil
	}
	res.Photos = len(files)

	base := filepath.Join(dir, paths.Sanitize(class)+".zip")
	archives, err := archive.ChunkByCount(files, base, settings.MaxArchiveEntries(len(files)))
	res.Archives = archives
	if err != nil {
		c.logger.Error("archive failed", "class", class, "err", err)
		return res, err
	}

	if c.metrics != nil {
		c.metrics.Archives.Add(float64(len(archives)))
	}
	c.recordClass(models.EventArchived, location, class, dir, fmt.Sprintf("%d photos, %d archives", len(files), len(archives)))
	c.logger.Info("class finished", "location", location, "class", class, "archives", len(archives))
	return res, nil
}

// SwitchCamera moves to the next device or re-initialises the backend.
// On failure the previous camera stays active and the error is returned.
func (c *Controller) SwitchCamera(ctx context.Context) (camera.Camera, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	cur := c.Camera()
	if sw, ok := cur.(camera.Switcher); ok {
		next := sw.Device() + 1
		if err := sw.Switch(ctx, next); err != nil {
			c.logger.Warn("camera switch failed", "device", next, "err", err)
			return cur, err
		}
		c.logger.Info("camera switched", "device", next)
		return cur, nil
	}

	settings := c.Settings()
	fresh, err := c.newCamera(settings.Camera)
	if err == nil {
		_ = cur.Stop()
		if err = fresh.Start(ctx); err != nil {
			if rerr := cur.Start(ctx); rerr != nil {
				c.logger.Error("camera restart failed", "err", rerr)
			}
		}
	}
	if err != nil {
		c.logger.Warn("camera re-init failed", "backend", settings.Camera.Backend, "err", err)
		return cur, err
	}
	c.setCamera(fresh)
	return fresh, nil
}

func (c *Controller) setCamera(cam camera.Camera) {
	c.mu.Lock()
	c.cam = cam
	c.mu.Unlock()
	c.pipeline.SetCamera(cam)
}

// ApplySettings validates and activates s. A changed camera backend or
// device re-opens the camera; failures there are returned as warnings.
func (c *Controller) ApplySettings(ctx context.Context, s config.Settings) ([]error, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	var warnings []error
	prev := c.Settings()

	if prev.Camera != s.Camera {
		old := c.Camera()
		_ = old.Stop()
		cam, fallback := camera.Open(ctx, s.Camera, c.logger)
		if fallback != nil {
			warnings = append(warnings, fmt.Errorf("camera: %w", fallback))
		}
		c.mu.Lock()
		c.cam = cam
		c.mu.Unlock()
	}
	if prev.Roster != s.Roster {
		if setter, ok := c.source.(interface{ SetColumns(roster.Columns) }); ok {
			setter.SetColumns(roster.Columns(s.Roster))
		}
	}
	if prev.MissedLogPath != s.MissedLogPath {
		c.recorder.Log = missed.NewLog(s.MissedLogPath)
	}

	c.mu.Lock()
	c.settings = s
	c.mu.Unlock()
	c.pipeline = c.newPipeline()

	c.logger.Info("settings applied", "backend", s.Camera.Backend, "warnings", len(warnings))
	return warnings, nil
}

// Close stops the camera.
func (c *Controller) Close() error {
	return c.Camera().Stop()
}

func (c *Controller) record(t models.EventType, p models.Person, path, detail string) {
	c.recordEvent(models.Event{
		Type:      t,
		Location:  c.location,
		ClassName: p.ClassName,
		StudentID: p.StudentID,
		Name:      p.DisplayName(),
		Path:      path,
		Detail:    detail,
	})
}

func (c *Controller) recordClass(t models.EventType, location, class, path, detail string) {
	c.recordEvent(models.Event{Type: t, Location: location, ClassName: class, Path: path, Detail: detail})
}

func (c *Controller) recordEvent(e models.Event) {
	if c.journal == nil {
		return
	}
	e.SessionID = c.id
	e.Timestamp = c.now()
	if err := c.journal.Record(e); err != nil {
		c.logger.Warn("journal write failed", "type", e.Type, "err", err)
	}
}

func joinErrors(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	return errors.Join(errs...).Error()
}
