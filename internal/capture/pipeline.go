// Package capture runs one photo attempt from the camera to the roster.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/marcus/portrait/internal/camera"
	"github.com/marcus/portrait/internal/imaging"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/paths"
	"github.com/marcus/portrait/internal/roster"
)

// ErrNoSubject is returned when the cursor has no current person.
var ErrNoSubject = errors.New("no person selected")

// Error wraps a failure with the phase it happened in
type Error struct {
	Phase Phase
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// EditorCheck refuses roster writes while an external editor is open.
type EditorCheck interface {
	Check() error
}

// Reviewer asks the operator to accept or retry an attempt.
type Reviewer interface {
	Review(ctx context.Context, a *Attempt) (models.Decision, error)
}

// ReviewFunc adapts a function to Reviewer.
type ReviewFunc func(ctx context.Context, a *Attempt) (models.Decision, error)

func (f ReviewFunc) Review(ctx context.Context, a *Attempt) (models.Decision, error) {
	return f(ctx, a)
}

// Attempt is one capture of one person
type Attempt struct {
	Person    models.Person
	Location  string
	Path      string
	StartedAt time.Time
}

// Result is the outcome of a finished attempt
type Result struct {
	Attempt   *Attempt
	Decision  models.Decision
	Committed bool
	// Warnings are failures that did not stop the attempt.
	Warnings []error
}

// Config wires the pipeline collaborators
type Config struct {
	Layout    paths.Layout
	Camera    camera.Camera
	Processor imaging.Processor
	Options   imaging.Options
	Marker    roster.Marker // nil disables roster write-back
	Editor    EditorCheck   // nil disables the editor check
	Timeout   time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Pipeline performs capture attempts. Prepare and Advance touch the cursor
// and belong on the caller's goroutine. Acquire, Commit and Discard do I/O
// and may run elsewhere.
type Pipeline struct {
	mu      sync.Mutex
	cfg     Config
	machine *Machine
}

// New returns a pipeline; Processor defaults to imaging.JPEGProcessor.
func New(cfg Config) *Pipeline {
	if cfg.Processor == nil {
		cfg.Processor = imaging.JPEGProcessor{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{cfg: cfg, machine: NewMachine()}
}

// Phase returns the phase of the running attempt.
func (p *Pipeline) Phase() Phase { return p.machine.Phase() }

// SetCamera replaces the camera used for later attempts.
func (p *Pipeline) SetCamera(c camera.Camera) {
	p.mu.Lock()
	p.cfg.Camera = c
	p.mu.Unlock()
}

// SetOptions replaces the image processing options.
func (p *Pipeline) SetOptions(opts imaging.Options) {
	p.mu.Lock()
	p.cfg.Options = opts
	p.mu.Unlock()
}

// SetMarker replaces the roster write-back target.
func (p *Pipeline) SetMarker(m roster.Marker) {
	p.mu.Lock()
	p.cfg.Marker = m
	p.mu.Unlock()
}

func (p *Pipeline) config() Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// Prepare snapshots the current person and runs the pre-flight checks.
func (p *Pipeline) Prepare(cursor *roster.Cursor, location string) (*Attempt, error) {
	if phase := p.machine.Phase(); phase != PhaseIdle {
		return nil, &TransitionError{From: phase, To: PhaseAcquiring}
	}
	person, ok := cursor.Current()
	if !ok {
		return nil, ErrNoSubject
	}
	cfg := p.config()
	if cfg.Editor != nil {
		if err := cfg.Editor.Check(); err != nil {
			return nil, err
		}
	}
	return &Attempt{Person: person, Location: location, StartedAt: cfg.Now()}, nil
}

// Acquire captures and processes a, leaving the pipeline in review.
// On failure nothing is left on disk and the pipeline is idle again.
func (p *Pipeline) Acquire(ctx context.Context, a *Attempt) error {
	cfg := p.config()
	if err := p.machine.To(PhaseAcquiring); err != nil {
		return err
	}

	path, err := cfg.Layout.PhotoPath(a.Person, a.Location)
	if err != nil {
		return p.fail(PhaseAcquiring, err)
	}
	a.Path = path

	if cfg.Camera == nil {
		return p.fail(PhaseAcquiring, camera.ErrUnavailable)
	}
	captureCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		captureCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}
	if err := cfg.Camera.Capture(captureCtx, path); err != nil {
		removeQuiet(path)
		return p.fail(PhaseAcquiring, err)
	}

	if err := p.machine.To(PhaseProcessing); err != nil {
		return err
	}
	if err := cfg.Processor.Process(path, path, cfg.Options); err != nil {
		removeQuiet(path)
		return p.fail(PhaseProcessing, err)
	}

	cfg.Logger.Debug("capture ready for review", "path", path, "person", a.Person.String())
	return p.machine.To(PhaseReview)
}

func (p *Pipeline) fail(phase Phase, err error) error {
	_ = p.machine.To(PhaseIdle)
	return &Error{Phase: phase, Err: err}
}

// Commit keeps the photo and writes the roster status. A roster failure
// is reported as a warning.
func (p *Pipeline) Commit(a *Attempt) (Result, error) {
	cfg := p.config()
	if err := p.machine.To(PhaseCommit); err != nil {
		return Result{}, err
	}
	res := Result{Attempt: a, Decision: models.DecisionAccept, Committed: true}

	if cfg.Marker != nil && !a.Person.IsNew && a.Person.Row > 0 {
		date := cfg.Now().Format(roster.DateLayout)
		if err := cfg.Marker.MarkPhotographed(a.Location, a.Person.Row, true, date, ""); err != nil {
			cfg.Logger.Warn("roster write-back failed", "row", a.Person.Row, "err", err)
			res.Warnings = append(res.Warnings, fmt.Errorf("roster write-back: %w", err))
		}
	}

	cfg.Logger.Info("photo committed", "path", a.Path, "person", a.Person.String())
	return res, p.machine.To(PhaseIdle)
}

// Discard deletes the photo of a. The cursor is not moved.
func (p *Pipeline) Discard(a *Attempt) error {
	if err := p.machine.To(PhaseDiscard); err != nil {
		return err
	}
	if a.Path != "" {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			p.config().Logger.Warn("discard: remove failed", "path", a.Path, "err", err)
		}
	}
	return p.machine.To(PhaseIdle)
}

// Advance moves the cursor past a committed person.
func (p *Pipeline) Advance(cursor *roster.Cursor) {
	cursor.Advance()
}

// Run performs a complete attempt with a synchronous reviewer. A retry
// leaves the cursor in place; an accept advances it.
func (p *Pipeline) Run(ctx context.Context, cursor *roster.Cursor, location string, reviewer Reviewer) (Result, error) {
	a, err := p.Prepare(cursor, location)
	if err != nil {
		return Result{}, err
	}
	if err := p.Acquire(ctx, a); err != nil {
		return Result{Attempt: a}, err
	}

	decision, err := reviewer.Review(ctx, a)
	if err != nil {
		_ = p.Discard(a)
		return Result{Attempt: a}, &Error{Phase: PhaseReview, Err: err}
	}
	if decision == models.DecisionRetry {
		if err := p.Discard(a); err != nil {
			return Result{Attempt: a}, err
		}
		return Result{Attempt: a, Decision: models.DecisionRetry}, nil
	}

	res, err := p.Commit(a)
	if err != nil {
		return res, err
	}
	p.Advance(cursor)
	return res, nil
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("remove failed", "path", path, "err", err)
	}
}
