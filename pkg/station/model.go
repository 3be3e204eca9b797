// Package station is the interactive capture station: a live preview of
// the camera, the current person of the selected class and the actions
// to photograph, skip or add people.
package station

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/marcus/portrait/internal/capture"
	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/imaging"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/session"
	"github.com/marcus/portrait/internal/skip"
	"github.com/marcus/portrait/pkg/station/keymap"
)

// screen is the active view
type screen int

const (
	screenPicker screen = iota
	screenMain
	screenReview
	screenForm
	screenFinished
)

// Messages produced by worker commands
type (
	previewTickMsg struct{}

	previewMsg struct {
		img image.Image
		err error
	}

	acquiredMsg struct {
		attempt *capture.Attempt
		img     image.Image
		err     error
	}

	resolvedMsg struct {
		res capture.Result
		err error
	}

	skipDoneMsg struct {
		res skip.Result
	}

	finishedMsg struct {
		res session.FinishResult
		err error
	}

	cameraSwitchedMsg struct {
		name string
		err  error
	}

	settingsAppliedMsg struct {
		settings config.Settings
		warnings []error
		err      error
	}

	folderOpenedMsg struct {
		err error
	}
)

// Options configures the station
type Options struct {
	SettingsPath string // settings are saved here after the settings form
	Logger       *slog.Logger
	// Location and Class preselect a class; both empty shows the pickers.
	Location string
	Class    string
}

// Model is the bubbletea model of the station
type Model struct {
	ctx    context.Context
	ctrl   *session.Controller
	keys   *keymap.Registry
	opts   Options
	logger *slog.Logger

	screen        screen
	width, height int

	picker     list.Model
	pickerKind pickerKind
	location   string

	spinner     spinner.Model
	working     string
	preview     image.Image
	previewBusy bool
	overlay     image.Image
	overlayOn   bool

	attempt   *capture.Attempt
	reviewImg image.Image

	formKind   formKind
	skipForm   *skipForm
	walkInForm *walkInForm
	settings   *settingsForm

	finish session.FinishResult

	status    string
	statusErr bool
	warnings  []string
	showHelp  bool
}

// New builds the station model around ctrl.
func New(ctx context.Context, ctrl *session.Controller, opts Options) Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keys := keymap.NewRegistry()
	keymap.RegisterDefaults(keys)
	settings := ctrl.Settings()
	for _, cmd := range keymap.ApplyOverrides(keys, settings.Keymap) {
		logger.Warn("keymap: unknown command", "command", cmd)
	}

	m := Model{
		ctx:       ctx,
		ctrl:      ctrl,
		keys:      keys,
		opts:      opts,
		logger:    logger,
		width:     100,
		height:    40,
		spinner:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		overlayOn: settings.Overlay.Enabled,
	}
	m.loadOverlay(settings)

	if opts.Location != "" && opts.Class != "" {
		err := ctrl.SelectClass(opts.Location, opts.Class)
		if err == nil {
			m.location = opts.Location
			m.screen = screenMain
			return m
		}
		m.setError(err)
	}
	m.openLocations()
	return m
}

func (m *Model) loadOverlay(s config.Settings) {
	m.overlay = nil
	if s.Overlay.Image == "" {
		return
	}
	img, err := imaging.Decode(s.Overlay.Image)
	if err != nil {
		m.logger.Warn("overlay image", "path", s.Overlay.Image, "err", err)
		return
	}
	m.overlay = img
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.previewTick())
}

func (m *Model) setStatus(s string) {
	m.status, m.statusErr = s, false
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	m.status, m.statusErr = err.Error(), true
}

func (m *Model) setErrorText(s string) {
	m.status, m.statusErr = s, true
}

func (m *Model) setWarnings(errs []error) {
	m.warnings = m.warnings[:0]
	for _, err := range errs {
		m.warnings = append(m.warnings, err.Error())
	}
}

func (m *Model) pickerSize() (int, int) {
	return max(m.width-4, 20), max(m.height-6, 5)
}

func (m *Model) openLocations() {
	m.screen = screenPicker
	m.pickerKind = pickLocation
	locations, err := m.ctrl.Locations()
	if err != nil {
		m.setError(err)
	}
	w, h := m.pickerSize()
	m.picker = newPicker("Standort", nameItems(locations), w, h)
}

func (m *Model) openClasses(location string) {
	classes, err := m.ctrl.Classes(location)
	if err != nil {
		m.setError(err)
		return
	}
	m.location = location
	m.screen = screenPicker
	m.pickerKind = pickClass
	w, h := m.pickerSize()
	m.picker = newPicker("Klasse in "+location, nameItems(classes), w, h)
}

func (m *Model) openPeople() {
	cursor := m.ctrl.Cursor()
	m.screen = screenPicker
	m.pickerKind = pickPerson
	w, h := m.pickerSize()
	_, class := m.ctrl.Selection()
	m.picker = newPicker("Springen in "+class, personItems(cursor.People(), cursor.Index()), w, h)
	if cursor.Index() < cursor.Len() {
		m.picker.Select(cursor.Index())
	}
}

func (m Model) currentContext() keymap.Context {
	switch m.screen {
	case screenReview:
		return keymap.ContextReview
	case screenPicker:
		return keymap.ContextPicker
	case screenFinished:
		return keymap.ContextFinished
	default:
		return keymap.ContextMain
	}
}

func (m Model) activeForm() *huh.Form {
	switch m.formKind {
	case formSkip:
		return m.skipForm.Form
	case formWalkIn:
		return m.walkInForm.Form
	case formSettings:
		return m.settings.Form
	}
	return nil
}

func (m Model) setActiveForm(f *huh.Form) {
	switch m.formKind {
	case formSkip:
		m.skipForm.Form = f
	case formWalkIn:
		m.walkInForm.Form = f
	case formSettings:
		m.settings.Form = f
	}
}

func (m Model) previewTick() tea.Cmd {
	fps := m.ctrl.Settings().Camera.PreviewFPS
	if fps < 1 {
		fps = 1
	}
	return tea.Tick(time.Second/time.Duration(fps), func(time.Time) tea.Msg {
		return previewTickMsg{}
	})
}

func (m Model) fetchPreview() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		img, err := ctrl.Preview(ctx)
		return previewMsg{img: img, err: err}
	}
}

func (m Model) acquire(a *capture.Attempt) tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		if err := ctrl.Acquire(ctx, a); err != nil {
			return acquiredMsg{attempt: a, err: err}
		}
		img, err := imaging.Decode(a.Path)
		if err != nil {
			// the photo cannot be reviewed, so it must not stay on disk
			ctrl.Resolve(a, models.DecisionRetry)
			return acquiredMsg{attempt: a, err: fmt.Errorf("decode %s: %w", filepath.Base(a.Path), err)}
		}
		return acquiredMsg{attempt: a, img: img}
	}
}

func (m Model) resolve(a *capture.Attempt, d models.Decision) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		res, err := ctrl.Resolve(a, d)
		return resolvedMsg{res: res, err: err}
	}
}

func (m Model) recordSkip(p models.Person, reason string) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		return skipDoneMsg{res: ctrl.RecordSkip(p, reason)}
	}
}

func (m Model) finishClass() tea.Cmd {
	ctrl := m.ctrl
	location, class := ctrl.Selection()
	return func() tea.Msg {
		res, err := ctrl.Finish(location, class)
		return finishedMsg{res: res, err: err}
	}
}

func (m Model) switchCamera() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		cam, err := ctrl.SwitchCamera(ctx)
		name := ""
		if cam != nil {
			name = cam.Name()
		}
		return cameraSwitchedMsg{name: name, err: err}
	}
}

func (m Model) applySettings(s config.Settings) tea.Cmd {
	ctx, ctrl, path := m.ctx, m.ctrl, m.opts.SettingsPath
	return func() tea.Msg {
		warnings, err := ctrl.ApplySettings(ctx, s)
		if err == nil && path != "" {
			err = config.Save(path, &s)
		}
		return settingsAppliedMsg{settings: s, warnings: warnings, err: err}
	}
}

func openFolderCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		return folderOpenedMsg{err: openFolder(dir)}
	}
}
