package station

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/session"
)

type stubRoster struct {
	people []models.Person
	marks  []string
}

func (r *stubRoster) Locations() ([]string, error) { return []string{"Bern"}, nil }

func (r *stubRoster) Classes(string) ([]string, error) { return []string{"5a"}, nil }

func (r *stubRoster) People(location, class string) ([]models.Person, error) {
	if class != "5a" {
		return nil, fmt.Errorf("class %s not found", class)
	}
	return append([]models.Person(nil), r.people...), nil
}

func (r *stubRoster) MarkPhotographed(location string, row int, photographed bool, date, reason string) error {
	r.marks = append(r.marks, fmt.Sprintf("%d:%v:%s", row, photographed, reason))
	return nil
}

type stubCamera struct {
	fail bool
}

func (c *stubCamera) Name() string { return "stub" }

func (c *stubCamera) Start(context.Context) error { return nil }

func (c *stubCamera) Stop() error { return nil }

func (c *stubCamera) Capture(ctx context.Context, path string) error {
	if c.fail {
		return fmt.Errorf("shutter stuck")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return jpeg.Encode(f, image.NewGray(image.Rect(0, 0, 60, 80)), nil)
}

func (c *stubCamera) CapturePreview(context.Context) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 16, 12)), nil
}

type stubMissed struct{ entries []models.MissedEntry }

func (m *stubMissed) Append(e models.MissedEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

type harness struct {
	m      Model
	ctrl   *session.Controller
	roster *stubRoster
	cam    *stubCamera
	missed *stubMissed
	out    string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	dir := t.TempDir()
	settings := config.Default()
	settings.OutputDir = filepath.Join(dir, "output")
	settings.Image.Width, settings.Image.Height = 30, 40

	h := &harness{
		roster: &stubRoster{people: []models.Person{
			{ClassName: "5a", LastName: "Brunner", FirstName: "Tim", StudentID: "1002", Row: 3},
			{ClassName: "5a", LastName: "Ammann", FirstName: "Lea", StudentID: "1001", Row: 2},
		}},
		cam:    &stubCamera{},
		missed: &stubMissed{},
		out:    settings.OutputDir,
	}
	h.ctrl = session.New(context.Background(), session.Options{
		Settings: settings,
		Roster:   h.roster,
		Missed:   h.missed,
		Camera:   h.cam,
		Now:      func() time.Time { return time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(func() { h.ctrl.Close() })
	h.m = New(context.Background(), h.ctrl, opts)
	return h
}

// send feeds msg to the model and runs the returned command once,
// feeding its message back when it is one of ours.
func (h *harness) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	model, cmd := h.m.Update(msg)
	h.m = model.(Model)
	h.run(t, cmd)
}

func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case acquiredMsg, resolvedMsg, skipDoneMsg, finishedMsg, cameraSwitchedMsg, settingsAppliedMsg:
		h.send(t, msg)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func (h *harness) current(t *testing.T) models.Person {
	t.Helper()
	p, ok := h.ctrl.Current()
	if !ok {
		t.Fatal("no current person")
	}
	return p
}

func TestNew_ShowsLocationPicker(t *testing.T) {
	h := newHarness(t, Options{})
	if h.m.screen != screenPicker || h.m.pickerKind != pickLocation {
		t.Fatalf("screen = %v kind = %v, want location picker", h.m.screen, h.m.pickerKind)
	}

	h.send(t, key("enter"))
	if h.m.pickerKind != pickClass {
		t.Fatalf("kind = %v, want class picker", h.m.pickerKind)
	}
	h.send(t, key("enter"))
	if h.m.screen != screenMain {
		t.Fatalf("screen = %v, want main", h.m.screen)
	}
	if p := h.current(t); p.LastName != "Ammann" {
		t.Errorf("current = %s, want Ammann", p.LastName)
	}
}

func TestNew_Preselected(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})
	if h.m.screen != screenMain {
		t.Fatalf("screen = %v, want main", h.m.screen)
	}

	h = newHarness(t, Options{Location: "Bern", Class: "9z"})
	if h.m.screen != screenPicker || !h.m.statusErr {
		t.Errorf("unknown class should fall back to the picker with an error")
	}
}

func TestCaptureAccept(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	model, cmd := h.m.Update(key("space"))
	h.m = model.(Model)
	if h.m.working == "" || !h.ctrl.Busy() {
		t.Fatal("capture should mark the station busy")
	}
	h.run(t, cmd)

	if h.m.screen != screenReview {
		t.Fatalf("screen = %v, want review", h.m.screen)
	}
	if h.m.reviewImg == nil {
		t.Error("review image not decoded")
	}
	if !strings.Contains(h.m.View(), "Lea Ammann") {
		t.Error("review view should name the person")
	}

	h.send(t, key("space"))
	if h.m.screen != screenMain || h.ctrl.Busy() {
		t.Fatalf("screen = %v busy = %v after accept", h.m.screen, h.ctrl.Busy())
	}
	if _, err := os.Stat(filepath.Join(h.out, "Bern", "5a", "1001.jpg")); err != nil {
		t.Errorf("photo not committed: %v", err)
	}
	if len(h.roster.marks) != 1 || h.roster.marks[0] != "2:true:" {
		t.Errorf("marks = %v", h.roster.marks)
	}
	if p := h.current(t); p.LastName != "Brunner" {
		t.Errorf("current = %s, want Brunner", p.LastName)
	}
}

func TestCaptureRetry(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("space"))
	h.send(t, key("esc"))

	if h.m.screen != screenMain {
		t.Fatalf("screen = %v, want main", h.m.screen)
	}
	if _, err := os.Stat(filepath.Join(h.out, "Bern", "5a", "1001.jpg")); !os.IsNotExist(err) {
		t.Errorf("retaken photo should be removed, stat err = %v", err)
	}
	if p := h.current(t); p.LastName != "Ammann" {
		t.Errorf("cursor moved on retry: %s", p.LastName)
	}
	if len(h.roster.marks) != 0 {
		t.Errorf("retry wrote roster: %v", h.roster.marks)
	}
}

func TestCaptureFailureReleasesStation(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})
	h.cam.fail = true

	h.send(t, key("space"))

	if h.ctrl.Busy() {
		t.Error("station still busy after failed capture")
	}
	if h.m.screen != screenMain || !h.m.statusErr {
		t.Errorf("screen = %v statusErr = %v", h.m.screen, h.m.statusErr)
	}
}

func TestAcquireErrorAfterProcessingDiscards(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	a, err := h.ctrl.BeginCapture()
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.Acquire(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	h.send(t, acquiredMsg{attempt: a, err: errors.New("corrupt jpeg")})

	if h.ctrl.Busy() {
		t.Error("station still busy after failed decode")
	}
	if h.m.screen != screenMain || !h.m.statusErr {
		t.Errorf("screen = %v statusErr = %v", h.m.screen, h.m.statusErr)
	}
	if _, err := os.Stat(a.Path); !os.IsNotExist(err) {
		t.Errorf("unreviewable photo left on disk, stat err = %v", err)
	}

	h.send(t, key("space"))
	if h.m.screen != screenReview {
		t.Fatalf("next capture: screen = %v status = %q, want review", h.m.screen, h.m.status)
	}
}

func TestQuitIgnoredWhileResolving(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("space"))
	path := h.m.attempt.Path

	model, accept := h.m.Update(key("space"))
	h.m = model.(Model)
	if accept == nil || h.m.working == "" {
		t.Fatal("accept should start a worker")
	}

	model, cmd := h.m.Update(key("q"))
	h.m = model.(Model)
	if cmd != nil {
		t.Fatal("quit must wait for the pending decision")
	}
	if !strings.Contains(h.m.status, session.ErrBusy.Error()) {
		t.Errorf("status = %q", h.m.status)
	}

	h.run(t, accept)
	if _, err := os.Stat(path); err != nil {
		t.Errorf("accepted photo missing: %v", err)
	}
	if len(h.roster.marks) != 1 || h.roster.marks[0] != "2:true:" {
		t.Errorf("marks = %v", h.roster.marks)
	}
	if h.ctrl.Busy() || h.m.screen != screenMain {
		t.Errorf("busy = %v screen = %v after accept", h.ctrl.Busy(), h.m.screen)
	}
}

func TestBusyBlocksActions(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	model, _ := h.m.Update(key("space"))
	h.m = model.(Model)

	for _, k := range []string{"s", "n", "f", "tab"} {
		model, cmd := h.m.Update(key(k))
		h.m = model.(Model)
		if cmd != nil || h.m.screen != screenMain {
			t.Errorf("%s: action started while busy", k)
		}
		if !strings.Contains(h.m.status, session.ErrBusy.Error()) {
			t.Errorf("%s: status = %q", k, h.m.status)
		}
	}
}

func TestSkipForm(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("s"))
	if h.m.screen != screenForm || h.m.formKind != formSkip {
		t.Fatalf("screen = %v form = %v, want skip form", h.m.screen, h.m.formKind)
	}
	h.m.skipForm.Reason = models.ReasonOther
	h.m.skipForm.Other = "  Zahnarzt "

	model, cmd := h.m.submitForm()
	h.m = model.(Model)
	h.run(t, cmd)

	if h.ctrl.Busy() {
		t.Error("station still busy after skip")
	}
	if len(h.missed.entries) != 1 || h.missed.entries[0].Reason != "Zahnarzt" {
		t.Fatalf("missed = %+v", h.missed.entries)
	}
	if len(h.roster.marks) != 1 || h.roster.marks[0] != "2:false:Zahnarzt" {
		t.Errorf("marks = %v", h.roster.marks)
	}
	if p := h.current(t); p.LastName != "Brunner" {
		t.Errorf("current = %s, want Brunner", p.LastName)
	}
}

func TestFormEscape(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("s"))
	h.send(t, key("esc"))
	if h.m.screen != screenMain || h.m.formKind != formNone {
		t.Errorf("escape should close the form, screen = %v", h.m.screen)
	}
	if len(h.missed.entries) != 0 {
		t.Error("escape recorded a skip")
	}
}

func TestWalkInForm(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("n"))
	if h.m.formKind != formWalkIn {
		t.Fatalf("form = %v, want walk-in", h.m.formKind)
	}
	h.m.walkInForm.FirstName = "Zoe"
	h.m.walkInForm.LastName = "Müller"

	model, _ := h.m.submitForm()
	h.m = model.(Model)

	p := h.current(t)
	if !p.IsNew || p.FirstName != "Zoe" {
		t.Errorf("current = %+v, want walk-in Zoe", p)
	}
	if h.ctrl.Cursor().Len() != 3 {
		t.Errorf("len = %d, want 3", h.ctrl.Cursor().Len())
	}
}

func TestJumpPicker(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("j"))
	if h.m.screen != screenPicker || h.m.pickerKind != pickPerson {
		t.Fatalf("screen = %v kind = %v, want person picker", h.m.screen, h.m.pickerKind)
	}
	h.send(t, key("down"))
	h.send(t, key("enter"))

	if h.m.screen != screenMain {
		t.Fatalf("screen = %v, want main", h.m.screen)
	}
	if p := h.current(t); p.LastName != "Brunner" {
		t.Errorf("current = %s, want Brunner", p.LastName)
	}
}

func TestFinish(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("f"))
	if h.m.screen != screenMain || h.m.statusErr || h.ctrl.Busy() {
		t.Fatalf("empty finish: screen = %v statusErr = %v busy = %v", h.m.screen, h.m.statusErr, h.ctrl.Busy())
	}
	if len(h.m.warnings) != 1 || !strings.Contains(h.m.warnings[0], "Keine Bilder") {
		t.Errorf("warnings = %v", h.m.warnings)
	}

	h.send(t, key("space"))
	h.send(t, key("space"))
	h.send(t, key("f"))

	if h.m.screen != screenFinished {
		t.Fatalf("screen = %v, want finished", h.m.screen)
	}
	if len(h.m.finish.Archives) != 1 {
		t.Fatalf("archives = %v", h.m.finish.Archives)
	}
	if _, err := os.Stat(h.m.finish.Archives[0]); err != nil {
		t.Errorf("archive missing: %v", err)
	}
	if !strings.Contains(h.m.View(), filepath.Base(h.m.finish.Archives[0])) {
		t.Error("finished view should list the archive")
	}

	h.send(t, key("esc"))
	if h.m.screen != screenMain {
		t.Errorf("screen = %v, want main", h.m.screen)
	}
}

func TestQuitDuringReviewDiscards(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})

	h.send(t, key("space"))
	path := h.m.attempt.Path

	model, cmd := h.m.Update(key("q"))
	h.m = model.(Model)
	if cmd == nil {
		t.Fatal("quit should return a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit command does not quit")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("unreviewed photo left behind, stat err = %v", err)
	}
}

func TestToggleOverlay(t *testing.T) {
	h := newHarness(t, Options{Location: "Bern", Class: "5a"})
	before := h.m.overlayOn
	h.send(t, key("o"))
	if h.m.overlayOn == before {
		t.Error("overlay not toggled")
	}
}
