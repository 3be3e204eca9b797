package station

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/models"
)

var errNameRequired = errors.New("name is required")

// formKind identifies which modal form is open
type formKind int

const (
	formNone formKind = iota
	formSkip
	formWalkIn
	formSettings
)

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return errNameRequired
	}
	return nil
}

// skipForm asks for the reason a person is not photographed
type skipForm struct {
	Form   *huh.Form
	Person models.Person
	Reason string
	Other  string
}

func newSkipForm(p models.Person) *skipForm {
	sf := &skipForm{Person: p, Reason: models.ReasonSick}
	options := make([]huh.Option[string], 0, 3)
	for _, r := range models.SkipReasons() {
		options = append(options, huh.NewOption(r, r))
	}

	sf.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Grund").
				Options(options...).
				Value(&sf.Reason),
		).Title("Überspringen: "+p.DisplayName()),
		huh.NewGroup(
			huh.NewInput().
				Title("Anderer Grund").
				Value(&sf.Other).
				Validate(required),
		).WithHideFunc(func() bool { return sf.Reason != models.ReasonOther }),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false)
	return sf
}

// reason returns the final reason text.
func (sf *skipForm) reason() string {
	if sf.Reason == models.ReasonOther {
		return strings.TrimSpace(sf.Other)
	}
	return sf.Reason
}

// walkInForm collects the name of a person missing from the roster
type walkInForm struct {
	Form      *huh.Form
	FirstName string
	LastName  string
}

func newWalkInForm(className string) *walkInForm {
	wf := &walkInForm{}
	wf.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Vorname").Value(&wf.FirstName).Validate(required),
			huh.NewInput().Title("Nachname").Value(&wf.LastName).Validate(required),
		).Title("Neue Person in " + className),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false)
	return wf
}

// settingsForm edits the commonly changed settings
type settingsForm struct {
	Form *huh.Form
	base config.Settings

	Backend     string
	Device      string
	Quality     string
	Aspect      string
	MaxEntries  string
	OverlayMode string
	ClassCol    string
	LastCol     string
	FirstCol    string
	IDCol       string
}

func newSettingsForm(s config.Settings) *settingsForm {
	sf := &settingsForm{
		base:        s,
		Backend:     s.Camera.Backend,
		Device:      strconv.Itoa(s.Camera.Device),
		Quality:     strconv.Itoa(s.Image.Quality),
		Aspect:      s.Image.Aspect.String(),
		MaxEntries:  strconv.Itoa(s.Archive.MaxEntries),
		OverlayMode: s.Overlay.Mode,
		ClassCol:    s.Roster.Class,
		LastCol:     s.Roster.LastName,
		FirstCol:    s.Roster.FirstName,
		IDCol:       s.Roster.StudentID,
	}

	intField := func(lo, hi int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < lo || n > hi {
				return fmt.Errorf("%d-%d", lo, hi)
			}
			return nil
		}
	}
	column := func(v string) error {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == "" || len(v) > 3 || strings.Trim(v, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
			return errors.New("column letter")
		}
		return nil
	}
	ratio := func(v string) error {
		_, err := config.ParseAspectRatio(v)
		return err
	}

	sf.Form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Kamera").
				Options(
					huh.NewOption("Webcam", config.BackendWebcam),
					huh.NewOption("gPhoto2", config.BackendGPhoto2),
					huh.NewOption("Simulator", config.BackendSimulator),
				).
				Value(&sf.Backend),
			huh.NewInput().Title("Gerät").Value(&sf.Device).Validate(intField(0, 99)),
			huh.NewInput().Title("JPEG-Qualität").Value(&sf.Quality).Validate(intField(1, 100)),
			huh.NewInput().Title("Seitenverhältnis").Placeholder("3:4").Value(&sf.Aspect).Validate(ratio),
			huh.NewInput().Title("Max. Bilder pro Zip (0 = alle)").Value(&sf.MaxEntries).Validate(intField(0, 100000)),
			huh.NewSelect[string]().
				Title("Hilfslinien").
				Options(
					huh.NewOption("Drittel", config.OverlayThirds),
					huh.NewOption("Fadenkreuz", config.OverlayCrosshair),
					huh.NewOption("Keine", config.OverlayNone),
				).
				Value(&sf.OverlayMode),
		).Title("Einstellungen"),
		huh.NewGroup(
			huh.NewInput().Title("Spalte Klasse").Value(&sf.ClassCol).Validate(column),
			huh.NewInput().Title("Spalte Nachname").Value(&sf.LastCol).Validate(column),
			huh.NewInput().Title("Spalte Vorname").Value(&sf.FirstCol).Validate(column),
			huh.NewInput().Title("Spalte Schüler-ID").Value(&sf.IDCol).Validate(column),
		).Title("Klassenliste"),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false)
	return sf
}

// settings merges the form values into the settings it was opened with.
func (sf *settingsForm) settings() (config.Settings, error) {
	s := sf.base
	var err error
	atoi := func(v string) int {
		n, e := strconv.Atoi(strings.TrimSpace(v))
		if e != nil && err == nil {
			err = e
		}
		return n
	}

	s.Camera.Backend = sf.Backend
	s.Camera.Device = atoi(sf.Device)
	s.Image.Quality = atoi(sf.Quality)
	s.Archive.MaxEntries = atoi(sf.MaxEntries)
	s.Overlay.Mode = sf.OverlayMode
	s.Roster.Class = strings.ToUpper(strings.TrimSpace(sf.ClassCol))
	s.Roster.LastName = strings.ToUpper(strings.TrimSpace(sf.LastCol))
	s.Roster.FirstName = strings.ToUpper(strings.TrimSpace(sf.FirstCol))
	s.Roster.StudentID = strings.ToUpper(strings.TrimSpace(sf.IDCol))
	if ratio, rerr := config.ParseAspectRatio(sf.Aspect); rerr == nil {
		s.Image.Aspect = ratio
	} else if err == nil {
		err = rerr
	}
	if err != nil {
		return s, err
	}
	return s, s.Validate()
}
