package station

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/marcus/portrait/internal/capture"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/session"
	"github.com/marcus/portrait/pkg/station/keymap"
)

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		w, h := m.pickerSize()
		m.picker.SetSize(w, h)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case previewTickMsg:
		if m.screen == screenMain && !m.previewBusy && !m.ctrl.Busy() {
			m.previewBusy = true
			return m, tea.Batch(m.fetchPreview(), m.previewTick())
		}
		return m, m.previewTick()

	case previewMsg:
		m.previewBusy = false
		if msg.err != nil {
			m.logger.Debug("preview failed", "err", msg.err)
			return m, nil
		}
		m.preview = msg.img
		return m, nil

	case acquiredMsg:
		m.working = ""
		if msg.err != nil {
			m.ctrl.AbortCapture(msg.attempt)
			m.setErrorText("Aufnahme fehlgeschlagen: " + msg.err.Error())
			return m, nil
		}
		m.attempt = msg.attempt
		m.reviewImg = msg.img
		m.screen = screenReview
		return m, nil

	case resolvedMsg:
		return m.handleResolved(msg)

	case skipDoneMsg:
		m.working = ""
		m.ctrl.CompleteSkip()
		m.setWarnings(msg.res.Warnings)
		m.setStatus(fmt.Sprintf("%s übersprungen (%s)", msg.res.Entry.FirstName+" "+msg.res.Entry.LastName, msg.res.Entry.Reason))
		return m, nil

	case finishedMsg:
		m.working = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		if len(msg.res.Archives) == 0 {
			m.warnings = []string{"Keine Bilder in " + msg.res.OutputDir}
			return m, nil
		}
		m.finish = msg.res
		m.screen = screenFinished
		return m, nil

	case cameraSwitchedMsg:
		m.working = ""
		if msg.err != nil {
			m.warnings = []string{"Kamera nicht gewechselt: " + msg.err.Error()}
			return m, nil
		}
		m.setStatus("Kamera: " + msg.name)
		return m, nil

	case settingsAppliedMsg:
		m.working = ""
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setWarnings(msg.warnings)
		m.overlayOn = msg.settings.Overlay.Enabled
		m.loadOverlay(msg.settings)
		m.setStatus("Einstellungen gespeichert")
		return m, nil

	case folderOpenedMsg:
		m.setError(msg.err)
		return m, nil
	}

	if m.screen == screenForm {
		return m.updateForm(msg)
	}
	if m.screen == screenPicker {
		if key, ok := msg.(tea.KeyMsg); ok {
			return m.handlePickerKey(key)
		}
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		return m.handleKey(key)
	}
	return m, nil
}

func (m Model) handleResolved(msg resolvedMsg) (tea.Model, tea.Cmd) {
	m.working = ""
	m.attempt = nil
	m.reviewImg = nil
	m.screen = screenMain
	m.ctrl.CompleteCapture(msg.res)
	if msg.err != nil {
		m.setError(msg.err)
		return m, nil
	}
	m.setWarnings(msg.res.Warnings)
	if msg.res.Committed {
		m.setStatus("Gespeichert: " + msg.res.Attempt.Person.DisplayName())
	} else {
		m.setStatus("Verworfen, bitte erneut aufnehmen")
	}
	return m, nil
}

// handleKey dispatches keys outside of forms and pickers
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, ok := m.keys.Lookup(msg, m.currentContext())
	if !ok {
		return m, nil
	}
	return m.executeCommand(cmd)
}

func (m Model) executeCommand(cmd keymap.Command) (tea.Model, tea.Cmd) {
	if cmd == keymap.CmdQuit {
		if m.working != "" || (m.ctrl.Busy() && m.screen != screenReview) {
			m.setError(session.ErrBusy)
			return m, nil
		}
		if m.attempt != nil {
			// leave no unreviewed photo behind
			m.ctrl.AbortCapture(m.attempt)
		}
		return m, tea.Quit
	}
	if cmd == keymap.CmdToggleHelp {
		m.showHelp = !m.showHelp
		return m, nil
	}

	switch m.screen {
	case screenReview:
		if m.working != "" {
			return m, nil
		}
		switch cmd {
		case keymap.CmdAccept:
			m.working = "Speichern"
			return m, m.resolve(m.attempt, models.DecisionAccept)
		case keymap.CmdRetry:
			m.working = "Verwerfen"
			return m, m.resolve(m.attempt, models.DecisionRetry)
		}
		return m, nil

	case screenFinished:
		switch cmd {
		case keymap.CmdOpenFolder:
			return m, openFolderCmd(m.finish.OutputDir)
		case keymap.CmdBack:
			m.screen = screenMain
		}
		return m, nil
	}

	return m.executeMain(cmd)
}

func (m Model) executeMain(cmd keymap.Command) (tea.Model, tea.Cmd) {
	if m.ctrl.Busy() {
		m.setError(session.ErrBusy)
		return m, nil
	}
	m.warnings = nil

	switch cmd {
	case keymap.CmdCapture:
		a, err := m.ctrl.BeginCapture()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("")
		m.working = "Aufnahme"
		return m, m.acquire(a)

	case keymap.CmdSkip:
		p, ok := m.ctrl.Current()
		if !ok {
			m.setError(capture.ErrNoSubject)
			return m, nil
		}
		m.skipForm = newSkipForm(p)
		return m.openForm(formSkip)

	case keymap.CmdWalkIn:
		_, class := m.ctrl.Selection()
		if class == "" {
			m.setError(session.ErrNoClass)
			return m, nil
		}
		m.walkInForm = newWalkInForm(class)
		return m.openForm(formWalkIn)

	case keymap.CmdJump:
		if m.ctrl.Cursor().Len() == 0 {
			return m, nil
		}
		m.openPeople()
		return m, nil

	case keymap.CmdSelectClass:
		m.openLocations()
		return m, nil

	case keymap.CmdSwitchCamera:
		m.working = "Kamera wechseln"
		return m, m.switchCamera()

	case keymap.CmdToggleOverlay:
		m.overlayOn = !m.overlayOn
		return m, nil

	case keymap.CmdSettings:
		m.settings = newSettingsForm(m.ctrl.Settings())
		return m.openForm(formSettings)

	case keymap.CmdFinish:
		if _, class := m.ctrl.Selection(); class == "" {
			m.setError(session.ErrNoClass)
			return m, nil
		}
		m.working = "Archivieren"
		return m, m.finishClass()
	}
	return m, nil
}

func (m Model) openForm(kind formKind) (tea.Model, tea.Cmd) {
	m.formKind = kind
	m.screen = screenForm
	return m, m.activeForm().Init()
}

func (m Model) closeForm() Model {
	m.formKind = formNone
	m.skipForm, m.walkInForm, m.settings = nil, nil, nil
	m.screen = screenMain
	return m
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && key.Type == tea.KeyEsc {
		return m.closeForm(), nil
	}

	form := m.activeForm()
	updated, cmd := form.Update(msg)
	if f, ok := updated.(*huh.Form); ok {
		form = f
		m.setActiveForm(f)
	}

	switch form.State {
	case huh.StateAborted:
		return m.closeForm(), nil
	case huh.StateCompleted:
		return m.submitForm()
	}
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	kind := m.formKind
	skipForm, walkInForm, settingsForm := m.skipForm, m.walkInForm, m.settings
	m = m.closeForm()

	switch kind {
	case formSkip:
		reason := skipForm.reason()
		p, err := m.ctrl.BeginSkip()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.working = "Überspringen"
		return m, m.recordSkip(p, reason)

	case formWalkIn:
		p, err := m.ctrl.AddWalkIn(walkInForm.FirstName, walkInForm.LastName)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("Neu: " + p.DisplayName())

	case formSettings:
		s, err := settingsForm.settings()
		if err != nil {
			m.setError(err)
			return m, nil
		}
		m.working = "Einstellungen anwenden"
		return m, m.applySettings(s)
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.picker, cmd = m.picker.Update(msg)
		return m, cmd
	}

	if msg.Type == tea.KeyEnter {
		item, ok := m.picker.SelectedItem().(pickItem)
		if !ok {
			return m, nil
		}
		return m.pick(item)
	}
	if cmd, ok := m.keys.Lookup(msg, keymap.ContextPicker); ok {
		switch cmd {
		case keymap.CmdQuit:
			return m.executeCommand(cmd)
		case keymap.CmdBack:
			return m.pickerBack(), nil
		}
	}

	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m Model) pick(item pickItem) (tea.Model, tea.Cmd) {
	switch m.pickerKind {
	case pickLocation:
		m.openClasses(item.title)
	case pickClass:
		if err := m.ctrl.SelectClass(m.location, item.title); err != nil {
			m.setError(err)
			return m, nil
		}
		m.setStatus("")
		m.screen = screenMain
	case pickPerson:
		if err := m.ctrl.JumpTo(item.index); err != nil {
			m.setError(err)
		}
		m.screen = screenMain
	}
	return m, nil
}

func (m Model) pickerBack() Model {
	switch m.pickerKind {
	case pickClass:
		m.openLocations()
	default:
		if _, class := m.ctrl.Selection(); class != "" {
			m.screen = screenMain
		}
	}
	return m
}
