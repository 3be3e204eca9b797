package station

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/marcus/portrait/internal/models"
)

// View implements tea.Model
func (m Model) View() string {
	var body string
	switch m.screen {
	case screenPicker:
		body = m.picker.View()
	case screenForm:
		body = panelStyle.Render(m.activeForm().View())
	case screenReview:
		body = m.reviewView()
	case screenFinished:
		body = m.finishedView()
	default:
		body = m.mainView()
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.footerView())
}

func (m Model) headerView() string {
	location, class := m.ctrl.Selection()
	title := "portrait"
	if class != "" {
		title = fmt.Sprintf("portrait · %s · %s", location, class)
	}
	cam := m.ctrl.Camera().Name()
	left := titleStyle.Render(title)
	right := subtleStyle.Render("Kamera: " + cam)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(right), 1)
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) mainView() string {
	previewW, previewH := m.previewSize()

	var preview string
	if m.preview != nil {
		preview = RenderImage(m.preview, previewW, previewH, m.guides())
	} else {
		preview = subtleStyle.Render("Warte auf Vorschau…")
	}

	side := lipgloss.JoinVertical(lipgloss.Left,
		m.personView(),
		"",
		m.nextView(),
		"",
		m.progressView(),
	)
	sideW := max(m.width-previewW-6, 20)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(preview),
		panelStyle.Width(sideW).Render(side),
	)
}

func (m Model) previewSize() (int, int) {
	w := max(m.width*3/5, 20)
	h := max(m.height-8, 6)
	return w, h
}

func (m Model) guides() *Guides {
	if !m.overlayOn {
		return nil
	}
	s := m.ctrl.Settings()
	return &Guides{
		Mode:    s.Overlay.Mode,
		Opacity: s.Overlay.Opacity,
		Image:   m.overlay,
		Aspect:  s.Image.Aspect,
	}
}

func (m Model) personView() string {
	p, ok := m.ctrl.Current()
	if !ok {
		_, class := m.ctrl.Selection()
		if class == "" {
			return subtleStyle.Render("Keine Klasse gewählt")
		}
		return successStyle.Render("Klasse vollständig")
	}
	return renderPerson(p)
}

func renderPerson(p models.Person) string {
	name := nameStyle.Render(p.FirstName + " " + p.LastName)
	if p.IsNew {
		return name + "\n" + newBadge.Render("neu")
	}
	return name + "\n" + idStyle.Render(p.StudentID)
}

func (m Model) nextView() string {
	next, ok := m.ctrl.Cursor().Next()
	if !ok {
		return ""
	}
	return subtleStyle.Render("Danach: " + next.DisplayName())
}

func (m Model) progressView() string {
	c := m.ctrl.Cursor()
	if c.Len() == 0 {
		return ""
	}
	pos := min(c.Index()+1, c.Len())
	return subtleStyle.Render(fmt.Sprintf("%d / %d", pos, c.Len()))
}

func (m Model) reviewView() string {
	w, h := m.previewSize()
	img := RenderImage(m.reviewImg, w, h, nil)
	caption := ""
	if m.attempt != nil {
		caption = renderPerson(m.attempt.Person) + "\n" + subtleStyle.Render(filepath.Base(m.attempt.Path))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		reviewPanelStyle.Render(img),
		panelStyle.Render(caption),
	)
}

func (m Model) finishedView() string {
	var sb strings.Builder
	sb.WriteString(successStyle.Render(fmt.Sprintf("%d Bilder archiviert", m.finish.Photos)))
	sb.WriteString("\n\n")
	for _, a := range m.finish.Archives {
		sb.WriteString("  " + filepath.Base(a) + "\n")
	}
	sb.WriteString("\n" + subtleStyle.Render(m.finish.OutputDir))
	return panelStyle.Render(sb.String())
}

func (m Model) footerView() string {
	var lines []string
	if m.working != "" {
		lines = append(lines, m.spinner.View()+" "+m.working+"…")
	} else if m.status != "" {
		style := successStyle
		if m.statusErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(m.status))
	}
	for _, w := range m.warnings {
		lines = append(lines, warningStyle.Render("! "+w))
	}
	if m.showHelp || m.screen != screenForm {
		help := m.keys.ShortHelp(m.currentContext())
		lines = append(lines, helpStyle.Render(ansi.Truncate(help, max(m.width, 10), "…")))
	}
	return strings.Join(lines, "\n")
}
