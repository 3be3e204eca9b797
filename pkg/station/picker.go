package station

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/marcus/portrait/internal/models"
)

// pickerKind identifies what the list selects
type pickerKind int

const (
	pickLocation pickerKind = iota
	pickClass
	pickPerson
)

// pickItem is one list row
type pickItem struct {
	title string
	desc  string
	index int
}

func (i pickItem) Title() string       { return i.title }
func (i pickItem) Description() string { return i.desc }
func (i pickItem) FilterValue() string { return i.title }

func newPicker(title string, items []list.Item, width, height int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.Title = title
	l.SetShowStatusBar(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	return l
}

func nameItems(names []string) []list.Item {
	items := make([]list.Item, len(names))
	for i, n := range names {
		items[i] = pickItem{title: n, index: i}
	}
	return items
}

func personItems(people []models.Person, current int) []list.Item {
	items := make([]list.Item, len(people))
	for i, p := range people {
		desc := p.StudentID
		if p.IsNew {
			desc = "neu"
		}
		if i < current {
			desc += " · erledigt"
		}
		items[i] = pickItem{title: fmt.Sprintf("%s, %s", p.LastName, p.FirstName), desc: desc, index: i}
	}
	return items
}
