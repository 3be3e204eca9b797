package roster

import (
	"errors"
	"fmt"
	"sort"

	"github.com/marcus/portrait/internal/models"
)

// ErrIndexOutOfRange is returned by JumpTo for a position outside the roster.
var ErrIndexOutOfRange = errors.New("index out of range")

// Cursor is the ordered list of people for the selected class and the
// position of the person being photographed. Current == Len means the
// class is complete.
type Cursor struct {
	people  []models.Person
	current int
}

// NewCursor returns a cursor loaded with people.
func NewCursor(people []models.Person) *Cursor {
	c := &Cursor{}
	c.Load(people)
	return c
}

// Load replaces the sequence with people sorted by last then first name
// and rewinds to the first person.
func (c *Cursor) Load(people []models.Person) {
	sorted := make([]models.Person, len(people))
	copy(sorted, people)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].LastName != sorted[j].LastName {
			return sorted[i].LastName < sorted[j].LastName
		}
		return sorted[i].FirstName < sorted[j].FirstName
	})
	c.people = sorted
	c.current = 0
}

// Current returns the person at the cursor.
func (c *Cursor) Current() (models.Person, bool) {
	return c.at(c.current)
}

// Next returns the person after the cursor without moving it.
func (c *Cursor) Next() (models.Person, bool) {
	return c.at(c.current + 1)
}

func (c *Cursor) at(i int) (models.Person, bool) {
	if i < 0 || i >= len(c.people) {
		return models.Person{}, false
	}
	return c.people[i], true
}

// Advance moves to the next person, stopping at Len.
func (c *Cursor) Advance() {
	if c.current < len(c.people) {
		c.current++
	}
}

// InsertWalkIn inserts p at the cursor so it becomes the current person.
// On a completed class this appends p.
func (c *Cursor) InsertWalkIn(p models.Person) {
	c.people = append(c.people, models.Person{})
	copy(c.people[c.current+1:], c.people[c.current:])
	c.people[c.current] = p
}

// JumpTo moves the cursor directly to index.
func (c *Cursor) JumpTo(index int) error {
	if index < 0 || index >= len(c.people) {
		return fmt.Errorf("jump to %d of %d: %w", index, len(c.people), ErrIndexOutOfRange)
	}
	c.current = index
	return nil
}

// Index returns the cursor position.
func (c *Cursor) Index() int { return c.current }

// Len returns the number of people.
func (c *Cursor) Len() int { return len(c.people) }

// Done reports whether every person has been handled.
func (c *Cursor) Done() bool { return c.current >= len(c.people) }

// People returns a copy of the ordered sequence.
func (c *Cursor) People() []models.Person {
	out := make([]models.Person, len(c.people))
	copy(out, c.people)
	return out
}
