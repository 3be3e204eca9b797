package roster

import (
	"errors"
	"testing"

	"github.com/marcus/portrait/internal/models"
)

func person(last, first, id string, row int) models.Person {
	return models.Person{ClassName: "1a", LastName: last, FirstName: first, StudentID: id, Row: row}
}

func fivePeople() []models.Person {
	return []models.Person{
		person("Meier", "Zoe", "5", 6),
		person("Albrecht", "Tim", "1", 2),
		person("Meier", "Anna", "4", 5),
		person("Keller", "Lea", "3", 4),
		person("Baum", "Jan", "2", 3),
	}
}

func TestCursor_LoadSorts(t *testing.T) {
	c := NewCursor(fivePeople())

	want := []string{"1", "2", "3", "4", "5"}
	for i, p := range c.People() {
		if p.StudentID != want[i] {
			t.Errorf("position %d = %s %s (%s), want id %s", i, p.FirstName, p.LastName, p.StudentID, want[i])
		}
	}
	if c.Index() != 0 {
		t.Errorf("Index() = %d after load, want 0", c.Index())
	}
}

func TestCursor_AdvanceToCompletion(t *testing.T) {
	c := NewCursor(fivePeople())

	for i := 0; i < 5; i++ {
		if _, ok := c.Current(); !ok {
			t.Fatalf("Current() empty at step %d", i)
		}
		c.Advance()
	}

	if _, ok := c.Current(); ok {
		t.Error("Current() should be empty after 5 advances")
	}
	if _, ok := c.Next(); ok {
		t.Error("Next() should be empty after 5 advances")
	}
	if !c.Done() {
		t.Error("Done() should be true")
	}

	c.Advance()
	if c.Index() != 5 {
		t.Errorf("Advance past end moved index to %d", c.Index())
	}
}

func TestCursor_NextDoesNotMove(t *testing.T) {
	c := NewCursor(fivePeople())
	next, ok := c.Next()
	if !ok || next.StudentID != "2" {
		t.Fatalf("Next() = %v, %v", next, ok)
	}
	if c.Index() != 0 {
		t.Errorf("Next() moved cursor to %d", c.Index())
	}

	c.JumpTo(4)
	if _, ok := c.Next(); ok {
		t.Error("Next() at last person should be empty")
	}
}

func TestCursor_InsertWalkIn(t *testing.T) {
	c := NewCursor(fivePeople())
	c.Advance()

	w := models.NewWalkIn("1a", "Nina", "Zeller")
	c.InsertWalkIn(w)

	cur, ok := c.Current()
	if !ok || !cur.IsNew || cur.LastName != "Zeller" {
		t.Fatalf("Current() = %v, want walk-in", cur)
	}
	if c.Index() != 1 || c.Len() != 6 {
		t.Errorf("Index/Len = %d/%d, want 1/6", c.Index(), c.Len())
	}
	next, _ := c.Next()
	if next.StudentID != "2" {
		t.Errorf("Next() = %v, want the person previously current", next)
	}
}

func TestCursor_InsertWalkInWhenComplete(t *testing.T) {
	c := NewCursor([]models.Person{person("A", "B", "1", 2)})
	c.Advance()

	c.InsertWalkIn(models.NewWalkIn("1a", "Nina", "Zeller"))

	cur, ok := c.Current()
	if !ok || cur.LastName != "Zeller" {
		t.Fatalf("Current() = %v, %v; want appended walk-in", cur, ok)
	}
	if c.Index() != 1 || c.Len() != 2 {
		t.Errorf("Index/Len = %d/%d, want 1/2", c.Index(), c.Len())
	}
}

func TestCursor_InsertWalkInEmpty(t *testing.T) {
	c := NewCursor(nil)
	c.InsertWalkIn(models.NewWalkIn("1a", "Nina", "Zeller"))
	if cur, ok := c.Current(); !ok || cur.FirstName != "Nina" {
		t.Errorf("Current() = %v, %v", cur, ok)
	}
}

func TestCursor_JumpTo(t *testing.T) {
	c := NewCursor(fivePeople())

	if err := c.JumpTo(3); err != nil {
		t.Fatalf("JumpTo(3): %v", err)
	}
	if cur, _ := c.Current(); cur.StudentID != "4" {
		t.Errorf("Current() after JumpTo(3) = %v", cur)
	}

	for _, idx := range []int{-1, 5, 100} {
		err := c.JumpTo(idx)
		if !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("JumpTo(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if c.Index() != 3 {
		t.Errorf("failed JumpTo changed index to %d", c.Index())
	}
}

func TestCursor_LoadResets(t *testing.T) {
	c := NewCursor(fivePeople())
	c.Advance()
	c.Advance()
	c.Load([]models.Person{person("X", "Y", "9", 2)})
	if c.Index() != 0 || c.Len() != 1 {
		t.Errorf("Index/Len = %d/%d after reload", c.Index(), c.Len())
	}
}
