package models

import (
	"fmt"
	"time"
)

// WalkInFolder is the literal sub-folder for people added at runtime.
const WalkInFolder = "Neue Lernende"

// Person identifies one roster entry
type Person struct {
	ClassName string `json:"class_name"`
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
	StudentID string `json:"student_id,omitempty"`
	Row       int    `json:"row,omitempty"` // 1-based roster row, 0 for walk-ins
	IsNew     bool   `json:"is_new,omitempty"`
}

// NewWalkIn creates a person that is not present in the roster source.
func NewWalkIn(className, firstName, lastName string) Person {
	return Person{
		ClassName: className,
		LastName:  lastName,
		FirstName: firstName,
		IsNew:     true,
	}
}

// DisplayName returns "First Last"
func (p Person) DisplayName() string {
	return p.FirstName + " " + p.LastName
}

// String implements fmt.Stringer
func (p Person) String() string {
	if p.IsNew {
		return fmt.Sprintf("%s (neu)", p.DisplayName())
	}
	return fmt.Sprintf("%s [%s]", p.DisplayName(), p.StudentID)
}

// Skip reasons offered to the operator
const (
	ReasonSick    = "Krank"
	ReasonRefused = "Verweigert"
	ReasonOther   = "Anderer Grund..."
)

// SkipReasons lists the fixed reasons in display order.
func SkipReasons() []string {
	return []string{ReasonSick, ReasonRefused, ReasonOther}
}

// MissedEntry is one row of the missed-appointment log
type MissedEntry struct {
	Location  string    `json:"location"`
	ClassName string    `json:"class_name"`
	LastName  string    `json:"last_name"`
	FirstName string    `json:"first_name"`
	StudentID string    `json:"student_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// NewMissedEntry builds the log row for skipping p at location.
func NewMissedEntry(p Person, location, reason string, at time.Time) MissedEntry {
	return MissedEntry{
		Location:  location,
		ClassName: p.ClassName,
		LastName:  p.LastName,
		FirstName: p.FirstName,
		StudentID: p.StudentID,
		Timestamp: at,
		Reason:    reason,
	}
}

// Decision is the operator verdict on a captured photo
type Decision int

const (
	DecisionAccept Decision = iota
	DecisionRetry
)

func (d Decision) String() string {
	if d == DecisionAccept {
		return "accept"
	}
	return "retry"
}

// EventType represents a journal event kind
type EventType string

const (
	EventCommitted EventType = "committed"
	EventDiscarded EventType = "discarded"
	EventSkipped   EventType = "skipped"
	EventFailed    EventType = "failed"
	EventArchived  EventType = "archived"
	EventWalkIn    EventType = "walk_in"
)

// Event is a single journal row
type Event struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Location  string    `json:"location"`
	ClassName string    `json:"class_name"`
	StudentID string    `json:"student_id,omitempty"`
	Name      string    `json:"name,omitempty"`
	Path      string    `json:"path,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
