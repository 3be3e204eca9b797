package capture

import (
	"fmt"
	"sync"
)

// Phase is a step of one capture attempt
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAcquiring
	PhaseProcessing
	PhaseReview
	PhaseCommit
	PhaseDiscard
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAcquiring:
		return "acquiring"
	case PhaseProcessing:
		return "processing"
	case PhaseReview:
		return "review"
	case PhaseCommit:
		return "commit"
	case PhaseDiscard:
		return "discard"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Transition is an allowed phase change
type Transition struct {
	From Phase
	To   Phase
}

// AllTransitions returns the phase graph. Failures during acquisition
// or processing fall back to idle.
func AllTransitions() []Transition {
	return []Transition{
		{PhaseIdle, PhaseAcquiring},
		{PhaseAcquiring, PhaseProcessing},
		{PhaseAcquiring, PhaseIdle},
		{PhaseProcessing, PhaseReview},
		{PhaseProcessing, PhaseIdle},
		{PhaseReview, PhaseCommit},
		{PhaseReview, PhaseDiscard},
		{PhaseCommit, PhaseIdle},
		{PhaseDiscard, PhaseIdle},
	}
}

// TransitionError reports a phase change that is not in the graph
type TransitionError struct {
	From Phase
	To   Phase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

// Machine tracks the phase of the current attempt
type Machine struct {
	mu          sync.Mutex
	transitions map[Phase]map[Phase]bool
	phase       Phase
}

// NewMachine returns a machine in PhaseIdle.
func NewMachine() *Machine {
	m := &Machine{transitions: make(map[Phase]map[Phase]bool)}
	for _, t := range AllTransitions() {
		if m.transitions[t.From] == nil {
			m.transitions[t.From] = make(map[Phase]bool)
		}
		m.transitions[t.From][t.To] = true
	}
	return m
}

// Phase returns the current phase.
func (m *Machine) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// IsValidTransition checks the graph without changing state.
func (m *Machine) IsValidTransition(from, to Phase) bool {
	return m.transitions[from][to]
}

// AllowedTransitions returns the phases reachable from from.
func (m *Machine) AllowedTransitions(from Phase) []Phase {
	var allowed []Phase
	for p := PhaseIdle; p <= PhaseDiscard; p++ {
		if m.transitions[from][p] {
			allowed = append(allowed, p)
		}
	}
	return allowed
}

// To moves to phase to or returns a *TransitionError.
func (m *Machine) To(to Phase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.transitions[m.phase][to] {
		return &TransitionError{From: m.phase, To: to}
	}
	m.phase = to
	return nil
}
