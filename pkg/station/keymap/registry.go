// Package keymap maps keys to station commands per UI context. Defaults
// can be overridden from the settings file.
package keymap

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Context represents a UI context for keybindings
type Context string

const (
	ContextGlobal   Context = "global"
	ContextMain     Context = "main"     // live preview with the current person
	ContextReview   Context = "review"   // processed photo awaiting a decision
	ContextPicker   Context = "picker"   // location, class or person list
	ContextFinished Context = "finished" // archive summary
)

// Command represents a named station action
type Command string

const (
	CmdQuit          Command = "quit"
	CmdToggleHelp    Command = "toggle-help"
	CmdCapture       Command = "capture"
	CmdSkip          Command = "skip"
	CmdWalkIn        Command = "walk-in"
	CmdJump          Command = "jump"
	CmdSelectClass   Command = "select-class"
	CmdSwitchCamera  Command = "switch-camera"
	CmdToggleOverlay Command = "toggle-overlay"
	CmdSettings      Command = "settings"
	CmdFinish        Command = "finish"
	CmdAccept        Command = "accept"
	CmdRetry         Command = "retry"
	CmdOpenFolder    Command = "open-folder"
	CmdBack          Command = "back"
)

// Binding maps a key to a command in a specific context
type Binding struct {
	Key         string  // e.g., "space", "ctrl+c", "c"
	Command     Command // Command ID
	Context     Context
	Description string // shown in the footer
}

// Registry manages key bindings and command dispatch
type Registry struct {
	bindings      map[Context][]Binding
	userOverrides map[string]Command // "context:key" -> command
	mu            sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		bindings:      make(map[Context][]Binding),
		userOverrides: make(map[string]Command),
	}
}

// RegisterBindings adds key bindings
func (r *Registry) RegisterBindings(bindings []Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range bindings {
		r.bindings[b.Context] = append(r.bindings[b.Context], b)
	}
}

// SetUserOverride binds key to cmd in context, ahead of the defaults.
func (r *Registry) SetUserOverride(context Context, key string, cmd Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.userOverrides[string(context)+":"+key] = cmd
}

// Lookup finds the command for key in the active context.
// Checks: user overrides -> context bindings -> global bindings
func (r *Registry) Lookup(key tea.KeyMsg, active Context) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	k := KeyToString(key)
	if active != ContextGlobal {
		if cmd, ok := r.userOverrides[string(active)+":"+k]; ok {
			return cmd, true
		}
	}
	if cmd, ok := r.userOverrides[string(ContextGlobal)+":"+k]; ok {
		return cmd, true
	}
	if active != ContextGlobal {
		if cmd, ok := r.findInContext(k, active); ok {
			return cmd, true
		}
	}
	return r.findInContext(k, ContextGlobal)
}

func (r *Registry) findInContext(key string, context Context) (Command, bool) {
	for _, b := range r.bindings[context] {
		if b.Key == key {
			return b.Command, true
		}
	}
	return "", false
}

// BindingsForContext returns the bindings of context followed by the
// global ones.
func (r *Registry) BindingsForContext(context Context) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Binding
	result = append(result, r.bindings[context]...)
	if context != ContextGlobal {
		result = append(result, r.bindings[ContextGlobal]...)
	}
	return result
}

// KeyToString converts a tea.KeyMsg to its binding name
func KeyToString(key tea.KeyMsg) string {
	switch key.Type {
	case tea.KeySpace:
		return "space"
	case tea.KeyRunes:
		if len(key.Runes) == 1 && key.Runes[0] == ' ' {
			return "space"
		}
		return string(key.Runes)
	default:
		return key.String()
	}
}
