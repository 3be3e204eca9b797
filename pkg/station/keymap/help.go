package keymap

import "strings"

// ShortHelp renders "key desc" pairs for context, one entry per command.
func (r *Registry) ShortHelp(context Context) string {
	seen := make(map[Command]bool)
	var parts []string
	for _, b := range r.BindingsForContext(context) {
		if seen[b.Command] || b.Description == "" {
			continue
		}
		seen[b.Command] = true
		parts = append(parts, r.keyFor(context, b)+" "+strings.ToLower(b.Description))
	}
	return strings.Join(parts, " • ")
}

// keyFor prefers a user override for the binding's command.
func (r *Registry) keyFor(context Context, b Binding) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for k, cmd := range r.userOverrides {
		if cmd != b.Command {
			continue
		}
		ctx, key := parseBinding(k)
		if ctx == context || ctx == ContextGlobal {
			return key
		}
	}
	return b.Key
}
