package keymap

import "strings"

// ApplyOverrides applies "context:key" -> command pairs from the settings
// file. Keys without a context are global; unknown commands are returned
// so the caller can report them.
func ApplyOverrides(r *Registry, overrides map[string]string) []string {
	known := make(map[Command]bool)
	for _, b := range DefaultBindings() {
		known[b.Command] = true
	}

	var unknown []string
	for binding, cmd := range overrides {
		ctx, key := parseBinding(binding)
		if key == "" {
			continue
		}
		if !known[Command(cmd)] {
			unknown = append(unknown, cmd)
			continue
		}
		r.SetUserOverride(ctx, key, Command(cmd))
	}
	return unknown
}

// parseBinding splits "context:key". Without a colon the key is global.
func parseBinding(s string) (Context, string) {
	ctx, key, ok := strings.Cut(s, ":")
	if !ok {
		return ContextGlobal, s
	}
	if ctx == "" {
		return ContextGlobal, key
	}
	return Context(ctx), key
}
