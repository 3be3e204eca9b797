package keymap

// DefaultBindings returns the built-in key bindings.
func DefaultBindings() []Binding {
	return []Binding{
		{Key: "ctrl+c", Command: CmdQuit, Context: ContextGlobal, Description: "Quit"},
		{Key: "?", Command: CmdToggleHelp, Context: ContextGlobal, Description: "Help"},

		{Key: "space", Command: CmdCapture, Context: ContextMain, Description: "Capture"},
		{Key: "c", Command: CmdCapture, Context: ContextMain, Description: "Capture"},
		{Key: "s", Command: CmdSkip, Context: ContextMain, Description: "Skip"},
		{Key: "n", Command: CmdWalkIn, Context: ContextMain, Description: "New person"},
		{Key: "j", Command: CmdJump, Context: ContextMain, Description: "Jump to person"},
		{Key: "k", Command: CmdSelectClass, Context: ContextMain, Description: "Class"},
		{Key: "tab", Command: CmdSwitchCamera, Context: ContextMain, Description: "Next camera"},
		{Key: "o", Command: CmdToggleOverlay, Context: ContextMain, Description: "Overlay"},
		{Key: ",", Command: CmdSettings, Context: ContextMain, Description: "Settings"},
		{Key: "f", Command: CmdFinish, Context: ContextMain, Description: "Finish class"},
		{Key: "q", Command: CmdQuit, Context: ContextMain, Description: "Quit"},

		{Key: "space", Command: CmdAccept, Context: ContextReview, Description: "Accept"},
		{Key: "enter", Command: CmdAccept, Context: ContextReview, Description: "Accept"},
		{Key: "esc", Command: CmdRetry, Context: ContextReview, Description: "Retake"},
		{Key: "r", Command: CmdRetry, Context: ContextReview, Description: "Retake"},

		{Key: "esc", Command: CmdBack, Context: ContextPicker, Description: "Back"},

		{Key: "o", Command: CmdOpenFolder, Context: ContextFinished, Description: "Open folder"},
		{Key: "esc", Command: CmdBack, Context: ContextFinished, Description: "Back"},
		{Key: "enter", Command: CmdBack, Context: ContextFinished, Description: "Back"},
	}
}

// RegisterDefaults registers the default bindings on r.
func RegisterDefaults(r *Registry) {
	r.RegisterBindings(DefaultBindings())
}
