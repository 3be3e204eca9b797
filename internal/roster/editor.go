package roster

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// ErrEditorOpen is returned when a spreadsheet editor appears to hold the
// roster. Writing then would race the operator's own edits.
var ErrEditorOpen = errors.New("roster is open in a spreadsheet editor")

// DefaultEditorProcesses are process name fragments treated as editors.
var DefaultEditorProcesses = []string{"excel", "soffice"}

// EditorDetector checks for an external editor holding the roster file,
// either through an owner lock file next to it or a running editor process.
type EditorDetector struct {
	RosterPath string
	Processes  []string
	Logger     *slog.Logger

	// listProcesses is swapped in tests.
	listProcesses func() ([]string, error)
}

// NewEditorDetector returns a detector for the roster at path.
func NewEditorDetector(path string, logger *slog.Logger) *EditorDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &EditorDetector{
		RosterPath:    path,
		Processes:     DefaultEditorProcesses,
		Logger:        logger,
		listProcesses: processNames,
	}
}

// Check returns ErrEditorOpen (wrapped with the reason) when an editor is
// detected, nil otherwise. A failing process scan counts as "no editor".
func (d *EditorDetector) Check() error {
	if d.RosterPath != "" {
		dir, name := filepath.Split(d.RosterPath)
		for _, lock := range []string{"~$" + name, ".~lock." + name + "#"} {
			if _, err := os.Stat(filepath.Join(dir, lock)); err == nil {
				return fmt.Errorf("%w (lock file %s)", ErrEditorOpen, lock)
			}
		}
	}

	if d.listProcesses == nil || len(d.Processes) == 0 {
		return nil
	}
	names, err := d.listProcesses()
	if err != nil {
		d.Logger.Debug("editor check: process scan failed", "err", err)
		return nil
	}
	for _, n := range names {
		lower := strings.ToLower(n)
		for _, frag := range d.Processes {
			if strings.Contains(lower, strings.ToLower(frag)) {
				return fmt.Errorf("%w (process %s)", ErrEditorOpen, n)
			}
		}
	}
	return nil
}
