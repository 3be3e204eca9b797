// Package skip records people who could not be photographed.
package skip

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/marcus/portrait/internal/missed"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/roster"
)

// Result lists the failures of a skip. The cursor advances regardless.
type Result struct {
	Entry    models.MissedEntry
	Warnings []error
}

// Recorder writes skips to the missed log and the roster
type Recorder struct {
	Log    missed.Appender
	Marker roster.Marker // nil disables roster write-back
	Now    func() time.Time
	Logger *slog.Logger
}

// NewRecorder returns a recorder using the wall clock.
func NewRecorder(log missed.Appender, marker roster.Marker, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{Log: log, Marker: marker, Now: time.Now, Logger: logger}
}

// Record appends p to the missed log and marks the roster row as not
// photographed. Both writes are attempted and failures collected.
func (r *Recorder) Record(p models.Person, location, reason string) Result {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reason = strings.TrimSpace(reason)

	res := Result{Entry: models.NewMissedEntry(p, location, reason, now())}
	if r.Log != nil {
		if err := r.Log.Append(res.Entry); err != nil {
			logger.Warn("missed log append failed", "person", p.String(), "err", err)
			res.Warnings = append(res.Warnings, fmt.Errorf("missed log: %w", err))
		}
	}
	if r.Marker != nil && !p.IsNew && p.Row > 0 {
		if err := r.Marker.MarkPhotographed(location, p.Row, false, "", reason); err != nil {
			logger.Warn("roster write-back failed", "row", p.Row, "err", err)
			res.Warnings = append(res.Warnings, fmt.Errorf("roster write-back: %w", err))
		}
	}

	logger.Info("person skipped", "person", p.String(), "reason", reason)
	return res
}

// Skip records the current person of cursor and advances it. An empty
// cursor yields an empty result.
func (r *Recorder) Skip(cursor *roster.Cursor, location, reason string) Result {
	p, ok := cursor.Current()
	if !ok {
		return Result{}
	}
	res := r.Record(p, location, reason)
	cursor.Advance()
	return res
}
