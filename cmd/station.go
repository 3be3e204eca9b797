package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcus/portrait/internal/camera"
	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/internal/journal"
	"github.com/marcus/portrait/internal/metrics"
	"github.com/marcus/portrait/internal/roster"
	"github.com/marcus/portrait/internal/session"
)

// stationDeps are the collaborators of a session controller opened from
// the settings.
type stationDeps struct {
	ctrl     *session.Controller
	workbook *roster.Workbook
	journal  *journal.Journal
	metrics  *metrics.Metrics
	textfile string
}

// stationOptions selects what openStation wires
type stationOptions struct {
	roster bool // open settings.RosterPath
	camera bool // open the configured camera; otherwise the simulator
}

func openWorkbook(s *config.Settings) (*roster.Workbook, error) {
	if s.RosterPath == "" {
		return nil, errors.New("no roster: pass --roster or set roster_path")
	}
	return roster.OpenWorkbook(s.RosterPath, roster.Columns(s.Roster), logger)
}

func openStation(ctx context.Context, s *config.Settings, opts stationOptions) (*stationDeps, error) {
	d := &stationDeps{metrics: metrics.New(), textfile: s.Metrics.Textfile}
	sessOpts := session.Options{
		Settings: s,
		Metrics:  d.metrics,
		Logger:   logger,
	}

	if opts.roster {
		wb, err := openWorkbook(s)
		if err != nil {
			return nil, err
		}
		d.workbook = wb
		sessOpts.Roster = wb
		sessOpts.Editor = roster.NewEditorDetector(s.RosterPath, logger)
	}

	if s.Journal.Enabled {
		j, err := journal.Open(s.Journal.Path)
		if err != nil {
			// the journal is an audit trail; the station works without it
			logger.Warn("journal unavailable", "path", s.Journal.Path, "err", err)
		} else {
			d.journal = j
			sessOpts.Journal = j
		}
	}

	if !opts.camera {
		sim := camera.NewSimulator()
		if err := sim.Start(ctx); err != nil {
			d.Close()
			return nil, fmt.Errorf("start simulator: %w", err)
		}
		sessOpts.Camera = sim
	}

	d.ctrl = session.New(ctx, sessOpts)
	return d, nil
}

// Close stops the camera, writes the metrics textfile and closes the
// journal and roster.
func (d *stationDeps) Close() error {
	var errs []error
	if d.ctrl != nil {
		errs = append(errs, d.ctrl.Close())
	}
	if d.metrics != nil {
		errs = append(errs, d.metrics.WriteTextfile(d.textfile))
	}
	if d.journal != nil {
		errs = append(errs, d.journal.Close())
	}
	if d.workbook != nil {
		errs = append(errs, d.workbook.Close())
	}
	return errors.Join(errs...)
}
