package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/config"
	"github.com/marcus/portrait/pkg/station"
)

var startAspect config.AspectRatio

var startCmd = &cobra.Command{
	Use:     "start",
	Aliases: []string{"session"},
	Short:   "Open the capture station",
	Long: `Open the interactive capture station for a roster.

Key bindings:
  space/c   Capture the current person
  s         Skip (record a missed appointment)
  n         Add a person missing from the roster
  j         Jump to a person
  k         Choose another class
  tab       Switch camera
  o         Toggle composition guides
  ,         Settings
  f         Finish the class (zip archives)
  ?         Toggle help
  q         Quit

In review: space/enter keeps the photo, esc/r discards it.`,
	GroupID:     "station",
	Annotations: map[string]string{annotationTUI: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s := *settings
		if cmd.Flags().Changed("roster") {
			s.RosterPath, _ = cmd.Flags().GetString("roster")
		}
		if cmd.Flags().Changed("aspect") {
			s.Image.Aspect = startAspect
		}
		if cmd.Flags().Changed("camera") {
			s.Camera.Backend, _ = cmd.Flags().GetString("camera")
		}
		if err := s.Validate(); err != nil {
			return fail(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		deps, err := openStation(ctx, &s, stationOptions{roster: true, camera: true})
		if err != nil {
			return fail(err)
		}
		defer func() {
			if err := deps.Close(); err != nil {
				logger.Warn("close station", "err", err)
			}
		}()

		location, _ := cmd.Flags().GetString("location")
		class, _ := cmd.Flags().GetString("class")
		model := station.New(ctx, deps.ctrl, station.Options{
			SettingsPath: configPath,
			Logger:       logger,
			Location:     location,
			Class:        class,
		})

		logger.Info("station start", "roster", s.RosterPath, "camera", deps.ctrl.Camera().Name())
		p := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fail(fmt.Errorf("error running station: %w", err))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().String("roster", "", "roster workbook (.xlsx), overrides roster_path")
	startCmd.Flags().String("location", "", "preselect a location (sheet)")
	startCmd.Flags().String("class", "", "preselect a class, requires --location")
	startCmd.Flags().String("camera", "", "camera backend: webcam, gphoto2 or simulator")
	startCmd.Flags().Var(&startAspect, "aspect", "crop aspect ratio, e.g. 3:4")
}
