package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/dateparse"
	"github.com/marcus/portrait/internal/missed"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/output"
)

var missedCmd = &cobra.Command{
	Use:     "missed",
	Short:   "List missed appointments",
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		location, _ := cmd.Flags().GetString("location")
		class, _ := cmd.Flags().GetString("class")
		sinceStr, _ := cmd.Flags().GetString("since")

		var since time.Time
		if sinceStr != "" {
			t, err := dateparse.ParseSince(sinceStr)
			if err != nil {
				return fail(fmt.Errorf("invalid --since: %w", err))
			}
			since = t
		}

		entries, err := missed.NewLog(settings.MissedLogPath).Entries()
		if err != nil {
			return fail(err)
		}
		entries = filterMissed(entries, location, class, since)

		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(entries)
		}
		if len(entries) == 0 {
			fmt.Println("No missed appointments")
			return nil
		}
		for _, e := range entries {
			fmt.Println(output.FormatMissed(e))
		}
		fmt.Printf("\n%d missed\n", len(entries))
		return nil
	},
}

func filterMissed(entries []models.MissedEntry, location, class string, since time.Time) []models.MissedEntry {
	var out []models.MissedEntry
	for _, e := range entries {
		if location != "" && e.Location != location {
			continue
		}
		if class != "" && e.ClassName != class {
			continue
		}
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func init() {
	rootCmd.AddCommand(missedCmd)
	missedCmd.Flags().String("location", "", "only this location")
	missedCmd.Flags().String("class", "", "only this class")
	missedCmd.Flags().String("since", "", "only entries since (today, 3d, 2026-03-09, montag, ...)")
	missedCmd.Flags().Bool("json", false, "output JSON")
}
