package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/output"
	"github.com/marcus/portrait/internal/session"
)

var finishCmd = &cobra.Command{
	Use:   "finish <location> <class>",
	Short: "Pack the photos of a class into zip archives",
	Long: `Pack every photo in the class output folder into zip archives.

With archive.max_entries set, a class larger than the limit is split into
numbered parts ({class}_part01.zip, {class}_part02.zip, ...).`,
	GroupID: "station",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := *settings
		if cmd.Flags().Changed("max-entries") {
			s.Archive.MaxEntries, _ = cmd.Flags().GetInt("max-entries")
		}

		deps, err := openStation(context.Background(), &s, stationOptions{})
		if err != nil {
			return fail(err)
		}
		defer deps.Close()

		res, err := deps.ctrl.Finish(args[0], args[1])
		if err != nil {
			return fail(err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(res)
		}
		if len(res.Archives) == 0 {
			output.Warning("no photos in %s", res.OutputDir)
			return nil
		}
		if err := output.PrintMarkdown(finishSummary(args[0], args[1], res)); err != nil {
			return fail(err)
		}
		return nil
	},
}

func finishSummary(location, class string, res session.FinishResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s (%s)\n\n", class, location)
	fmt.Fprintf(&sb, "%d Fotos in %d Archiv(en)\n\n", res.Photos, len(res.Archives))
	for _, a := range res.Archives {
		fmt.Fprintf(&sb, "- `%s`\n", filepath.Base(a))
	}
	fmt.Fprintf(&sb, "\nOrdner: `%s`\n", res.OutputDir)
	return sb.String()
}

func init() {
	rootCmd.AddCommand(finishCmd)
	finishCmd.Flags().Int("max-entries", 0, "photos per archive, overrides archive.max_entries (0 = all in one)")
	finishCmd.Flags().Bool("json", false, "output JSON")
}
