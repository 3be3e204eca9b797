package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/dateparse"
	"github.com/marcus/portrait/internal/journal"
	"github.com/marcus/portrait/internal/models"
	"github.com/marcus/portrait/internal/output"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise the capture journal per class",
	Long: `Summarise the capture journal: committed photos, retakes, skips,
failures, walk-ins and archives per location and class.

Use --events to list the individual journal entries instead.`,
	GroupID: "data",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !settings.Journal.Enabled {
			return fail(fmt.Errorf("journal is disabled (journal.enabled)"))
		}

		f := journal.Filter{}
		f.Location, _ = cmd.Flags().GetString("location")
		f.ClassName, _ = cmd.Flags().GetString("class")
		f.SessionID, _ = cmd.Flags().GetString("session")
		f.Limit, _ = cmd.Flags().GetInt("limit")
		if sinceStr, _ := cmd.Flags().GetString("since"); sinceStr != "" {
			t, err := dateparse.ParseSince(sinceStr)
			if err != nil {
				return fail(fmt.Errorf("invalid --since: %w", err))
			}
			f.Since = t
		}

		j, err := journal.Open(settings.Journal.Path)
		if err != nil {
			return fail(err)
		}
		defer j.Close()

		jsonOut, _ := cmd.Flags().GetBool("json")
		if eventsOut, _ := cmd.Flags().GetBool("events"); eventsOut {
			events, err := j.Events(f)
			if err != nil {
				return fail(err)
			}
			if jsonOut {
				return output.JSON(events)
			}
			for _, e := range events {
				fmt.Println(output.FormatEvent(e))
			}
			return nil
		}

		summary, err := j.Summary(f)
		if err != nil {
			return fail(err)
		}
		if jsonOut {
			return output.JSON(summary)
		}
		if len(summary) == 0 {
			fmt.Println("No journal entries")
			return nil
		}
		if err := output.PrintMarkdown(reportMarkdown(summary)); err != nil {
			return fail(err)
		}
		return nil
	},
}

// reportColumns are the event counts shown per class, in order.
var reportColumns = []struct {
	title string
	event models.EventType
}{
	{"Fotos", models.EventCommitted},
	{"Verworfen", models.EventDiscarded},
	{"Übersprungen", models.EventSkipped},
	{"Fehler", models.EventFailed},
	{"Neu", models.EventWalkIn},
	{"Archive", models.EventArchived},
}

func reportMarkdown(summary []journal.ClassSummary) string {
	headers := []string{"Standort", "Klasse"}
	for _, c := range reportColumns {
		headers = append(headers, c.title)
	}
	headers = append(headers, "Zuletzt")

	totals := make([]int, len(reportColumns))
	rows := make([][]string, 0, len(summary))
	for _, s := range summary {
		row := []string{s.Location, s.ClassName}
		for i, c := range reportColumns {
			n := s.Count(c.event)
			totals[i] += n
			row = append(row, strconv.Itoa(n))
		}
		row = append(row, output.FormatTimeAgo(s.Last))
		rows = append(rows, row)
	}

	var sb strings.Builder
	sb.WriteString("# Fotojournal\n\n")
	sb.WriteString(output.MarkdownTable(headers, rows))
	fmt.Fprintf(&sb, "\n**%d Fotos**, %d übersprungen in %d Klassen\n", totals[0], totals[2], len(summary))
	return sb.String()
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().String("location", "", "only this location")
	reportCmd.Flags().String("class", "", "only this class")
	reportCmd.Flags().String("session", "", "only this session id")
	reportCmd.Flags().String("since", "", "only events since (today, 3d, 2026-03-09, montag, ...)")
	reportCmd.Flags().Int("limit", 0, "maximum events with --events (0 = all)")
	reportCmd.Flags().Bool("events", false, "list individual events")
	reportCmd.Flags().Bool("json", false, "output JSON")
}
