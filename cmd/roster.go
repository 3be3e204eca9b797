package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marcus/portrait/internal/output"
	"github.com/marcus/portrait/internal/roster"
)

var rosterCmd = &cobra.Command{
	Use:     "roster",
	Short:   "Inspect the roster workbook",
	GroupID: "data",
}

// rosterFromFlags opens the workbook named by --roster or the settings.
func rosterFromFlags(cmd *cobra.Command) (*roster.Workbook, error) {
	s := *settings
	if cmd.Flags().Changed("roster") {
		s.RosterPath, _ = cmd.Flags().GetString("roster")
	}
	return openWorkbook(&s)
}

var rosterLocationsCmd = &cobra.Command{
	Use:   "locations",
	Short: "List the locations (sheets) of the roster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, err := rosterFromFlags(cmd)
		if err != nil {
			return fail(err)
		}
		defer wb.Close()

		locations, err := wb.Locations()
		if err != nil {
			return fail(err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(locations)
		}
		for _, l := range locations {
			fmt.Println(l)
		}
		return nil
	},
}

var rosterClassesCmd = &cobra.Command{
	Use:   "classes <location>",
	Short: "List the classes of a location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, err := rosterFromFlags(cmd)
		if err != nil {
			return fail(err)
		}
		defer wb.Close()

		classes, err := wb.Classes(args[0])
		if err != nil {
			return fail(err)
		}
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(classes)
		}
		if len(classes) == 0 {
			output.Warning("no classes in %s", args[0])
			return nil
		}
		for _, c := range classes {
			fmt.Println(c)
		}
		return nil
	},
}

var rosterPeopleCmd = &cobra.Command{
	Use:   "people <location> <class>",
	Short: "List the people of a class in capture order",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		wb, err := rosterFromFlags(cmd)
		if err != nil {
			return fail(err)
		}
		defer wb.Close()

		people, err := wb.People(args[0], args[1])
		if err != nil {
			return fail(err)
		}
		cursor := roster.NewCursor(people)
		if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
			return output.JSON(cursor.People())
		}
		for _, p := range cursor.People() {
			fmt.Println(output.FormatPerson(p))
		}
		fmt.Printf("\n%d people\n", cursor.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rosterCmd)
	rosterCmd.AddCommand(rosterLocationsCmd, rosterClassesCmd, rosterPeopleCmd)
	rosterCmd.PersistentFlags().String("roster", "", "roster workbook (.xlsx), overrides roster_path")
	rosterCmd.PersistentFlags().Bool("json", false, "output JSON")
}
