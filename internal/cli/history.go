package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past runs",
	Long:  `Display the recorded outcomes of past sync and release runs, newest first.`,
	Args:  cobra.NoArgs,
	Run:   runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "n", "n", 20, "Limit the number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initContextWithJournal()
	defer c.Close()

	records, err := c.Journal.Recent(historyLimit)
	if err != nil {
		exitError("failed to read journal: %v", err)
	}

	if len(records) == 0 {
		fmt.Println("No runs recorded yet")
		return
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	for _, rec := range records {
		yellow.Printf("%s ", rec.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("%-8s ", rec.Task)

		switch rec.Outcome {
		case "failed":
			red.Printf("%-9s", rec.Outcome)
		case "synced":
			green.Printf("%-9s", rec.Outcome)
		default:
			fmt.Printf("%-9s", rec.Outcome)
		}

		if rec.UpstreamVersion != "" {
			fmt.Printf(" upstream=%s", rec.UpstreamVersion)
		}
		if rec.LocalVersion != "" {
			fmt.Printf(" local=%s", rec.LocalVersion)
		}
		if rec.Detail != "" {
			fmt.Printf(" (%s)", rec.Detail)
		}
		fmt.Println()
	}
}
