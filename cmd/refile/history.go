package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/history"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the rename log",
	Long: `Show every recorded rename across all sessions, oldest first.

The leading index is what 'refile undo <index>' takes.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	dataDir := mustDataDir()
	store := mustOpenHistory(dataDir)
	defer store.Close()

	entries, err := store.List()
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		printHistoryHuman(entries)
		return nil
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return outputJSON(entries)
}

func printHistoryHuman(entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Println("No renames recorded.")
		return
	}
	rows := make([][]string, 0, len(entries))
	for i, e := range entries {
		status := ""
		if e.Undone {
			status = "undone"
		}
		rows = append(rows, []string{
			strconv.Itoa(i),
			e.Timestamp.Local().Format(time.DateTime),
			e.OriginalPath,
			e.NewPath,
			e.MetadataSource,
			status,
		})
	}
	fmt.Println(renderTable(
		[]string{"#", "When", "From", "To", "Source", ""},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
	))
}
