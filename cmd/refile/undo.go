package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/executor"
	"github.com/refile/refile/internal/history"
)

var undoSession string

func init() {
	undoCmd.Flags().StringVar(&undoSession, "session", "", "Undo every rename of the given session")
	rootCmd.AddCommand(undoCmd)
}

var undoCmd = &cobra.Command{
	Use:   "undo [index]",
	Short: "Reverse recorded renames",
	Long: `Reverse recorded renames.

Usage:
  refile undo 3                 # Undo history entry 3 (see 'refile history')
  refile undo --session <id>    # Undo every rename of one session

An entry can only be undone once. Undo fails for an entry when the
renamed file is gone or the original name is taken again; other
entries of the session are still processed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUndo,
}

func runUndo(cmd *cobra.Command, args []string) error {
	if (undoSession == "") == (len(args) == 0) {
		exitWithError(ExitError, "pass either an entry index or --session")
	}

	dataDir := mustDataDir()
	settings := mustLoadSettings(dataDir)
	store := mustOpenHistory(dataDir)
	defer store.Close()

	exec := buildExecutor(store, settings)

	var results []executor.UndoResult
	if undoSession != "" {
		var err error
		results, err = exec.UndoSession(undoSession)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				exitWithError(ExitDataError, "session not found: %s", undoSession)
			}
			exitWithError(ExitError, "%v", err)
		}
	} else {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			exitWithError(ExitError, "invalid index: %s", args[0])
		}
		res, err := exec.UndoEntry(index)
		if err != nil {
			if errors.Is(err, history.ErrNotFound) {
				exitWithError(ExitDataError, "no history entry %d", index)
			}
			exitWithError(ExitError, "%v", err)
		}
		results = []executor.UndoResult{*res}
	}

	if humanOutput {
		printUndoHuman(results)
		return nil
	}
	return outputJSON(results)
}
