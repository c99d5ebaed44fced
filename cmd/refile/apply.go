package main

import (
	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/executor"
	"github.com/refile/refile/internal/resolve"
)

var applyMinConfidence float64

func init() {
	applyCmd.Flags().StringVar(&scanTemplate, "template", "", "Filename template or preset (standard, journal, year-first, compact)")
	applyCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Number of files processed concurrently")
	applyCmd.Flags().Float64Var(&applyMinConfidence, "min-confidence", resolve.DefaultAcceptConfidence,
		"Only rename files whose metadata confidence meets this threshold")
	rootCmd.AddCommand(applyCmd)
}

var applyCmd = &cobra.Command{
	Use:   "apply <directory>",
	Short: "Scan a directory and rename the confidently matched PDFs",
	Long: `Scan a directory and immediately rename every file whose metadata
confidence meets the threshold. Files below the threshold, and files
already carrying their proposed name, are left alone.

All renames of one run share a session id; undo the whole run with
'refile undo --session <id>'.`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

func runApply(cmd *cobra.Command, args []string) error {
	plans := scanDirectory(cmd, args[0])

	var requests []executor.Request
	for _, p := range plans {
		if p.Confidence < applyMinConfidence {
			continue
		}
		if p.ProposedName == p.OriginalName {
			continue
		}
		requests = append(requests, executor.Request{
			OriginalPath: p.OriginalPath,
			NewName:      p.ProposedName,
			Source:       p.Source,
			Metadata:     p.Metadata,
		})
	}
	if len(requests) == 0 {
		exitWithError(ExitDataError, "nothing to rename in %s (scanned %d files)", args[0], len(plans))
	}

	dataDir := mustDataDir()
	settings := mustLoadSettings(dataDir)
	store := mustOpenHistory(dataDir)
	defer store.Close()

	exec := buildExecutor(store, settings)
	batch, err := exec.Execute(cmd.Context(), requests)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	exec.Flush()

	if humanOutput {
		printBatchHuman(batch)
		return nil
	}
	return outputJSON(batch)
}
