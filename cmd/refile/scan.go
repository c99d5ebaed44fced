package main

import (
	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/scan"
)

var (
	scanTemplate string
	scanWorkers  int
)

func init() {
	scanCmd.Flags().StringVar(&scanTemplate, "template", "", "Filename template or preset (standard, journal, year-first, compact)")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 0, "Number of files processed concurrently")
	rootCmd.AddCommand(scanCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan <directory>",
	Short: "Propose renames for the PDFs in a directory",
	Long: `Scan a directory of PDFs and propose new filenames.

Each file is searched for a DOI or ISBN, the identifier is resolved
against bibliographic databases, and a filename is rendered from the
configured template. Nothing is renamed; use 'refile apply' for that.

Files without a match keep their current name and report confidence 0.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	plans := scanDirectory(cmd, args[0])
	if humanOutput {
		printPlansHuman(plans)
		return nil
	}
	return outputJSON(map[string]interface{}{
		"files": plans,
		"count": len(plans),
	})
}

// scanDirectory builds the planner from config and scans dir, exiting
// on failure. Shared by scan and apply.
func scanDirectory(cmd *cobra.Command, dir string) []scan.Plan {
	dataDir := mustDataDir()
	settings := mustLoadSettings(dataDir)
	tuning := mustLoadTuning(dataDir)

	template := scanTemplate
	if template == "" {
		template = settings.ActiveTemplate()
	}
	workers := scanWorkers
	if workers == 0 {
		workers = tuning.Workers
	}

	planner := scan.New(buildResolver(settings, tuning),
		scan.WithTemplate(template),
		scan.WithWorkers(workers))

	plans, err := planner.Scan(cmd.Context(), dir)
	if err != nil {
		exitWithError(ExitError, "scanning %s: %v", dir, err)
	}
	return plans
}
