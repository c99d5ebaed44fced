package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/filename"
)

func init() {
	rootCmd.AddCommand(templatesCmd)
}

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the built-in filename templates",
	Long: `List the built-in filename templates.

Placeholders: {author} {title} {year} {journal} {publisher}.
Select a preset with 'refile config template <name>', or store your own
with 'refile config custom-template "<template>"'.`,
	Args: cobra.NoArgs,
	RunE: runTemplates,
}

func runTemplates(cmd *cobra.Command, args []string) error {
	if !humanOutput {
		return outputJSON(map[string]interface{}{
			"presets": filename.Presets,
			"default": filename.DefaultPreset,
		})
	}

	names := make([]string, 0, len(filename.Presets))
	for name := range filename.Presets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		marker := " "
		if name == filename.DefaultPreset {
			marker = "*"
		}
		fmt.Printf("%s %-11s %s\n", marker, name, filename.Presets[name])
	}
	return nil
}
