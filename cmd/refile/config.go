package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/config"
	"github.com/refile/refile/internal/filename"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Get or set configuration values",
	Long: `Get or set configuration values.

Usage:
  refile config                                # Show all config
  refile config template                       # Get specific value
  refile config template compact               # Select a preset
  refile config custom-template "{year} {title}"
  refile config zotero-api-key <key>
  refile config zotero-library-id 12345
  refile config zotero-library-type user

Keys:
  template             Preset name (standard, journal, year-first, compact) or "custom"
  custom-template      Template used when template is "custom"
  zotero-api-key       Zotero Web API key
  zotero-library-id    Numeric Zotero library id
  zotero-library-type  "user" or "group"`,
	Args: cobra.MaximumNArgs(2),
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	dataDir := mustDataDir()
	settings, err := config.LoadSettings(dataDir)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	// No args: show all config
	if len(args) == 0 {
		if humanOutput {
			fmt.Printf("template:             %s\n", settings.Template)
			fmt.Printf("custom-template:      %s\n", settings.CustomTemplate)
			fmt.Printf("zotero-api-key:       %s\n", maskSecret(settings.ZoteroAPIKey))
			fmt.Printf("zotero-library-id:    %s\n", settings.ZoteroLibraryID)
			fmt.Printf("zotero-library-type:  %s\n", settings.ZoteroLibraryType)
		} else {
			outputJSON(settings)
		}
		return nil
	}

	key := normalizeKey(args[0])

	// One arg: get specific value
	if len(args) == 1 {
		value, ok := settingValue(settings, key)
		if !ok {
			exitWithError(ExitError, "unknown configuration key: %s", args[0])
		}
		if humanOutput {
			fmt.Println(value)
		} else {
			outputJSON(map[string]string{strings.ReplaceAll(key, "-", "_"): value})
		}
		return nil
	}

	// Two args: set value
	value := args[1]
	switch key {
	case "template":
		if value != "custom" {
			if _, ok := filename.Presets[value]; !ok {
				exitWithError(ExitError, "unknown template preset: %s", value)
			}
		}
		settings.Template = value

	case "custom-template":
		if err := config.ValidateTemplate(value); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		settings.CustomTemplate = value

	case "zotero-api-key":
		settings.ZoteroAPIKey = value

	case "zotero-library-id":
		settings.ZoteroLibraryID = value

	case "zotero-library-type":
		if err := config.ValidateLibraryType(value); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		settings.ZoteroLibraryType = value

	default:
		exitWithError(ExitError, "unknown configuration key: %s", args[0])
	}

	if err := settings.Save(dataDir); err != nil {
		exitWithError(ExitError, "saving settings: %v", err)
	}

	if humanOutput {
		fmt.Printf("Updated %s\n", key)
		return nil
	}
	return outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
}

func settingValue(s *config.Settings, key string) (string, bool) {
	switch key {
	case "template":
		return s.Template, true
	case "custom-template":
		return s.CustomTemplate, true
	case "zotero-api-key":
		return s.ZoteroAPIKey, true
	case "zotero-library-id":
		return s.ZoteroLibraryID, true
	case "zotero-library-type":
		return s.ZoteroLibraryType, true
	}
	return "", false
}

// normalizeKey converts key formats (custom_template, customTemplate) to kebab case.
func normalizeKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "_", "-")
	return key
}

// maskSecret hides all but the last four characters of a credential.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
