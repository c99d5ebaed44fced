// Package main provides the refile CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/refile/refile/internal/config"
	"github.com/refile/refile/internal/executor"
	"github.com/refile/refile/internal/history"
	"github.com/refile/refile/internal/metadata"
	"github.com/refile/refile/internal/resolve"
	"github.com/refile/refile/internal/sources"
	"github.com/refile/refile/internal/zotero"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "refile",
	Short: "Rename academic PDFs from bibliographic metadata",
	Long: `refile scans folders of academic PDFs, extracts DOIs and ISBNs,
resolves them against CrossRef, Semantic Scholar, Open Library, Google
Books and optionally a Zotero library, and renames the files with a
configurable template.

Every rename is recorded and can be undone, per file or per batch.
All commands output JSON by default; pass --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// mustDataDir creates the data directory, exits on error.
func mustDataDir() string {
	dir, err := config.EnsureDataDir()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return dir
}

// mustLoadSettings loads settings with env overlay, exits on error.
// A .env file in the working directory is honored for Zotero creds.
func mustLoadSettings(dataDir string) *config.Settings {
	_ = godotenv.Load()
	settings, err := config.LoadSettings(dataDir)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	settings.ApplyEnv()
	return settings
}

// mustLoadTuning loads resolver tuning, exits on error.
func mustLoadTuning(dataDir string) *config.Tuning {
	tuning, err := config.LoadTuning(dataDir)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return tuning
}

// mustOpenHistory opens the rename log, exits on error.
// The caller is responsible for calling Close() on the returned store.
func mustOpenHistory(dataDir string) *history.Store {
	store, err := history.Open(config.HistoryPath(dataDir))
	if err != nil {
		exitWithError(ExitError, "opening history: %v", err)
	}
	return store
}

// zoteroCredentials builds Zotero credentials from settings.
func zoteroCredentials(settings *config.Settings) zotero.Credentials {
	return zotero.Credentials{
		APIKey:      settings.ZoteroAPIKey,
		LibraryID:   settings.ZoteroLibraryID,
		LibraryType: settings.ZoteroLibraryType,
	}
}

// buildResolver wires the source chain from settings and tuning.
// Order matters: DOI-capable sources first, then ISBN lookups, then
// the user's Zotero library as a title fallback.
func buildResolver(settings *config.Settings, tuning *config.Tuning) *resolve.Resolver {
	var s2Opts []sources.SemanticScholarOption
	if key := os.Getenv("S2_API_KEY"); key != "" {
		s2Opts = append(s2Opts, sources.WithSemanticScholarAPIKey(key))
	}

	chain := []sources.Source{
		newCrossRef(tuning),
		newSemanticScholar(tuning, s2Opts...),
		newOpenLibrary(tuning),
		newGoogleBooks(tuning),
	}
	if creds := zoteroCredentials(settings); creds.Configured() {
		chain = append(chain, zotero.NewClient(creds))
	}

	var opts []resolve.Option
	if tuning.AcceptConfidence > 0 {
		opts = append(opts, resolve.WithAcceptConfidence(tuning.AcceptConfidence))
	}
	return resolve.New(chain, sourceConfigs(tuning), opts...)
}

func newCrossRef(tuning *config.Tuning) *sources.CrossRef {
	var opts []sources.CrossRefOption
	if st, ok := tuning.Sources[metadata.SourceCrossRef]; ok && st.RatePerSecond > 0 {
		opts = append(opts, sources.WithCrossRefRate(st.RatePerSecond))
	}
	return sources.NewCrossRef(opts...)
}

func newSemanticScholar(tuning *config.Tuning, opts ...sources.SemanticScholarOption) *sources.SemanticScholar {
	if st, ok := tuning.Sources[metadata.SourceSemanticScholar]; ok && st.RatePerSecond > 0 {
		opts = append(opts, sources.WithSemanticScholarRate(st.RatePerSecond))
	}
	return sources.NewSemanticScholar(opts...)
}

func newOpenLibrary(tuning *config.Tuning) *sources.OpenLibrary {
	var opts []sources.OpenLibraryOption
	if st, ok := tuning.Sources[metadata.SourceOpenLibrary]; ok && st.RatePerSecond > 0 {
		opts = append(opts, sources.WithOpenLibraryRate(st.RatePerSecond))
	}
	return sources.NewOpenLibrary(opts...)
}

func newGoogleBooks(tuning *config.Tuning) *sources.GoogleBooks {
	var opts []sources.GoogleBooksOption
	if st, ok := tuning.Sources[metadata.SourceGoogleBooks]; ok && st.RatePerSecond > 0 {
		opts = append(opts, sources.WithGoogleBooksRate(st.RatePerSecond))
	}
	return sources.NewGoogleBooks(opts...)
}

// sourceConfigs converts tuning into per-source resolver configs.
func sourceConfigs(tuning *config.Tuning) map[string]resolve.SourceConfig {
	cfgs := make(map[string]resolve.SourceConfig, len(tuning.Sources))
	for name, st := range tuning.Sources {
		cfgs[name] = resolve.SourceConfig{
			Timeout:     st.Timeout(),
			MaxAttempts: st.MaxAttempts,
		}
	}
	return cfgs
}

// buildExecutor wires the executor with library sync when configured.
func buildExecutor(store *history.Store, settings *config.Settings) *executor.Executor {
	opts := []executor.Option{}
	if creds := zoteroCredentials(settings); creds.Configured() {
		opts = append(opts, executor.WithLibrarySync(zotero.NewClient(creds)))
	}
	return executor.New(store, opts...)
}
