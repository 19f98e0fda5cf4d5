package flags

// Package flags defines canonical CLI flag names shared across the CLI and the
// config file overlay. The overlay uses them to decide which file values a
// command-line flag already overrides.
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.Group, flags.FlagGroup, "", "...")
//	if cmd.Flags().Changed(flags.FlagGroup) { ... }
const (
	// Source
	FlagForge   = "forge"
	FlagBaseURL = "base-url"
	FlagToken   = "token"

	// Targeting
	FlagGroup    = "group"
	FlagImporter = "importer"
	FlagFetchers = "fetchers"
	FlagFeatured = "featured"

	// Jobs
	FlagFetcherJobs  = "fetcher-jobs"
	FlagImporterJobs = "importer-jobs"
	FlagRef          = "ref"
	FlagAllBranches  = "all-branches"

	// Enrichment
	FlagEnrich    = "enrich"
	FlagSearchURL = "search-url"

	// Output
	FlagFormat = "format"

	// Runtime
	FlagConcurrency = "concurrency"
	FlagTimeout     = "timeout"
	FlagVerbose     = "verbose"
	FlagLogLevel    = "log-level"
	FlagLogFormat   = "log-format"
	FlagConfig      = "config"

	// providers list
	FlagOnlyScheduled = "only-scheduled"
)
