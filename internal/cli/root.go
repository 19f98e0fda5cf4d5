package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fetcherdash/internal/config"
	"fetcherdash/internal/flags"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

const (
	exitOK    = 0
	exitFatal = 3
)

func newRootCmd() (*cobra.Command, *config.Config) {
	cfg := config.New()

	rootCmd := &cobra.Command{
		Use:   "fetcherdash",
		Short: "Aggregate the CI status of the DBnomics fetchers into one dashboard",
		Long: `fetcherdash reads the CI jobs of every DBnomics fetcher project and of the
shared importer, and builds a one-page dashboard: scheduler state, latest
download, conversion and indexation jobs, and dataset/series counts.

fetcherdash is read-only: it never triggers or edits jobs or schedules.

Examples:
	# Build the HTML dashboard from git.nomics.world
	fetcherdash dashboard > index.html

	# Terminal table for two providers, with counts from the search index
	fetcherdash dashboard --fetchers ecb,imf --format text \
		--enrich --search-url https://solr.example.org/solr/dbnomics

	# Providers that have an active scheduler
	fetcherdash providers list --only-scheduled

Exit codes:
	0 = report emitted
	3 = fatal error (nothing written to stdout)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every API call and full error details)")
	pf.StringVar(&cfg.Runtime.LogLevel, flags.FlagLogLevel, cfg.Runtime.LogLevel, "Log level: debug|info|warn|error")
	pf.StringVar(&cfg.Runtime.LogFormat, flags.FlagLogFormat, cfg.Runtime.LogFormat, "Log format: text|json")
	pf.StringVar(&cfg.Runtime.ConfigFile, flags.FlagConfig, "", "YAML config file; explicit flags take precedence")

	pf.StringVar(&cfg.Source.Forge, flags.FlagForge, cfg.Source.Forge, "CI backend: gitlab|github")
	pf.StringVar(&cfg.Source.BaseURL, flags.FlagBaseURL, cfg.Source.BaseURL, "Forge root URL (github: empty for github.com, or a GHES root)")
	pf.StringVar(&cfg.Source.Token, flags.FlagToken, "", "Access token (default: PRIVATE_TOKEN/GITLAB_TOKEN or GITHUB_TOKEN/gh auth token)")

	rootCmd.AddCommand(
		newDashboardCmd(cfg),
		newProvidersCmd(cfg),
		newVersionCmd(),
	)

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	return rootCmd, cfg
}

// addTargetingFlags registers the flags shared by every command that
// enumerates providers.
func addTargetingFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Targeting.Group, flags.FlagGroup, cfg.Targeting.Group, "Group (GitLab) or organization (GitHub) holding the fetcher projects")
	fs.StringSliceVar(&cfg.Targeting.Fetchers, flags.FlagFetchers, nil, "Only these provider slugs (repeatable; comma-separated accepted)")
	fs.StringSliceVar(&cfg.Targeting.Featured, flags.FlagFeatured, nil, "Highlight these provider slugs (repeatable; comma-separated accepted)")
	fs.IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Fetchers processed concurrently")
	fs.DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	rootCmd, cfg := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", presentError(err, cfg.Runtime.Verbose))
		return exitFatal
	}
	return exitOK
}
