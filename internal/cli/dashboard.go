package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"fetcherdash/internal/config"
	"fetcherdash/internal/engine"
	"fetcherdash/internal/enrich"
	"fetcherdash/internal/flags"
	"fetcherdash/internal/forge"
	gh "fetcherdash/internal/github"
	gl "fetcherdash/internal/gitlab"
	"fetcherdash/internal/logging"
	"fetcherdash/internal/output"
	"fetcherdash/internal/transport"
)

func newDashboardCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Build the fetchers dashboard",
		Long: `Build the fetchers dashboard and write it to stdout.

For every fetcher project of the group (names ending in -fetcher), the report
shows its pipeline scheduler, its latest download and conversion jobs, the
latest importer jobs that indexed it and, with --enrich, its dataset and
series counts from the search index.

Authentication:
	gitlab: --token, then PRIVATE_TOKEN, then GITLAB_TOKEN (anonymous if none).
	github: --token, then GITHUB_TOKEN, GH_TOKEN, then gh auth token (required).

Output:
	--format html (default), markdown, text or json. The report is written only
	once complete; on any fatal error stdout stays empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, cfg)
		},
	}

	fs := cmd.Flags()

	// Targeting
	addTargetingFlags(fs, cfg)
	fs.StringVar(&cfg.Targeting.Importer, flags.FlagImporter, cfg.Targeting.Importer, "Importer project as NAMESPACE/PROJECT")

	// Jobs
	fs.IntVar(&cfg.Jobs.FetcherLimit, flags.FlagFetcherJobs, cfg.Jobs.FetcherLimit, "Latest jobs read per fetcher")
	fs.IntVar(&cfg.Jobs.ImporterLimit, flags.FlagImporterJobs, cfg.Jobs.ImporterLimit, "Latest importer jobs read")
	fs.StringVar(&cfg.Jobs.Ref, flags.FlagRef, cfg.Jobs.Ref, "Only classify fetcher jobs of this branch")
	fs.BoolVar(&cfg.Jobs.AllBranches, flags.FlagAllBranches, false, "Classify fetcher jobs of every branch (ignores --ref)")

	// Enrichment
	fs.BoolVar(&cfg.Enrichment.Enabled, flags.FlagEnrich, false, "Add dataset and series counts from the search index")
	fs.StringVar(&cfg.Enrichment.SearchURL, flags.FlagSearchURL, "", "Solr core URL used by --enrich (e.g. https://host/solr/dbnomics)")

	// Output
	fs.StringVar(&cfg.Output.Format, flags.FlagFormat, cfg.Output.Format, "Report format: html|markdown|text|json")

	return cmd
}

func runDashboard(cmd *cobra.Command, cfg *config.Config) error {
	logger, err := prepare(cmd, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Runtime.Timeout)
	defer cancel()

	src, err := newSource(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var enricher engine.Enricher
	if cfg.Enrichment.Enabled {
		client, err := enrich.NewClient(cfg.Enrichment.SearchURL, logger, transport.WithVerbose(cfg.Runtime.Verbose, logger))
		if err != nil {
			return err
		}
		enricher = client
	}

	renderer, err := output.NewRenderer(cfg.Output.Format, output.Options{
		Color: output.ShouldColorize(cmd.OutOrStdout()),
	})
	if err != nil {
		return err
	}

	report, err := engine.NewEngine(src, enricher, logger).Run(ctx, cfg)
	if err != nil {
		return err
	}
	logger.Info("report built", "providers", len(report.Rows), "elapsed", report.Elapsed)

	var buf bytes.Buffer
	if err := renderer.Render(&buf, report); err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

// prepare overlays the config file, validates cfg and builds the stderr logger.
func prepare(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	if path := strings.TrimSpace(cfg.Runtime.ConfigFile); path != "" {
		file, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		if err := file.Apply(cfg, cmd.Flags().Changed); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Runtime.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", flags.FlagLogLevel, err)
	}
	if cfg.Runtime.Verbose {
		level = slog.LevelDebug
	}
	return logging.New(cmd.ErrOrStderr(), level, cfg.Runtime.LogFormat)
}

// newSource builds the forge backend selected by cfg. Tests replace it.
var newSource = func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (forge.Source, error) {
	opts := []transport.Option{
		transport.WithVerbose(cfg.Runtime.Verbose, logger),
		transport.WithBudget(transport.NewBudget()),
	}

	switch cfg.Source.Forge {
	case config.ForgeGitHub:
		token, source, err := gh.ResolveAuthToken(ctx, cfg.Source.Token, cfg.Source.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve GitHub auth token: %w", err)
		}
		if token == "" {
			return nil, errors.New("GitHub auth token is required (set GITHUB_TOKEN or run 'gh auth login')")
		}
		logger.Debug("auth token resolved", "forge", config.ForgeGitHub, "source", string(source))

		client, err := gh.NewClient(ctx, token, cfg.Source.BaseURL, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		token, source := gl.ResolveAuthToken(cfg.Source.Token)
		if token == "" {
			logger.Debug("no GitLab token found, reading anonymously")
		} else {
			logger.Debug("auth token resolved", "forge", config.ForgeGitLab, "source", string(source))
		}

		client, err := gl.NewClient(cfg.Source.BaseURL, token, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
