package cli

import (
	"bytes"
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"fetcherdash/internal/config"
	"fetcherdash/internal/engine"
	"fetcherdash/internal/flags"
	"fetcherdash/internal/output"
)

func newProvidersCmd(cfg *config.Config) *cobra.Command {
	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "Inspect the provider set",
	}

	var onlyScheduled bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List provider slugs, one per line",
		Long: `List the slugs of the fetcher projects of the group, one per line, in
dashboard order. Featured providers are printed in bold on a terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			providers, err := engine.NewEngine(src, nil, logger).ListProviders(ctx, cfg, onlyScheduled)
			if err != nil {
				return err
			}

			bold := color.New(color.Bold)
			if output.ShouldColorize(cmd.OutOrStdout()) {
				bold.EnableColor()
			} else {
				bold.DisableColor()
			}

			var buf bytes.Buffer
			for _, p := range providers {
				if p.Featured {
					fmt.Fprintln(&buf, bold.Sprint(p.Slug))
					continue
				}
				fmt.Fprintln(&buf, p.Slug)
			}
			_, err = cmd.OutOrStdout().Write(buf.Bytes())
			return err
		},
	}
	addTargetingFlags(listCmd.Flags(), cfg)
	listCmd.Flags().BoolVar(&onlyScheduled, flags.FlagOnlyScheduled, false, "Only providers whose scheduler is active")

	providersCmd.AddCommand(listCmd)
	return providersCmd
}
