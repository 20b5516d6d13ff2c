package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sqlpilot/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve sqlpilot tools over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, *configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			opts := mcp.Options{
				Generator:      a.gen,
				Tracker:        a.tracker,
				Pricing:        a.cfg.Pricing,
				DefaultDialect: a.cfg.Dialect,
				Version:        version,
				Logger:         a.logger,
			}
			if a.history != nil {
				opts.History = a.history
			}
			if a.budget != nil {
				opts.Budget = a.budget
			}
			return mcp.New(opts).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
