package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sqlpilot/pkg/executor"
)

func newRunCmd(configPath *string) *cobra.Command {
	var (
		format    string
		statement bool
	)

	cmd := &cobra.Command{
		Use:   "run <request>",
		Short: "Generate a statement and execute it against the configured database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "table" && format != "json" {
				return fmt.Errorf("unknown --format %q (use table or json)", format)
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath, appOptions{withDatabase: true, skipGenerator: statement})
			if err != nil {
				return err
			}
			defer a.Close()

			stmt := strings.Join(args, " ")
			if !statement {
				res, err := a.gen.Generate(ctx, stmt, string(a.executor.Dialect()))
				if err != nil {
					return err
				}
				stmt = res.Statement
				fmt.Fprintln(os.Stderr, stmt)
			}

			rs, err := a.executor.Run(ctx, stmt)
			if err != nil {
				return err
			}
			if format == "json" {
				return executor.WriteJSON(os.Stdout, rs)
			}
			return executor.WriteTable(os.Stdout, rs)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format: table or json")
	cmd.Flags().BoolVar(&statement, "statement", false, "treat the argument as SQL and skip generation")
	return cmd
}
