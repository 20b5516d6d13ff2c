package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newGenerateCmd(configPath *string) *cobra.Command {
	var (
		dialect string
		asJSON  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "generate <request>",
		Short: "Generate a SQL statement from a natural-language request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.gen.Generate(ctx, strings.Join(args, " "), a.dialect(dialect))
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			fmt.Println(res.Statement)
			if verbose {
				printResultMeta(res)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dialect, "dialect", "d", "", "target dialect: mysql, mssql or postgresql")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print dialect, complexity and token usage to stderr")
	return cmd
}
