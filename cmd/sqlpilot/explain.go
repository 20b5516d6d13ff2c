package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newExplainCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <statement>",
		Short: "Explain a SQL statement in plain language",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			text, err := a.gen.Explain(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(text)
			return nil
		},
	}
}
