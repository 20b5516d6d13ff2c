package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBudgetCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect token budgets",
	}

	var provider string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, appOptions{skipGenerator: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.budget == nil {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}
			if provider == "" {
				provider = a.primaryProvider()
			}

			statuses, err := a.budget.Status(cmd.Context(), provider)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Println("No budget policies apply to this provider.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "POLICY\tMODEL\tPERIOD\tMAX TOKENS\tUSED\tREMAINING")
			for _, s := range statuses {
				model := s.Policy.Model
				if model == "" {
					model = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					s.Policy.Provider, model, s.Policy.Period, s.Policy.MaxTokens, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&provider, "provider", "", "provider name (default: first configured provider)")

	cmd.AddCommand(statusCmd)
	return cmd
}
