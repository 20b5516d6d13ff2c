package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

func newCostCmd(configPath *string) *cobra.Command {
	var (
		provider string
		since    string
	)

	cmd := &cobra.Command{
		Use:   "cost",
		Short: "Show estimated generation costs by provider and model",
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceTime, err := parseSince(since, beginningOfMonth())
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), *configPath, appOptions{skipGenerator: true})
			if err != nil {
				return err
			}
			defer a.Close()

			reports, err := a.tracker.CostReport(cmd.Context(), sinceTime, provider)
			if err != nil {
				return err
			}
			models.ApplyPricing(reports, a.cfg.Pricing)
			fmt.Print(formatCostTable(reports))
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "", "filter by provider")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD, default: start of month)")
	return cmd
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func parseSince(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
	}
	return t, nil
}

func formatCostTable(reports []models.CostReport) string {
	if len(reports) == 0 {
		return "No cost data found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-25s %8s %12s %10s\n", "PROVIDER", "MODEL", "REQUESTS", "TOKENS", "EST. COST")
	b.WriteString(strings.Repeat("-", 74) + "\n")

	var total float64
	for _, r := range reports {
		fmt.Fprintf(&b, "%-15s %-25s %8d %12d $%9.4f\n",
			r.Provider, r.Model, r.RequestCount, r.TotalTokens, r.EstimatedCost)
		total += r.EstimatedCost
	}
	b.WriteString(strings.Repeat("-", 74) + "\n")
	fmt.Fprintf(&b, "%62s $%9.4f\n", "TOTAL:", total)
	return b.String()
}
