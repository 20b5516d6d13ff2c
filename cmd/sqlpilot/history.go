package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

func newHistoryCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query and manage the generation history",
	}
	cmd.AddCommand(
		newHistorySearchCmd(configPath),
		newHistoryShowCmd(configPath),
		newHistoryStatsCmd(configPath),
		newHistoryCleanupCmd(configPath),
	)
	return cmd
}

func newHistorySearchCmd(configPath *string) *cobra.Command {
	var (
		dialect string
		status  string
		since   string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			sinceTime, err := parseSince(since, time.Time{})
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), *configPath, appOptions{skipGenerator: true})
			if err != nil {
				return err
			}
			defer a.Close()
			h, err := a.requireHistory()
			if err != nil {
				return err
			}

			entries, err := h.Query(cmd.Context(), models.HistoryQueryOpts{
				Dialect: dialect,
				Status:  status,
				Since:   sinceTime,
				Limit:   limit,
			})
			if err != nil {
				return err
			}
			fmt.Print(formatHistoryEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&dialect, "dialect", "", "filter by dialect")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (ok or failed)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")
	return cmd
}

func newHistoryShowCmd(configPath *string) *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show every history entry recorded under a request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}
			a, err := newApp(cmd.Context(), *configPath, appOptions{skipGenerator: true})
			if err != nil {
				return err
			}
			defer a.Close()
			h, err := a.requireHistory()
			if err != nil {
				return err
			}

			entries, err := h.Query(cmd.Context(), models.HistoryQueryOpts{RequestID: requestID})
			if err != nil {
				return err
			}
			fmt.Print(formatHistoryDetail(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")
	return cmd
}

func newHistoryStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show history counts by dialect and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, appOptions{skipGenerator: true})
			if err != nil {
				return err
			}
			defer a.Close()
			h, err := a.requireHistory()
			if err != nil {
				return err
			}

			stats, err := h.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(formatHistoryStats(stats))
			return nil
		},
	}
}

func newHistoryCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete history entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, appOptions{skipGenerator: true})
			if err != nil {
				return err
			}
			defer a.Close()
			h, err := a.requireHistory()
			if err != nil {
				return err
			}

			deleted, err := h.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d history entries.\n", deleted)
			return nil
		},
	}
}

func formatHistoryEntries(entries []models.HistoryEntry) string {
	if len(entries) == 0 {
		return "No history entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-10s %-6s %-6s %8s %-19s\n",
		"REQUEST ID", "DIALECT", "STATUS", "CACHED", "TOKENS", "TIME")
	b.WriteString(strings.Repeat("-", 92) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-36s %-10s %-6s %-6t %8d %-19s\n",
			e.RequestID, e.Dialect, e.Status, e.Cached, e.TotalTokens,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatHistoryDetail(entries []models.HistoryEntry) string {
	if len(entries) == 0 {
		return "No entry found for that request ID.\n"
	}
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n" + strings.Repeat("=", 40) + "\n\n")
		}
		fmt.Fprintf(&b, "Entry:       #%d\n", e.ID)
		fmt.Fprintf(&b, "Request ID:  %s\n", e.RequestID)
		fmt.Fprintf(&b, "Time:        %s\n", e.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&b, "Dialect:     %s\n", e.Dialect)
		fmt.Fprintf(&b, "Status:      %s\n", e.Status)
		fmt.Fprintf(&b, "Cached:      %t\n", e.Cached)
		fmt.Fprintf(&b, "Provider:    %s %s\n", e.Provider, e.Model)
		fmt.Fprintf(&b, "Latency:     %dms\n", e.LatencyMs)
		fmt.Fprintf(&b, "Tokens:      %d prompt / %d completion / %d total\n",
			e.PromptTokens, e.CompletionTokens, e.TotalTokens)
		if e.Input != "" {
			fmt.Fprintf(&b, "\n--- Request ---\n%s\n", e.Input)
		}
		if e.Statement != "" {
			fmt.Fprintf(&b, "\n--- Statement ---\n%s\n", e.Statement)
		}
		if e.Error != "" {
			fmt.Fprintf(&b, "\n--- Error ---\n%s\n", e.Error)
		}
	}
	return b.String()
}

func formatHistoryStats(stats []models.HistoryStat) string {
	if len(stats) == 0 {
		return "No history stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-12s %8s %8s %8s\n", "DIALECT", "DAY", "COUNT", "CACHED", "FAILED")
	b.WriteString(strings.Repeat("-", 52) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-12s %-12s %8d %8d %8d\n", s.Dialect, s.Day, s.Count, s.Cached, s.Failed)
	}
	return b.String()
}
