package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

func formatResult(r *models.Result) string {
	var b strings.Builder
	b.WriteString(r.Statement)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "dialect: %s  cached: %t  complexity: %s (score %d)\n",
		r.Dialect, r.Cached, r.Complexity.Risk, r.Complexity.Score)
	if r.Usage != nil {
		fmt.Fprintf(&b, "tokens: %d prompt, %d completion, %d total  latency: %dms\n",
			r.Usage.PromptTokens, r.Usage.CompletionTokens, r.Usage.TotalTokens, r.Latency.Milliseconds())
	}
	return b.String()
}

func formatSummary(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-25s %8s %10s %10s %10s %8s\n",
		"Provider", "Model", "Requests", "Prompt", "Completion", "Total", "Avg ms")
	b.WriteString(strings.Repeat("-", 92) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-15s %-25s %8d %10d %10d %10d %8d\n",
			r.Provider, r.Model, r.RequestCount, r.TotalPrompt, r.TotalCompletion, r.TotalTokens, r.AvgLatencyMs)
	}
	return b.String()
}

func formatCostReport(reports []models.CostReport) string {
	if len(reports) == 0 {
		return "No usage data found for the given period."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-25s %8s %12s %10s\n", "Provider", "Model", "Requests", "Tokens", "Cost")
	b.WriteString(strings.Repeat("-", 74) + "\n")
	var total float64
	for _, r := range reports {
		fmt.Fprintf(&b, "%-15s %-25s %8d %12d %10s\n",
			r.Provider, r.Model, r.RequestCount, r.TotalTokens, fmt.Sprintf("$%.4f", r.EstimatedCost))
		total += r.EstimatedCost
	}
	fmt.Fprintf(&b, "\nTotal estimated cost: $%.4f\n", total)
	return b.String()
}

func formatBudgetStatus(statuses []models.BudgetStatus) string {
	if len(statuses) == 0 {
		return "No budget policies found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-15s %-8s %12s %12s %12s %6s\n",
		"Provider", "Period", "Max Tokens", "Used", "Remaining", "Usage%")
	b.WriteString(strings.Repeat("-", 70) + "\n")
	for _, s := range statuses {
		pct := float64(0)
		if s.Policy.MaxTokens > 0 {
			pct = float64(s.Used) / float64(s.Policy.MaxTokens) * 100
		}
		fmt.Fprintf(&b, "%-15s %-8s %12d %12d %12d %5.1f%%\n",
			s.Policy.Provider, s.Policy.Period, s.Policy.MaxTokens, s.Used, s.Remaining, pct)
	}
	return b.String()
}

func formatCacheStats(stats models.CacheStats) string {
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:   %d / %d\n"+
		"  Hits:      %d\n"+
		"  Misses:    %d\n"+
		"  Evictions: %d\n"+
		"  Hit Rate:  %.1f%%\n",
		stats.Entries, stats.Capacity, stats.Hits, stats.Misses, stats.Evictions, stats.HitRate()*100)
}

func formatHistory(entries []models.HistoryEntry) string {
	if len(entries) == 0 {
		return "No history entries found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-10s %-7s %-6s %s\n", "Time", "Dialect", "Status", "Cached", "Statement / Error")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	for _, e := range entries {
		detail := e.Statement
		if e.Status == models.HistoryFailed {
			detail = e.Error
		}
		if len(detail) > 60 {
			detail = detail[:57] + "..."
		}
		fmt.Fprintf(&b, "%-20s %-10s %-7s %-6t %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Dialect, e.Status, e.Cached, detail)
	}
	return b.String()
}
