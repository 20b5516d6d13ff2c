package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/sqlpilot/pkg/history"
	"github.com/pario-ai/sqlpilot/pkg/models"
)

type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

var toolHandlers = map[string]toolHandler{
	"sqlpilot_generate":       handleGenerate,
	"sqlpilot_explain":        handleExplain,
	"sqlpilot_cache_stats":    handleCacheStats,
	"sqlpilot_usage":          handleUsage,
	"sqlpilot_cost_report":    handleCostReport,
	"sqlpilot_budget":         handleBudget,
	"sqlpilot_history_search": handleHistorySearch,
}

func stringProp(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

var allTools = []ToolDefinition{
	{
		Name:        "sqlpilot_generate",
		Description: "Translate a natural-language request into a validated SQL statement for MySQL, MSSQL or PostgreSQL.",
		InputSchema: objectSchema(map[string]any{
			"input":   stringProp("What the query should do, in plain language"),
			"dialect": stringProp("mysql, mssql or postgresql (optional, defaults to the configured dialect)"),
		}, "input"),
	},
	{
		Name:        "sqlpilot_explain",
		Description: "Explain what a SQL statement does in plain language.",
		InputSchema: objectSchema(map[string]any{
			"statement": stringProp("The SQL statement to explain"),
		}, "statement"),
	},
	{
		Name:        "sqlpilot_cache_stats",
		Description: "Show statement cache statistics (entries, hits, misses, evictions, hit rate).",
		InputSchema: objectSchema(map[string]any{}),
	},
	{
		Name:        "sqlpilot_usage",
		Description: "Show token usage per provider and model, optionally filtered by provider.",
		InputSchema: objectSchema(map[string]any{
			"provider": stringProp("Filter by provider name (optional)"),
		}),
	},
	{
		Name:        "sqlpilot_cost_report",
		Description: "Show estimated generation costs grouped by provider and model.",
		InputSchema: objectSchema(map[string]any{
			"provider": stringProp("Filter by provider name (optional)"),
			"since":    stringProp("Start date in YYYY-MM-DD format (optional, defaults to start of month)"),
		}),
	},
	{
		Name:        "sqlpilot_budget",
		Description: "Show token budget usage against configured limits, optionally for one provider.",
		InputSchema: objectSchema(map[string]any{
			"provider": stringProp("Provider name (optional)"),
		}),
	},
	{
		Name:        "sqlpilot_history_search",
		Description: "Search recorded generation attempts.",
		InputSchema: objectSchema(map[string]any{
			"dialect":    stringProp("Filter by dialect (optional)"),
			"status":     stringProp("ok or failed (optional)"),
			"since":      stringProp("Start date in YYYY-MM-DD format (optional)"),
			"request_id": stringProp("Filter by request ID (optional)"),
		}),
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{Content: []ContentBlock{{Type: "text", Text: text}}, IsError: true}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func parseSince(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since date (use YYYY-MM-DD): %w", err)
	}
	return t, nil
}

type generateArgs struct {
	Input   string `json:"input"`
	Dialect string `json:"dialect"`
}

func handleGenerate(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args generateArgs
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if args.Input == "" {
		return errorResult("input is required")
	}
	if args.Dialect == "" {
		args.Dialect = s.opts.DefaultDialect
	}
	ctx = history.WithRequestID(ctx, uuid.NewString())
	res, err := s.opts.Generator.Generate(ctx, args.Input, args.Dialect)
	if err != nil {
		return errorResult("Generation failed: " + err.Error())
	}
	return textResult(formatResult(res))
}

func handleExplain(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	var args struct {
		Statement string `json:"statement"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return errorResult("invalid arguments: " + err.Error())
	}
	if args.Statement == "" {
		return errorResult("statement is required")
	}
	text, err := s.opts.Generator.Explain(ctx, args.Statement)
	if err != nil {
		return errorResult("Explain failed: " + err.Error())
	}
	return textResult(text)
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatCacheStats(s.opts.Generator.CacheStats()))
}

type providerArgs struct {
	Provider string `json:"provider"`
	Since    string `json:"since"`
}

func handleUsage(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.opts.Tracker == nil {
		return textResult("Usage tracking is not configured.")
	}
	var args providerArgs
	_ = decodeArgs(raw, &args)
	rows, err := s.opts.Tracker.Summary(ctx, args.Provider)
	if err != nil {
		return errorResult("Error fetching usage: " + err.Error())
	}
	return textResult(formatSummary(rows))
}

func handleCostReport(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.opts.Tracker == nil {
		return textResult("Usage tracking is not configured.")
	}
	var args providerArgs
	_ = decodeArgs(raw, &args)
	since, err := parseSince(args.Since, beginningOfMonth())
	if err != nil {
		return errorResult(err.Error())
	}
	reports, err := s.opts.Tracker.CostReport(ctx, since, args.Provider)
	if err != nil {
		return errorResult("Error fetching cost report: " + err.Error())
	}
	models.ApplyPricing(reports, s.opts.Pricing)
	return textResult(formatCostReport(reports))
}

func handleBudget(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.opts.Budget == nil {
		return textResult("Budget enforcement is not configured.")
	}
	var args providerArgs
	_ = decodeArgs(raw, &args)
	statuses, err := s.opts.Budget.Status(ctx, args.Provider)
	if err != nil {
		return errorResult("Error fetching budget status: " + err.Error())
	}
	return textResult(formatBudgetStatus(statuses))
}

type historySearchArgs struct {
	Dialect   string `json:"dialect"`
	Status    string `json:"status"`
	Since     string `json:"since"`
	RequestID string `json:"request_id"`
}

func handleHistorySearch(ctx context.Context, s *Server, raw json.RawMessage) ToolCallResult {
	if s.opts.History == nil {
		return textResult("Query history is not configured.")
	}
	var args historySearchArgs
	_ = decodeArgs(raw, &args)
	since, err := parseSince(args.Since, time.Time{})
	if err != nil {
		return errorResult(err.Error())
	}
	entries, err := s.opts.History.Query(ctx, models.HistoryQueryOpts{
		Dialect:   args.Dialect,
		Status:    args.Status,
		Since:     since,
		RequestID: args.RequestID,
		Limit:     50,
	})
	if err != nil {
		return errorResult("Error searching history: " + err.Error())
	}
	return textResult(formatHistory(entries))
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
