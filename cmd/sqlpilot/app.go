package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/pario-ai/sqlpilot/pkg/backend"
	"github.com/pario-ai/sqlpilot/pkg/budget"
	"github.com/pario-ai/sqlpilot/pkg/config"
	"github.com/pario-ai/sqlpilot/pkg/executor"
	"github.com/pario-ai/sqlpilot/pkg/generator"
	"github.com/pario-ai/sqlpilot/pkg/history"
	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/observability"
	"github.com/pario-ai/sqlpilot/pkg/schema"
	"github.com/pario-ai/sqlpilot/pkg/tracker"
)

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracker  *tracker.SQLiteTracker
	history  *history.Logger
	budget   *budget.Enforcer
	schema   *schema.Provider
	executor *executor.Executor
	gen      *generator.Service

	closers []func() error
}

type appOptions struct {
	// withDatabase opens the target database even when a schema file is set.
	withDatabase bool
	// serving opens the database when server.execute_sql is set.
	serving bool
	// skipGenerator leaves gen nil, for commands that need no backend.
	skipGenerator bool
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, configPath string, opts appOptions) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: observability.NewLogger(cfg.Log, os.Stderr)}

	if err := a.init(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context, opts appOptions) error {
	cfg := a.cfg

	tr, err := tracker.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("init tracker: %w", err)
	}
	a.tracker = tr
	a.closers = append(a.closers, tr.Close)

	if cfg.History.Enabled {
		h, err := history.New(cfg.History)
		if err != nil {
			return fmt.Errorf("init history: %w", err)
		}
		a.history = h
		a.closers = append(a.closers, h.Close)
	}

	if cfg.Budget.Enabled {
		a.budget = budget.New(cfg.Budget.Policies, tr)
	}

	needDB := opts.withDatabase || (opts.serving && cfg.Server.ExecuteSQL)
	if needDB || (!opts.skipGenerator && cfg.SchemaFile == "" && cfg.Database.DSN != "") {
		ex, err := executor.Open(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.executor = ex
		a.closers = append(a.closers, ex.Close)
	}

	switch {
	case cfg.SchemaFile != "":
		a.schema = schema.NewProvider(schema.File(cfg.SchemaFile))
	case a.executor != nil:
		a.schema = schema.NewProvider(schema.NewSQLDiscoverer(a.executor.DB(), a.executor.Dialect()))
	}

	if opts.skipGenerator {
		return nil
	}

	chain, err := backend.NewChain(cfg.Providers)
	if err != nil {
		return err
	}
	if fb, ok := chain.(*backend.Fallback); ok {
		fb.Logger = a.logger
	}

	gopts := generator.Options{
		CacheSize:    cfg.CacheSize,
		RateLimit:    cfg.RateLimit,
		MaxTokens:    cfg.MaxTokens,
		ProviderName: cfg.Providers[0].Name,
		Tracker:      tr,
		Logger:       a.logger,
	}
	// Typed nils must not reach the generator's interface fields.
	if a.schema != nil {
		gopts.Schema = a.schema
	}
	if a.budget != nil {
		gopts.Budget = a.budget
	}
	if a.history != nil {
		gopts.History = a.history
	}

	a.gen, err = generator.New(chain, gopts)
	return err
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close", "error", err)
		}
	}
	a.closers = nil
}

// dialect resolves a command-line dialect against the configured default.
func (a *app) dialect(flag string) string {
	if flag != "" {
		return flag
	}
	return a.cfg.Dialect
}

// primaryProvider is the provider budgets are checked against.
func (a *app) primaryProvider() string {
	if len(a.cfg.Providers) == 0 {
		return ""
	}
	return a.cfg.Providers[0].Name
}

var errHistoryDisabled = errors.New("query history is disabled (set history.enabled in the config)")

func (a *app) requireHistory() (*history.Logger, error) {
	if a.history == nil {
		return nil, errHistoryDisabled
	}
	return a.history, nil
}

func printResultMeta(res *models.Result) {
	fmt.Fprintf(os.Stderr, "dialect=%s cached=%t complexity=%s score=%d",
		res.Dialect, res.Cached, res.Complexity.Risk, res.Complexity.Score)
	if res.Usage != nil {
		fmt.Fprintf(os.Stderr, " tokens=%d latency=%dms", res.Usage.TotalTokens, res.Latency.Milliseconds())
	}
	fmt.Fprintln(os.Stderr)
}
