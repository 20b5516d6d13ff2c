// Package generator turns natural-language requests into validated,
// dialect-specific SQL statements.
//
// A Service owns one statement cache and one rate governor. A request runs
// dialect resolution, cache lookup, schema excerpting, prompt building,
// budget check, rate gate, backend generation, optimization and validation,
// in that order. The cache is written only after validation succeeds.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/backend"
	"github.com/pario-ai/sqlpilot/pkg/budget"
	"github.com/pario-ai/sqlpilot/pkg/cache"
	"github.com/pario-ai/sqlpilot/pkg/history"
	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/observability"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
	"github.com/pario-ai/sqlpilot/pkg/prompt"
	"github.com/pario-ai/sqlpilot/pkg/ratelimit"
)

// ErrEmptyInput is returned for blank requests.
var ErrEmptyInput = errors.New("empty input")

// Defaults applied to zero Options fields.
const (
	DefaultMaxTokens    = 150
	defaultProviderName = "default"
	explainSystem       = "You explain SQL queries to non-technical readers in plain language. Answer in a few sentences."
)

// ContextSource returns the schema excerpt relevant to a request.
type ContextSource interface {
	Context(ctx context.Context, input string) (string, error)
}

// UsageRecorder stores token usage. tracker.Tracker satisfies it.
type UsageRecorder interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// BudgetChecker rejects calls once a provider's budget is spent.
type BudgetChecker interface {
	Check(ctx context.Context, provider string) error
}

// HistoryWriter records generation attempts.
type HistoryWriter interface {
	Log(ctx context.Context, entry models.HistoryEntry) error
}

// Options configures a Service. Only the backend passed to New is required.
type Options struct {
	CacheSize    int
	RateLimit    int
	MaxTokens    int
	ProviderName string

	Schema    ContextSource
	Optimizer *optimizer.Optimizer
	Tracker   UsageRecorder
	Budget    BudgetChecker
	History   HistoryWriter
	Logger    *slog.Logger

	// Governor replaces the governor built from RateLimit.
	Governor *ratelimit.Governor
}

// Service generates statements.
type Service struct {
	backend   backend.Backend
	cache     *cache.Cache
	governor  *ratelimit.Governor
	optimizer *optimizer.Optimizer
	schema    ContextSource
	tracker   UsageRecorder
	budget    BudgetChecker
	history   HistoryWriter
	logger    *slog.Logger
	maxTokens int
	provider  string
}

// New creates a Service around b.
func New(b backend.Backend, opts Options) (*Service, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: no generation backend", backend.ErrMissingCredential)
	}
	s := &Service{
		backend:   b,
		cache:     cache.New(opts.CacheSize),
		governor:  opts.Governor,
		optimizer: opts.Optimizer,
		schema:    opts.Schema,
		tracker:   opts.Tracker,
		budget:    opts.Budget,
		history:   opts.History,
		logger:    opts.Logger,
		maxTokens: opts.MaxTokens,
		provider:  opts.ProviderName,
	}
	if s.governor == nil {
		s.governor = ratelimit.New(opts.RateLimit)
	}
	if s.optimizer == nil {
		s.optimizer = optimizer.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultMaxTokens
	}
	if s.provider == "" {
		s.provider = defaultProviderName
	}
	return s, nil
}

// Generate returns a validated statement for input in the given dialect.
// Cache hits return immediately with Cached set and no latency or usage.
func (s *Service) Generate(ctx context.Context, input, dialect string) (*models.Result, error) {
	entry := models.HistoryEntry{
		RequestID: history.RequestID(ctx),
		Input:     input,
		Dialect:   strings.ToLower(strings.TrimSpace(dialect)),
		CreatedAt: time.Now().UTC(),
	}

	res, err := s.generate(ctx, input, dialect)
	if err != nil {
		observability.ObserveGenerate(entry.Dialect, outcome(err))
		entry.Status = models.HistoryFailed
		entry.Error = err.Error()
		s.logHistory(ctx, entry)
		return nil, err
	}

	outcomeLabel := observability.OutcomeGenerated
	if res.Cached {
		outcomeLabel = observability.OutcomeCached
	}
	observability.ObserveGenerate(string(res.Dialect), outcomeLabel)

	entry.Dialect = string(res.Dialect)
	entry.Statement = res.Statement
	entry.Provider = res.Provider
	entry.Model = res.Model
	entry.Cached = res.Cached
	entry.Status = models.HistoryOK
	entry.LatencyMs = res.Latency.Milliseconds()
	if res.Usage != nil {
		entry.PromptTokens = res.Usage.PromptTokens
		entry.CompletionTokens = res.Usage.CompletionTokens
		entry.TotalTokens = res.Usage.TotalTokens
	}
	s.logHistory(ctx, entry)
	return res, nil
}

func (s *Service) generate(ctx context.Context, input, tag string) (*models.Result, error) {
	dialect, err := prompt.ParseDialect(tag)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	if stmt, ok := s.cache.Get(input, string(dialect)); ok {
		observability.ObserveCacheLookup(true)
		s.logger.DebugContext(ctx, "cache hit", "dialect", dialect)
		return &models.Result{
			Statement:  stmt,
			Dialect:    dialect,
			Cached:     true,
			Complexity: optimizer.Analyze(stmt),
		}, nil
	}
	observability.ObserveCacheLookup(false)

	var excerpt string
	if s.schema != nil {
		excerpt, err = s.schema.Context(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("schema context: %w", err)
		}
	}

	pair, err := prompt.Build(string(dialect), input, excerpt)
	if err != nil {
		return nil, err
	}

	gen, err := s.call(ctx, pair.System, pair.User, string(dialect))
	if err != nil {
		return nil, err
	}

	stmt := s.optimizer.Optimize(gen.Statement, dialect)
	if err := s.optimizer.Check(stmt); err != nil {
		s.logger.WarnContext(ctx, "rejected generated statement", "dialect", dialect, "error", err)
		return nil, err
	}

	s.cache.Set(input, string(dialect), stmt)

	complexity := optimizer.Analyze(stmt)
	if complexity.Risk == optimizer.RiskHigh {
		s.logger.WarnContext(ctx, "high complexity statement", "dialect", dialect, "score", complexity.Score)
	}

	return &models.Result{
		Statement:  stmt,
		Dialect:    dialect,
		Latency:    gen.Latency,
		Usage:      gen.Usage,
		Provider:   gen.Provider,
		Model:      gen.Model,
		Complexity: complexity,
	}, nil
}

// call runs the budget check, waits at the rate gate and invokes the
// backend. Backend failures come back as *backend.Error.
func (s *Service) call(ctx context.Context, system, user, dialect string) (models.Generation, error) {
	if s.budget != nil {
		if err := s.budget.Check(ctx, s.provider); err != nil {
			return models.Generation{}, err
		}
	}

	waited, err := s.governor.Admit(ctx)
	if err != nil {
		return models.Generation{}, err
	}
	observability.ObserveRateGateWait(waited)
	if waited > 0 {
		s.logger.DebugContext(ctx, "rate gate delayed call", "waited", waited.String())
	}

	gen, err := s.backend.Generate(ctx, system, user, s.maxTokens)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return models.Generation{}, err
		}
		var be *backend.Error
		if !errors.As(err, &be) {
			err = &backend.Error{Provider: s.provider, Err: err}
		}
		return models.Generation{}, err
	}
	if strings.TrimSpace(gen.Statement) == "" {
		return models.Generation{}, &backend.Error{Provider: gen.Provider, Err: errors.New("empty completion")}
	}
	if gen.Provider == "" {
		gen.Provider = s.provider
	}
	observability.ObserveBackendLatency(gen.Provider, gen.Latency)

	if s.tracker != nil {
		rec := models.UsageRecord{
			Provider:  gen.Provider,
			Model:     gen.Model,
			Dialect:   dialect,
			LatencyMs: gen.Latency.Milliseconds(),
			CreatedAt: time.Now().UTC(),
		}
		if gen.Usage != nil {
			rec.PromptTokens = gen.Usage.PromptTokens
			rec.CompletionTokens = gen.Usage.CompletionTokens
			rec.TotalTokens = gen.Usage.TotalTokens
		}
		if err := s.tracker.Record(ctx, rec); err != nil {
			s.logger.WarnContext(ctx, "record usage failed", "error", err)
		}
	}
	return gen, nil
}

// Explain asks the backend for a plain-language explanation of statement.
// Explanations share the rate gate and are never cached.
func (s *Service) Explain(ctx context.Context, statement string) (string, error) {
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return "", ErrEmptyInput
	}
	gen, err := s.call(ctx, explainSystem, "Explain this SQL query in simple terms: "+statement, "")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(gen.Statement), nil
}

// CacheStats reports the statement cache counters.
func (s *Service) CacheStats() models.CacheStats {
	return s.cache.Stats()
}

// SchemaUsage returns per-table selection counts when the schema source
// tracks them.
func (s *Service) SchemaUsage() map[string]int {
	if u, ok := s.schema.(interface{ Usage() map[string]int }); ok {
		return u.Usage()
	}
	return nil
}

// ClearCache drops all cached statements.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

func (s *Service) logHistory(ctx context.Context, entry models.HistoryEntry) {
	if s.history == nil {
		return
	}
	if err := s.history.Log(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.WarnContext(ctx, "history log failed", "error", err)
	}
}

func outcome(err error) string {
	var be *backend.Error
	switch {
	case errors.Is(err, prompt.ErrUnsupportedDialect):
		return observability.OutcomeUnsupported
	case errors.Is(err, optimizer.ErrUnsafeStatement):
		return observability.OutcomeRejected
	case errors.Is(err, budget.ErrBudgetExceeded):
		return observability.OutcomeBudget
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return observability.OutcomeCanceled
	case errors.As(err, &be):
		return observability.OutcomeBackendErr
	default:
		return observability.OutcomeError
	}
}
