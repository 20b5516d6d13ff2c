// Package history keeps a searchable log of generation attempts in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

type ctxKey struct{}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// RequestID returns the request ID carried by ctx, or a new random one.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Logger writes and queries history entries in a dedicated SQLite database.
type Logger struct {
	db   *sql.DB
	cfg  models.HistoryConfig
	done chan struct{}
	wg   sync.WaitGroup
}

// New opens the history database, creates the schema and starts the
// hourly retention loop.
func New(cfg models.HistoryConfig) (*Logger, error) {
	db, err := sql.Open("sqlite", cfg.DBPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}

	l := &Logger{
		db:   db,
		cfg:  cfg,
		done: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.retentionLoop()

	return l, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS query_history (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id        TEXT NOT NULL,
		input             TEXT,
		dialect           TEXT NOT NULL,
		statement         TEXT,
		provider          TEXT,
		model             TEXT,
		cached            INTEGER NOT NULL DEFAULT 0,
		status            TEXT NOT NULL,
		error             TEXT,
		prompt_tokens     INTEGER,
		completion_tokens INTEGER,
		total_tokens      INTEGER,
		latency_ms        INTEGER,
		created_at        DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_request ON query_history(request_id)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_dialect ON query_history(dialect)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_created ON query_history(created_at)`)
	return err
}

// Log inserts an entry. Inputs are dropped unless IncludeInput is set, and
// statements are truncated to MaxStatementSize on a rune boundary. Entries
// sharing a request ID are kept side by side.
func (l *Logger) Log(ctx context.Context, entry models.HistoryEntry) error {
	if l == nil || l.db == nil {
		return nil
	}

	input := entry.Input
	if !l.cfg.IncludeInput {
		input = ""
	}
	stmt := entry.Statement
	if l.cfg.MaxStatementSize > 0 {
		stmt = truncate(stmt, l.cfg.MaxStatementSize)
	}
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO query_history
		(request_id, input, dialect, statement, provider, model, cached, status, error,
		 prompt_tokens, completion_tokens, total_tokens, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RequestID, input, entry.Dialect, stmt, entry.Provider, entry.Model,
		entry.Cached, entry.Status, entry.Error,
		entry.PromptTokens, entry.CompletionTokens, entry.TotalTokens,
		entry.LatencyMs, entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("log history: %w", err)
	}
	return nil
}

// Query returns entries matching the given options, newest first.
func (l *Logger) Query(ctx context.Context, opts models.HistoryQueryOpts) ([]models.HistoryEntry, error) {
	q := `SELECT id, request_id, input, dialect, statement, provider, model, cached, status, error,
		prompt_tokens, completion_tokens, total_tokens, latency_ms, created_at
		FROM query_history WHERE 1=1`
	var args []any

	if opts.RequestID != "" {
		q += " AND request_id = ?"
		args = append(args, opts.RequestID)
	}
	if opts.Dialect != "" {
		q += " AND dialect = ?"
		args = append(args, opts.Dialect)
	}
	if opts.Status != "" {
		q += " AND status = ?"
		args = append(args, opts.Status)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY created_at DESC, id DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		var input, stmt, provider, model, errMsg sql.NullString
		if err := rows.Scan(
			&e.ID, &e.RequestID, &input, &e.Dialect, &stmt, &provider, &model,
			&e.Cached, &e.Status, &errMsg,
			&e.PromptTokens, &e.CompletionTokens, &e.TotalTokens,
			&e.LatencyMs, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		e.Input = input.String
		e.Statement = stmt.String
		e.Provider = provider.String
		e.Model = model.String
		e.Error = errMsg.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Stats returns aggregate counts grouped by dialect and day.
func (l *Logger) Stats(ctx context.Context) ([]models.HistoryStat, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT dialect, date(created_at) as day, count(*) as cnt,
		        COALESCE(SUM(cached), 0), COALESCE(SUM(status = 'failed'), 0)
		 FROM query_history GROUP BY dialect, day ORDER BY day DESC, dialect`)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	defer rows.Close()

	var stats []models.HistoryStat
	for rows.Next() {
		var s models.HistoryStat
		var day sql.NullString
		if err := rows.Scan(&s.Dialect, &day, &s.Count, &s.Cached, &s.Failed); err != nil {
			return nil, fmt.Errorf("scan history stat: %w", err)
		}
		s.Day = day.String
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// Cleanup deletes entries older than the configured retention period.
// A retention of zero days or less keeps everything.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -l.cfg.RetentionDays)
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM query_history WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Logger) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Logger) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			_, _ = l.Cleanup(context.Background())
		}
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
