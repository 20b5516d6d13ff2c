// Package executor runs generated statements against a target database.
package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	"github.com/pario-ai/sqlpilot/pkg/config"
	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
	"github.com/pario-ai/sqlpilot/pkg/prompt"
)

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("database dsn is not configured")

// DefaultMaxRows caps result sets when the config leaves max_rows unset.
const DefaultMaxRows = 1000

const pingTimeout = 5 * time.Second

var drivers = map[models.Dialect]string{
	models.DialectMySQL:      "mysql",
	models.DialectMSSQL:      "sqlserver",
	models.DialectPostgreSQL: "pgx",
}

// Executor runs statements and collects their rows.
type Executor struct {
	db      *sql.DB
	dialect models.Dialect
	maxRows int
}

// Open connects to the configured database and verifies it with a ping.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Executor, error) {
	if cfg.DSN == "" {
		return nil, ErrNoDSN
	}
	dialect, err := prompt.ParseDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(drivers[dialect], cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return New(db, dialect, cfg.MaxRows), nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect models.Dialect, maxRows int) *Executor {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}
	return &Executor{db: db, dialect: dialect, maxRows: maxRows}
}

// Dialect reports the dialect of the target database.
func (e *Executor) Dialect() models.Dialect { return e.dialect }

// DB exposes the handle for schema discovery.
func (e *Executor) DB() *sql.DB { return e.db }

// Run executes statement and returns at most maxRows rows. Markdown fences
// around the statement are removed first. Unsafe statements are refused.
func (e *Executor) Run(ctx context.Context, statement string) (*models.ResultSet, error) {
	stmt := strings.TrimSpace(optimizer.StripFences(statement))
	if stmt == "" {
		return nil, errors.New("empty statement")
	}
	if err := optimizer.New().Check(stmt); err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	rs := &models.ResultSet{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(rs.Rows) == e.maxRows {
			rs.Truncated = true
			break
		}
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return rs, nil
}

// Close closes the database handle.
func (e *Executor) Close() error {
	return e.db.Close()
}
