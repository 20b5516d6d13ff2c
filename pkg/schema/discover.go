package schema

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// Discoverer supplies schema snapshots.
type Discoverer interface {
	Discover(ctx context.Context) (models.Schema, error)
}

// Static is a Discoverer returning a fixed schema.
type Static models.Schema

// Discover returns the fixed schema.
func (s Static) Discover(context.Context) (models.Schema, error) {
	return models.Schema(s), nil
}

type dialectQueries struct {
	columns     string // table, column
	primaryKeys string // table, column
	foreignKeys string // table, column, ref table, ref column
}

var queries = map[models.Dialect]dialectQueries{
	models.DialectMySQL: {
		columns: `SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = DATABASE()
ORDER BY table_name, ordinal_position`,
		primaryKeys: `SELECT table_name, column_name
FROM information_schema.key_column_usage
WHERE table_schema = DATABASE() AND constraint_name = 'PRIMARY'
ORDER BY table_name, ordinal_position`,
		foreignKeys: `SELECT table_name, column_name, referenced_table_name, referenced_column_name
FROM information_schema.key_column_usage
WHERE table_schema = DATABASE() AND referenced_table_name IS NOT NULL
ORDER BY table_name, ordinal_position`,
	},
	models.DialectPostgreSQL: {
		columns: `SELECT table_name, column_name
FROM information_schema.columns
WHERE table_schema = current_schema()
ORDER BY table_name, ordinal_position`,
		primaryKeys: `SELECT kcu.table_name, kcu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
WHERE tc.table_schema = current_schema() AND tc.constraint_type = 'PRIMARY KEY'
ORDER BY kcu.table_name, kcu.ordinal_position`,
		foreignKeys: `SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
JOIN information_schema.constraint_column_usage ccu
  ON ccu.constraint_name = tc.constraint_name AND ccu.table_schema = tc.table_schema
WHERE tc.table_schema = current_schema() AND tc.constraint_type = 'FOREIGN KEY'
ORDER BY kcu.table_name, kcu.ordinal_position`,
	},
	models.DialectMSSQL: {
		columns: `SELECT TABLE_NAME, COLUMN_NAME
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = SCHEMA_NAME()
ORDER BY TABLE_NAME, ORDINAL_POSITION`,
		primaryKeys: `SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON kcu.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND kcu.TABLE_SCHEMA = tc.TABLE_SCHEMA
WHERE tc.TABLE_SCHEMA = SCHEMA_NAME() AND tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
ORDER BY kcu.TABLE_NAME, kcu.ORDINAL_POSITION`,
		foreignKeys: `SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME, ref.TABLE_NAME, ref.COLUMN_NAME
FROM INFORMATION_SCHEMA.REFERENTIAL_CONSTRAINTS rc
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
  ON kcu.CONSTRAINT_NAME = rc.CONSTRAINT_NAME
JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE ref
  ON ref.CONSTRAINT_NAME = rc.UNIQUE_CONSTRAINT_NAME AND ref.ORDINAL_POSITION = kcu.ORDINAL_POSITION
WHERE kcu.TABLE_SCHEMA = SCHEMA_NAME()
ORDER BY kcu.TABLE_NAME, kcu.ORDINAL_POSITION`,
	},
}

// SQLDiscoverer reads tables, columns and keys from information_schema.
type SQLDiscoverer struct {
	DB      *sql.DB
	Dialect models.Dialect
}

// NewSQLDiscoverer creates a discoverer for an open database handle.
func NewSQLDiscoverer(db *sql.DB, dialect models.Dialect) *SQLDiscoverer {
	return &SQLDiscoverer{DB: db, Dialect: dialect}
}

// Discover reads the current schema. Tables are ordered by name.
func (d *SQLDiscoverer) Discover(ctx context.Context) (models.Schema, error) {
	q, ok := queries[d.Dialect]
	if !ok {
		return models.Schema{}, fmt.Errorf("discover schema: no queries for dialect %q", d.Dialect)
	}

	var (
		index = make(map[string]int)
		s     models.Schema
	)
	table := func(name string) *models.Table {
		i, ok := index[name]
		if !ok {
			i = len(s.Tables)
			index[name] = i
			s.Tables = append(s.Tables, models.Table{Name: name})
		}
		return &s.Tables[i]
	}

	err := d.scan(ctx, q.columns, func(vals []string) {
		t := table(vals[0])
		t.Columns = append(t.Columns, vals[1])
	}, 2)
	if err != nil {
		return models.Schema{}, fmt.Errorf("discover columns: %w", err)
	}

	err = d.scan(ctx, q.primaryKeys, func(vals []string) {
		if i, ok := index[vals[0]]; ok {
			s.Tables[i].PrimaryKey = append(s.Tables[i].PrimaryKey, vals[1])
		}
	}, 2)
	if err != nil {
		return models.Schema{}, fmt.Errorf("discover primary keys: %w", err)
	}

	err = d.scan(ctx, q.foreignKeys, func(vals []string) {
		if i, ok := index[vals[0]]; ok {
			s.Tables[i].ForeignKeys = append(s.Tables[i].ForeignKeys, models.ForeignKey{
				Column:    vals[1],
				RefTable:  vals[2],
				RefColumn: vals[3],
			})
		}
	}, 4)
	if err != nil {
		return models.Schema{}, fmt.Errorf("discover foreign keys: %w", err)
	}

	return s, nil
}

func (d *SQLDiscoverer) scan(ctx context.Context, query string, fn func([]string), n int) error {
	rows, err := d.DB.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	vals := make([]string, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		fn(vals)
	}
	return rows.Err()
}
