package executor

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/pario-ai/sqlpilot/pkg/config"
	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
	"github.com/pario-ai/sqlpilot/pkg/prompt"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

func TestRunStripsFencesAndConvertsBytes(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(`^SELECT id, name FROM users;$`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), []byte("ada")).
			AddRow(int64(2), nil))

	ex := New(db, models.DialectMySQL, 0)
	rs, err := ex.Run(context.Background(), "```sql\nSELECT id, name FROM users;\n```")
	if err != nil {
		t.Fatal(err)
	}
	assertSQLMock(t, mock)

	if len(rs.Columns) != 2 || rs.Columns[1] != "name" {
		t.Errorf("unexpected columns %v", rs.Columns)
	}
	if len(rs.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rs.Rows))
	}
	if s, ok := rs.Rows[0][1].(string); !ok || s != "ada" {
		t.Errorf("expected string ada, got %#v", rs.Rows[0][1])
	}
	if rs.Rows[1][1] != nil {
		t.Errorf("expected nil, got %#v", rs.Rows[1][1])
	}
	if rs.Truncated {
		t.Error("should not be truncated")
	}
}

func TestRunCapsRows(t *testing.T) {
	db, mock := newSQLMock(t)
	rows := sqlmock.NewRows([]string{"n"})
	for i := range 5 {
		rows.AddRow(int64(i))
	}
	mock.ExpectQuery(`SELECT n FROM numbers`).WillReturnRows(rows)

	rs, err := New(db, models.DialectPostgreSQL, 3).Run(context.Background(), "SELECT n FROM numbers;")
	if err != nil {
		t.Fatal(err)
	}
	if len(rs.Rows) != 3 || !rs.Truncated {
		t.Errorf("expected 3 truncated rows, got %d truncated=%v", len(rs.Rows), rs.Truncated)
	}
}

func TestRunRefusesUnsafeStatement(t *testing.T) {
	db, mock := newSQLMock(t)
	_, err := New(db, models.DialectMySQL, 0).Run(context.Background(), "DELETE FROM users;")
	if !errors.Is(err, optimizer.ErrUnsafeStatement) {
		t.Fatalf("expected ErrUnsafeStatement, got %v", err)
	}
	assertSQLMock(t, mock)
}

func TestRunQueryError(t *testing.T) {
	db, mock := newSQLMock(t)
	mock.ExpectQuery(`SELECT`).WillReturnError(errors.New("no such table"))

	_, err := New(db, models.DialectMSSQL, 0).Run(context.Background(), "SELECT * FROM missing;")
	if err == nil || !strings.Contains(err.Error(), "no such table") {
		t.Fatalf("expected query error, got %v", err)
	}
}

func TestRunEmptyStatement(t *testing.T) {
	db, _ := newSQLMock(t)
	if _, err := New(db, models.DialectMySQL, 0).Run(context.Background(), "```\n```"); err == nil {
		t.Fatal("expected error for empty statement")
	}
}

func TestOpenValidation(t *testing.T) {
	if _, err := Open(context.Background(), config.DatabaseConfig{Dialect: "mysql"}); !errors.Is(err, ErrNoDSN) {
		t.Errorf("expected ErrNoDSN, got %v", err)
	}
	_, err := Open(context.Background(), config.DatabaseConfig{Dialect: "oracle", DSN: "x"})
	if !errors.Is(err, prompt.ErrUnsupportedDialect) {
		t.Errorf("expected ErrUnsupportedDialect, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	rs := &models.ResultSet{
		Columns: []string{"id", "name"},
		Rows:    [][]any{{int64(1), "ada"}},
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, rs); err != nil {
		t.Fatal(err)
	}
	var got []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["name"] != "ada" {
		t.Errorf("unexpected records %v", got)
	}
}

func TestWriteTable(t *testing.T) {
	rs := &models.ResultSet{
		Columns:   []string{"id", "name"},
		Rows:      [][]any{{int64(1), "ada"}, {int64(2), nil}},
		Truncated: true,
	}
	var buf bytes.Buffer
	if err := WriteTable(&buf, rs); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"id", "name", "ada", "NULL", "2 rows (truncated)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
