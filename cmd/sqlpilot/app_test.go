package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
	"github.com/pario-ai/sqlpilot/pkg/prompt"
)

func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.yaml")
	if err := os.WriteFile(schemaPath, []byte("users: [id, name]\norders: [id, user_id]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf(`db_path: %s
schema_file: %s
dialect: postgresql
providers:
  - name: fixed
    type: static
    statement: SELECT id, name FROM users
history:
  enabled: true
  db_path: %s
%s`, filepath.Join(dir, "usage.db"), schemaPath, filepath.Join(dir, "history.db"), extra)
	path := filepath.Join(dir, "sqlpilot.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAppWiring(t *testing.T) {
	path := writeConfig(t, "")
	ctx := context.Background()

	a, err := newApp(ctx, path, appOptions{})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if a.executor != nil {
		t.Error("executor should not open without a dsn")
	}
	if a.schema == nil || a.history == nil || a.gen == nil {
		t.Fatal("expected schema, history and generator to be wired")
	}

	res, err := a.gen.Generate(ctx, "list users", a.dialect(""))
	if err != nil {
		t.Fatal(err)
	}
	if res.Statement != "SELECT id, name FROM users;" || res.Dialect != models.DialectPostgreSQL {
		t.Errorf("unexpected result %+v", res)
	}

	summaries, err := a.tracker.Summary(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(summaries) != 1 || summaries[0].Provider != "fixed" {
		t.Errorf("unexpected usage %+v", summaries)
	}

	entries, err := a.history.Query(ctx, models.HistoryQueryOpts{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Status != models.HistoryOK {
		t.Errorf("unexpected history %+v", entries)
	}
}

func TestAppWithoutGenerator(t *testing.T) {
	a, err := newApp(context.Background(), writeConfig(t, ""), appOptions{skipGenerator: true})
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	if a.gen != nil {
		t.Error("generator should not be built")
	}
	if a.primaryProvider() != "fixed" {
		t.Errorf("unexpected primary provider %q", a.primaryProvider())
	}
}

func TestAppRequiresDatabaseForRun(t *testing.T) {
	_, err := newApp(context.Background(), writeConfig(t, ""), appOptions{withDatabase: true})
	if err == nil || !strings.Contains(err.Error(), "dsn") {
		t.Fatalf("expected missing dsn error, got %v", err)
	}
}

func TestExitCode(t *testing.T) {
	if exitCode(fmt.Errorf("wrap: %w", prompt.ErrUnsupportedDialect)) != 2 {
		t.Error("unsupported dialect should be a usage error")
	}
	if exitCode(&optimizer.ValidationError{Keyword: "DROP"}) != 2 {
		t.Error("validation error should be a usage error")
	}
	if exitCode(errors.New("connection reset")) != 1 {
		t.Error("other errors should exit 1")
	}
}

func TestFormatCostTable(t *testing.T) {
	out := formatCostTable([]models.CostReport{
		{Provider: "openai", Model: "gpt-4o-mini", RequestCount: 3, TotalTokens: 900, EstimatedCost: 0.0125},
	})
	for _, want := range []string{"openai", "gpt-4o-mini", "$   0.0125"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if formatCostTable(nil) != "No cost data found.\n" {
		t.Error("unexpected empty output")
	}
}

func TestFormatHistoryDetailShowsAllEntries(t *testing.T) {
	out := formatHistoryDetail([]models.HistoryEntry{
		{ID: 2, RequestID: "client-id", Input: "second", Status: models.HistoryOK},
		{ID: 1, RequestID: "client-id", Input: "first", Status: models.HistoryOK},
	})
	for _, want := range []string{"#2", "#1", "second", "first"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	if formatHistoryDetail(nil) != "No entry found for that request ID.\n" {
		t.Error("unexpected empty output")
	}
}
