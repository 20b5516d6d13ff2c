package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

func tempCfg(t *testing.T) models.HistoryConfig {
	t.Helper()
	return models.HistoryConfig{
		Enabled:          true,
		DBPath:           filepath.Join(t.TempDir(), "history_test.db"),
		RetentionDays:    30,
		IncludeInput:     true,
		MaxStatementSize: 1024,
	}
}

func mustNew(t *testing.T, cfg models.HistoryConfig) *Logger {
	t.Helper()
	l, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func sampleEntry() models.HistoryEntry {
	return models.HistoryEntry{
		RequestID:        "req-001",
		Input:            "Get all users",
		Dialect:          "mysql",
		Statement:        "SELECT * FROM users;",
		Provider:         "openai",
		Model:            "gpt-4o-mini",
		Status:           models.HistoryOK,
		PromptTokens:     10,
		CompletionTokens: 20,
		TotalTokens:      30,
		LatencyMs:        150,
		CreatedAt:        time.Now(),
	}
}

func TestLogAndQuery(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	if err := l.Log(ctx, sampleEntry()); err != nil {
		t.Fatalf("Log: %v", err)
	}

	entries, err := l.Query(ctx, models.HistoryQueryOpts{Dialect: "mysql"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Input != "Get all users" || e.Statement != "SELECT * FROM users;" || e.TotalTokens != 30 {
		t.Errorf("unexpected entry: %+v", e)
	}
}

func TestQueryFilters(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	failed := sampleEntry()
	failed.RequestID = "req-002"
	failed.Dialect = "mssql"
	failed.Status = models.HistoryFailed
	failed.Error = "prohibited keyword DROP"
	failed.Statement = ""
	_ = l.Log(ctx, failed)

	entries, _ := l.Query(ctx, models.HistoryQueryOpts{Status: models.HistoryFailed})
	if len(entries) != 1 || entries[0].Error == "" {
		t.Fatalf("expected 1 failed entry with error, got %+v", entries)
	}

	entries, _ = l.Query(ctx, models.HistoryQueryOpts{RequestID: "req-001"})
	if len(entries) != 1 || entries[0].Dialect != "mysql" {
		t.Errorf("unexpected request id lookup: %+v", entries)
	}

	entries, _ = l.Query(ctx, models.HistoryQueryOpts{Limit: 1})
	if len(entries) != 1 {
		t.Errorf("limit not applied, got %d", len(entries))
	}
}

func TestExcludeInput(t *testing.T) {
	cfg := tempCfg(t)
	cfg.IncludeInput = false
	l := mustNew(t, cfg)
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	entries, _ := l.Query(ctx, models.HistoryQueryOpts{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Input != "" {
		t.Errorf("expected input dropped, got %q", entries[0].Input)
	}
}

func TestStatementTruncation(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxStatementSize = 10
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Statement = "SELECT " + strings.Repeat("x", 100)
	_ = l.Log(ctx, entry)

	entries, _ := l.Query(ctx, models.HistoryQueryOpts{})
	if len(entries[0].Statement) != 10 {
		t.Errorf("expected statement truncated to 10, got %d", len(entries[0].Statement))
	}
}

func TestCleanup(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 1
	l := mustNew(t, cfg)
	ctx := context.Background()

	old := sampleEntry()
	old.CreatedAt = time.Now().AddDate(0, 0, -2)
	_ = l.Log(ctx, old)
	recent := sampleEntry()
	recent.RequestID = "req-002"
	_ = l.Log(ctx, recent)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}
	entries, _ := l.Query(ctx, models.HistoryQueryOpts{})
	if len(entries) != 1 || entries[0].RequestID != "req-002" {
		t.Errorf("expected recent entry kept, got %+v", entries)
	}
}

func TestCleanupZeroRetentionKeepsEverything(t *testing.T) {
	cfg := tempCfg(t)
	cfg.RetentionDays = 0
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	entry.CreatedAt = time.Now().Add(-time.Minute)
	_ = l.Log(ctx, entry)

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected nothing deleted, got %d", deleted)
	}
	entries, _ := l.Query(ctx, models.HistoryQueryOpts{})
	if len(entries) != 1 {
		t.Errorf("expected entry kept, got %d", len(entries))
	}
}

func TestLogSameRequestIDKeepsBoth(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	first := sampleEntry()
	first.RequestID = "client-id"
	first.Input = "first"
	first.CreatedAt = time.Now().Add(-time.Second)
	second := first
	second.Input = "second"
	second.CreatedAt = time.Now()

	if err := l.Log(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := l.Log(ctx, second); err != nil {
		t.Fatal(err)
	}

	entries, err := l.Query(ctx, models.HistoryQueryOpts{RequestID: "client-id"})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Input != "second" || entries[1].Input != "first" {
		t.Errorf("unexpected order: %q, %q", entries[0].Input, entries[1].Input)
	}
	if entries[0].ID == entries[1].ID {
		t.Error("expected distinct ids")
	}
}

func TestStatementTruncationKeepsRunes(t *testing.T) {
	cfg := tempCfg(t)
	cfg.MaxStatementSize = 10
	l := mustNew(t, cfg)
	ctx := context.Background()

	entry := sampleEntry()
	// "é" is two bytes; a cut at byte 10 would split the fifth one.
	entry.Statement = "x" + strings.Repeat("é", 10)
	_ = l.Log(ctx, entry)

	entries, _ := l.Query(ctx, models.HistoryQueryOpts{})
	got := entries[0].Statement
	if !utf8.ValidString(got) {
		t.Fatalf("truncated statement is not valid UTF-8: %q", got)
	}
	if got != "x"+strings.Repeat("é", 4) {
		t.Errorf("unexpected truncation %q", got)
	}
}

func TestStats(t *testing.T) {
	l := mustNew(t, tempCfg(t))
	ctx := context.Background()

	_ = l.Log(ctx, sampleEntry())
	e2 := sampleEntry()
	e2.RequestID = "req-002"
	e2.Cached = true
	_ = l.Log(ctx, e2)
	e3 := sampleEntry()
	e3.RequestID = "req-003"
	e3.Status = models.HistoryFailed
	_ = l.Log(ctx, e3)

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if len(stats) == 0 {
		t.Fatal("expected stats")
	}
	if stats[0].Count != 3 || stats[0].Cached != 1 || stats[0].Failed != 1 {
		t.Errorf("unexpected stat: %+v", stats[0])
	}
}

func TestRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	if RequestID(ctx) != "abc" {
		t.Error("expected request id from context")
	}
	a, b := RequestID(context.Background()), RequestID(context.Background())
	if a == "" || a == b {
		t.Errorf("expected fresh ids, got %q %q", a, b)
	}
}

func TestNilLoggerSafe(t *testing.T) {
	var l *Logger
	if err := l.Log(context.Background(), sampleEntry()); err != nil {
		t.Errorf("nil logger should be safe: %v", err)
	}
}

func TestNewInvalidPath(t *testing.T) {
	cfg := models.HistoryConfig{
		Enabled: true,
		DBPath:  filepath.Join(os.TempDir(), "nonexistent", "deep", "path", "history.db"),
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for invalid path")
	}
}
