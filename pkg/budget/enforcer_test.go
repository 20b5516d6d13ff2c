package budget

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/tracker"
)

func setup(t *testing.T) (tracker.Tracker, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "budget_test.db")
	tr, err := tracker.New(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, context.Background()
}

func TestCheckUnderBudget(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o-mini",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Provider: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	if err := e.Check(ctx, "openai"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCheckExceeded(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o-mini",
		PromptTokens: 500, CompletionTokens: 600, TotalTokens: 1100,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Provider: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	err := e.Check(ctx, "openai")
	if err == nil {
		t.Fatal("expected budget exceeded error")
	}
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Errorf("expected ErrBudgetExceeded, got %v", err)
	}

	// Other providers have their own tally.
	if err := e.Check(ctx, "anthropic"); err != nil {
		t.Errorf("expected anthropic under budget, got %v", err)
	}
}

func TestModelPolicy(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o",
		TotalTokens: 600, CreatedAt: time.Now().UTC(),
	})
	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o-mini",
		TotalTokens: 100, CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Provider: "openai", Model: "gpt-4o-mini", MaxTokens: 500, Period: models.BudgetDaily},
	}, tr)
	if err := e.Check(ctx, "openai"); err != nil {
		t.Errorf("model policy should only count gpt-4o-mini, got %v", err)
	}
}

func TestStatus(t *testing.T) {
	tr, ctx := setup(t)

	_ = tr.Record(ctx, models.UsageRecord{
		Provider: "openai", Model: "gpt-4o-mini",
		PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150,
		CreatedAt: time.Now().UTC(),
	})

	e := New([]models.BudgetPolicy{
		{Provider: "*", MaxTokens: 1000, Period: models.BudgetDaily},
	}, tr)

	statuses, err := e.Status(ctx, "openai")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Used != 150 {
		t.Errorf("expected 150 used, got %d", statuses[0].Used)
	}
	if statuses[0].Remaining != 850 {
		t.Errorf("expected 850 remaining, got %d", statuses[0].Remaining)
	}
}

func TestSpecificProviderPolicy(t *testing.T) {
	tr, ctx := setup(t)

	e := New([]models.BudgetPolicy{
		{Provider: "openai", MaxTokens: 500, Period: models.BudgetDaily},
		{Provider: "*", MaxTokens: 10000, Period: models.BudgetDaily},
	}, tr)

	// anthropic should only match wildcard
	statuses, err := e.Status(ctx, "anthropic")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status for anthropic, got %d", len(statuses))
	}

	// openai should match both
	statuses, err = e.Status(ctx, "openai")
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses for openai, got %d", len(statuses))
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 3, 17, 15, 4, 5, 0, time.UTC)
	if got := periodStart(now, models.BudgetDaily); !got.Equal(time.Date(2025, 3, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected daily start %v", got)
	}
	if got := periodStart(now, models.BudgetMonthly); !got.Equal(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected monthly start %v", got)
	}
}
