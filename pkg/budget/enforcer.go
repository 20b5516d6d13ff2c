package budget

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/tracker"
)

// ErrBudgetExceeded is returned when a provider has used up its token budget.
var ErrBudgetExceeded = errors.New("budget exceeded")

// Enforcer checks token usage against budget policies.
type Enforcer struct {
	policies []models.BudgetPolicy
	tracker  tracker.Tracker
	now      func() time.Time
}

// New creates an Enforcer with the given policies and tracker.
func New(policies []models.BudgetPolicy, t tracker.Tracker) *Enforcer {
	return &Enforcer{policies: policies, tracker: t, now: time.Now}
}

// Check returns an error wrapping ErrBudgetExceeded if the provider has
// exceeded any applicable policy.
func (e *Enforcer) Check(ctx context.Context, provider string) error {
	for _, p := range e.policiesFor(provider) {
		used, err := e.used(ctx, provider, p)
		if err != nil {
			return fmt.Errorf("budget check: %w", err)
		}
		if used >= p.MaxTokens {
			return fmt.Errorf("%w: provider %s used %d of %d %s tokens", ErrBudgetExceeded, provider, used, p.MaxTokens, p.Period)
		}
	}
	return nil
}

// Status returns the budget status for a provider across all applicable policies.
func (e *Enforcer) Status(ctx context.Context, provider string) ([]models.BudgetStatus, error) {
	policies := e.policiesFor(provider)
	statuses := make([]models.BudgetStatus, 0, len(policies))

	for _, p := range policies {
		used, err := e.used(ctx, provider, p)
		if err != nil {
			return nil, fmt.Errorf("budget status: %w", err)
		}
		remaining := p.MaxTokens - used
		if remaining < 0 {
			remaining = 0
		}
		statuses = append(statuses, models.BudgetStatus{
			Policy:    p,
			Used:      used,
			Remaining: remaining,
		})
	}
	return statuses, nil
}

func (e *Enforcer) used(ctx context.Context, provider string, p models.BudgetPolicy) (int64, error) {
	since := periodStart(e.now(), p.Period)
	if p.Model != "" {
		return e.tracker.TotalByProviderAndModel(ctx, provider, p.Model, since)
	}
	return e.tracker.TotalByProvider(ctx, provider, since)
}

// policiesFor returns all policies matching a provider.
func (e *Enforcer) policiesFor(provider string) []models.BudgetPolicy {
	var result []models.BudgetPolicy
	for _, p := range e.policies {
		if p.Provider == "*" || p.Provider == provider {
			result = append(result, p)
		}
	}
	return result
}

func periodStart(now time.Time, period models.BudgetPeriod) time.Time {
	now = now.UTC()
	switch period {
	case models.BudgetMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	default: // daily
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
}
