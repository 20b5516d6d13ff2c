package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// Static always returns the same statement. It stands in for a provider
// in offline setups and tests.
type Static struct {
	name      string
	statement string
}

// NewStatic returns a Static backend. The statement must be non-empty.
func NewStatic(name, statement string) (*Static, error) {
	name = orDefault(name, "static")
	if strings.TrimSpace(statement) == "" {
		return nil, fmt.Errorf("%w: provider %s: statement is required", ErrMissingCredential, name)
	}
	return &Static{name: name, statement: statement}, nil
}

// Generate returns the configured statement. Usage is not reported.
func (s *Static) Generate(ctx context.Context, _, _ string, _ int) (models.Generation, error) {
	if err := ctx.Err(); err != nil {
		return models.Generation{}, &Error{Provider: s.name, Err: err}
	}
	start := time.Now()
	return models.Generation{
		Statement: s.statement,
		Latency:   time.Since(start),
		Provider:  s.name,
		Model:     "static",
	}, nil
}
