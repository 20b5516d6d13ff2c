package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// Fallback tries backends in order. It moves to the next backend after a
// transport error or a 5xx response, and returns any other error as is.
type Fallback struct {
	backends []Backend
	Logger   *slog.Logger
}

// NewFallback creates a Fallback over backends.
func NewFallback(backends ...Backend) *Fallback {
	return &Fallback{backends: backends}
}

// Generate returns the first successful generation.
func (f *Fallback) Generate(ctx context.Context, system, user string, maxTokens int) (models.Generation, error) {
	if len(f.backends) == 0 {
		return models.Generation{}, &Error{Provider: "fallback", Err: fmt.Errorf("no backends")}
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for i, b := range f.backends {
		gen, err := b.Generate(ctx, system, user, maxTokens)
		if err == nil {
			return gen, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return models.Generation{}, err
		}
		var be *Error
		if errors.As(err, &be) && !be.Retryable() {
			return models.Generation{}, err
		}
		if i < len(f.backends)-1 {
			logger.Warn("backend failed, trying next", "error", err, "attempt", i+1)
		}
	}
	return models.Generation{}, lastErr
}
