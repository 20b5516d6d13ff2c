// Package prompt builds dialect-specific system and user prompts.
package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// ErrUnsupportedDialect is returned for dialect tags outside the known set.
var ErrUnsupportedDialect = errors.New("unsupported dialect")

// Template produces the prompts for one dialect family.
type Template interface {
	System() string
	User(description, schema string) string
}

// Pair is a ready-to-send prompt.
type Pair struct {
	System string
	User   string
}

var aliases = map[string]models.Dialect{
	"mysql":      models.DialectMySQL,
	"mssql":      models.DialectMSSQL,
	"sqlserver":  models.DialectMSSQL,
	"postgresql": models.DialectPostgreSQL,
	"postgres":   models.DialectPostgreSQL,
	"pg":         models.DialectPostgreSQL,
}

// ParseDialect resolves a case-insensitive dialect tag.
func ParseDialect(tag string) (models.Dialect, error) {
	d, ok := aliases[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDialect, tag)
	}
	return d, nil
}

// For returns the template for a dialect tag.
func For(tag string) (Template, error) {
	d, err := ParseDialect(tag)
	if err != nil {
		return nil, err
	}
	switch d {
	case models.DialectMSSQL:
		return MSSQL{}, nil
	case models.DialectPostgreSQL:
		return PostgreSQL{}, nil
	default:
		return MySQL{}, nil
	}
}

// Build returns the prompt pair for a dialect tag, request and schema excerpt.
// An empty schema excerpt is allowed.
func Build(tag, description, schema string) (Pair, error) {
	t, err := For(tag)
	if err != nil {
		return Pair{}, err
	}
	return Pair{System: t.System(), User: t.User(description, schema)}, nil
}
