// Package optimizer normalizes generated statements and rejects unsafe ones.
//
// Validation is a case-insensitive substring match against a fixed denylist.
// It is coarse on purpose and will reject identifiers such as "dropdown".
package optimizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// ErrUnsafeStatement is wrapped by every ValidationError.
var ErrUnsafeStatement = errors.New("statement contains a prohibited keyword")

// Denylist holds the keywords that mark a statement unsafe.
var Denylist = []string{"DROP", "DELETE", "TRUNCATE", "GRANT", "REVOKE", "ALTER"}

// ValidationError reports the first denylisted keyword found in a statement.
type ValidationError struct {
	Keyword   string
	Statement string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate statement: prohibited keyword %s", e.Keyword)
}

func (e *ValidationError) Unwrap() error { return ErrUnsafeStatement }

// Optimize trims surrounding whitespace and trailing separators, then
// appends exactly one separator.
func Optimize(stmt string) string {
	s := strings.TrimSpace(stmt)
	s = strings.TrimRight(s, "; \t\r\n")
	return s + ";"
}

// Validate reports whether stmt is free of denylisted keywords.
func Validate(stmt string) bool {
	return prohibited(stmt) == ""
}

func prohibited(stmt string) string {
	upper := strings.ToUpper(stmt)
	for _, kw := range Denylist {
		if strings.Contains(upper, kw) {
			return kw
		}
	}
	return ""
}

// Stage rewrites a statement for one dialect before separator normalization.
type Stage func(stmt string) string

// Optimizer applies registered per-dialect stages followed by Optimize.
// The zero value is usable and applies no stages.
type Optimizer struct {
	stages map[models.Dialect][]Stage
}

// New returns an Optimizer with no stages registered.
func New() *Optimizer {
	return &Optimizer{}
}

// Register appends a stage for dialect. Stages run in registration order.
func (o *Optimizer) Register(dialect models.Dialect, s Stage) {
	if o.stages == nil {
		o.stages = make(map[models.Dialect][]Stage)
	}
	o.stages[dialect] = append(o.stages[dialect], s)
}

// Optimize runs the stages for dialect, then normalizes the separator.
func (o *Optimizer) Optimize(stmt string, dialect models.Dialect) string {
	if o != nil {
		for _, s := range o.stages[dialect] {
			stmt = s(stmt)
		}
	}
	return Optimize(stmt)
}

// Check returns a *ValidationError when stmt contains a denylisted keyword.
func (o *Optimizer) Check(stmt string) error {
	if kw := prohibited(stmt); kw != "" {
		return &ValidationError{Keyword: kw, Statement: stmt}
	}
	return nil
}
