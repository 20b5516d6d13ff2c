package optimizer

import (
	"regexp"
	"strings"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// Complexity weights per feature.
const (
	joinWeight      = 5
	subqueryWeight  = 3
	functionWeight  = 2
	conditionWeight = 1
)

// Risk levels.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

var (
	joinRe      = regexp.MustCompile(`\bJOIN\b`)
	subqueryRe  = regexp.MustCompile(`\(\s*SELECT\b`)
	functionRe  = regexp.MustCompile(`\b(COUNT|SUM|AVG|MIN|MAX)\s*\(`)
	conditionRe = regexp.MustCompile(`\b(WHERE|AND|OR|HAVING)\b`)
)

// Analyze scores a statement by counting joins, subqueries, aggregate calls
// and conditions. Scores above 20 are high risk and above 10 medium.
func Analyze(stmt string) models.Complexity {
	upper := strings.ToUpper(stmt)
	c := models.Complexity{
		Joins:      len(joinRe.FindAllStringIndex(upper, -1)),
		Subqueries: len(subqueryRe.FindAllStringIndex(upper, -1)),
		Functions:  len(functionRe.FindAllStringIndex(upper, -1)),
		Conditions: len(conditionRe.FindAllStringIndex(upper, -1)),
	}
	c.Score = c.Joins*joinWeight +
		c.Subqueries*subqueryWeight +
		c.Functions*functionWeight +
		c.Conditions*conditionWeight

	switch {
	case c.Score > 20:
		c.Risk = RiskHigh
	case c.Score > 10:
		c.Risk = RiskMedium
	default:
		c.Risk = RiskLow
	}
	return c
}
