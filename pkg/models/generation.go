package models

import "time"

// Dialect names a SQL variant.
type Dialect string

const (
	DialectMySQL      Dialect = "mysql"
	DialectMSSQL      Dialect = "mssql"
	DialectPostgreSQL Dialect = "postgresql"
)

// Generation is the raw output of a generation backend.
// Usage is nil when the provider does not report token counts.
type Generation struct {
	Statement string        `json:"statement"`
	Latency   time.Duration `json:"latency"`
	Usage     *Usage        `json:"usage,omitempty"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
}

// Result is a validated statement returned to callers.
//
// Latency and Usage are only set for statements produced by a backend call;
// cache hits leave them empty.
type Result struct {
	Statement  string        `json:"statement"`
	Dialect    Dialect       `json:"dialect"`
	Cached     bool          `json:"cached"`
	Latency    time.Duration `json:"-"`
	Usage      *Usage        `json:"usage,omitempty"`
	Provider   string        `json:"provider,omitempty"`
	Model      string        `json:"model,omitempty"`
	Complexity Complexity    `json:"complexity"`
}

// Complexity is a heuristic score of a statement's structure.
type Complexity struct {
	Joins      int    `json:"joins"`
	Subqueries int    `json:"subqueries"`
	Functions  int    `json:"functions"`
	Conditions int    `json:"conditions"`
	Score      int    `json:"score"`
	Risk       string `json:"risk"`
}
