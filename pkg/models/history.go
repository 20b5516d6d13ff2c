package models

import "time"

// HistoryStatus values.
const (
	HistoryOK     = "ok"
	HistoryFailed = "failed"
)

// HistoryEntry is one recorded generation attempt.
type HistoryEntry struct {
	ID               int64     `json:"id"`
	RequestID        string    `json:"request_id"`
	Input            string    `json:"input"`
	Dialect          string    `json:"dialect"`
	Statement        string    `json:"statement,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	Model            string    `json:"model,omitempty"`
	Cached           bool      `json:"cached"`
	Status           string    `json:"status"`
	Error            string    `json:"error,omitempty"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	LatencyMs        int64     `json:"latency_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// HistoryConfig controls the query history subsystem.
type HistoryConfig struct {
	Enabled          bool   `yaml:"enabled"`
	DBPath           string `yaml:"db_path"`
	RetentionDays    int    `yaml:"retention_days"` // 0 keeps everything
	IncludeInput     bool   `yaml:"include_input"`
	MaxStatementSize int    `yaml:"max_statement_size"` // bytes
}

// HistoryQueryOpts specifies filters for querying history entries.
type HistoryQueryOpts struct {
	Dialect   string
	Status    string
	Since     time.Time
	RequestID string
	Limit     int
}

// HistoryStat holds aggregate history counts for a dialect/day combination.
type HistoryStat struct {
	Dialect string
	Day     string
	Count   int
	Cached  int
	Failed  int
}
