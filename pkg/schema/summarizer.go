// Package schema discovers database schemas and reduces them to short,
// request-relevant excerpts for prompting.
package schema

import (
	"strings"
	"sync"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// MaxTables bounds how many tables a context excerpt includes.
const MaxTables = 3

// Summarizer selects tables relevant to a request and tallies how often each
// table was selected. It never modifies the schema it was given.
type Summarizer struct {
	schema models.Schema

	mu    sync.Mutex
	usage map[string]int
}

// NewSummarizer creates a Summarizer over a schema snapshot.
func NewSummarizer(s models.Schema) *Summarizer {
	usage := make(map[string]int, len(s.Tables))
	for _, t := range s.Tables {
		usage[t.Name] = 0
	}
	return &Summarizer{schema: s, usage: usage}
}

// Context returns the excerpt for input: up to MaxTables relevant tables in
// schema order, each rendered as name(col1, col2), joined by a single space.
// A table is relevant when any whitespace-separated word of input appears in
// its name, ignoring case. No match yields "". Selected tables are tallied.
func (s *Summarizer) Context(input string) string {
	selected := s.relevant(input)
	if len(selected) == 0 {
		return ""
	}
	s.mu.Lock()
	for _, t := range selected {
		s.usage[t.Name]++
	}
	s.mu.Unlock()
	return render(selected)
}

// Preview returns the same excerpt as Context without tallying.
func (s *Summarizer) Preview(input string) string {
	return render(s.relevant(input))
}

func (s *Summarizer) relevant(input string) []models.Table {
	words := strings.Fields(strings.ToLower(input))
	if len(words) == 0 {
		return nil
	}

	var selected []models.Table
	for _, t := range s.schema.Tables {
		if len(selected) == MaxTables {
			break
		}
		name := strings.ToLower(t.Name)
		for _, w := range words {
			if strings.Contains(name, w) {
				selected = append(selected, t)
				break
			}
		}
	}
	return selected
}

func render(tables []models.Table) string {
	parts := make([]string, 0, len(tables))
	for _, t := range tables {
		parts = append(parts, t.Name+"("+strings.Join(t.Columns, ", ")+")")
	}
	return strings.Join(parts, " ")
}

// Usage returns a copy of the per-table selection counts.
func (s *Summarizer) Usage() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.usage))
	for k, v := range s.usage {
		out[k] = v
	}
	return out
}

// Schema returns the snapshot the Summarizer reads from.
func (s *Summarizer) Schema() models.Schema {
	return s.schema
}
