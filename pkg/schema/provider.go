package schema

import (
	"context"
	"fmt"
	"sync"

	"github.com/pario-ai/sqlpilot/pkg/models"
)

// Provider fetches a schema lazily on first use and keeps the snapshot until
// Refresh is called. Selection counts survive a refresh for tables that
// still exist.
type Provider struct {
	discoverer Discoverer

	mu         sync.Mutex
	summarizer *Summarizer
}

// NewProvider wraps a Discoverer.
func NewProvider(d Discoverer) *Provider {
	return &Provider{discoverer: d}
}

func (p *Provider) load(ctx context.Context) (*Summarizer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadLocked(ctx)
}

func (p *Provider) loadLocked(ctx context.Context) (*Summarizer, error) {
	if p.summarizer != nil {
		return p.summarizer, nil
	}
	s, err := p.discoverer.Discover(ctx)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	p.summarizer = NewSummarizer(s)
	return p.summarizer, nil
}

// Context returns the excerpt relevant to input and tallies the selected
// tables. Tallying holds the provider lock so a concurrent Refresh cannot
// drop counts.
func (p *Provider) Context(ctx context.Context, input string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.loadLocked(ctx)
	if err != nil {
		return "", err
	}
	return s.Context(input), nil
}

// Preview returns the excerpt relevant to input without tallying.
func (p *Provider) Preview(ctx context.Context, input string) (string, error) {
	s, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	return s.Preview(input), nil
}

// Schema returns the current snapshot, loading it if needed.
func (p *Provider) Schema(ctx context.Context) (models.Schema, error) {
	s, err := p.load(ctx)
	if err != nil {
		return models.Schema{}, err
	}
	return s.Schema(), nil
}

// Usage returns per-table selection counts, or nil before the first load.
func (p *Provider) Usage() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summarizer == nil {
		return nil
	}
	return p.summarizer.Usage()
}

// Refresh rediscovers the schema. On error the previous snapshot is kept.
func (p *Provider) Refresh(ctx context.Context) error {
	fresh, err := p.discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("refresh schema: %w", err)
	}
	next := NewSummarizer(fresh)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.summarizer != nil {
		for name, n := range p.summarizer.Usage() {
			if _, ok := next.usage[name]; ok {
				next.usage[name] = n
			}
		}
	}
	p.summarizer = next
	return nil
}
