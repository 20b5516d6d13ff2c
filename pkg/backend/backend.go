// Package backend adapts language-model providers to statement generation.
package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/config"
	"github.com/pario-ai/sqlpilot/pkg/models"
)

// ErrMissingCredential is returned by constructors when a provider lacks an
// API key, base URL or model.
var ErrMissingCredential = errors.New("missing provider credential")

// Backend turns a prompt pair into a candidate statement.
type Backend interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (models.Generation, error)
}

// Error is a failed provider call. StatusCode is zero for transport errors.
type Error struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("backend %s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("backend %s: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another provider may succeed where this one failed.
func (e *Error) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

const (
	defaultOpenAIURL    = "https://api.openai.com"
	defaultAnthropicURL = "https://api.anthropic.com"
	defaultOpenAIModel  = "gpt-4o-mini"
	defaultClaudeModel  = "claude-haiku-4-5"
	defaultTimeout      = 30 * time.Second
)

// New builds a Backend from provider configuration, filling default URLs
// and models for the known provider types.
func New(p config.ProviderConfig) (Backend, error) {
	switch p.Type {
	case "", "openai":
		return NewOpenAI(OpenAIConfig{
			Name:    p.Name,
			BaseURL: orDefault(p.URL, defaultOpenAIURL),
			APIKey:  p.APIKey,
			Model:   orDefault(p.Model, defaultOpenAIModel),
			Timeout: p.Timeout,
		})
	case "anthropic":
		return NewAnthropic(AnthropicConfig{
			Name:    p.Name,
			BaseURL: orDefault(p.URL, defaultAnthropicURL),
			APIKey:  p.APIKey,
			Model:   orDefault(p.Model, defaultClaudeModel),
			Timeout: p.Timeout,
		})
	case "static":
		return NewStatic(p.Name, p.Statement)
	default:
		return nil, fmt.Errorf("provider %q: unknown type %q", p.Name, p.Type)
	}
}

// NewChain builds one Backend per provider. A single provider is returned
// as is; several are wrapped in a Fallback in configured order.
func NewChain(providers []config.ProviderConfig) (Backend, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no providers configured", ErrMissingCredential)
	}
	var backends []Backend
	for _, p := range providers {
		b, err := New(p)
		if err != nil {
			return nil, err
		}
		backends = append(backends, b)
	}
	if len(backends) == 1 {
		return backends[0], nil
	}
	return NewFallback(backends...), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func requireFields(provider string, fields map[string]string) error {
	for _, name := range []string{"base URL", "api key", "model"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: provider %s: %s is required", ErrMissingCredential, provider, name)
		}
	}
	return nil
}

// post sends a JSON body and returns the response body. Non-2xx responses are
// returned as *Error carrying the status code.
func post(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Provider: provider, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{Provider: provider, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode >= 300 {
		return nil, &Error{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", truncate(respBody, 512))}
	}
	return respBody, nil
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
