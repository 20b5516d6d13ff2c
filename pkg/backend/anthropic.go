package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pario-ai/sqlpilot/pkg/models"
	"github.com/pario-ai/sqlpilot/pkg/optimizer"
)

const anthropicVersion = "2023-06-01"

// AnthropicConfig configures an Anthropic messages client.
type AnthropicConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Anthropic calls POST {BaseURL}/v1/messages.
type Anthropic struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewAnthropic validates cfg and returns a client.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	name := orDefault(cfg.Name, "anthropic")
	if err := requireFields(name, map[string]string{
		"base URL": cfg.BaseURL,
		"api key":  cfg.APIKey,
		"model":    cfg.Model,
	}); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Anthropic{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   strings.TrimSpace(cfg.Model),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate requests one message and joins its text blocks.
func (a *Anthropic) Generate(ctx context.Context, system, user string, maxTokens int) (models.Generation, error) {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body, err := json.Marshal(models.AnthropicRequest{
		Model:     a.model,
		System:    system,
		Messages:  []models.ChatMessage{{Role: "user", Content: user}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return models.Generation{}, &Error{Provider: a.name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	start := time.Now()
	respBody, err := post(ctx, a.client, a.name, a.baseURL+"/v1/messages", map[string]string{
		"x-api-key":         a.apiKey,
		"anthropic-version": anthropicVersion,
	}, body)
	latency := time.Since(start)
	if err != nil {
		return models.Generation{}, err
	}

	var resp models.AnthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return models.Generation{}, &Error{Provider: a.name, StatusCode: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}

	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return models.Generation{}, &Error{Provider: a.name, StatusCode: http.StatusOK, Err: fmt.Errorf("no text content")}
	}

	gen := models.Generation{
		Statement: optimizer.StripFences(text.String()),
		Latency:   latency,
		Provider:  a.name,
		Model:     orDefault(resp.Model, a.model),
	}
	if resp.Usage != nil {
		gen.Usage = resp.Usage.ToUsage()
	}
	return gen, nil
}
