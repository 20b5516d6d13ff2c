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

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAI calls POST {BaseURL}/v1/chat/completions.
type OpenAI struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// NewOpenAI validates cfg and returns a client.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	name := orDefault(cfg.Name, "openai")
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
	return &OpenAI{
		name:    name,
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   strings.TrimSpace(cfg.Model),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Generate requests one completion and returns its text with fences removed.
func (o *OpenAI) Generate(ctx context.Context, system, user string, maxTokens int) (models.Generation, error) {
	temperature := 0.0
	req := models.ChatCompletionRequest{
		Model: o.model,
		Messages: []models.ChatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: &temperature,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}
	body, err := json.Marshal(req)
	if err != nil {
		return models.Generation{}, &Error{Provider: o.name, Err: fmt.Errorf("marshal request: %w", err)}
	}

	start := time.Now()
	respBody, err := post(ctx, o.client, o.name, o.baseURL+"/v1/chat/completions", map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, body)
	latency := time.Since(start)
	if err != nil {
		return models.Generation{}, err
	}

	var resp models.ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return models.Generation{}, &Error{Provider: o.name, StatusCode: http.StatusOK, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(resp.Choices) == 0 {
		return models.Generation{}, &Error{Provider: o.name, StatusCode: http.StatusOK, Err: fmt.Errorf("empty choices")}
	}

	model := resp.Model
	if model == "" {
		model = o.model
	}
	return models.Generation{
		Statement: optimizer.StripFences(resp.Choices[0].Message.Content),
		Latency:   latency,
		Usage:     resp.Usage,
		Provider:  o.name,
		Model:     model,
	}, nil
}
