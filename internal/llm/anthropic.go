package llm

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/trialrag/trialrag/internal/pkg/errors"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	anthropicMaxTokens      = 1024
)

type anthropicConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type anthropicProvider struct {
	apiKey  string
	baseURL string
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicChatMsg `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type anthropicChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicChatResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *anthropicProvider) Name() string {
	return "anthropic"
}

func (p *anthropicProvider) Chat(ctx context.Context, model string, req *ChatRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: anthropic api key is not configured", errs.ErrUnavailable)
	}
	messages := make([]anthropicChatMsg, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, anthropicChatMsg{Role: m.Role, Content: m.Content})
	}
	// The messages API rejects requests without max_tokens.
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}
	var out anthropicChatResponse
	err := postJSON(ctx, "anthropic", apiEndpoint(p.baseURL, "/v1/messages"),
		map[string]string{"x-api-key": p.apiKey, "anthropic-version": anthropicVersion},
		anthropicChatRequest{
			Model:       model,
			MaxTokens:   maxTokens,
			System:      req.System,
			Messages:    messages,
			Temperature: req.Temperature,
		}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Content) == 0 {
		return "", fmt.Errorf("anthropic response has no content")
	}
	return strings.TrimSpace(out.Content[0].Text), nil
}

func createAnthropicFactory(args interface{}) (IProvider, error) {
	cfg := &anthropicConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &anthropicProvider{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL}, nil
}

func init() {
	Register("anthropic", createAnthropicFactory)
}
