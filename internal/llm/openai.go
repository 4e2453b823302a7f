package llm

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/trialrag/trialrag/internal/pkg/errors"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

type openAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

// Chat-completions wire types. The OpenRouter provider reuses these since it
// speaks the same protocol.
type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIChatMsg `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// toOpenAIMessages flattens a chat request into the messages array the
// chat-completions API takes, with the system prompt as the leading turn.
func toOpenAIMessages(req *ChatRequest) []openAIChatMsg {
	messages := make([]openAIChatMsg, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openAIChatMsg{Role: RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		messages = append(messages, openAIChatMsg{Role: m.Role, Content: m.Content})
	}
	return messages
}

type openAIProvider struct {
	apiKey  string
	baseURL string
}

func (p *openAIProvider) Name() string {
	return "openai"
}

func (p *openAIProvider) Chat(ctx context.Context, model string, req *ChatRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key is not configured", errs.ErrUnavailable)
	}
	var out openAIChatResponse
	err := postJSON(ctx, "openai", apiEndpoint(p.baseURL, "/chat/completions"),
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		openAIChatRequest{
			Model:       model,
			Messages:    toOpenAIMessages(req),
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		}, &out)
	if err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type openAIEmbedProvider struct {
	apiKey  string
	baseURL string
}

func (p *openAIEmbedProvider) Name() string {
	return "openai"
}

// Embed ignores taskType; the embeddings API has no equivalent knob.
func (p *openAIEmbedProvider) Embed(ctx context.Context, model string, text string, taskType string) ([]float32, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("%w: openai api key is not configured", errs.ErrUnavailable)
	}
	var out openAIEmbedResponse
	err := postJSON(ctx, "openai", apiEndpoint(p.baseURL, "/embeddings"),
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		openAIEmbedRequest{Model: model, Input: text}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("openai response has no embeddings")
	}
	return out.Data[0].Embedding, nil
}

func createOpenAIFactory(args interface{}) (IProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIProvider{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL}, nil
}

func createOpenAIEmbedFactory(args interface{}) (IEmbedProvider, error) {
	cfg := &openAIConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIEmbedProvider{apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL}, nil
}

func init() {
	Register("openai", createOpenAIFactory)
	RegisterEmbed("openai", createOpenAIEmbedFactory)
}
