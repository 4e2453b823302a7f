package llm

import (
	"context"
	"fmt"
	"strings"

	errs "github.com/trialrag/trialrag/internal/pkg/errors"
)

const defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"

type openRouterConfig struct {
	APIKey      string `json:"api_key"`
	BaseURL     string `json:"base_url"`
	HTTPReferer string `json:"http_referer"`
	XTitle      string `json:"x_title"`
}

// openRouterProvider speaks the OpenAI-compatible chat API with the extra
// attribution headers OpenRouter wants.
type openRouterProvider struct {
	apiKey      string
	baseURL     string
	httpReferer string
	xTitle      string
}

func (p *openRouterProvider) Name() string {
	return "openrouter"
}

func (p *openRouterProvider) Chat(ctx context.Context, model string, req *ChatRequest) (string, error) {
	if p.apiKey == "" {
		return "", fmt.Errorf("%w: openrouter api key is not configured", errs.ErrUnavailable)
	}
	header := map[string]string{"Authorization": "Bearer " + p.apiKey}
	if p.httpReferer != "" {
		header["HTTP-Referer"] = p.httpReferer
	}
	if p.xTitle != "" {
		header["X-Title"] = p.xTitle
	}
	var out openAIChatResponse
	err := postJSON(ctx, "openrouter", apiEndpoint(p.baseURL, "/chat/completions"), header,
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
		return "", fmt.Errorf("openrouter response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg := &openRouterConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &openRouterProvider{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     baseURL,
		httpReferer: strings.TrimSpace(cfg.HTTPReferer),
		xTitle:      strings.TrimSpace(cfg.XTitle),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
