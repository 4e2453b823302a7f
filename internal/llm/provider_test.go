package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	errs "github.com/trialrag/trialrag/internal/pkg/errors"
)

type blockingGenerator struct{}

func (b *blockingGenerator) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestWithTimeoutCancelsSlowCalls(t *testing.T) {
	g := WithTimeout(&blockingGenerator{}, 10*time.Millisecond)
	_, err := g.Chat(context.Background(), &ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(nil, time.Second) != nil {
		t.Errorf("nil generator should stay nil")
	}
}

func TestNewProviderUnknown(t *testing.T) {
	if _, err := NewProvider("nope", map[string]interface{}{}); err == nil {
		t.Errorf("expected error for unknown provider")
	}
	if _, err := NewEmbedProvider("nope", map[string]interface{}{}); err == nil {
		t.Errorf("expected error for unknown embedding provider")
	}
}

func TestChatWithoutAPIKey(t *testing.T) {
	for _, name := range []string{"openai", "anthropic", "gemini"} {
		t.Run(name, func(t *testing.T) {
			p, err := NewProvider(name, map[string]interface{}{"api_key": ""})
			if err != nil {
				t.Fatalf("create provider: %v", err)
			}
			_, err = p.Chat(context.Background(), "some-model", &ChatRequest{
				Messages: []Message{{Role: RoleUser, Content: "hi"}},
			})
			if !errors.Is(err, errs.ErrUnavailable) {
				t.Errorf("expected unavailable error, got %v", err)
			}
		})
	}
}

func TestOpenAIChatWire(t *testing.T) {
	var got openAIChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"content":"  Two trials match.  "}}]}`)
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "test-key", "base_url": srv.URL})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	res, err := p.Chat(context.Background(), "gpt-4o-mini", &ChatRequest{
		System: "You answer questions about clinical trials.",
		Messages: []Message{
			{Role: RoleUser, Content: "any phase 2 melanoma trials?"},
			{Role: RoleAssistant, Content: "Yes, two."},
			{Role: RoleUser, Content: "which ones?"},
		},
		Temperature: 0.3,
		MaxTokens:   800,
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if res != "Two trials match." {
		t.Errorf("unexpected response: %q", res)
	}
	if got.Model != "gpt-4o-mini" {
		t.Errorf("unexpected model: %q", got.Model)
	}
	if got.Temperature != 0.3 || got.MaxTokens != 800 {
		t.Errorf("unexpected sampling params: temperature=%v max_tokens=%d", got.Temperature, got.MaxTokens)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 wire messages, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != RoleSystem || got.Messages[0].Content != "You answer questions about clinical trials." {
		t.Errorf("system prompt not first: %+v", got.Messages[0])
	}
	if got.Messages[3].Role != RoleUser || got.Messages[3].Content != "which ones?" {
		t.Errorf("unexpected last message: %+v", got.Messages[3])
	}
}

func TestOpenAIChatErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p, err := NewProvider("openai", map[string]interface{}{"api_key": "test-key", "base_url": srv.URL})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	_, err = p.Chat(context.Background(), "gpt-4o-mini", &ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("expected error for non-2xx status")
	}
}

func TestOpenAIEmbedWire(t *testing.T) {
	var got openAIEmbedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":[{"embedding":[0.5,0.25]}]}`)
	}))
	defer srv.Close()

	p, err := NewEmbedProvider("openai", map[string]interface{}{"api_key": "test-key", "base_url": srv.URL})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	vec, err := p.Embed(context.Background(), "text-embedding-3-small", "melanoma trial", "RETRIEVAL_QUERY")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if got.Model != "text-embedding-3-small" || got.Input != "melanoma trial" {
		t.Errorf("unexpected request: %+v", got)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestAnthropicChatWire(t *testing.T) {
	var got anthropicChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("unexpected api key header: %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v != "2023-06-01" {
			t.Errorf("unexpected version header: %q", v)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"content":[{"type":"text","text":" One trial matches. "}]}`)
	}))
	defer srv.Close()

	p, err := NewProvider("anthropic", map[string]interface{}{"api_key": "test-key", "base_url": srv.URL})
	if err != nil {
		t.Fatalf("create provider: %v", err)
	}
	res, err := p.Chat(context.Background(), "claude-3-haiku-20240307", &ChatRequest{
		System: "You answer questions about clinical trials.",
		Messages: []Message{
			{Role: RoleUser, Content: "any melanoma trials?"},
		},
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}
	if res != "One trial matches." {
		t.Errorf("unexpected response: %q", res)
	}
	if got.System != "You answer questions about clinical trials." {
		t.Errorf("system prompt not top-level: %q", got.System)
	}
	if got.MaxTokens != anthropicMaxTokens {
		t.Errorf("expected default max_tokens %d, got %d", anthropicMaxTokens, got.MaxTokens)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != RoleUser {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
}
