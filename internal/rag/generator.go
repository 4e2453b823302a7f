package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/trialrag/trialrag/internal/llm"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	errs "github.com/trialrag/trialrag/internal/pkg/errors"
	"go.uber.org/zap"
)

const defaultHistoryLimit = 5

const systemPromptTemplate = `You are a helpful clinical trials assistant that helps healthcare professionals find relevant clinical trials for their patients.

Your goal is to provide specific, actionable information about clinical trials based ONLY on the trial data provided below.

IMPORTANT INSTRUCTIONS:
1. Answer using ONLY the information in the trials provided below.
2. Cite specific trials by NCT ID when discussing them.
3. If the trials contain relevant information, summarize the key eligibility criteria, phases, and interventions.
4. If the provided trials don't match the query well, acknowledge this and suggest what additional information would help.
5. Don't apologize or refuse to answer - if you have relevant trials, share the information directly.
6. Use a professional, helpful tone appropriate for medical professionals.

Here are the clinical trials available to answer this query:

%s

IMPORTANT: Base your entire response on the trial information above. Be specific about what trials are available rather than asking for more information, unless absolutely necessary.`

const noResultsTemplate = "I couldn't find any clinical trials matching your query about '%s'. " +
	"This could be because we don't have trials on this topic, or the query needs to be more specific. " +
	"Please try refining your search with more details like the specific condition, treatment history, or phase."

type Config struct {
	Temperature  float64
	MaxTokens    int
	HistoryLimit int
}

// Generator turns retrieved trial chunks into a grounded answer with
// citations.
type Generator struct {
	gen llm.IGenerator
	cfg Config
}

func NewGenerator(gen llm.IGenerator, cfg Config) *Generator {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Generator{gen: gen, cfg: cfg}
}

// Enabled reports whether a chat model is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.gen != nil
}

// Answer generates a response for query grounded on results. With no results
// it returns a canned answer without calling the model. history carries the
// prior turns, oldest first.
func (g *Generator) Answer(ctx context.Context, query string, results []model.QueryResult, history []model.Message) (string, []model.Evidence, error) {
	if len(results) == 0 {
		return fmt.Sprintf(noResultsTemplate, query), []model.Evidence{}, nil
	}
	if g.gen == nil {
		return "", nil, fmt.Errorf("%w: no chat provider configured", errs.ErrUnavailable)
	}

	if len(history) > g.cfg.HistoryLimit {
		history = history[len(history)-g.cfg.HistoryLimit:]
	}
	messages := make([]llm.Message, 0, len(history)+1)
	for _, msg := range history {
		messages = append(messages, llm.Message{Role: msg.Role, Content: msg.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	response, err := g.gen.Chat(ctx, &llm.ChatRequest{
		System:      fmt.Sprintf(systemPromptTemplate, contextFor(results)),
		Messages:    messages,
		Temperature: g.cfg.Temperature,
		MaxTokens:   g.cfg.MaxTokens,
	})
	if err != nil {
		return "", nil, err
	}
	logutil.GetLogger(ctx).Info("generated answer",
		zap.String("query", query),
		zap.Int("trials", len(results)),
		zap.Int("history", len(history)))
	return response, evidenceFor(results), nil
}

func contextFor(results []model.QueryResult) string {
	if len(results) == 0 {
		return "No clinical trial information available."
	}
	var b strings.Builder
	b.WriteString("CLINICAL TRIAL INFORMATION:\n\n")
	for i, result := range results {
		meta := result.Metadata
		fmt.Fprintf(&b, "[Trial %d] %s\n", i+1, meta.Title)
		fmt.Fprintf(&b, "NCT ID: %s\n", meta.NCTID)
		fmt.Fprintf(&b, "Phase: %s\n", meta.Phase)
		fmt.Fprintf(&b, "Conditions: %s\n", meta.Conditions)
		fmt.Fprintf(&b, "Content: %s\n\n", strings.TrimSpace(result.Document))
	}
	return b.String()
}

func evidenceFor(results []model.QueryResult) []model.Evidence {
	evidence := make([]model.Evidence, 0, len(results))
	for _, result := range results {
		meta := result.Metadata
		evidence = append(evidence, model.Evidence{
			NCTID:                 meta.NCTID,
			Title:                 meta.Title,
			PrincipalInvestigator: meta.PrincipalInvestigator,
			Phase:                 meta.Phase,
			SourceURL:             meta.SourceURL,
		})
	}
	return evidence
}
