package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/logutil"
)

// GeneratorEntry labels one chat candidate, conventionally "provider/model".
type GeneratorEntry struct {
	Name      string
	Generator IGenerator
}

// EmbedderEntry labels one embedding candidate by its model name.
type EmbedderEntry struct {
	Name     string
	Embedder IEmbedder
}

type candidate[T any] struct {
	name string
	impl T
}

// firstOf walks a fallback chain in priority order and returns the first
// success. Failed candidates are logged and the last error is surfaced.
func firstOf[T, R any](ctx context.Context, kind string, chain []candidate[T], call func(T) (R, error)) (R, error) {
	var zero R
	var lastErr error
	for _, c := range chain {
		res, err := call(c.impl)
		if err == nil {
			return res, nil
		}
		lastErr = err
		logutil.GetLogger(ctx).Warn("llm candidate failed",
			zap.String("kind", kind),
			zap.String("candidate", c.name),
			zap.Error(err),
		)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no %s configured", kind)
	}
	return zero, lastErr
}

type groupGenerator struct {
	chain []candidate[IGenerator]
}

// NewGroupGenerator builds a generator that tries each entry in turn until
// one answers. Nil entries are dropped; an empty chain yields nil.
func NewGroupGenerator(items []GeneratorEntry) IGenerator {
	chain := make([]candidate[IGenerator], 0, len(items))
	for _, item := range items {
		if item.Generator == nil {
			continue
		}
		chain = append(chain, candidate[IGenerator]{name: item.Name, impl: item.Generator})
	}
	if len(chain) == 0 {
		return nil
	}
	return &groupGenerator{chain: chain}
}

func (g *groupGenerator) Chat(ctx context.Context, req *ChatRequest) (string, error) {
	return firstOf(ctx, "generator", g.chain, func(gen IGenerator) (string, error) {
		return gen.Chat(ctx, req)
	})
}

type groupEmbedder struct {
	chain []candidate[IEmbedder]
}

func NewGroupEmbedder(items []EmbedderEntry) IEmbedder {
	chain := make([]candidate[IEmbedder], 0, len(items))
	for _, item := range items {
		if item.Embedder == nil {
			continue
		}
		chain = append(chain, candidate[IEmbedder]{name: item.Name, impl: item.Embedder})
	}
	if len(chain) == 0 {
		return nil
	}
	return &groupEmbedder{chain: chain}
}

func (g *groupEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	return firstOf(ctx, "embedder", g.chain, func(e IEmbedder) ([]float32, error) {
		return e.Embed(ctx, text, taskType)
	})
}

// ModelName joins the candidate names so cached vectors from different
// chains never collide.
func (g *groupEmbedder) ModelName() string {
	names := make([]string, 0, len(g.chain))
	for _, c := range g.chain {
		if c.name != "" {
			names = append(names, c.name)
		}
	}
	return strings.Join(names, "|")
}
