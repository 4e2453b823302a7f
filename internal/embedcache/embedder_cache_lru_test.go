package embedcache

import (
	"context"
	"testing"
	"time"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	return []float32{1, 2, 3}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "test-embed"
}

func TestLruCacheAvoidsRepeatEmbeds(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := WrapLruCacheToEmbedder(inner, 8, time.Minute)

	ctx := context.Background()
	if _, err := embedder.Embed(ctx, "melanoma trial", "RETRIEVAL_QUERY"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if _, err := embedder.Embed(ctx, "melanoma trial", "RETRIEVAL_QUERY"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", inner.calls)
	}

	// Same text under a different task type is a different key.
	if _, err := embedder.Embed(ctx, "melanoma trial", "RETRIEVAL_DOCUMENT"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 upstream calls, got %d", inner.calls)
	}
}

func TestLruCacheReturnsClones(t *testing.T) {
	inner := &countingEmbedder{}
	embedder := WrapLruCacheToEmbedder(inner, 8, time.Minute)

	ctx := context.Background()
	first, err := embedder.Embed(ctx, "aspirin study", "RETRIEVAL_QUERY")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	first[0] = 99

	second, err := embedder.Embed(ctx, "aspirin study", "RETRIEVAL_QUERY")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if second[0] != 1 {
		t.Errorf("cached vector was mutated through a caller slice: %v", second)
	}
}

func TestWrapLruCacheDisabled(t *testing.T) {
	inner := &countingEmbedder{}
	if got := WrapLruCacheToEmbedder(inner, 0, time.Minute); got != inner {
		t.Errorf("zero size should return the embedder unwrapped")
	}
	if got := WrapLruCacheToEmbedder(nil, 8, time.Minute); got != nil {
		t.Errorf("nil embedder should stay nil")
	}
}
