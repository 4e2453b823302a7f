package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/llm"
	"github.com/trialrag/trialrag/internal/logutil"
)

// Two cache layers sit in front of the embedding provider: an in-process lru
// for hot query vectors and a sqlite table that survives restarts. Both key
// on model, task type and a content hash, so re-indexing unchanged trial
// text never re-bills the provider.

// WrapLruCacheToEmbedder puts an expiring lru in front of next. A zero size
// or ttl disables the layer and returns next unchanged.
func WrapLruCacheToEmbedder(next llm.IEmbedder, size int, ttl time.Duration) llm.IEmbedder {
	if next == nil || size <= 0 || ttl <= 0 {
		return next
	}
	return &lruEmbedder{
		next:  next,
		cache: expirable.NewLRU[string, []float32](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  llm.IEmbedder
	cache *expirable.LRU[string, []float32]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	key := memoryKey(l.next.ModelName(), taskType, hashText(text))
	if values, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit",
			zap.String("layer", "lru"), zap.String("task_type", taskType))
		return cloneVector(values), nil
	}
	values, err := l.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	// Store a copy so callers mutating the returned slice cannot poison
	// later hits.
	l.cache.Add(key, cloneVector(values))
	return values, nil
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func memoryKey(modelName, taskType, contentHash string) string {
	return "embed:" + normalizeModelName(modelName) + ":" + taskType + ":" + contentHash
}

func normalizeModelName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	return name
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(values []float32) []float32 {
	if len(values) == 0 {
		return nil
	}
	return append([]float32(nil), values...)
}
