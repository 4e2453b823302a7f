package embedcache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/llm"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/repo"
)

// WrapDBCacheToEmbedder puts the persistent cache table in front of next.
// Write failures are logged and swallowed; a broken cache must not take
// indexing down with it.
func WrapDBCacheToEmbedder(next llm.IEmbedder, cache *repo.EmbeddingCacheRepo) llm.IEmbedder {
	if next == nil || cache == nil {
		return next
	}
	return &dbEmbedder{next: next, cache: cache}
}

type dbEmbedder struct {
	next  llm.IEmbedder
	cache *repo.EmbeddingCacheRepo
}

func (d *dbEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	modelName := normalizeModelName(d.next.ModelName())
	contentHash := hashText(text)

	values, ok, err := d.cache.Get(ctx, modelName, taskType, contentHash)
	if err != nil {
		return nil, err
	}
	if ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit",
			zap.String("layer", "db"), zap.String("task_type", taskType))
		return values, nil
	}

	values, err = d.next.Embed(ctx, text, taskType)
	if err != nil {
		return nil, err
	}
	if err := d.cache.Save(ctx, &model.EmbeddingCache{
		ModelName:   modelName,
		TaskType:    taskType,
		ContentHash: contentHash,
		Embedding:   values,
		Ctime:       time.Now().Unix(),
	}); err != nil {
		logutil.GetLogger(ctx).Warn("failed to cache embedding", zap.Error(err))
	}
	return values, nil
}

func (d *dbEmbedder) ModelName() string {
	return d.next.ModelName()
}
