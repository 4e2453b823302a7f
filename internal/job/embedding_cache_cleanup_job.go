package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/repo"
)

const defaultEmbeddingMaxAgeDays = 30

// EmbeddingCacheCleanupJob prunes cached embeddings older than maxAgeDays.
// Entries regenerate on demand, so pruning only costs a provider call.
type EmbeddingCacheCleanupJob struct {
	cache      *repo.EmbeddingCacheRepo
	maxAgeDays int
}

func NewEmbeddingCacheCleanupJob(cache *repo.EmbeddingCacheRepo, maxAgeDays int) *EmbeddingCacheCleanupJob {
	if maxAgeDays <= 0 {
		maxAgeDays = defaultEmbeddingMaxAgeDays
	}
	return &EmbeddingCacheCleanupJob{cache: cache, maxAgeDays: maxAgeDays}
}

func (j *EmbeddingCacheCleanupJob) Name() string {
	return "embedding_cache_cleanup"
}

func (j *EmbeddingCacheCleanupJob) Run(ctx context.Context) error {
	if j.cache == nil {
		return nil
	}
	cutoff := time.Now().Add(-time.Duration(j.maxAgeDays) * 24 * time.Hour).Unix()
	deleted, err := j.cache.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if deleted > 0 {
		logutil.GetLogger(ctx).Info("pruned embedding cache",
			zap.Int64("deleted", deleted), zap.Int("max_age_days", j.maxAgeDays))
	}
	return nil
}
