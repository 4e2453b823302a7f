package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/test/testutil"
)

func TestEmbeddingCacheRepoRoundTrip(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewEmbeddingCacheRepo(db)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "test-embed", "RETRIEVAL_QUERY", "hash-1")
	require.NoError(t, err)
	require.False(t, ok)

	item := &model.EmbeddingCache{
		ModelName:   "test-embed",
		TaskType:    "RETRIEVAL_QUERY",
		ContentHash: "hash-1",
		Embedding:   []float32{0.5, -1.25, 3},
		Ctime:       100,
	}
	require.NoError(t, cache.Save(ctx, item))

	values, ok, err := cache.Get(ctx, "test-embed", "RETRIEVAL_QUERY", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{0.5, -1.25, 3}, values)

	// Same key overwrites.
	item.Embedding = []float32{9}
	item.Ctime = 200
	require.NoError(t, cache.Save(ctx, item))

	values, ok, err = cache.Get(ctx, "test-embed", "RETRIEVAL_QUERY", "hash-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []float32{9}, values)
}

func TestEmbeddingCacheRepoDeleteBefore(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()

	cache := repo.NewEmbeddingCacheRepo(db)
	ctx := context.Background()

	old := &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "old", Embedding: []float32{1}, Ctime: 100}
	fresh := &model.EmbeddingCache{ModelName: "m", TaskType: "RETRIEVAL_DOCUMENT", ContentHash: "fresh", Embedding: []float32{2}, Ctime: 300}
	require.NoError(t, cache.Save(ctx, old))
	require.NoError(t, cache.Save(ctx, fresh))

	deleted, err := cache.DeleteBefore(ctx, 200)
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, ok, err := cache.Get(ctx, "m", "RETRIEVAL_DOCUMENT", "old")
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = cache.Get(ctx, "m", "RETRIEVAL_DOCUMENT", "fresh")
	require.NoError(t, err)
	require.True(t, ok)
}
