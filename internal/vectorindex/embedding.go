package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/filestore"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	errs "github.com/trialrag/trialrag/internal/pkg/errors"
)

// embeddingIndex mirrors the tf-idf layout but delegates vectorization to an
// external embedding provider. Vectors are stored as returned, so similarity
// needs the full cosine instead of a plain dot product.
type embeddingIndex struct {
	mu        sync.RWMutex
	files     filestore.Store
	embedder  Embedder
	documents []string
	ids       []string
	metadatas []model.ChunkMetadata
	vectors   [][]float32
}

type embedderState struct {
	Model string `json:"model"`
}

var embeddingArtifactKeys = []string{keyDocuments, keyIDs, keyMetadata, keyVectors, keyEmbedder}

func newEmbeddingIndex(files filestore.Store, embedder Embedder) *embeddingIndex {
	return &embeddingIndex{
		files:    files,
		embedder: embedder,
	}
}

func (s *embeddingIndex) Add(ctx context.Context, documents []string, metadatas []model.ChunkMetadata, ids []string) error {
	if len(documents) == 0 {
		return nil
	}
	if ids == nil {
		ids = make([]string, len(documents))
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	}
	if len(documents) != len(metadatas) || len(documents) != len(ids) {
		return fmt.Errorf("%w: documents, metadatas and ids must have the same length", errs.ErrInvalid)
	}

	// Embed everything before mutating so a provider failure leaves the
	// index untouched.
	vectors := make([][]float32, 0, len(documents))
	for i, doc := range documents {
		vec, err := s.embedder.Embed(ctx, doc, TaskDocument)
		if err != nil {
			return fmt.Errorf("embed document %d: %w", i, err)
		}
		vectors = append(vectors, vec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = append(s.documents, documents...)
	s.ids = append(s.ids, ids...)
	s.metadatas = append(s.metadatas, metadatas...)
	s.vectors = append(s.vectors, vectors...)

	if err := s.saveLocked(ctx); err != nil {
		return fmt.Errorf("save index after add: %w", err)
	}
	logutil.GetLogger(ctx).Info("added documents to index",
		zap.Int("added", len(documents)), zap.Int("total", len(s.documents)))
	return nil
}

func (s *embeddingIndex) Query(ctx context.Context, text string, n int, filters map[string]string) ([]model.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.documents) == 0 || text == "" || n <= 0 {
		return nil, nil
	}

	queryVec, err := s.embedder.Embed(ctx, text, TaskQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	sims := make([]float64, len(s.vectors))
	candidates := make([]int, 0, len(s.documents))
	for i := range s.documents {
		if !matchesFilters(s.metadatas[i], filters) {
			continue
		}
		sims[i] = cosineSimilarity(queryVec, s.vectors[i])
		candidates = append(candidates, i)
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	rankCandidates(candidates, sims)
	if n > len(candidates) {
		n = len(candidates)
	}
	results := make([]model.QueryResult, 0, n)
	for _, i := range candidates[:n] {
		results = append(results, model.QueryResult{
			ID:       s.ids[i],
			Document: s.documents[i],
			Metadata: s.metadatas[i],
			Distance: 1 - sims[i],
		})
	}
	return results, nil
}

func (s *embeddingIndex) FilterOptions() model.FilterOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectFilterOptions(s.metadatas)
}

func (s *embeddingIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func (s *embeddingIndex) Stats(sampleSize int) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := collectStats(config.BackendEmbedding, s.documents, s.ids, s.metadatas, sampleSize)
	stats.Model = s.embedder.ModelName()
	return stats
}

func (s *embeddingIndex) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *embeddingIndex) saveLocked(ctx context.Context) error {
	return writeArtifacts(ctx, s.files, []artifact{
		{keyDocuments, s.documents},
		{keyIDs, s.ids},
		{keyMetadata, s.metadatas},
		{keyVectors, s.vectors},
		{keyEmbedder, embedderState{Model: s.embedder.ModelName()}},
	})
}

// Load restores the snapshot when all artifacts are present and were written
// by the same embedding model. A model change invalidates stored vectors, so
// a mismatch starts empty and relies on a rebuild.
func (s *embeddingIndex) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := logutil.GetLogger(ctx)

	ok, err := artifactsExist(ctx, s.files, embeddingArtifactKeys...)
	if err != nil {
		logger.Warn("check index snapshot failed, starting empty", zap.Error(err))
		s.resetLocked()
		return nil
	}
	if !ok {
		s.resetLocked()
		return nil
	}

	var (
		documents []string
		ids       []string
		metadatas []model.ChunkMetadata
		vectors   [][]float32
		state     embedderState
	)
	for _, step := range []struct {
		key string
		dst interface{}
	}{
		{keyDocuments, &documents},
		{keyIDs, &ids},
		{keyMetadata, &metadatas},
		{keyVectors, &vectors},
		{keyEmbedder, &state},
	} {
		if err := readArtifact(ctx, s.files, step.key, step.dst); err != nil {
			logger.Warn("read index snapshot failed, starting empty", zap.Error(err))
			s.resetLocked()
			return nil
		}
	}
	if len(ids) != len(documents) || len(metadatas) != len(documents) || len(vectors) != len(documents) {
		logger.Warn("index snapshot artifacts have mismatched lengths, starting empty",
			zap.Int("documents", len(documents)), zap.Int("ids", len(ids)),
			zap.Int("metadatas", len(metadatas)), zap.Int("vectors", len(vectors)))
		s.resetLocked()
		return nil
	}
	if state.Model != s.embedder.ModelName() {
		logger.Warn("index snapshot was built with a different embedding model, starting empty",
			zap.String("snapshot_model", state.Model), zap.String("current_model", s.embedder.ModelName()))
		s.resetLocked()
		return nil
	}

	s.documents = documents
	s.ids = ids
	s.metadatas = metadatas
	s.vectors = vectors
	logger.Info("loaded index snapshot", zap.Int("documents", len(documents)),
		zap.String("model", state.Model))
	return nil
}

func (s *embeddingIndex) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return deleteArtifacts(ctx, s.files, embeddingArtifactKeys...)
}

func (s *embeddingIndex) resetLocked() {
	s.documents = nil
	s.ids = nil
	s.metadatas = nil
	s.vectors = nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
