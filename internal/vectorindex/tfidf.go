package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/filestore"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	errs "github.com/trialrag/trialrag/internal/pkg/errors"
)

// tfidfIndex holds every chunk in memory as four parallel slices plus one
// vector per chunk. The vectorizer is fit on the first non-empty batch added
// to an empty store and never refit; later batches are projected into the
// frozen vocabulary.
type tfidfIndex struct {
	mu         sync.RWMutex
	files      filestore.Store
	cfg        VectorizerConfig
	vectorizer *Vectorizer
	documents  []string
	ids        []string
	metadatas  []model.ChunkMetadata
	vectors    [][]float64
}

var tfidfArtifactKeys = []string{keyDocuments, keyIDs, keyMetadata, keyVectors, keyVectorizer}

func newTFIDFIndex(cfg config.TFIDFConfig, files filestore.Store) *tfidfIndex {
	vcfg := VectorizerConfig{
		MinDF:      cfg.MinDF,
		MaxDFRatio: cfg.MaxDFRatio,
		NgramMax:   cfg.NgramMax,
	}
	return &tfidfIndex{
		files:      files,
		cfg:        vcfg,
		vectorizer: NewVectorizer(vcfg),
	}
}

func (s *tfidfIndex) Add(ctx context.Context, documents []string, metadatas []model.ChunkMetadata, ids []string) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.documents) == 0 {
		s.vectorizer.Fit(documents)
		if s.vectorizer.Dimension() == 0 {
			logutil.GetLogger(ctx).Warn("fitted vocabulary is empty, similarity will be zero for every query",
				zap.Int("documents", len(documents)))
		}
	}
	vectors := make([][]float64, 0, len(documents))
	for _, doc := range documents {
		vectors = append(vectors, s.vectorizer.Transform(doc))
	}
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

func (s *tfidfIndex) Query(ctx context.Context, text string, n int, filters map[string]string) ([]model.QueryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.documents) == 0 || text == "" || n <= 0 {
		return nil, nil
	}

	queryVec := s.vectorizer.Transform(text)
	sims := make([]float64, len(s.vectors))
	candidates := make([]int, 0, len(s.documents))
	for i := range s.documents {
		if !matchesFilters(s.metadatas[i], filters) {
			continue
		}
		sims[i] = dot(queryVec, s.vectors[i])
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

func (s *tfidfIndex) FilterOptions() model.FilterOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectFilterOptions(s.metadatas)
}

func (s *tfidfIndex) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.documents)
}

func (s *tfidfIndex) Stats(sampleSize int) Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats := collectStats(config.BackendTFIDF, s.documents, s.ids, s.metadatas, sampleSize)
	stats.VocabularySize = s.vectorizer.Dimension()
	return stats
}

func (s *tfidfIndex) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

func (s *tfidfIndex) saveLocked(ctx context.Context) error {
	return writeArtifacts(ctx, s.files, []artifact{
		{keyDocuments, s.documents},
		{keyIDs, s.ids},
		{keyMetadata, s.metadatas},
		{keyVectors, s.vectors},
		{keyVectorizer, s.vectorizer.State()},
	})
}

// Load restores the snapshot when all five artifacts are present and
// mutually consistent. Any missing artifact or read failure degrades to an
// empty index instead of failing startup.
func (s *tfidfIndex) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	logger := logutil.GetLogger(ctx)

	ok, err := artifactsExist(ctx, s.files, tfidfArtifactKeys...)
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
		vectors   [][]float64
		state     VectorizerState
	)
	for _, step := range []struct {
		key string
		dst interface{}
	}{
		{keyDocuments, &documents},
		{keyIDs, &ids},
		{keyMetadata, &metadatas},
		{keyVectors, &vectors},
		{keyVectorizer, &state},
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

	s.documents = documents
	s.ids = ids
	s.metadatas = metadatas
	s.vectors = vectors
	s.vectorizer = NewVectorizer(s.cfg)
	s.vectorizer.Restore(state)
	logger.Info("loaded index snapshot", zap.Int("documents", len(documents)),
		zap.Int("vocabulary", s.vectorizer.Dimension()))
	return nil
}

func (s *tfidfIndex) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
	return deleteArtifacts(ctx, s.files, tfidfArtifactKeys...)
}

func (s *tfidfIndex) resetLocked() {
	s.documents = nil
	s.ids = nil
	s.metadatas = nil
	s.vectors = nil
	s.vectorizer = NewVectorizer(s.cfg)
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
