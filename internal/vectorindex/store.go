package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/filestore"
	"github.com/trialrag/trialrag/internal/model"
)

// Snapshot artifact keys. A load succeeds only when the full set for the
// active backend exists; anything less resets the index to empty.
const (
	keyDocuments  = "documents.json"
	keyIDs        = "ids.json"
	keyMetadata   = "metadata.json"
	keyVectors    = "vectors.json"
	keyVectorizer = "vectorizer.json"
	keyEmbedder   = "embedder.json"
)

// Embedding task types, passed through to the embedding provider.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

// Store is one searchable chunk index. Add, Save, Load and Reset serialize
// behind a write lock; Query and the read accessors may run concurrently with
// each other but never with a mutation.
type Store interface {
	Add(ctx context.Context, documents []string, metadatas []model.ChunkMetadata, ids []string) error
	Query(ctx context.Context, text string, n int, filters map[string]string) ([]model.QueryResult, error)
	FilterOptions() model.FilterOptions
	Count() int
	Stats(sampleSize int) Stats
	Save(ctx context.Context) error
	Load(ctx context.Context) error
	Reset(ctx context.Context) error
}

// Embedder produces dense vectors for the embedding backend. The tf-idf
// backend never touches it.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType string) ([]float32, error)
	ModelName() string
}

// SampleDocument is one indexed chunk as exposed by Stats.
type SampleDocument struct {
	ID       string              `json:"id"`
	Text     string              `json:"text"`
	Metadata model.ChunkMetadata `json:"metadata"`
}

// Stats summarizes index content for the debug surface. VocabularySize is
// set by the tf-idf backend, Model by the embedding backend.
type Stats struct {
	Backend        string           `json:"backend"`
	Size           int              `json:"collection_size"`
	VocabularySize int              `json:"vocabulary_size,omitempty"`
	Model          string           `json:"model,omitempty"`
	ChunkTypes     map[string]int   `json:"chunk_types"`
	Samples        []SampleDocument `json:"samples"`
}

// New builds the index selected by cfg.Backend. The embedding backend
// requires a non-nil embedder; the tf-idf backend ignores it.
func New(cfg config.VectorConfig, files filestore.Store, embedder Embedder) (Store, error) {
	switch cfg.Backend {
	case config.BackendTFIDF:
		return newTFIDFIndex(cfg.TFIDF, files), nil
	case config.BackendEmbedding:
		if embedder == nil {
			return nil, fmt.Errorf("embedding backend requires an embedder")
		}
		return newEmbeddingIndex(files, embedder), nil
	default:
		return nil, fmt.Errorf("unsupported vector backend: %s", cfg.Backend)
	}
}

// matchesFilters reports whether meta satisfies every non-empty filter value
// by exact string equality. Unknown keys never match a non-empty value.
func matchesFilters(meta model.ChunkMetadata, filters map[string]string) bool {
	for key, want := range filters {
		if want == "" {
			continue
		}
		got, ok := meta.Field(key)
		if !ok || got != want {
			return false
		}
	}
	return true
}

// rankCandidates orders candidate indices by descending similarity. Ties keep
// insertion order so identical inputs always produce identical rankings.
func rankCandidates(candidates []int, sims []float64) {
	sort.SliceStable(candidates, func(a, b int) bool {
		return sims[candidates[a]] > sims[candidates[b]]
	})
}

func collectFilterOptions(metadatas []model.ChunkMetadata) model.FilterOptions {
	phases := make(map[string]struct{})
	genders := make(map[string]struct{})
	volunteers := make(map[string]struct{})
	for _, meta := range metadatas {
		if meta.Phase != "" {
			phases[meta.Phase] = struct{}{}
		}
		if meta.Gender != "" {
			genders[meta.Gender] = struct{}{}
		}
		if meta.HealthyVolunteers != "" {
			volunteers[meta.HealthyVolunteers] = struct{}{}
		}
	}
	return model.FilterOptions{
		Phases:            sortedKeys(phases),
		Genders:           sortedKeys(genders),
		HealthyVolunteers: sortedKeys(volunteers),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func collectStats(backend string, documents []string, ids []string, metadatas []model.ChunkMetadata, sampleSize int) Stats {
	stats := Stats{
		Backend:    backend,
		Size:       len(documents),
		ChunkTypes: make(map[string]int),
	}
	for _, meta := range metadatas {
		chunkType := meta.ChunkType
		if chunkType == "" {
			chunkType = "unknown"
		}
		stats.ChunkTypes[chunkType]++
	}
	if sampleSize <= 0 {
		return stats
	}
	indices := sampleIndices(len(documents), sampleSize)
	stats.Samples = make([]SampleDocument, 0, len(indices))
	for _, i := range indices {
		stats.Samples = append(stats.Samples, SampleDocument{
			ID:       ids[i],
			Text:     documents[i],
			Metadata: metadatas[i],
		})
	}
	return stats
}

func sampleIndices(total, n int) []int {
	if n >= total {
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	}
	indices := rand.Perm(total)[:n]
	sort.Ints(indices)
	return indices
}

type artifact struct {
	key   string
	value interface{}
}

// writeArtifacts stages every artifact under a temporary key, then renames
// the whole set into place. A failure while staging leaves the previous
// snapshot untouched; a crash between renames can mix generations, which the
// parallel-length check on load guards against.
func writeArtifacts(ctx context.Context, files filestore.Store, artifacts []artifact) error {
	for _, a := range artifacts {
		data, err := json.Marshal(a.value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", a.key, err)
		}
		if err := files.Save(ctx, a.key+".tmp", bytes.NewReader(data), int64(len(data))); err != nil {
			return fmt.Errorf("write %s: %w", a.key, err)
		}
	}
	for _, a := range artifacts {
		if err := files.Rename(ctx, a.key+".tmp", a.key); err != nil {
			return fmt.Errorf("commit %s: %w", a.key, err)
		}
	}
	return nil
}

func readArtifact(ctx context.Context, files filestore.Store, key string, dst interface{}) error {
	rc, err := files.Open(ctx, key)
	if err != nil {
		return fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func artifactsExist(ctx context.Context, files filestore.Store, keys ...string) (bool, error) {
	for _, key := range keys {
		ok, err := files.Exists(ctx, key)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func deleteArtifacts(ctx context.Context, files filestore.Store, keys ...string) error {
	var firstErr error
	for _, key := range keys {
		if err := files.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
