package testutil

import (
	"testing"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/filestore"
	"github.com/trialrag/trialrag/internal/vectorindex"
)

// NewTestIndex builds a tfidf index over a temp snapshot dir with permissive
// vectorizer knobs so small corpora keep a vocabulary.
func NewTestIndex(t *testing.T) vectorindex.Store {
	t.Helper()
	files, err := filestore.New(config.StoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	if err != nil {
		t.Fatalf("create filestore: %v", err)
	}
	index, err := vectorindex.New(config.VectorConfig{
		Backend: config.BackendTFIDF,
		TFIDF:   config.TFIDFConfig{MinDF: 1, MaxDFRatio: 1, NgramMax: 1},
	}, files, nil)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}
	return index
}
