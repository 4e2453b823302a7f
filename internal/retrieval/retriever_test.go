package retrieval

import (
	"context"
	"testing"

	"github.com/trialrag/trialrag/internal/chunker"
	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/filestore"
	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/vectorindex"
)

type stubIndex struct {
	lastText    string
	lastN       int
	lastFilters map[string]string
	results     []model.QueryResult
}

func (s *stubIndex) Add(ctx context.Context, documents []string, metadatas []model.ChunkMetadata, ids []string) error {
	return nil
}

func (s *stubIndex) Query(ctx context.Context, text string, n int, filters map[string]string) ([]model.QueryResult, error) {
	s.lastText = text
	s.lastN = n
	s.lastFilters = filters
	return s.results, nil
}

func (s *stubIndex) FilterOptions() model.FilterOptions     { return model.FilterOptions{} }
func (s *stubIndex) Count() int                             { return 0 }
func (s *stubIndex) Stats(sampleSize int) vectorindex.Stats { return vectorindex.Stats{} }
func (s *stubIndex) Save(ctx context.Context) error         { return nil }
func (s *stubIndex) Load(ctx context.Context) error         { return nil }
func (s *stubIndex) Reset(ctx context.Context) error        { return nil }

func TestRetrieveMergesFiltersAndOverfetches(t *testing.T) {
	stub := &stubIndex{
		results: []model.QueryResult{
			hit("a", "NCT001", 0.2),
			hit("b", "NCT001", 0.4),
			hit("c", "NCT002", 0.3),
			hit("d", "NCT003", 0.5),
		},
	}
	retriever := NewRetriever(stub)

	results, err := retriever.Retrieve(context.Background(), "phase 2 study for men", 2,
		map[string]string{"phase": "Phase 3"})
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if stub.lastN != 4 {
		t.Errorf("index queried with n = %d, want 4", stub.lastN)
	}
	if stub.lastText != "phase 2 study for men" {
		t.Errorf("index queried with text %q", stub.lastText)
	}
	// The explicit phase wins over the extracted one; the extracted
	// gender survives.
	if stub.lastFilters["phase"] != "Phase 3" {
		t.Errorf("phase filter = %q, want Phase 3", stub.lastFilters["phase"])
	}
	if stub.lastFilters["gender"] != "Male" {
		t.Errorf("gender filter = %q, want Male", stub.lastFilters["gender"])
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Metadata.NCTID != "NCT001" || results[1].Metadata.NCTID != "NCT002" {
		t.Errorf("order = [%s %s], want [NCT001 NCT002]",
			results[0].Metadata.NCTID, results[1].Metadata.NCTID)
	}
}

func TestRetrieveTwoTrialScenario(t *testing.T) {
	files, err := filestore.New(config.StoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	if err != nil {
		t.Fatalf("create filestore: %v", err)
	}
	index, err := vectorindex.New(config.VectorConfig{
		Backend: config.BackendTFIDF,
		TFIDF:   config.TFIDFConfig{MinDF: 2, MaxDFRatio: 0.95, NgramMax: 2},
	}, files, nil)
	if err != nil {
		t.Fatalf("create index: %v", err)
	}

	trials := []model.TrialRecord{
		{
			"nct_id":             "NCT001",
			"title":              "Trial A",
			"phase":              "Phase 1",
			"healthy_volunteers": "Accepting Healthy Volunteers",
		},
		{
			"nct_id": "NCT002",
			"title":  "Trial B",
			"phase":  "Phase 2",
		},
	}
	var documents []string
	var metadatas []model.ChunkMetadata
	for _, trial := range trials {
		for _, chunk := range chunker.Build(trial) {
			documents = append(documents, chunk.Text)
			metadatas = append(metadatas, chunk.Metadata)
		}
	}
	ctx := context.Background()
	if err := index.Add(ctx, documents, metadatas, nil); err != nil {
		t.Fatalf("add: %v", err)
	}

	query := "healthy volunteers phase 1"
	filters := ExtractFilters(query)
	if filters["phase"] != "Phase 1" || filters["healthy_volunteers"] != "yes" {
		t.Fatalf("extracted filters = %v", filters)
	}

	results, err := NewRetriever(index).Retrieve(ctx, query, 5, nil)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want exactly 1", len(results))
	}
	if results[0].Metadata.NCTID != "NCT001" {
		t.Errorf("nct_id = %s, want NCT001", results[0].Metadata.NCTID)
	}
}
