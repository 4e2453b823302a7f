package retrieval

import (
	"testing"

	"github.com/trialrag/trialrag/internal/model"
)

func hit(id, nctID string, distance float64) model.QueryResult {
	return model.QueryResult{
		ID:       id,
		Metadata: model.ChunkMetadata{NCTID: nctID},
		Distance: distance,
	}
}

func TestDedupKeepsClosestPerTrial(t *testing.T) {
	results := Dedup([]model.QueryResult{
		hit("a", "NCT003", 0.3),
		hit("b", "NCT003", 0.1),
	})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "b" || results[0].Distance != 0.1 {
		t.Errorf("kept %s at %v, want b at 0.1", results[0].ID, results[0].Distance)
	}
}

func TestDedupDropsEmptyIdentifiers(t *testing.T) {
	results := Dedup([]model.QueryResult{
		hit("a", "", 0.1),
		hit("b", "NCT001", 0.5),
		hit("c", "", 0.2),
	})
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Metadata.NCTID != "NCT001" {
		t.Errorf("kept %s, want NCT001", results[0].Metadata.NCTID)
	}
}

func TestDedupSortsAscendingByDistance(t *testing.T) {
	results := Dedup([]model.QueryResult{
		hit("a", "NCT001", 0.8),
		hit("b", "NCT002", 0.2),
		hit("c", "NCT003", 0.5),
		hit("d", "NCT002", 0.6),
	})
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	want := []string{"NCT002", "NCT003", "NCT001"}
	seen := make(map[string]bool)
	for i, result := range results {
		if result.Metadata.NCTID != want[i] {
			t.Errorf("results[%d] = %s, want %s", i, result.Metadata.NCTID, want[i])
		}
		if seen[result.Metadata.NCTID] {
			t.Errorf("duplicate nct_id %s in output", result.Metadata.NCTID)
		}
		seen[result.Metadata.NCTID] = true
	}
	for i := 1; i < len(results); i++ {
		if results[i-1].Distance > results[i].Distance {
			t.Errorf("distances not ascending at %d: %v > %v", i, results[i-1].Distance, results[i].Distance)
		}
	}
}

func TestDedupEmptyInput(t *testing.T) {
	if results := Dedup(nil); len(results) != 0 {
		t.Errorf("Dedup(nil) = %v, want empty", results)
	}
}
