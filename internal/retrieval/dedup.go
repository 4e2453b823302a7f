package retrieval

import (
	"sort"

	"github.com/trialrag/trialrag/internal/model"
)

// Dedup collapses chunk-level hits into one hit per trial, keeping the
// smallest distance within each trial. Hits without an NCT ID cannot be
// grouped and are dropped. The output is sorted ascending by distance; ties
// keep the order in which the trials were first seen.
func Dedup(results []model.QueryResult) []model.QueryResult {
	if len(results) == 0 {
		return nil
	}
	best := make(map[string]model.QueryResult, len(results))
	order := make([]string, 0, len(results))
	for _, result := range results {
		nctID := result.Metadata.NCTID
		if nctID == "" {
			continue
		}
		current, seen := best[nctID]
		if !seen {
			best[nctID] = result
			order = append(order, nctID)
			continue
		}
		if result.Distance < current.Distance {
			best[nctID] = result
		}
	}
	unique := make([]model.QueryResult, 0, len(order))
	for _, nctID := range order {
		unique = append(unique, best[nctID])
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Distance < unique[j].Distance
	})
	return unique
}
