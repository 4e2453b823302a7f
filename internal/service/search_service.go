package service

import (
	"context"

	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/retrieval"
	"github.com/trialrag/trialrag/internal/vectorindex"
)

type SearchService struct {
	retriever *retrieval.Retriever
	index     vectorindex.Store
}

func NewSearchService(retriever *retrieval.Retriever, index vectorindex.Store) *SearchService {
	return &SearchService{retriever: retriever, index: index}
}

// Search runs filtered retrieval and shapes one result per trial, scored by
// 1 minus the best chunk distance.
func (s *SearchService) Search(ctx context.Context, query string, limit int, explicit map[string]string) ([]model.SearchResult, error) {
	hits, err := s.retriever.Retrieve(ctx, query, limit, explicit)
	if err != nil {
		return nil, err
	}
	results := make([]model.SearchResult, 0, len(hits))
	for _, hit := range hits {
		meta := hit.Metadata
		results = append(results, model.SearchResult{
			NCTID:                 meta.NCTID,
			Title:                 meta.Title,
			PrincipalInvestigator: meta.PrincipalInvestigator,
			Phase:                 meta.Phase,
			Gender:                meta.Gender,
			AgeRange:              meta.AgeRange,
			HealthyVolunteers:     meta.HealthyVolunteers,
			Conditions:            meta.Conditions,
			Interventions:         meta.Interventions,
			SourceURL:             meta.SourceURL,
			RelevanceScore:        1 - hit.Distance,
		})
	}
	return results, nil
}

func (s *SearchService) FilterOptions() model.FilterOptions {
	return s.index.FilterOptions()
}

// Query exposes raw chunk-level retrieval for the debug endpoints.
func (s *SearchService) Query(ctx context.Context, query string, n int, filters map[string]string) ([]model.QueryResult, error) {
	return s.index.Query(ctx, query, n, filters)
}

func (s *SearchService) Stats(sampleSize int) vectorindex.Stats {
	return s.index.Stats(sampleSize)
}

func (s *SearchService) Count() int {
	return s.index.Count()
}
