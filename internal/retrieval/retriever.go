package retrieval

import (
	"context"

	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	"github.com/trialrag/trialrag/internal/vectorindex"
)

// Retriever runs the chunk index query pipeline: implicit filters extracted
// from the query merged under explicit ones, a doubled fetch for coverage,
// then per-trial dedup cut to the requested size.
type Retriever struct {
	index vectorindex.Store
}

func NewRetriever(index vectorindex.Store) *Retriever {
	return &Retriever{index: index}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, n int, explicit map[string]string) ([]model.QueryResult, error) {
	filters := ExtractFilters(query)
	for key, value := range explicit {
		filters[key] = value
	}
	results, err := r.index.Query(ctx, query, n*2, filters)
	if err != nil {
		return nil, err
	}
	unique := Dedup(results)
	if len(unique) > n {
		unique = unique[:n]
	}
	logutil.GetLogger(ctx).Info("retrieved trials",
		zap.String("query", query), zap.Int("chunks", len(results)), zap.Int("trials", len(unique)))
	return unique, nil
}
