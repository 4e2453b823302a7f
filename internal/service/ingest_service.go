package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/trialrag/trialrag/internal/chunker"
	"github.com/trialrag/trialrag/internal/ingest"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
	errs "github.com/trialrag/trialrag/internal/pkg/errors"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/internal/vectorindex"
	"go.uber.org/zap"
)

const rebuildPageSize = 500

type IngestService struct {
	trials *repo.TrialRepo
	index  vectorindex.Store
}

func NewIngestService(trials *repo.TrialRepo, index vectorindex.Store) *IngestService {
	return &IngestService{trials: trials, index: index}
}

// LoadFile reads a trial export, persists the records, and indexes their
// chunks. fileType defaults to json. Returns the number of trials loaded.
func (s *IngestService) LoadFile(ctx context.Context, filePath, fileType string) (int, error) {
	if fileType == "" {
		fileType = "json"
	}
	var records []model.TrialRecord
	var err error
	switch strings.ToLower(fileType) {
	case "json":
		records, err = ingest.ReadJSON(filePath)
	case "csv":
		records, err = ingest.ReadCSV(filePath)
	default:
		return 0, fmt.Errorf("%w: unsupported file type %q", errs.ErrInvalid, fileType)
	}
	if err != nil {
		return 0, err
	}
	if err := s.IndexTrials(ctx, records); err != nil {
		return 0, err
	}
	return len(records), nil
}

// IndexTrials stores records and adds their chunks to the index.
func (s *IngestService) IndexTrials(ctx context.Context, records []model.TrialRecord) error {
	if len(records) == 0 {
		logutil.GetLogger(ctx).Warn("no trials to index")
		return nil
	}
	stored, err := s.trials.Save(ctx, records)
	if err != nil {
		return fmt.Errorf("store trials: %w", err)
	}
	chunks, err := s.addChunks(ctx, records)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("indexed trials",
		zap.Int("trials", len(records)),
		zap.Int("stored", stored),
		zap.Int("chunks", chunks))
	return nil
}

// Refresh replaces the stored corpus with freshly scraped records and
// rebuilds the index from scratch.
func (s *IngestService) Refresh(ctx context.Context, records []model.TrialRecord) (int, error) {
	if len(records) == 0 {
		logutil.GetLogger(ctx).Warn("no trials to refresh")
		return 0, nil
	}
	if _, err := s.trials.Save(ctx, records); err != nil {
		return 0, fmt.Errorf("store trials: %w", err)
	}
	return s.Rebuild(ctx)
}

// Rebuild drops the index and re-indexes every stored trial in one batch, so
// the vectorizer refits over the full corpus.
func (s *IngestService) Rebuild(ctx context.Context) (int, error) {
	records := make([]model.TrialRecord, 0)
	for offset := 0; ; offset += rebuildPageSize {
		page, err := s.trials.List(ctx, rebuildPageSize, offset)
		if err != nil {
			return 0, err
		}
		records = append(records, page...)
		if len(page) < rebuildPageSize {
			break
		}
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, err
	}
	chunks, err := s.addChunks(ctx, records)
	if err != nil {
		return 0, err
	}
	logutil.GetLogger(ctx).Info("rebuilt index",
		zap.Int("trials", len(records)),
		zap.Int("chunks", chunks))
	return len(records), nil
}

func (s *IngestService) addChunks(ctx context.Context, records []model.TrialRecord) (int, error) {
	documents := make([]string, 0, len(records)*3)
	metadatas := make([]model.ChunkMetadata, 0, len(records)*3)
	for _, record := range records {
		for _, chunk := range chunker.Build(record) {
			documents = append(documents, chunk.Text)
			metadatas = append(metadatas, chunk.Metadata)
		}
	}
	if err := s.index.Add(ctx, documents, metadatas, nil); err != nil {
		return 0, fmt.Errorf("index chunks: %w", err)
	}
	return len(documents), nil
}
