package job

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/scrape"
	"github.com/trialrag/trialrag/internal/service"
)

// RefreshJob re-scrapes the study listings and rebuilds the trial corpus and
// index from the result. When an output directory is configured, each run
// also drops a timestamped JSON snapshot of the scrape there.
type RefreshJob struct {
	scraper   *scrape.Scraper
	ingest    *service.IngestService
	outputDir string
}

func NewRefreshJob(scraper *scrape.Scraper, ingest *service.IngestService, outputDir string) *RefreshJob {
	return &RefreshJob{scraper: scraper, ingest: ingest, outputDir: outputDir}
}

func (j *RefreshJob) Name() string {
	return "trials_refresh"
}

func (j *RefreshJob) Run(ctx context.Context) error {
	if j.scraper == nil || j.ingest == nil {
		return nil
	}
	logger := logutil.GetLogger(ctx)

	records, err := j.scraper.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape studies: %w", err)
	}
	if len(records) == 0 {
		logger.Warn("refresh scraped no studies, keeping current corpus")
		return nil
	}

	if j.outputDir != "" {
		path := filepath.Join(j.outputDir, scrape.TimestampedName("json"))
		if err := scrape.WriteJSON(records, path); err != nil {
			return fmt.Errorf("snapshot scrape: %w", err)
		}
		logger.Info("saved scrape snapshot", zap.String("path", path))
	}

	trials, err := j.ingest.Refresh(ctx, records)
	if err != nil {
		return err
	}
	logger.Info("refreshed trial corpus", zap.Int("trials", trials))
	return nil
}
