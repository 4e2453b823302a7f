package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/model"
)

// Scraper walks the StudyFinder listing pages and turns each study card into
// a flat trial record.
type Scraper struct {
	cfg    config.ScrapeConfig
	client *http.Client
}

func New(cfg config.ScrapeConfig) *Scraper {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Scraper{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Run fetches every listing page up to the configured limit and returns the
// parsed studies in page order, deduplicated by identifier. A page that fails
// to fetch is logged and skipped.
func (s *Scraper) Run(ctx context.Context) ([]model.TrialRecord, error) {
	logger := logutil.GetLogger(ctx)

	first, err := s.fetchPage(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first listing page: %w", err)
	}
	total := parsePageCount(first)
	if s.cfg.MaxPages > 0 && total > s.cfg.MaxPages {
		total = s.cfg.MaxPages
	}
	logger.Info("scraping study listings",
		zap.String("base_url", s.cfg.BaseURL), zap.Int("pages", total))

	pages := make([][]model.TrialRecord, total)
	pages[0] = parseStudies(first)

	if total > 1 {
		pool, err := ants.NewPool(s.cfg.Concurrency)
		if err != nil {
			return nil, fmt.Errorf("create scrape pool: %w", err)
		}
		defer pool.Release()

		var wg sync.WaitGroup
		for page := 2; page <= total; page++ {
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				s.politeDelay(ctx)
				body, err := s.fetchPage(ctx, page)
				if err != nil {
					logger.Warn("failed to fetch listing page", zap.Int("page", page), zap.Error(err))
					return
				}
				pages[page-1] = parseStudies(body)
			}); err != nil {
				wg.Done()
				logger.Warn("failed to schedule listing page", zap.Int("page", page), zap.Error(err))
			}
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	records := make([]model.TrialRecord, 0)
	for _, page := range pages {
		for _, record := range page {
			if id := record.Identifier(); id != "" {
				if seen[id] {
					continue
				}
				seen[id] = true
			}
			records = append(records, record)
		}
	}
	logger.Info("scraped studies", zap.Int("studies", len(records)))
	return records, nil
}

func (s *Scraper) fetchPage(ctx context.Context, page int) (string, error) {
	url := fmt.Sprintf("%s/studies?page=%d", strings.TrimRight(s.cfg.BaseURL, "/"), page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("listing page %d returned status %d", page, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (s *Scraper) politeDelay(ctx context.Context) {
	if s.cfg.DelayMS <= 0 {
		return
	}
	select {
	case <-time.After(time.Duration(s.cfg.DelayMS) * time.Millisecond):
	case <-ctx.Done():
	}
}
