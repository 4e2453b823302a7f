package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trialrag/trialrag/internal/config"
	"github.com/trialrag/trialrag/internal/embedcache"
	"github.com/trialrag/trialrag/internal/filestore"
	"github.com/trialrag/trialrag/internal/handler"
	"github.com/trialrag/trialrag/internal/job"
	"github.com/trialrag/trialrag/internal/llm"
	"github.com/trialrag/trialrag/internal/logger"
	"github.com/trialrag/trialrag/internal/logutil"
	"github.com/trialrag/trialrag/internal/middleware"
	"github.com/trialrag/trialrag/internal/rag"
	"github.com/trialrag/trialrag/internal/repo"
	"github.com/trialrag/trialrag/internal/retrieval"
	"github.com/trialrag/trialrag/internal/schedule"
	"github.com/trialrag/trialrag/internal/scrape"
	"github.com/trialrag/trialrag/internal/service"
	"github.com/trialrag/trialrag/internal/vectorindex"
)

// embeddingCacheCleanupSpec prunes stale cached embeddings once a night.
const embeddingCacheCleanupSpec = "30 3 * * *"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "trialrag",
		Short: "clinical trials search and chat backend",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			return runServer(cfg, db)
		},
	}

	var loadType string
	loadCmd := &cobra.Command{
		Use:   "load [file]",
		Short: "load a trial export into the store and index it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ingest, index, err := buildIngest(cfg, db)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := index.Load(ctx); err != nil {
				return fmt.Errorf("load index snapshot: %w", err)
			}
			n, err := ingest.LoadFile(ctx, args[0], loadType)
			if err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("loaded trials", zap.String("file", args[0]), zap.Int("trials", n))
			return nil
		},
	}
	loadCmd.Flags().StringVar(&loadType, "type", "json", "export format (json or csv)")

	rebuildCmd := &cobra.Command{
		Use:   "rebuild",
		Short: "rebuild the index from stored trials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			db, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			ingest, _, err := buildIngest(cfg, db)
			if err != nil {
				return err
			}
			_, err = ingest.Rebuild(cmd.Context())
			return err
		},
	}

	var scrapeFormat string
	var scrapeOutput string
	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "scrape the trial registry and write an export file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			records, err := scrape.New(cfg.Scrape).Run(ctx)
			if err != nil {
				return err
			}
			path := scrapeOutput
			if path == "" {
				path = filepath.Join(cfg.Scrape.Output, scrape.TimestampedName(scrapeFormat))
			}
			switch scrapeFormat {
			case "json":
				err = scrape.WriteJSON(records, path)
			case "csv":
				err = scrape.WriteCSV(records, path)
			default:
				return fmt.Errorf("unsupported export format: %s", scrapeFormat)
			}
			if err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("wrote scrape export", zap.String("path", path), zap.Int("trials", len(records)))
			return nil
		},
	}
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", "json", "export format (json or csv)")
	scrapeCmd.Flags().StringVar(&scrapeOutput, "output", "", "output file path (default: timestamped name in scrape.output)")

	rootCmd.AddCommand(runCmd, loadCmd, rebuildCmd, scrapeCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.LogConfig)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func openDB(cfg *config.Config) (*sql.DB, error) {
	db, err := repo.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := repo.ApplyMigrations(db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// buildEmbedder assembles the embedding chain: provider, db cache, then an
// in-process lru in front. Returns nil when no embedding provider is
// configured, which the tf-idf backend tolerates.
func buildEmbedder(cfg *config.Config, db *sql.DB) llm.IEmbedder {
	ec := cfg.Vector.Embedding
	if ec.Provider == "" {
		return nil
	}
	p, err := llm.NewEmbedProvider(ec.Provider, cfg.LLM.Providers[ec.Provider])
	if err != nil {
		logutil.GetLogger(context.Background()).Warn("init embedding provider failed",
			zap.String("provider", ec.Provider), zap.Error(err))
		return nil
	}
	e := llm.NewEmbedder(p, ec.Model)
	e = llm.WithEmbedTimeout(e, time.Duration(cfg.LLM.TimeoutSeconds)*time.Second)
	e = embedcache.WrapDBCacheToEmbedder(e, repo.NewEmbeddingCacheRepo(db))
	if ec.CacheSize > 0 {
		e = embedcache.WrapLruCacheToEmbedder(e, ec.CacheSize, time.Duration(ec.CacheTTLMins)*time.Minute)
	}
	return e
}

// buildGenerator chains one generator per configured entry. A provider that
// fails to initialize is skipped so chat degrades instead of blocking search.
func buildGenerator(cfg *config.Config) llm.IGenerator {
	providers := make(map[string]llm.IProvider)
	items := make([]llm.GeneratorEntry, 0, len(cfg.LLM.Generate))
	for _, entry := range cfg.LLM.Generate {
		p, ok := providers[entry.Provider]
		if !ok {
			var err error
			p, err = llm.NewProvider(entry.Provider, cfg.LLM.Providers[entry.Provider])
			if err != nil {
				logutil.GetLogger(context.Background()).Warn("init llm provider failed",
					zap.String("provider", entry.Provider), zap.Error(err))
				continue
			}
			providers[entry.Provider] = p
		}
		items = append(items, llm.GeneratorEntry{
			Name:      entry.Provider + "/" + entry.Model,
			Generator: llm.WithTimeout(llm.NewGenerator(p, entry.Model), time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		})
	}
	return llm.NewGroupGenerator(items)
}

func buildIngest(cfg *config.Config, db *sql.DB) (*service.IngestService, vectorindex.Store, error) {
	files, err := filestore.New(cfg.Vector.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("init snapshot store: %w", err)
	}
	index, err := vectorindex.New(cfg.Vector, files, buildEmbedder(cfg, db))
	if err != nil {
		return nil, nil, fmt.Errorf("init vector index: %w", err)
	}
	return service.NewIngestService(repo.NewTrialRepo(db), index), index, nil
}

func runServer(cfg *config.Config, db *sql.DB) error {
	ctx := context.Background()
	logutil.GetLogger(ctx).Info(
		"starting server",
		zap.String("bind", cfg.Bind),
		zap.String("db_path", cfg.DBPath),
		zap.String("vector_backend", cfg.Vector.Backend),
	)

	ingestService, index, err := buildIngest(cfg, db)
	if err != nil {
		return err
	}
	if err := index.Load(ctx); err != nil {
		return fmt.Errorf("load index snapshot: %w", err)
	}

	retriever := retrieval.NewRetriever(index)
	generator := rag.NewGenerator(buildGenerator(cfg), rag.Config{
		Temperature:  cfg.LLM.Temperature,
		MaxTokens:    cfg.LLM.MaxTokens,
		HistoryLimit: cfg.Chat.HistoryLimit,
	})
	searchService := service.NewSearchService(retriever, index)
	chatService := service.NewChatService(retriever, generator, repo.NewConversationRepo(db), cfg.Chat)

	deps := handler.RouterDeps{
		Search: handler.NewSearchHandler(searchService),
		Chat:   handler.NewChatHandler(chatService),
		Admin:  handler.NewAdminHandler(ingestService),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.CORS(cfg.CORSOrigins),
	)
	if cfg.RateLimitMS > 0 {
		engine.Use(middleware.RateLimit(time.Duration(cfg.RateLimitMS) * time.Millisecond))
	}
	engine.Use(gzip.Gzip(gzip.DefaultCompression))
	handler.RegisterRoutes(engine.Group("/api"), deps)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Schedule.Enabled {
		sched := schedule.NewCronScheduler()
		refresh := job.NewRefreshJob(scrape.New(cfg.Scrape), ingestService, cfg.Scrape.Output)
		if err := sched.AddJob(refresh, cfg.Schedule.RefreshSpec); err != nil {
			return fmt.Errorf("schedule refresh job: %w", err)
		}
		cleanup := job.NewEmbeddingCacheCleanupJob(repo.NewEmbeddingCacheRepo(db), 0)
		if err := sched.AddJob(cleanup, embeddingCacheCleanupSpec); err != nil {
			return fmt.Errorf("schedule cache cleanup job: %w", err)
		}
		sched.Start(sigCtx)
		defer sched.Stop()
	}

	srv := &http.Server{Addr: cfg.Bind, Handler: engine}
	go func() {
		logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", cfg.Bind))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(ctx).Error("server error", zap.Error(err))
		}
	}()

	<-sigCtx.Done()
	logutil.GetLogger(ctx).Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
