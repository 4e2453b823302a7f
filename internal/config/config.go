package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/trialrag/trialrag/internal/logger"
)

const (
	BackendTFIDF     = "tfidf"
	BackendEmbedding = "embedding"
)

type Config struct {
	Bind        string         `json:"bind"`
	DBPath      string         `json:"db_path"`
	LogConfig   logger.Config  `json:"log_config"`
	Vector      VectorConfig   `json:"vector"`
	LLM         LLMConfig      `json:"llm"`
	Chat        ChatConfig     `json:"chat"`
	Scrape      ScrapeConfig   `json:"scrape"`
	Schedule    ScheduleConfig `json:"schedule"`
	CORSOrigins []string       `json:"cors_origins"`
	RateLimitMS int            `json:"rate_limit_ms"`
}

type VectorConfig struct {
	Backend   string          `json:"backend"`
	Store     StoreConfig     `json:"store"`
	TFIDF     TFIDFConfig     `json:"tfidf"`
	Embedding EmbeddingConfig `json:"embedding"`
}

// StoreConfig selects the snapshot store backing an index directory. Data is
// decoded by the named store factory.
type StoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type TFIDFConfig struct {
	MinDF      int     `json:"min_df"`
	MaxDFRatio float64 `json:"max_df_ratio"`
	NgramMax   int     `json:"ngram_max"`
}

type EmbeddingConfig struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	CacheSize    int    `json:"cache_size"`
	CacheTTLMins int    `json:"cache_ttl_minutes"`
}

type LLMConfig struct {
	Providers      map[string]interface{} `json:"providers"`
	Generate       []LLMEntry             `json:"generate"`
	Temperature    float64                `json:"temperature"`
	MaxTokens      int                    `json:"max_tokens"`
	TimeoutSeconds int                    `json:"timeout_seconds"`
}

type LLMEntry struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type ChatConfig struct {
	CacheSize    int `json:"cache_size"`
	CacheTTLMins int `json:"cache_ttl_minutes"`
	HistoryLimit int `json:"history_limit"`
	MaxResults   int `json:"max_results"`
}

type ScrapeConfig struct {
	BaseURL     string `json:"base_url"`
	MaxPages    int    `json:"max_pages"`
	Concurrency int    `json:"concurrency"`
	DelayMS     int    `json:"delay_ms"`
	Output      string `json:"output"`
}

type ScheduleConfig struct {
	Enabled     bool   `json:"enabled"`
	RefreshSpec string `json:"refresh_spec"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := parseAndCheck(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func parseAndCheck(cfg *Config) error {
	if cfg.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if cfg.Bind == "" {
		cfg.Bind = "0.0.0.0:8080"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = BackendTFIDF
	}
	switch cfg.Vector.Backend {
	case BackendTFIDF:
	case BackendEmbedding:
		if cfg.Vector.Embedding.Provider == "" || cfg.Vector.Embedding.Model == "" {
			return fmt.Errorf("vector.embedding provider/model are required for the embedding backend")
		}
	default:
		return fmt.Errorf("vector.backend must be %s or %s", BackendTFIDF, BackendEmbedding)
	}
	if cfg.Vector.Store.Type == "" {
		cfg.Vector.Store.Type = "local"
	}
	if cfg.Vector.TFIDF.MinDF <= 0 {
		cfg.Vector.TFIDF.MinDF = 2
	}
	if cfg.Vector.TFIDF.MaxDFRatio <= 0 || cfg.Vector.TFIDF.MaxDFRatio > 1 {
		cfg.Vector.TFIDF.MaxDFRatio = 0.95
	}
	if cfg.Vector.TFIDF.NgramMax <= 0 {
		cfg.Vector.TFIDF.NgramMax = 2
	}
	if cfg.Vector.Embedding.CacheSize <= 0 {
		cfg.Vector.Embedding.CacheSize = 10000
	}
	if cfg.Vector.Embedding.CacheTTLMins <= 0 {
		cfg.Vector.Embedding.CacheTTLMins = 120
	}
	for i, entry := range cfg.LLM.Generate {
		if entry.Provider == "" || entry.Model == "" {
			return fmt.Errorf("llm.generate[%d] provider/model are required", i)
		}
		if _, ok := cfg.LLM.Providers[entry.Provider]; !ok {
			return fmt.Errorf("llm.generate[%d] references unconfigured provider %q", i, entry.Provider)
		}
	}
	if cfg.LLM.Temperature <= 0 {
		cfg.LLM.Temperature = 0.3
	}
	if cfg.LLM.MaxTokens <= 0 {
		cfg.LLM.MaxTokens = 800
	}
	if cfg.LLM.TimeoutSeconds <= 0 {
		cfg.LLM.TimeoutSeconds = 30
	}
	if cfg.Chat.CacheSize <= 0 {
		cfg.Chat.CacheSize = 4096
	}
	if cfg.Chat.CacheTTLMins <= 0 {
		cfg.Chat.CacheTTLMins = 30
	}
	if cfg.Chat.HistoryLimit <= 0 {
		cfg.Chat.HistoryLimit = 5
	}
	if cfg.Chat.MaxResults <= 0 {
		cfg.Chat.MaxResults = 5
	}
	if cfg.Scrape.BaseURL == "" {
		cfg.Scrape.BaseURL = "https://clinicaltrials.utswmed.org"
	}
	if cfg.Scrape.MaxPages <= 0 {
		cfg.Scrape.MaxPages = 50
	}
	if cfg.Scrape.Concurrency <= 0 {
		cfg.Scrape.Concurrency = 4
	}
	if cfg.Scrape.DelayMS < 0 {
		cfg.Scrape.DelayMS = 0
	}
	if cfg.Schedule.Enabled && cfg.Schedule.RefreshSpec == "" {
		return fmt.Errorf("schedule.refresh_spec is required when schedule.enabled")
	}
	return nil
}
