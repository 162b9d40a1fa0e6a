package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	LogConfig  logger.LogConfig `json:"log_config"`
	AI         AIConfig         `json:"ai"`
	Index      IndexConfig      `json:"index"`
	Chunking   ChunkingConfig   `json:"chunking"`
	FileSource FileSourceConfig `json:"file_source"`
	Schedule   ScheduleConfig   `json:"schedule"`
}

type AIConfig struct {
	Provider    string      `json:"provider"`
	Model       string      `json:"model"`
	Data        interface{} `json:"data"`
	Dimension   int         `json:"dimension"`
	BatchSize   int         `json:"batch_size"`
	PaceMs      int         `json:"pace_ms"`
	CacheSize   int         `json:"cache_size"`
	CacheTTLMin int         `json:"cache_ttl_min"`
}

type IndexConfig struct {
	BaseURL     string `json:"base_url"`
	ControlURL  string `json:"control_url"`
	APIKey      string `json:"api_key"`
	Name        string `json:"name"`
	Dimension   int    `json:"dimension"`
	Metric      string `json:"metric"`
	UpsertBatch int    `json:"upsert_batch"`
	PaceMs      int    `json:"pace_ms"`
}

type ChunkingConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
}

type FileSourceConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ScheduleConfig struct {
	CleanupSpec   string `json:"cleanup_spec"`
	CleanupSample int    `json:"cleanup_sample"`
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
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.Model == "" {
		return nil, fmt.Errorf("ai.model is required")
	}
	if cfg.Index.BaseURL == "" {
		return nil, fmt.Errorf("index.base_url is required")
	}
	if cfg.Index.Name == "" {
		return nil, fmt.Errorf("index.name is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.AI.Dimension == 0 {
		cfg.AI.Dimension = 1536
	}
	if cfg.AI.BatchSize == 0 {
		cfg.AI.BatchSize = 10
	}
	if cfg.AI.PaceMs == 0 {
		cfg.AI.PaceMs = 200
	}
	if cfg.Index.Dimension == 0 {
		cfg.Index.Dimension = cfg.AI.Dimension
	}
	if cfg.Index.Metric == "" {
		cfg.Index.Metric = "cosine"
	}
	if cfg.Index.UpsertBatch == 0 {
		cfg.Index.UpsertBatch = 100
	}
	if cfg.Index.PaceMs == 0 {
		cfg.Index.PaceMs = 100
	}
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
	}
	if cfg.Chunking.ChunkOverlap == 0 {
		cfg.Chunking.ChunkOverlap = 200
	}
	if cfg.FileSource.Type == "" {
		cfg.FileSource.Type = "local"
	}
	if cfg.Schedule.CleanupSample == 0 {
		cfg.Schedule.CleanupSample = 5000
	}
	return &cfg, nil
}
