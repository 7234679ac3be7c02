// Package config provides configuration loading and structs for ruiji.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tsukihi/ruiji/internal/schema"
)

// ErrInvalid is wrapped by all configuration load and validation failures.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all configuration for the application.
type Config struct {
	Debug      bool              `yaml:"debug"`
	Milvus     MilvusConfig      `yaml:"milvus"`
	Collection schema.Collection `yaml:"collection"`
	Embedding  EmbeddingConfig   `yaml:"embedding"`
	Server     ServerConfig      `yaml:"server"`
	Ingest     IngestConfig      `yaml:"ingest"`
	Search     SearchConfig      `yaml:"search"`
}

// MilvusConfig holds connection settings for the external database service.
type MilvusConfig struct {
	Address         string        `yaml:"address"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
	ConnectAttempts int           `yaml:"connect_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
}

// EmbeddingConfig holds embedder settings.
type EmbeddingConfig struct {
	ModelPath  string `yaml:"model_path"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// IngestConfig holds sentence file ingestion settings.
type IngestConfig struct {
	LedgerPath  string   `yaml:"ledger_path"`
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
	BatchSize   int      `yaml:"batch_size"`
}

// RecursiveOrDefault returns whether to walk ingest directories recursively;
// defaults to true when unset.
func (c *IngestConfig) RecursiveOrDefault() bool {
	if c.Recursive != nil {
		return *c.Recursive
	}
	return true
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultLimit int      `yaml:"default_limit"`
	MaxLimit     int      `yaml:"max_limit"`
	OutputFields []string `yaml:"output_fields"`
}

// Load reads and parses the config file at path, applies defaults, expands
// relative paths, and validates. All failures wrap ErrInvalid except the
// initial file read.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse yaml: %v", ErrInvalid, err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	cfg.Ingest.LedgerPath = expandPath(cfg.Ingest.LedgerPath, configDir)
	for i := range cfg.Ingest.Directories {
		cfg.Ingest.Directories[i] = expandPath(cfg.Ingest.Directories[i], configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks connection settings and the collection schema.
// All failures wrap ErrInvalid.
func (c *Config) Validate() error {
	if c.Milvus.Address == "" {
		return fmt.Errorf("%w: milvus address is required", ErrInvalid)
	}
	if err := c.Collection.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if vf := c.Collection.VectorField(); vf != nil && c.Embedding.Dimensions != vf.Dim {
		return fmt.Errorf("%w: embedding dimensions (%d) do not match vector field %q dim (%d)",
			ErrInvalid, c.Embedding.Dimensions, vf.Name, vf.Dim)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return fmt.Errorf("%w: search default_limit (%d) exceeds max_limit (%d)",
			ErrInvalid, c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative
// to configDir; other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
