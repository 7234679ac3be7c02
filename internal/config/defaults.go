package config

import (
	"time"

	"github.com/tsukihi/ruiji/internal/schema"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Milvus.Address == "" {
		cfg.Milvus.Address = "localhost:19530"
	}
	if cfg.Milvus.ConnectTimeout == 0 {
		cfg.Milvus.ConnectTimeout = 5 * time.Second
	}
	if cfg.Milvus.ConnectAttempts == 0 {
		cfg.Milvus.ConnectAttempts = 10
	}
	if cfg.Milvus.RetryDelay == 0 {
		cfg.Milvus.RetryDelay = 2 * time.Second
	}

	if cfg.Collection.Consistency == "" {
		cfg.Collection.Consistency = "Strong"
	}
	if cfg.Collection.Index.Type == "" {
		cfg.Collection.Index.Type = schema.IndexIVFFlat
	}
	if cfg.Collection.Index.Metric == "" {
		cfg.Collection.Index.Metric = schema.MetricL2
	}
	if cfg.Collection.Index.Nlist == 0 {
		cfg.Collection.Index.Nlist = 128
	}
	if cfg.Collection.Index.Nprobe == 0 {
		cfg.Collection.Index.Nprobe = 10
	}

	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	// The vector field dim and the embedder dimension describe the same thing;
	// either may be set in the file and the other follows.
	if vf := cfg.Collection.VectorField(); vf != nil {
		if vf.Dim == 0 {
			vf.Dim = cfg.Embedding.Dimensions
		}
		if cfg.Embedding.Dimensions == 0 {
			cfg.Embedding.Dimensions = vf.Dim
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Ingest.LedgerPath == "" {
		cfg.Ingest.LedgerPath = "./data/ingest.db"
	}
	if cfg.Ingest.Extensions == nil {
		cfg.Ingest.Extensions = []string{".txt"}
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 128
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Ingest.Directories) > 0 && cfg.Ingest.Recursive == nil {
		t := true
		cfg.Ingest.Recursive = &t
	}

	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
}
