// Package config loads the regdoc configuration: defaults, then a
// TOML file, then environment variables (env wins).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Store     StoreConfig     `toml:"store"`
	Ingest    IngestConfig    `toml:"ingest"`
	OCR       OCRConfig       `toml:"ocr"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Observer  ObserverConfig  `toml:"observer"`
}

type StoreConfig struct {
	// Backend selects the storage implementation: sqlite, postgres,
	// chromem, or memory.
	Backend string `toml:"backend"`
	// Path is the SQLite file or chromem directory.
	Path string `toml:"path"`
	// PostgresURL is the pgx connection string for the postgres backend.
	PostgresURL string `toml:"postgres_url"`
}

type IngestConfig struct {
	Strategy       string `toml:"strategy"`
	ChunkSize      int    `toml:"chunk_size"`
	ChunkOverlap   int    `toml:"chunk_overlap"`
	MaxSectionSize int    `toml:"max_section_size"`
	ParentSize     int    `toml:"parent_size"`
	ChildSize      int    `toml:"child_size"`
	// EmbedTimeoutSeconds bounds one embedding batch call.
	EmbedTimeoutSeconds int `toml:"embed_timeout_seconds"`
	EmbedBatchSize      int `toml:"embed_batch_size"`
}

type OCRConfig struct {
	// MinTextLength is the per-page extracted text length below which
	// the page is considered scanned.
	MinTextLength  int `toml:"min_text_length"`
	TimeoutSeconds int `toml:"timeout_seconds"`
}

type EmbeddingConfig struct {
	// Provider selects the embedder backend: hashing (offline,
	// deterministic) or gemini.
	Provider string `toml:"provider"`
	// APIKey authenticates the gemini provider.
	// REGDOC_GEMINI_API_KEY overrides it.
	APIKey     string `toml:"api_key"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	// RequestsPerMinute and ItemsPerMinute throttle calls to the
	// external provider. Zero leaves the limiter off.
	RequestsPerMinute int `toml:"requests_per_minute"`
	ItemsPerMinute    int `toml:"items_per_minute"`
}

type ObserverConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Store: StoreConfig{Backend: "sqlite", Path: "regdoc.db"},
		Ingest: IngestConfig{
			Strategy:            "text",
			ChunkSize:           1000,
			ChunkOverlap:        200,
			MaxSectionSize:      2000,
			ParentSize:          1024,
			ChildSize:           512,
			EmbedTimeoutSeconds: 30,
			EmbedBatchSize:      16,
		},
		OCR: OCRConfig{MinTextLength: 10, TimeoutSeconds: 30},
		Embedding: EmbeddingConfig{
			Provider:   "hashing",
			Model:      "gemini-embedding-001",
			Dimensions: 256,
		},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "regdoc.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("REGDOC_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("REGDOC_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("REGDOC_POSTGRES_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("REGDOC_INGEST_STRATEGY"); v != "" {
		cfg.Ingest.Strategy = v
	}
	if v := os.Getenv("REGDOC_EMBEDDING_PROVIDER"); v != "" {
		cfg.Embedding.Provider = v
	}
	if v := os.Getenv("REGDOC_GEMINI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if os.Getenv("REGDOC_OBSERVER_ENABLED") == "true" || os.Getenv("REGDOC_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	return cfg
}
