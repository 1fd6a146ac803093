package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "regdoc.db" {
		t.Errorf("store defaults = %+v", cfg.Store)
	}
	if cfg.Ingest.Strategy != "text" {
		t.Errorf("strategy default = %q", cfg.Ingest.Strategy)
	}
	if cfg.Ingest.ChunkSize != 1000 || cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunk defaults = %+v", cfg.Ingest)
	}
	if cfg.Ingest.ParentSize != 1024 || cfg.Ingest.ChildSize != 512 {
		t.Errorf("parent/child defaults = %+v", cfg.Ingest)
	}
	if cfg.OCR.MinTextLength != 10 || cfg.OCR.TimeoutSeconds != 30 {
		t.Errorf("ocr defaults = %+v", cfg.OCR)
	}
	if cfg.Embedding.Provider != "hashing" || cfg.Embedding.Dimensions != 256 {
		t.Errorf("embedding defaults = %+v", cfg.Embedding)
	}
	if cfg.Embedding.Model != "gemini-embedding-001" {
		t.Errorf("embedding model default = %q", cfg.Embedding.Model)
	}
	if cfg.Observer.Enabled {
		t.Error("observer enabled by default")
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regdoc.toml")
	content := `
[store]
backend = "postgres"
postgres_url = "postgres://localhost/regdoc"

[ingest]
strategy = "parent_child"
chunk_size = 800

[observer]
enabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Store.Backend != "postgres" {
		t.Errorf("backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.PostgresURL != "postgres://localhost/regdoc" {
		t.Errorf("postgres url = %q", cfg.Store.PostgresURL)
	}
	if cfg.Ingest.Strategy != "parent_child" {
		t.Errorf("strategy = %q", cfg.Ingest.Strategy)
	}
	if cfg.Ingest.ChunkSize != 800 {
		t.Errorf("chunk size = %d", cfg.Ingest.ChunkSize)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Ingest.ChunkOverlap != 200 {
		t.Errorf("chunk overlap = %d, want default", cfg.Ingest.ChunkOverlap)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer not enabled")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("backend = %q, want default", cfg.Store.Backend)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("REGDOC_STORE_BACKEND", "memory")
	t.Setenv("REGDOC_INGEST_STRATEGY", "heading")
	t.Setenv("REGDOC_OBSERVER_ENABLED", "true")

	path := filepath.Join(t.TempDir(), "regdoc.toml")
	if err := os.WriteFile(path, []byte("[store]\nbackend = \"postgres\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Store.Backend != "memory" {
		t.Errorf("backend = %q, want env to win over file", cfg.Store.Backend)
	}
	if cfg.Ingest.Strategy != "heading" {
		t.Errorf("strategy = %q", cfg.Ingest.Strategy)
	}
	if !cfg.Observer.Enabled {
		t.Error("observer not enabled via env")
	}
}

func TestLoadEmbeddingSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regdoc.toml")
	content := `
[embedding]
provider = "gemini"
api_key = "file-key"
model = "gemini-embedding-001"
requests_per_minute = 90
items_per_minute = 2000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Embedding.Provider != "gemini" || cfg.Embedding.APIKey != "file-key" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Embedding.RequestsPerMinute != 90 || cfg.Embedding.ItemsPerMinute != 2000 {
		t.Errorf("throttles = %+v", cfg.Embedding)
	}
	// Dimensions keeps its default when the file omits it.
	if cfg.Embedding.Dimensions != 256 {
		t.Errorf("dimensions = %d, want default", cfg.Embedding.Dimensions)
	}
}

func TestLoadEmbeddingEnvOverrides(t *testing.T) {
	t.Setenv("REGDOC_EMBEDDING_PROVIDER", "gemini")
	t.Setenv("REGDOC_GEMINI_API_KEY", "env-key")

	path := filepath.Join(t.TempDir(), "regdoc.toml")
	if err := os.WriteFile(path, []byte("[embedding]\napi_key = \"file-key\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Embedding.Provider != "gemini" {
		t.Errorf("provider = %q, want env to win", cfg.Embedding.Provider)
	}
	if cfg.Embedding.APIKey != "env-key" {
		t.Errorf("api key = %q, want env to win over file", cfg.Embedding.APIKey)
	}
}
