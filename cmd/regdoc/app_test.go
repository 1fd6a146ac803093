package main

import (
	"log/slog"
	"testing"

	"github.com/wei292224644/regdoc/internal/config"
)

func TestBuildEmbedderDefaultsToHashing(t *testing.T) {
	logger := slog.Default()

	e, err := buildEmbedder(config.EmbeddingConfig{Dimensions: 128}, logger)
	if err != nil {
		t.Fatalf("buildEmbedder() error = %v", err)
	}
	if e.Name() != "hashing" {
		t.Errorf("name = %q, want hashing", e.Name())
	}
	if e.Dimensions() != 128 {
		t.Errorf("dimensions = %d, want 128", e.Dimensions())
	}
}

func TestBuildEmbedderGemini(t *testing.T) {
	cfg := config.EmbeddingConfig{
		Provider:          "gemini",
		APIKey:            "test-key",
		Model:             "gemini-embedding-001",
		Dimensions:        256,
		RequestsPerMinute: 90,
	}
	e, err := buildEmbedder(cfg, slog.Default())
	if err != nil {
		t.Fatalf("buildEmbedder() error = %v", err)
	}
	// Retry and rate-limit wrappers delegate Name to the provider.
	if e.Name() != "gemini" {
		t.Errorf("name = %q, want gemini", e.Name())
	}
	if e.Dimensions() != 256 {
		t.Errorf("dimensions = %d, want 256", e.Dimensions())
	}
}

func TestBuildEmbedderGeminiNeedsKey(t *testing.T) {
	if _, err := buildEmbedder(config.EmbeddingConfig{Provider: "gemini"}, slog.Default()); err == nil {
		t.Fatal("buildEmbedder() error = nil, want missing-key error")
	}
}

func TestBuildEmbedderUnknownProvider(t *testing.T) {
	if _, err := buildEmbedder(config.EmbeddingConfig{Provider: "word2vec"}, slog.Default()); err == nil {
		t.Fatal("buildEmbedder() error = nil, want unknown-provider error")
	}
}
