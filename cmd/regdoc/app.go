package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wei292224644/regdoc"
	"github.com/wei292224644/regdoc/embed/gemini"
	"github.com/wei292224644/regdoc/embed/hashing"
	"github.com/wei292224644/regdoc/ingest"
	"github.com/wei292224644/regdoc/internal/config"
	"github.com/wei292224644/regdoc/observer"
	"github.com/wei292224644/regdoc/store/chromem"
	"github.com/wei292224644/regdoc/store/memory"
	"github.com/wei292224644/regdoc/store/postgres"
	"github.com/wei292224644/regdoc/store/sqlite"
)

// app bundles everything a command needs, built from config.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	index    regdoc.VectorIndex
	parents  regdoc.ParentStore
	embedder regdoc.Embedder
	inst     *observer.Instruments

	closers []func() error
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load(configPath)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	a := &app{cfg: cfg, logger: logger}

	embedder, err := buildEmbedder(cfg.Embedding, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx)
		if err != nil {
			return nil, fmt.Errorf("init observer: %w", err)
		}
		a.inst = inst
		a.closers = append(a.closers, func() error {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return shutdown(sctx)
		})
		embedder = observer.WrapEmbedder(embedder, inst)
	}
	a.embedder = embedder

	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// buildEmbedder constructs the configured embedder. The external
// gemini provider is wrapped in retry and, when throttles are set,
// rate limiting.
func buildEmbedder(cfg config.EmbeddingConfig, logger *slog.Logger) (regdoc.Embedder, error) {
	switch cfg.Provider {
	case "", "hashing":
		return hashing.New(hashing.WithDimensions(cfg.Dimensions)), nil

	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("embedding provider gemini needs an api key (embedding.api_key or REGDOC_GEMINI_API_KEY)")
		}
		var e regdoc.Embedder = gemini.New(cfg.APIKey, cfg.Model, cfg.Dimensions)
		e = regdoc.WithEmbedderRetry(e, regdoc.RetryLogger(logger))
		if cfg.RequestsPerMinute > 0 || cfg.ItemsPerMinute > 0 {
			var opts []regdoc.RateLimitOption
			if cfg.RequestsPerMinute > 0 {
				opts = append(opts, regdoc.RPM(cfg.RequestsPerMinute))
			}
			if cfg.ItemsPerMinute > 0 {
				opts = append(opts, regdoc.IPM(cfg.ItemsPerMinute))
			}
			e = regdoc.WithEmbedderRateLimit(e, opts...)
		}
		return e, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

func (a *app) openStores(ctx context.Context) error {
	switch a.cfg.Store.Backend {
	case "sqlite", "":
		s := sqlite.New(a.cfg.Store.Path, sqlite.WithLogger(a.logger))
		if err := s.Init(ctx); err != nil {
			return fmt.Errorf("init sqlite: %w", err)
		}
		a.index, a.parents = s, s
		a.closers = append(a.closers, s.Close)

	case "postgres":
		pool, err := pgxpool.New(ctx, a.cfg.Store.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		var opts []postgres.Option
		if a.cfg.Embedding.Dimensions > 0 {
			opts = append(opts, postgres.WithEmbeddingDimension(a.cfg.Embedding.Dimensions))
		}
		s := postgres.New(pool, opts...)
		if err := s.Init(ctx); err != nil {
			pool.Close()
			return fmt.Errorf("init postgres: %w", err)
		}
		a.index, a.parents = s, s
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

	case "chromem":
		idx, err := chromem.New(a.cfg.Store.Path, chromem.WithLogger(a.logger))
		if err != nil {
			return fmt.Errorf("open chromem: %w", err)
		}
		// chromem holds only vectors; parents go into a SQLite file
		// next to it.
		ps := sqlite.New(a.cfg.Store.Path+".parents.db", sqlite.WithLogger(a.logger))
		if err := ps.Init(ctx); err != nil {
			return fmt.Errorf("init parent store: %w", err)
		}
		a.index, a.parents = idx, ps
		a.closers = append(a.closers, idx.Close, ps.Close)

	case "memory":
		s := memory.New()
		a.index, a.parents = s, s

	default:
		return fmt.Errorf("unknown store backend %q", a.cfg.Store.Backend)
	}
	return nil
}

func (a *app) ingestor() *ingest.Ingestor {
	c := a.cfg.Ingest
	return ingest.NewIngestor(a.index, a.parents, a.embedder,
		ingest.WithStrategyConfig(ingest.StrategyConfig{
			ChunkSize:      c.ChunkSize,
			ChunkOverlap:   c.ChunkOverlap,
			MaxSectionSize: c.MaxSectionSize,
			ParentSize:     c.ParentSize,
			ChildSize:      c.ChildSize,
		}),
		ingest.WithEmbedTimeout(time.Duration(c.EmbedTimeoutSeconds)*time.Second),
		ingest.WithEmbedBatchSize(c.EmbedBatchSize),
		ingest.WithOCRConfig(a.cfg.OCR.MinTextLength, time.Duration(a.cfg.OCR.TimeoutSeconds)*time.Second),
		ingest.WithLogger(a.logger),
	)
}

func (a *app) retriever() *regdoc.Retriever {
	return regdoc.NewRetriever(a.index, a.parents, a.embedder,
		regdoc.WithRetrieverLogger(a.logger))
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}
