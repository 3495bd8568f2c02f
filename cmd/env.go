package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/studioforge/asset-cli/internal/classify"
	"github.com/studioforge/asset-cli/internal/config"
	"github.com/studioforge/asset-cli/internal/extract"
	"github.com/studioforge/asset-cli/internal/prepass"
	"github.com/studioforge/asset-cli/internal/store"
	"github.com/studioforge/asset-cli/pkg/voyage"
)

// pipelineEnv bundles the wired pipeline collaborators for one command
// invocation.
type pipelineEnv struct {
	Store     store.Store
	Extractor *extract.Service
	Prepass   *prepass.Runner
	Classify  *classify.Runner
}

func (e *pipelineEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "asset-cli.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	var embedder voyage.Client
	if cfg.Voyage.Key != "" {
		opts := []voyage.Option{voyage.WithRateLimit(float64(cfg.Voyage.RequestsPerMinute) / 60.0)}
		if cfg.Voyage.BaseURL != "" {
			opts = append(opts, voyage.WithBaseURL(cfg.Voyage.BaseURL))
		}
		embedder = voyage.NewClient(cfg.Voyage.Key, cfg.Voyage.Model, opts...)
	}

	extractor := extract.NewService(cfg.Anthropic.Key, cfg.Anthropic.VisionModel, embedder)

	prepassRunner := &prepass.Runner{
		Extractor:  extractor,
		Store:      st,
		Perm:       prepass.AllowAll,
		MaxRetries: cfg.Extract.MaxRetries,
	}

	classifyRunner := &classify.Runner{
		Extractor: extractor,
		Store:     st,
		Prepass:   prepassRunner,
		Perm:      prepass.AllowAll,
		Config:    classifyConfig(cfg),
	}

	return &pipelineEnv{
		Store:     st,
		Extractor: extractor,
		Prepass:   prepassRunner,
		Classify:  classifyRunner,
	}, nil
}

func classifyConfig(cfg *config.Config) classify.Config {
	return classify.Config{
		ScoreThreshold:      cfg.Pipeline.ScoreThreshold,
		Margin:              cfg.Pipeline.Margin,
		TopK:                cfg.Pipeline.TopK,
		ActivationCharacter: cfg.Pipeline.ActivationCharacter,
		ActivationLocation:  cfg.Pipeline.ActivationLocation,
		ActivationScene:     cfg.Pipeline.ActivationScene,
		PriorBonus:          cfg.Pipeline.PriorBonus,
		MaxRetries:          cfg.Extract.MaxRetries,
	}
}
