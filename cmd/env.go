package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/terrastat/landcover-cli/internal/model"
	"github.com/terrastat/landcover-cli/internal/pipeline"
	"github.com/terrastat/landcover-cli/internal/store"
	"github.com/terrastat/landcover-cli/pkg/engine"
)

// pipelineEnv holds the initialized store, engine client, taxonomy, and
// pipeline shared by the classify/serve commands.
type pipelineEnv struct {
	Store    store.Store
	Engine   engine.Client
	Taxonomy model.Taxonomy
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initStore opens the configured run-record backend.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initTaxonomy loads the remap override when configured, otherwise the
// built-in reference taxonomy.
func initTaxonomy() (model.Taxonomy, error) {
	if cfg.Sampling.TaxonomyFile == "" {
		return model.DefaultTaxonomy(), nil
	}
	t, err := model.LoadTaxonomy(cfg.Sampling.TaxonomyFile)
	if err != nil {
		return model.Taxonomy{}, err
	}
	zap.L().Info("loaded taxonomy override",
		zap.String("path", cfg.Sampling.TaxonomyFile),
		zap.Int("remap_entries", len(t.Remap)),
	)
	return t, nil
}

// initPipeline sets up the store, engine client, and taxonomy, and builds
// the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	taxonomy, err := initTaxonomy()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	client := engine.NewClient(cfg.Engine.Key,
		engine.WithBaseURL(cfg.Engine.BaseURL),
		engine.WithRateLimit(cfg.Engine.RateLimit, cfg.Engine.Burst),
	)

	p := pipeline.New(cfg, client, st, taxonomy)

	return &pipelineEnv{
		Store:    st,
		Engine:   client,
		Taxonomy: taxonomy,
		Pipeline: p,
	}, nil
}

// regionTimeout converts the configured per-region budget to a duration.
func regionTimeout() time.Duration {
	return time.Duration(cfg.Batch.RegionTimeoutSecs) * time.Second
}
