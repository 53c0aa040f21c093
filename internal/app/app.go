// Package app assembles the extraction service from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Salamony4all/Estem8-V1/internal/cache"
	"github.com/Salamony4all/Estem8-V1/internal/config"
	"github.com/Salamony4all/Estem8-V1/internal/engine"
	"github.com/Salamony4all/Estem8-V1/internal/extraction"
	"github.com/Salamony4all/Estem8-V1/internal/observability"
	"github.com/Salamony4all/Estem8-V1/internal/storage"
)

// App holds the wired components shared by the API server and the CLI.
type App struct {
	Config   *config.Config
	Provider *engine.Provider
	Service  *extraction.Service
	Jobs     *storage.JobRepository

	cache  cache.Client
	db     *sql.DB
	logger *observability.Logger
}

// New wires the engine provider, cache, job store and extraction service.
// The engine itself is not constructed here.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		logger: logger,
	}

	a.Provider = engine.NewProvider(engine.NewFactory(cfg.Engine, logger), logger)

	var opts []extraction.Option

	c, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	if c != nil {
		a.cache = c
		opts = append(opts, extraction.WithCache(c, cfg.Cache.TTL))
		logger.Info().Str("driver", cfg.Cache.Driver).Dur("ttl", cfg.Cache.TTL).Msg("Result cache enabled")
	}

	db, err := storage.Open(cfg.Storage)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	if db != nil {
		a.db = db
		if err := storage.Migrate(ctx, db); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to migrate job store: %w", err)
		}
		a.Jobs = storage.NewJobRepository(db)
		opts = append(opts, extraction.WithJobRecorder(a.Jobs))
		logger.Info().Str("driver", cfg.Storage.Driver).Msg("Job audit store enabled")
	}

	stager := extraction.NewStager(cfg.Staging.Dir, cfg.Staging.Suffix, logger)
	a.Service = extraction.NewService(a.Provider, stager, logger, opts...)

	return a, nil
}

// Close releases the cache and database connections.
func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close cache")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close job store")
		}
	}
}
