package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"graphorm/internal/config"
	"graphorm/internal/graph"
	"graphorm/internal/metadata"
	"graphorm/internal/store"
	"graphorm/internal/store/postgres"
	"graphorm/internal/store/sqlite"
)

const defaultConfigFile = "graphorm.yaml"

// project is a loaded config, its schema declared into a fresh registry,
// and an open database.
type project struct {
	cfg    *config.ProjectConfig
	reg    *metadata.Registry
	db     store.Database
	logger *slog.Logger
}

func openProject(ctx context.Context) (*project, error) {
	logger := newLogger(verbose)

	cfg, reg, err := loadRegistry()
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug("opened database", "backend", cfg.Backend, "kinds", len(reg.Entities()))
	return &project{cfg: cfg, reg: reg, db: db, logger: logger}, nil
}

// loadRegistry reads the project config and declares its schema without
// touching the database.
func loadRegistry() (*config.ProjectConfig, *metadata.Registry, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	schema, err := config.LoadSchema(cfg.SchemaPath())
	if err != nil {
		return nil, nil, err
	}
	reg := metadata.NewRegistry()
	if err := schema.Declare(reg); err != nil {
		return nil, nil, fmt.Errorf("declaring schema: %w", err)
	}
	return cfg, reg, nil
}

func (p *project) Close(ctx context.Context) {
	if err := p.db.Close(ctx); err != nil {
		p.logger.Warn("closing database", "error", err)
	}
}

func openDB(ctx context.Context, cfg *config.ProjectConfig, logger *slog.Logger) (store.Database, error) {
	switch cfg.Backend {
	case config.BackendNeo4j:
		client, err := graph.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.Username, cfg.Neo4j.Password, cfg.Neo4j.Database, graph.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendSQLite:
		client, err := sqlite.New(ctx, cfg.SQL.DSN, sqlite.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.BackendPostgres:
		client, err := postgres.New(ctx, cfg.SQL.DSN, postgres.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
