// Package backend selects and opens the configured storage backend.
package backend

import (
	"context"
	"fmt"

	"kassa/internal/config"
	"kassa/internal/storage"
	"kassa/internal/storage/memory"
	"kassa/internal/storage/postgres"
	"kassa/internal/storage/sqlite"
)

type Type string

const (
	Memory   Type = "memory"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) IsValid() bool {
	switch t {
	case Memory, SQLite, Postgres:
		return true
	}
	return false
}

// Open builds the repository the config asks for. SQL backends run their
// migrations before returning.
func Open(ctx context.Context, cfg *config.Config) (storage.Repository, error) {
	t := Type(cfg.DataBackend)
	switch t {
	case Memory:
		return memory.New(), nil
	case SQLite:
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite backend: %w", err)
		}
		return repo, nil
	case Postgres:
		repo, err := postgres.NewRepository(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres backend: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
