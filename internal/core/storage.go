package core

import (
	"context"
	"fmt"

	"taxoncore/internal/config"
	"taxoncore/internal/infra/persistence/memory"
	"taxoncore/internal/infra/persistence/postgres"
	"taxoncore/internal/infra/persistence/sqlite"
	"taxoncore/pkg/domain"
)

// OpenTaxonStore selects a backend from cfg. An empty driver means sqlite.
func OpenTaxonStore(ctx context.Context, cfg config.StorageConfig) (domain.TaxonStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return memory.NewStore(), nil
	case "", config.StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath)
	case config.StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
