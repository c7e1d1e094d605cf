package core

import (
	"context"
	"log/slog"
	"strings"

	"taxoncore/internal/blob"
	"taxoncore/internal/config"
	"taxoncore/internal/dumpsource"
	"taxoncore/internal/taxonomy"
)

// Dependencies carries the process-wide collaborators a Service is built from.
type Dependencies struct {
	Logger  *slog.Logger
	Metrics taxonomy.MetricsRecorder
	Tracer  Tracer
}

// NewResolver validates cfg and builds a resolver over the configured dumps.
// The blob store is opened only when a dump lives in it.
func NewResolver(ctx context.Context, cfg config.Config, deps Dependencies) (*taxonomy.Resolver, error) {
	if err := cfg.ValidateDumps(); err != nil {
		return nil, err
	}
	var store blob.Store
	if strings.HasPrefix(cfg.LineageDump, "blob://") || strings.HasPrefix(cfg.MergedDump, "blob://") {
		var err error
		if store, err = blob.Open(ctx, cfg.Blob.Store()); err != nil {
			return nil, err
		}
	}
	locator := dumpsource.NewLocator(store, cfg.Blob.S3())
	lineage, err := locator.Source(ctx, "TAXONCORE_LINEAGE_DUMP", cfg.LineageDump)
	if err != nil {
		return nil, err
	}
	merged, err := locator.Source(ctx, "TAXONCORE_MERGED_DUMP", cfg.MergedDump)
	if err != nil {
		return nil, err
	}
	return taxonomy.NewResolver(taxonomy.Config{Lineage: lineage, Merged: merged},
		taxonomy.WithLogger(deps.Logger),
		taxonomy.WithMetrics(deps.Metrics),
		taxonomy.WithProgressInterval(cfg.ProgressInterval),
	)
}

// Open builds a Service from cfg: resolver first, then the taxon store.
func Open(ctx context.Context, cfg config.Config, deps Dependencies) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	resolver, err := NewResolver(ctx, cfg, deps)
	if err != nil {
		return nil, err
	}
	store, err := OpenTaxonStore(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}
	return NewService(resolver, store, WithLogger(deps.Logger), WithTracer(deps.Tracer)), nil
}
