// Package core composes the resolver with persistence into the operations the
// CLI and importer call.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"taxoncore/internal/taxonomy"
	"taxoncore/pkg/domain"
)

// Service resolves identifiers and persists the resulting taxa.
type Service struct {
	resolver *taxonomy.Resolver
	store    domain.TaxonStore
	logger   *slog.Logger
	tracer   Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for every operation.
func WithTracer(t Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService constructs a service over resolver and store.
func NewService(resolver *taxonomy.Resolver, store domain.TaxonStore, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying taxon store.
func (s *Service) Store() domain.TaxonStore { return s.store }

// Resolver returns the underlying resolver.
func (s *Service) Resolver() *taxonomy.Resolver { return s.resolver }

// Close releases the store.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Lookup resolves taxID with a single streaming pass over the lineage dump.
func (s *Service) Lookup(ctx context.Context, taxID int64) (domain.Lineage, error) {
	return s.trace(ctx, "lookup", taxID, func(ctx context.Context) (domain.Lineage, error) {
		return s.resolver.Lookup(ctx, taxID, nil)
	})
}

// Resolve resolves taxID through cache, populating it on first use.
func (s *Service) Resolve(ctx context.Context, taxID int64, cache *taxonomy.Cache) (domain.Lineage, error) {
	return s.trace(ctx, "resolve", taxID, func(ctx context.Context) (domain.Lineage, error) {
		return s.resolver.Lookup(ctx, taxID, cache)
	})
}

// StoreTaxon resolves taxID and upserts the lineage. A merged identifier is
// stored under its replacement.
func (s *Service) StoreTaxon(ctx context.Context, taxID int64, cache *taxonomy.Cache) (domain.Taxon, error) {
	if s.store == nil {
		return domain.Taxon{}, errors.New("core: no taxon store configured")
	}
	lineage, err := s.Resolve(ctx, taxID, cache)
	if err != nil {
		return domain.Taxon{}, err
	}
	ctx, span := s.tracer.Start(WithTaxID(ctx, lineage.TaxID), "store_taxon")
	taxon, err := s.store.UpsertTaxon(ctx, lineage)
	span.End(err)
	if err != nil {
		return domain.Taxon{}, fmt.Errorf("store taxon %d: %w", lineage.TaxID, err)
	}
	if lineage.TaxID != taxID {
		s.logger.Info("stored merged taxon", "requested", taxID, "stored", lineage.TaxID)
	}
	return taxon, nil
}

func (s *Service) trace(ctx context.Context, op string, taxID int64, fn func(context.Context) (domain.Lineage, error)) (domain.Lineage, error) {
	ctx, span := s.tracer.Start(WithTaxID(ctx, taxID), op)
	lineage, err := fn(ctx)
	span.End(err)
	if err != nil {
		level := slog.LevelError
		if taxonomy.IsInvalidTaxID(err) {
			level = slog.LevelWarn
		}
		s.logger.Log(ctx, level, op+" failed", "taxid", taxID, "err", err)
	}
	return lineage, err
}
