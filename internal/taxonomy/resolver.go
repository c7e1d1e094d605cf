// Package taxonomy resolves NCBI taxonomy identifiers into full lineages by
// streaming pipe-delimited reference dumps.
//
// Two strategies are offered. Without a cache every lookup is a single-shot
// scan of the lineage dump, which suits one-off lookups. With a caller-owned
// Cache the first lookup pays for one full pass over the dump and every later
// lookup is a map access, which suits bulk import. Only the cached path falls
// back to the merged dump for retired identifiers, and it follows at most one
// redirection.
package taxonomy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"taxoncore/pkg/domain"
)

// Lookup outcomes reported to MetricsRecorder.
const (
	OutcomeHit       = "hit"
	OutcomeMergedHit = "merged_hit"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
)

// Config names the two dumps. It is resolved once per process and passed in.
type Config struct {
	Lineage Source
	Merged  Source
}

// Validate reports the first missing dump.
func (c Config) Validate() error {
	if c.Lineage == nil {
		return &MissingConfigurationError{Key: "lineage dump"}
	}
	if c.Merged == nil {
		return &MissingConfigurationError{Key: "merged dump"}
	}
	return nil
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m MetricsRecorder) Option {
	return func(r *Resolver) {
		if m != nil {
			r.metrics = m
		}
	}
}

// WithProgressInterval sets how many lines pass between population progress
// signals. Non-positive values disable the signal.
func WithProgressInterval(lines int) Option {
	return func(r *Resolver) { r.scanner.progressInterval = lines }
}

// WithProgress registers a hook invoked with the running line count at each
// progress signal.
func WithProgress(fn func(lines int)) Option {
	return func(r *Resolver) { r.scanner.progress = fn }
}

// Resolver is the entry point for taxid resolution. It holds no lookup state
// of its own and is safe to share; caches are passed per call.
type Resolver struct {
	scanner *DumpScanner
	merged  *MergedIndex
	logger  *slog.Logger
	metrics MetricsRecorder
}

// NewResolver validates cfg and builds a resolver.
func NewResolver(cfg Config, opts ...Option) (*Resolver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		scanner: NewDumpScanner(cfg.Lineage, nil),
		merged:  NewMergedIndex(cfg.Merged, nil),
		logger:  discardLogger(),
		metrics: NopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.scanner.logger = r.logger
	r.merged.logger = r.logger
	return r, nil
}

// Lookup resolves taxID. With a nil cache it performs a single-shot scan of
// the lineage dump. Otherwise it populates cache on first use, then tries a
// direct hit followed by one merged redirection.
//
// Failures: *InvalidTaxIDError when the identifier does not resolve,
// *MalformedRecordError when a dump line is corrupt, ErrCacheUnusable when
// cache population previously failed, or the underlying I/O error.
func (r *Resolver) Lookup(ctx context.Context, taxID int64, cache *Cache) (domain.Lineage, error) {
	rec, outcome, err := r.lookup(ctx, taxID, cache)
	r.metrics.ObserveLookup(outcome)
	return rec, err
}

func (r *Resolver) lookup(ctx context.Context, taxID int64, cache *Cache) (domain.Lineage, string, error) {
	if cache == nil {
		r.metrics.ObserveScan(ScanSingleShot)
		rec, err := r.scanner.Find(ctx, taxID)
		switch {
		case err == nil:
			return rec, OutcomeHit, nil
		case errors.Is(err, ErrNotFound):
			return domain.Lineage{}, OutcomeInvalid, &InvalidTaxIDError{TaxID: taxID}
		default:
			return domain.Lineage{}, OutcomeError, err
		}
	}

	if err := r.populate(ctx, cache); err != nil {
		return domain.Lineage{}, OutcomeError, err
	}
	if rec, ok := cache.Get(taxID); ok {
		return rec, OutcomeHit, nil
	}

	r.metrics.ObserveScan(ScanMerged)
	replacement, err := r.merged.Resolve(ctx, taxID)
	if errors.Is(err, ErrNotFound) {
		return domain.Lineage{}, OutcomeInvalid, &InvalidTaxIDError{TaxID: taxID}
	}
	if err != nil {
		return domain.Lineage{}, OutcomeError, err
	}
	rec, ok := cache.Get(replacement)
	if !ok {
		r.logger.Debug("merged taxid target missing from lineage dump", "taxid", taxID, "replacement", replacement)
		return domain.Lineage{}, OutcomeInvalid, &InvalidTaxIDError{TaxID: taxID}
	}
	r.logger.Debug("resolved merged taxid", "taxid", taxID, "replacement", replacement)
	return rec, OutcomeMergedHit, nil
}

// populate fills an empty cache, logging and recording the pass.
func (r *Resolver) populate(ctx context.Context, cache *Cache) error {
	if cache.State() == CachePopulated {
		return nil
	}
	if cache.State() == CacheEmpty {
		r.logger.Info("populating taxonomy cache", "source", r.scanner.Source().String())
		r.metrics.ObserveScan(ScanPopulate)
	}
	start := time.Now()
	lines, err := cache.Populate(ctx, r.scanner)
	if errors.Is(err, ErrCacheUnusable) {
		return err
	}
	r.metrics.ObservePopulation(lines, time.Since(start), err)
	if err != nil {
		r.logger.Error("taxonomy cache population failed", "source", r.scanner.Source().String(), "lines", lines, "error", err)
		return err
	}
	r.logger.Info("taxonomy cache populated", "records", cache.Len(), "lines", lines, "duration", time.Since(start))
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
