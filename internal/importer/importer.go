// Package importer loads repository entry documents, resolving each entry's
// NCBI taxid through one shared cache per run.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxoncore/internal/taxonomy"
	"taxoncore/pkg/domain"
)

// FailurePolicy decides what happens when an entry's taxid does not resolve.
// Corrupt dumps, I/O, decode and persistence failures always abort.
type FailurePolicy int

const (
	// PolicySkip records the entry in the report and continues.
	PolicySkip FailurePolicy = iota
	// PolicyAbort stops the run at the first unresolvable taxid.
	PolicyAbort
)

func (p FailurePolicy) String() string {
	if p == PolicyAbort {
		return "abort"
	}
	return "skip"
}

// Service is what the importer needs from core.Service.
type Service interface {
	StoreTaxon(ctx context.Context, taxID int64, cache *taxonomy.Cache) (domain.Taxon, error)
	Store() domain.TaxonStore
}

// SkippedEntry describes an entry left out under PolicySkip.
type SkippedEntry struct {
	File      string `json:"file"`
	Accession string `json:"accession"`
	TaxID     int64  `json:"taxid"`
	Reason    string `json:"reason"`
}

// Report summarises one run. It is returned even when the run fails.
type Report struct {
	RunID    uuid.UUID      `json:"run_id"`
	Policy   string         `json:"policy"`
	Files    int            `json:"files"`
	Imported int            `json:"imported"`
	Skipped  []SkippedEntry `json:"skipped,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
}

// Importer runs imports against a Service.
type Importer struct {
	svc    Service
	policy FailurePolicy
	logger *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithPolicy sets the failure policy.
func WithPolicy(p FailurePolicy) Option {
	return func(i *Importer) { i.policy = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// New returns an importer using PolicySkip unless overridden.
func New(svc Service, opts ...Option) *Importer {
	i := &Importer{svc: svc, policy: PolicySkip, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run imports path, which is either one entry file or a directory whose
// *.json files are imported in lexical order.
func (i *Importer) Run(ctx context.Context, path string) (Report, error) {
	start := time.Now()
	report := Report{RunID: uuid.New(), Policy: i.policy.String()}
	logger := i.logger.With("run_id", report.RunID.String())

	files, err := collect(path)
	if err != nil {
		return i.finish(report, start), err
	}
	logger.Info("import started", "path", path, "files", len(files), "policy", report.Policy)

	cache := taxonomy.NewCache()
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return i.finish(report, start), err
		}
		if err := i.importFile(ctx, logger, file, cache, &report); err != nil {
			logger.Error("import aborted", "file", file, "err", err)
			return i.finish(report, start), err
		}
		report.Files++
	}
	report = i.finish(report, start)
	logger.Info("import finished", "files", report.Files, "imported", report.Imported,
		"skipped", len(report.Skipped), "duration", report.Duration)
	return report, nil
}

func (i *Importer) finish(r Report, start time.Time) Report {
	r.Duration = time.Since(start)
	return r
}

func (i *Importer) importFile(ctx context.Context, logger *slog.Logger, file string, cache *taxonomy.Cache, report *Report) error {
	// #nosec G304 -- operator supplied import path
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read entry: %w", err)
	}
	entry, id, err := decodeEntry(file, data)
	if err != nil {
		return err
	}
	taxon, err := i.svc.StoreTaxon(ctx, id, cache)
	if err != nil {
		if taxonomy.IsInvalidTaxID(err) && i.policy == PolicySkip {
			logger.Warn("skipping entry", "file", file, "accession", entry.Accession, "taxid", id, "err", err)
			report.Skipped = append(report.Skipped, SkippedEntry{
				File: file, Accession: entry.Accession, TaxID: id, Reason: err.Error(),
			})
			return nil
		}
		return fmt.Errorf("%s (%s): %w", entry.Accession, filepath.Base(file), err)
	}
	entry.TaxonID = taxon.ID
	if _, err := i.svc.Store().UpsertEntry(ctx, entry); err != nil {
		return fmt.Errorf("store entry %s: %w", entry.Accession, err)
	}
	report.Imported++
	logger.Debug("imported entry", "accession", entry.Accession, "taxid", id, "stored_taxid", taxon.TaxID)
	return nil
}

// ErrNoEntries is returned when a directory holds no *.json files.
var ErrNoEntries = errors.New("importer: no entry files found")

func collect(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat import path: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	dirents, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read import dir: %w", err)
	}
	var files []string
	for _, d := range dirents {
		if d.IsDir() || !strings.EqualFold(filepath.Ext(d.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(path, d.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoEntries, path)
	}
	sort.Strings(files)
	return files, nil
}
