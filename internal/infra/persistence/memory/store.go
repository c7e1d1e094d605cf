// Package memory provides an in-memory TaxonStore for tests and ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"taxoncore/pkg/domain"
)

var _ domain.TaxonStore = (*Store)(nil)

// Store keeps taxa and entries in process memory.
type Store struct {
	mu      sync.RWMutex
	nextID  int64
	taxa    map[int64]domain.Taxon // keyed by NCBI taxid
	entries map[string]domain.Entry
	now     func() time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		taxa:    make(map[int64]domain.Taxon),
		entries: make(map[string]domain.Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// UpsertTaxon inserts or refreshes a taxon, keeping its surrogate ID stable.
func (s *Store) UpsertTaxon(_ context.Context, lineage domain.Lineage) (domain.Taxon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.taxa[lineage.TaxID]
	if !ok {
		s.nextID++
		t.ID = s.nextID
	}
	t.Lineage = lineage
	t.UpdatedAt = s.now()
	s.taxa[lineage.TaxID] = t
	return t, nil
}

func (s *Store) GetTaxon(_ context.Context, ncbiTaxID int64) (domain.Taxon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.taxa[ncbiTaxID]
	if !ok {
		return domain.Taxon{}, domain.ErrNotFound{Entity: domain.EntityTaxon, ID: strconv.FormatInt(ncbiTaxID, 10)}
	}
	return t, nil
}

func (s *Store) ListTaxa(_ context.Context) ([]domain.Taxon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Taxon, 0, len(s.taxa))
	for _, t := range s.taxa {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpsertEntry(_ context.Context, entry domain.Entry) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.Accession == "" {
		return domain.Entry{}, fmt.Errorf("entry accession required")
	}
	if !s.hasTaxonID(entry.TaxonID) {
		return domain.Entry{}, domain.ErrNotFound{Entity: domain.EntityTaxon, ID: "#" + strconv.FormatInt(entry.TaxonID, 10)}
	}
	entry.BiosynClasses = append([]string(nil), entry.BiosynClasses...)
	entry.UpdatedAt = s.now()
	s.entries[entry.Accession] = entry
	return entry, nil
}

func (s *Store) GetEntry(_ context.Context, accession string) (domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[accession]
	if !ok {
		return domain.Entry{}, domain.ErrNotFound{Entity: domain.EntityEntry, ID: accession}
	}
	e.BiosynClasses = append([]string(nil), e.BiosynClasses...)
	return e, nil
}

func (s *Store) ListEntries(_ context.Context) ([]domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		e.BiosynClasses = append([]string(nil), e.BiosynClasses...)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Accession < out[j].Accession })
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

func (s *Store) hasTaxonID(id int64) bool {
	for _, t := range s.taxa {
		if t.ID == id {
			return true
		}
	}
	return false
}
