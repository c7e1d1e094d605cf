// Package domain defines the taxonomy value types and persisted entities shared
// by the resolver, the import pipeline, and the storage adapters.
package domain

import (
	"context"
	"fmt"
	"time"
)

// UnknownRank replaces lineage ranks that are empty in the reference dump.
const UnknownRank = "Unknown"

// EntityType identifies the kind of persisted record.
type EntityType string

const (
	// EntityTaxon identifies a persisted taxon row.
	EntityTaxon EntityType = "taxon"
	// EntityEntry identifies an imported repository entry.
	EntityEntry EntityType = "entry"
)

// Lineage is the full set of rank names for one NCBI taxonomy identifier.
// Values are immutable once produced by the resolver.
type Lineage struct {
	TaxID        int64  `json:"ncbi_taxid"`
	Name         string `json:"name"`
	Species      string `json:"species"`
	Genus        string `json:"genus"`
	Family       string `json:"family"`
	Order        string `json:"taxonomic_order"`
	Class        string `json:"class"`
	Phylum       string `json:"phylum"`
	Kingdom      string `json:"kingdom"`
	Superkingdom string `json:"superkingdom"`
}

// Merge redirects a retired identifier to its replacement.
type Merge struct {
	Old int64
	New int64
}

// Taxon is the persisted form of a resolved lineage.
type Taxon struct {
	ID int64 `json:"tax_id"`
	Lineage
	UpdatedAt time.Time `json:"updated_at"`
}

// Entry is an imported repository entry that references a persisted taxon.
type Entry struct {
	Accession     string    `json:"mibig_accession"`
	Minimal       bool      `json:"minimal"`
	TaxonID       int64     `json:"tax_id"`
	OrganismName  string    `json:"organism_name"`
	BiosynClasses []string  `json:"biosyn_class,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TaxonStore persists resolved taxa and the entries that reference them.
type TaxonStore interface {
	// UpsertTaxon inserts or refreshes the taxon keyed by lineage.TaxID and
	// returns the stored row with its surrogate ID.
	UpsertTaxon(ctx context.Context, lineage Lineage) (Taxon, error)
	GetTaxon(ctx context.Context, ncbiTaxID int64) (Taxon, error)
	ListTaxa(ctx context.Context) ([]Taxon, error)
	// UpsertEntry inserts or replaces the entry keyed by accession. The
	// referenced taxon must already exist.
	UpsertEntry(ctx context.Context, entry Entry) (Entry, error)
	GetEntry(ctx context.Context, accession string) (Entry, error)
	ListEntries(ctx context.Context) ([]Entry, error)
	Close() error
}

// ErrNotFound is returned by stores when a record does not exist.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}
