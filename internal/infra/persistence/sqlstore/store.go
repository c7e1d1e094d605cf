// Package sqlstore implements domain.TaxonStore over database/sql. The sqlite
// and postgres adapters supply the connection, DDL, and placeholder style.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxoncore/internal/infra/persistence/sqlbundle"
	"taxoncore/pkg/domain"
)

var _ domain.TaxonStore = (*Store)(nil)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders "?" placeholders.
func Question(int) string { return "?" }

// Dollar renders "$n" placeholders.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

const taxonColumns = "tax_id, ncbi_taxid, name, superkingdom, kingdom, phylum, class, taxonomic_order, family, genus, species, updated_at"

const entryColumns = "accession, minimal, tax_id, organism_name, biosyn_class, updated_at"

// Store is a TaxonStore backed by a *sql.DB.
type Store struct {
	db  *sql.DB
	ph  Placeholder
	now func() time.Time
}

// New wraps db and applies ddl.
func New(ctx context.Context, db *sql.DB, ddl string, ph Placeholder) (*Store, error) {
	for _, stmt := range sqlbundle.SplitStatements(ddl) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("execute ddl: %w", err)
		}
	}
	return &Store{db: db, ph: ph, now: func() time.Time { return time.Now().UTC() }}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

// rebind rewrites "?" markers using the store's placeholder style.
func (s *Store) rebind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.ph(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) UpsertTaxon(ctx context.Context, l domain.Lineage) (domain.Taxon, error) {
	query := s.rebind(`INSERT INTO taxa (ncbi_taxid, name, superkingdom, kingdom, phylum, class, taxonomic_order, family, genus, species, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (ncbi_taxid) DO UPDATE SET name = excluded.name, superkingdom = excluded.superkingdom,
kingdom = excluded.kingdom, phylum = excluded.phylum, class = excluded.class,
taxonomic_order = excluded.taxonomic_order, family = excluded.family, genus = excluded.genus,
species = excluded.species, updated_at = excluded.updated_at`)
	stamp := s.now().Format(time.RFC3339Nano)
	if _, err := s.db.ExecContext(ctx, query, l.TaxID, l.Name, l.Superkingdom, l.Kingdom, l.Phylum,
		l.Class, l.Order, l.Family, l.Genus, l.Species, stamp); err != nil {
		return domain.Taxon{}, fmt.Errorf("upsert taxon %d: %w", l.TaxID, err)
	}
	return s.GetTaxon(ctx, l.TaxID)
}

func (s *Store) GetTaxon(ctx context.Context, ncbiTaxID int64) (domain.Taxon, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+taxonColumns+" FROM taxa WHERE ncbi_taxid = ?"), ncbiTaxID)
	t, err := scanTaxon(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Taxon{}, domain.ErrNotFound{Entity: domain.EntityTaxon, ID: strconv.FormatInt(ncbiTaxID, 10)}
	}
	if err != nil {
		return domain.Taxon{}, fmt.Errorf("get taxon %d: %w", ncbiTaxID, err)
	}
	return t, nil
}

func (s *Store) ListTaxa(ctx context.Context) ([]domain.Taxon, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+taxonColumns+" FROM taxa ORDER BY tax_id")
	if err != nil {
		return nil, fmt.Errorf("list taxa: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Taxon
	for rows.Next() {
		t, err := scanTaxon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan taxon: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list taxa: %w", err)
	}
	return out, nil
}

func (s *Store) UpsertEntry(ctx context.Context, e domain.Entry) (domain.Entry, error) {
	if e.Accession == "" {
		return domain.Entry{}, fmt.Errorf("entry accession required")
	}
	var exists int64
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT tax_id FROM taxa WHERE tax_id = ?"), e.TaxonID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, domain.ErrNotFound{Entity: domain.EntityTaxon, ID: "#" + strconv.FormatInt(e.TaxonID, 10)}
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("check taxon #%d: %w", e.TaxonID, err)
	}
	classes := e.BiosynClasses
	if classes == nil {
		classes = []string{}
	}
	encoded, err := json.Marshal(classes)
	if err != nil {
		return domain.Entry{}, fmt.Errorf("encode biosyn classes: %w", err)
	}
	e.UpdatedAt = s.now()
	query := s.rebind(`INSERT INTO entries (accession, minimal, tax_id, organism_name, biosyn_class, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (accession) DO UPDATE SET minimal = excluded.minimal, tax_id = excluded.tax_id,
organism_name = excluded.organism_name, biosyn_class = excluded.biosyn_class, updated_at = excluded.updated_at`)
	if _, err := s.db.ExecContext(ctx, query, e.Accession, e.Minimal, e.TaxonID, e.OrganismName,
		string(encoded), e.UpdatedAt.Format(time.RFC3339Nano)); err != nil {
		return domain.Entry{}, fmt.Errorf("upsert entry %s: %w", e.Accession, err)
	}
	return s.GetEntry(ctx, e.Accession)
}

func (s *Store) GetEntry(ctx context.Context, accession string) (domain.Entry, error) {
	row := s.db.QueryRowContext(ctx, s.rebind("SELECT "+entryColumns+" FROM entries WHERE accession = ?"), accession)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Entry{}, domain.ErrNotFound{Entity: domain.EntityEntry, ID: accession}
	}
	if err != nil {
		return domain.Entry{}, fmt.Errorf("get entry %s: %w", accession, err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+entryColumns+" FROM entries ORDER BY accession")
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaxon(row scanner) (domain.Taxon, error) {
	var (
		t     domain.Taxon
		stamp string
	)
	err := row.Scan(&t.ID, &t.TaxID, &t.Name, &t.Superkingdom, &t.Kingdom, &t.Phylum,
		&t.Class, &t.Order, &t.Family, &t.Genus, &t.Species, &stamp)
	if err != nil {
		return domain.Taxon{}, err
	}
	if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return domain.Taxon{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}

func scanEntry(row scanner) (domain.Entry, error) {
	var (
		e              domain.Entry
		classes, stamp string
	)
	if err := row.Scan(&e.Accession, &e.Minimal, &e.TaxonID, &e.OrganismName, &classes, &stamp); err != nil {
		return domain.Entry{}, err
	}
	if err := json.Unmarshal([]byte(classes), &e.BiosynClasses); err != nil {
		return domain.Entry{}, fmt.Errorf("decode biosyn_class: %w", err)
	}
	var err error
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, stamp); err != nil {
		return domain.Entry{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return e, nil
}
