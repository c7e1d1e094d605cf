package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"taxoncore/internal/infra/persistence/postgres/testutil"
	"taxoncore/pkg/domain"
)

func newStubStore(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB(map[string]string{"taxa": "tax_id"})
	var gotDriver, gotDSN string
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driverName, dsn
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if gotDriver != "pgx" || gotDSN != DefaultDSN {
		t.Fatalf("unexpected open args %q %q", gotDriver, gotDSN)
	}
	return store, conn
}

func TestNewStoreAppliesSchema(t *testing.T) {
	_, conn := newStubStore(t)
	var creates int
	for _, stmt := range conn.Execs {
		if strings.HasPrefix(stmt, "CREATE") {
			creates++
		}
	}
	if creates != 3 {
		t.Fatalf("expected 3 ddl statements, got %d: %v", creates, conn.Execs)
	}
}

func TestStoreUpsertsAndReads(t *testing.T) {
	ctx := context.Background()
	store, conn := newStubStore(t)

	taxon, err := store.UpsertTaxon(ctx, domain.Lineage{TaxID: 1902, Name: "Streptomyces coelicolor", Genus: "Streptomyces"})
	if err != nil {
		t.Fatalf("upsert taxon: %v", err)
	}
	if taxon.ID != 1 || taxon.Genus != "Streptomyces" {
		t.Fatalf("unexpected taxon %+v", taxon)
	}
	if _, err := store.UpsertTaxon(ctx, domain.Lineage{TaxID: 1902, Name: "renamed"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	if rows := conn.Tables["taxa"]; len(rows) != 1 || rows[0]["name"] != "renamed" {
		t.Fatalf("expected single refreshed row, got %v", rows)
	}
	for _, stmt := range conn.Execs {
		if strings.HasPrefix(stmt, "INSERT") && strings.Contains(stmt, "?") {
			t.Fatalf("expected dollar placeholders, got %q", stmt)
		}
	}

	for _, acc := range []string{"BGC0000002", "BGC0000001"} {
		if _, err := store.UpsertEntry(ctx, domain.Entry{Accession: acc, TaxonID: taxon.ID, OrganismName: "S. coelicolor"}); err != nil {
			t.Fatalf("upsert entry %s: %v", acc, err)
		}
	}
	entries, err := store.ListEntries(ctx)
	if err != nil {
		t.Fatalf("list entries: %v", err)
	}
	if len(entries) != 2 || entries[0].Accession != "BGC0000001" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if entries[0].BiosynClasses == nil || len(entries[0].BiosynClasses) != 0 {
		t.Fatalf("expected empty class list, got %#v", entries[0].BiosynClasses)
	}

	var nf domain.ErrNotFound
	if _, err := store.UpsertEntry(ctx, domain.Entry{Accession: "BGC9", TaxonID: 99}); !errors.As(err, &nf) {
		t.Fatalf("expected missing taxon error, got %v", err)
	}
}

func TestNewStoreErrors(t *testing.T) {
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("boom") })
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
	restore()

	db, conn := testutil.NewStubDB(nil)
	conn.FailPing = true
	restore = OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "ping postgres") {
		t.Fatalf("expected ping error, got %v", err)
	}

	db, conn = testutil.NewStubDB(nil)
	conn.FailExec = true
	restore2 := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore2()
	if _, err := NewStore(context.Background(), "postgres://x"); err == nil || !strings.Contains(err.Error(), "execute ddl") {
		t.Fatalf("expected ddl error, got %v", err)
	}
}
