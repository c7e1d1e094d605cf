package memory

import (
	"context"
	"errors"
	"testing"

	"taxoncore/pkg/domain"
)

func TestStoreUpsertKeepsSurrogateID(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	a, _ := store.UpsertTaxon(ctx, domain.Lineage{TaxID: 9606, Name: "Homo sapiens"})
	b, _ := store.UpsertTaxon(ctx, domain.Lineage{TaxID: 1902, Name: "Streptomyces coelicolor"})
	again, _ := store.UpsertTaxon(ctx, domain.Lineage{TaxID: 9606, Name: "Homo sapiens sapiens"})
	if a.ID != 1 || b.ID != 2 || again.ID != a.ID {
		t.Fatalf("unexpected ids a=%d b=%d again=%d", a.ID, b.ID, again.ID)
	}
	taxa, _ := store.ListTaxa(ctx)
	if len(taxa) != 2 || taxa[0].Name != "Homo sapiens sapiens" {
		t.Fatalf("unexpected taxa %+v", taxa)
	}
	got, err := store.GetTaxon(ctx, 1902)
	if err != nil || got.ID != b.ID {
		t.Fatalf("get taxon: %+v %v", got, err)
	}
}

func TestStoreEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	taxon, _ := store.UpsertTaxon(ctx, domain.Lineage{TaxID: 1902})

	classes := []string{"Polyketide"}
	if _, err := store.UpsertEntry(ctx, domain.Entry{Accession: "BGC2", TaxonID: taxon.ID, BiosynClasses: classes}); err != nil {
		t.Fatalf("upsert entry: %v", err)
	}
	classes[0] = "mutated"
	if _, err := store.UpsertEntry(ctx, domain.Entry{Accession: "BGC1", TaxonID: taxon.ID}); err != nil {
		t.Fatalf("upsert entry: %v", err)
	}
	entries, _ := store.ListEntries(ctx)
	if len(entries) != 2 || entries[0].Accession != "BGC1" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	got, err := store.GetEntry(ctx, "BGC2")
	if err != nil || got.BiosynClasses[0] != "Polyketide" {
		t.Fatalf("expected isolated class slice, got %+v %v", got, err)
	}

	var nf domain.ErrNotFound
	if _, err := store.UpsertEntry(ctx, domain.Entry{Accession: "BGC3", TaxonID: 77}); !errors.As(err, &nf) || nf.Entity != domain.EntityTaxon {
		t.Fatalf("expected missing taxon, got %v", err)
	}
	if _, err := store.GetEntry(ctx, "nope"); !errors.As(err, &nf) || nf.Entity != domain.EntityEntry {
		t.Fatalf("expected missing entry, got %v", err)
	}
	if _, err := store.GetTaxon(ctx, 5); !errors.As(err, &nf) {
		t.Fatalf("expected missing taxon, got %v", err)
	}
	if _, err := store.UpsertEntry(ctx, domain.Entry{TaxonID: taxon.ID}); err == nil {
		t.Fatal("expected accession error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
