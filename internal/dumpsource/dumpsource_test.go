package dumpsource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"taxoncore/internal/blob"
	"taxoncore/internal/taxonomy"
)

const (
	lineageDump = "9606|Homo sapiens|Homo sapiens|Homo|Hominidae|Primates|Mammalia|Chordata|Animalia|Eukaryota|\n" +
		"67890|Streptomyces sp.|Streptomyces sp.|Streptomyces|Streptomycetaceae|Streptomycetales|Actinomycetia|Actinomycetota||Bacteria|\n"
	mergedDump = "12345|67890|\n"
)

func TestLocatorFilePath(t *testing.T) {
	src, err := Locator{}.Source(context.Background(), "lineage", "/data/lineage.dmp")
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	if fs, ok := src.(taxonomy.FileSource); !ok || string(fs) != "/data/lineage.dmp" {
		t.Fatalf("expected file source, got %#v", src)
	}
}

func TestLocatorMissing(t *testing.T) {
	_, err := Locator{}.Source(context.Background(), "TAXONCORE_LINEAGE_DUMP", "  ")
	var mce *taxonomy.MissingConfigurationError
	if !errors.As(err, &mce) || mce.Key != "TAXONCORE_LINEAGE_DUMP" {
		t.Fatalf("expected missing configuration, got %v", err)
	}
}

func TestLocatorRejectsBadLocations(t *testing.T) {
	l := Locator{}
	for _, loc := range []string{"blob://x", "s3://bucket-only", "s3:///key", "s3://b/k"} {
		if _, err := l.Source(context.Background(), "k", loc); err == nil {
			t.Fatalf("expected error for %q without stores", loc)
		}
	}
	l.Store = blob.NewMemory()
	if _, err := l.Source(context.Background(), "k", "blob://"); err == nil {
		t.Fatal("expected empty key error")
	}
}

func TestResolverOverBlobStores(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemory()
	if _, err := mem.Put(ctx, "ncbi/lineage.dmp", strings.NewReader(lineageDump), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	bucket := blob.NewMockS3ForTests("taxonomy")
	if _, err := bucket.Put(ctx, "ncbi/merged.dmp", strings.NewReader(mergedDump), blob.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	l := Locator{
		Store: mem,
		S3: func(_ context.Context, name string) (blob.Store, error) {
			if name != "taxonomy" {
				return nil, errors.New("unexpected bucket " + name)
			}
			return bucket, nil
		},
	}
	lineage, err := l.Source(ctx, "lineage", "blob://ncbi/lineage.dmp")
	if err != nil {
		t.Fatalf("lineage source: %v", err)
	}
	merged, err := l.Source(ctx, "merged", "s3://taxonomy/ncbi/merged.dmp")
	if err != nil {
		t.Fatalf("merged source: %v", err)
	}
	if merged.String() != "s3://taxonomy/ncbi/merged.dmp" {
		t.Fatalf("source name = %q", merged.String())
	}

	r, err := taxonomy.NewResolver(taxonomy.Config{Lineage: lineage, Merged: merged})
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	cache := taxonomy.NewCache()
	rec, err := r.Lookup(ctx, 12345, cache)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec.TaxID != 67890 {
		t.Fatalf("expected merged redirect to 67890, got %+v", rec)
	}
	if _, err := r.Lookup(ctx, 9606, cache); err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if n := mem.(interface{ Opens(string) int }).Opens("ncbi/lineage.dmp"); n != 1 {
		t.Fatalf("lineage blob opened %d times, want 1", n)
	}
}

func TestBlobSourceMissingKey(t *testing.T) {
	src := BlobSource{Store: blob.NewMemory(), Key: "absent.dmp"}
	if src.String() != "memory://absent.dmp" {
		t.Fatalf("name = %q", src.String())
	}
	_, err := src.Open(context.Background())
	if !errors.Is(err, blob.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
