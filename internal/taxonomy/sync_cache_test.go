package taxonomy

import (
	"context"
	"sync"
	"testing"
)

func TestSyncCacheConcurrentLookups(t *testing.T) {
	f := newFixture(t, []string{humanLine, streptLine}, []string{"12345|67890|"})
	shared := NewSyncCache()
	ids := []int64{9606, 67890, 12345}

	var wg sync.WaitGroup
	errs := make(chan error, 8*len(ids))
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				if _, err := shared.Lookup(context.Background(), f.resolver, id); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("lookup: %v", err)
	}
	if shared.Scans() != 1 {
		t.Fatalf("expected exactly one population pass, got %d", shared.Scans())
	}
	if f.lineage.opens() != 1 || f.merged.opens() != 8 {
		t.Fatalf("unexpected dump opens lineage=%d merged=%d", f.lineage.opens(), f.merged.opens())
	}
	if shared.Len() != 2 {
		t.Fatalf("len = %d", shared.Len())
	}
}
