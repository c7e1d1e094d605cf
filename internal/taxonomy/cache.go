package taxonomy

import (
	"context"
	"fmt"

	"taxoncore/pkg/domain"
)

// CacheState tracks the one-way lifecycle of a Cache.
type CacheState int

const (
	// CacheEmpty is the state of a freshly created cache.
	CacheEmpty CacheState = iota
	// CachePopulated means a full dump pass completed; it is never repeated.
	CachePopulated
	// CacheBroken means population aborted. The cache must not be reused.
	CacheBroken
)

func (s CacheState) String() string {
	switch s {
	case CacheEmpty:
		return "empty"
	case CachePopulated:
		return "populated"
	case CacheBroken:
		return "broken"
	default:
		return fmt.Sprintf("CacheState(%d)", int(s))
	}
}

// Cache maps identifiers to lineage records for the duration of one bulk
// operation. It is owned by the caller and performs no locking; see SyncCache
// for sharing one cache across goroutines.
type Cache struct {
	records map[int64]domain.Lineage
	state   CacheState
	err     error
	scans   int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{records: make(map[int64]domain.Lineage)}
}

// State reports the lifecycle state.
func (c *Cache) State() CacheState { return c.state }

// Len returns the number of cached records.
func (c *Cache) Len() int { return len(c.records) }

// Scans returns how many full population passes were started for this cache.
func (c *Cache) Scans() int { return c.scans }

// Get returns the cached record for taxID.
func (c *Cache) Get(taxID int64) (domain.Lineage, bool) {
	rec, ok := c.records[taxID]
	return rec, ok
}

// Populate fills the cache from a full pass over scanner's dump. It is
// idempotent: once populated, later calls return immediately. A failed pass
// clears the cache and leaves it broken; every later call reports the
// original failure wrapped in ErrCacheUnusable.
func (c *Cache) Populate(ctx context.Context, scanner *DumpScanner) (int, error) {
	switch c.state {
	case CachePopulated:
		return 0, nil
	case CacheBroken:
		return 0, fmt.Errorf("%w: %w", ErrCacheUnusable, c.err)
	}
	c.scans++
	lines, err := scanner.Each(ctx, func(rec domain.Lineage) {
		c.records[rec.TaxID] = rec
	})
	if err != nil {
		c.records = make(map[int64]domain.Lineage)
		c.state = CacheBroken
		c.err = err
		return lines, err
	}
	c.state = CachePopulated
	return lines, nil
}
