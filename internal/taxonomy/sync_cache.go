package taxonomy

import (
	"context"
	"sync"

	"taxoncore/pkg/domain"
)

// SyncCache lets concurrent import workers share one Cache. Population runs
// under the write lock exactly once; lookups against a populated cache only
// read the map and proceed under the read lock.
type SyncCache struct {
	mu    sync.RWMutex
	cache *Cache
}

// NewSyncCache wraps a fresh cache.
func NewSyncCache() *SyncCache {
	return &SyncCache{cache: NewCache()}
}

// Lookup resolves taxID through r using the shared cache.
func (s *SyncCache) Lookup(ctx context.Context, r *Resolver, taxID int64) (domain.Lineage, error) {
	s.mu.RLock()
	state := s.cache.State()
	s.mu.RUnlock()
	if state != CachePopulated {
		s.mu.Lock()
		err := r.populate(ctx, s.cache)
		s.mu.Unlock()
		if err != nil {
			return domain.Lineage{}, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return r.Lookup(ctx, taxID, s.cache)
}

// Scans returns the number of population passes performed.
func (s *SyncCache) Scans() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Scans()
}

// Len returns the number of cached records.
func (s *SyncCache) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cache.Len()
}
