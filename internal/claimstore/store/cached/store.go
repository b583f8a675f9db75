// Package cached puts a bounded, expiring LRU in front of an attestation backend.
// Writes made through this process invalidate the cache; writes made by other
// processes sharing the backend become visible once the entry expires.
package cached

import (
	"context"
	"hash/maphash"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"claimsreg/internal/claimstore/metrics"
	"claimsreg/internal/claimstore/models"
	"claimsreg/pkg/domain"
)

const (
	DefaultSize = 10_000
	DefaultTTL  = 30 * time.Second
)

// Backend is the wrapped store.
type Backend interface {
	Put(ctx context.Context, att *models.Attestation, overwrite bool) (bool, error)
	Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error)
	Delete(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error)
}

// generationStripes bounds the invalidation bookkeeping regardless of key count.
const generationStripes = 256

type Store struct {
	inner   Backend
	cache   *expirable.LRU[models.Key, *models.Attestation]
	metrics *metrics.Metrics

	// mu orders cache fills against invalidations. A miss may only fill the
	// cache if its key's generation did not move while the backend was read.
	mu   sync.Mutex
	seed maphash.Seed
	gens [generationStripes]uint64
}

// New wraps inner. size <= 0 and ttl <= 0 fall back to the defaults; m may be nil.
func New(inner Backend, size int, ttl time.Duration, m *metrics.Metrics) *Store {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		inner:   inner,
		cache:   expirable.NewLRU[models.Key, *models.Attestation](size, nil, ttl),
		metrics: m,
		seed:    maphash.MakeSeed(),
	}
}

// Put writes through and invalidates. The entry is refilled by the next read.
func (s *Store) Put(ctx context.Context, att *models.Attestation, overwrite bool) (bool, error) {
	key := att.Key()
	s.invalidate(key)
	defer s.invalidate(key)
	return s.inner.Put(ctx, att, overwrite)
}

func (s *Store) Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	start := time.Now()
	key := models.Key{StoreRef: storeRef, Subject: subject}
	if att, ok := s.cache.Get(key); ok {
		if s.metrics != nil {
			s.metrics.RecordCacheHit(time.Since(start).Seconds())
		}
		return att.Clone(), nil
	}

	gen := s.generation(key)
	att, err := s.inner.Get(ctx, storeRef, subject)
	if s.metrics != nil {
		s.metrics.RecordCacheMiss(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	s.fill(key, gen, att)
	return att, nil
}

// Delete invalidates before and after the backend delete so a read that
// overlaps it cannot cache the removed attestation.
func (s *Store) Delete(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	key := models.Key{StoreRef: storeRef, Subject: subject}
	s.invalidate(key)
	defer s.invalidate(key)
	return s.inner.Delete(ctx, storeRef, subject)
}

func (s *Store) stripe(key models.Key) int {
	return int(maphash.Comparable(s.seed, key) % generationStripes)
}

func (s *Store) generation(key models.Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[s.stripe(key)]
}

func (s *Store) invalidate(key models.Key) {
	s.mu.Lock()
	s.gens[s.stripe(key)]++
	s.cache.Remove(key)
	s.mu.Unlock()
	s.recordSize()
}

func (s *Store) fill(key models.Key, gen uint64, att *models.Attestation) {
	s.mu.Lock()
	if s.gens[s.stripe(key)] == gen {
		s.cache.Add(key, att.Clone())
	}
	s.mu.Unlock()
	s.recordSize()
}

func (s *Store) recordSize() {
	if s.metrics != nil {
		s.metrics.SetCacheEntries(s.cache.Len())
	}
}
