package cache

import (
	"math"
	"sync"
	"time"

	"github.com/avoronova/pogoda-scrape-service/internal/models"
)

// keyPrecision is the number of decimal places coordinates are rounded to
// when forming cache keys. Near-identical coordinates (within ~11 m) collide
// on the same entry. Rounding applies to keys only, never to upstream URLs.
const keyPrecision = 4

// Key identifies a cached result: one entry per (mode, rounded lat, rounded lon).
type Key struct {
	Mode models.Mode
	Lat  float64
	Lon  float64
}

// NewKey builds a Key with coordinates rounded to keyPrecision decimal places.
func NewKey(mode models.Mode, lat, lon float64) Key {
	return Key{Mode: mode, Lat: roundCoord(lat), Lon: roundCoord(lon)}
}

func roundCoord(v float64) float64 {
	const scale = 1e4 // 10^keyPrecision
	return math.Round(v*scale) / scale
}

// entry is immutable once stored; Put replaces the whole entry.
type entry struct {
	payload   interface{}
	createdAt time.Time
}

// Store is an in-memory cache holding the last successfully parsed result per
// key. Reads never evict: expired entries stay available for stale fallback,
// and freshness is the caller's policy applied via Fresh. Safe for concurrent
// use; a single mutex guards the map so readers observe either the old entry
// or the fully-formed new one.
type Store struct {
	mu      sync.RWMutex
	entries map[Key]entry
	ttl     time.Duration
	now     func() time.Time // injectable for tests
}

// NewStore creates a Store with the given freshness TTL.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		entries: make(map[Key]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the entry for key and its age, regardless of freshness.
// ok is false when no entry exists for the key.
func (s *Store) Get(key Key) (payload interface{}, age time.Duration, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, 0, false
	}
	return e.payload, s.now().Sub(e.createdAt), true
}

// Put stores payload under key with the current timestamp, replacing any
// prior entry.
func (s *Store) Put(key Key, payload interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{payload: payload, createdAt: s.now()}
}

// Fresh reports whether an entry of the given age is within the TTL.
func (s *Store) Fresh(age time.Duration) bool {
	return age < s.ttl
}
