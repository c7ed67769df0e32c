package congestion

import (
	"fmt"
	"sync"
)

// KeyPrecision is the number of decimal places a coordinate is rounded to
// when forming a cache key. Four decimals is roughly 11 m, coarse enough to
// deduplicate repeated queries for the same monitor point and fine enough
// not to conflate distinct points.
const KeyPrecision = 4

// Key quantizes a coordinate pair into the deterministic cache key.
func Key(lat, lon float64) string {
	return fmt.Sprintf("%.*f_%.*f", KeyPrecision, lat, KeyPrecision, lon)
}

// Snapshot persists the full cache table. Load is called once at startup,
// Store replaces the prior snapshot wholesale on each flush.
type Snapshot interface {
	Load() (map[string]Speeds, error)
	Store(entries map[string]Speeds) error
}

// Cache is the process-wide point-congestion cache keyed by quantized
// coordinates. Entries are overwritten on each fresh fetch and have no
// expiry within the process; whether the backing snapshot expires entries
// is the backend's policy.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]Speeds
	snapshot Snapshot
}

// NewCache builds a cache over the given snapshot backend. A snapshot load
// failure degrades to an empty cache rather than failing the caller.
func NewCache(snapshot Snapshot) *Cache {
	c := &Cache{
		entries:  make(map[string]Speeds),
		snapshot: snapshot,
	}
	if snapshot != nil {
		if loaded, err := snapshot.Load(); err == nil && loaded != nil {
			c.entries = loaded
		} else if err != nil {
			fmt.Printf("Cache snapshot load failed, starting empty: %v\n", err)
		}
	}
	return c
}

// Get returns the cached speed pair for a coordinate, if present.
func (c *Cache) Get(lat, lon float64) (Speeds, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[Key(lat, lon)]
	return s, ok
}

// Put records the most recently observed speed pair for a coordinate.
func (c *Cache) Put(lat, lon float64, s Speeds) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[Key(lat, lon)] = s
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Flush writes the full table to the snapshot backend, replacing whatever
// was stored there before.
func (c *Cache) Flush() error {
	if c.snapshot == nil {
		return nil
	}

	c.mu.RLock()
	copied := make(map[string]Speeds, len(c.entries))
	for k, v := range c.entries {
		copied[k] = v
	}
	c.mu.RUnlock()

	if err := c.snapshot.Store(copied); err != nil {
		return fmt.Errorf("failed to store cache snapshot: %w", err)
	}
	return nil
}
