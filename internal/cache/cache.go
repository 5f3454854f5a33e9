package cache

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "cache/"

// Cache stores raw generation responses in BadgerDB. Entries expire through
// badger's native TTL.
type Cache struct {
	db      *badger.DB
	ttl     time.Duration
	enabled bool
}

// New returns a Cache on db. A disabled cache, or one with a nil db, never
// hits and never stores. ttlSeconds <= 0 keeps entries forever.
func New(db *badger.DB, enabled bool, ttlSeconds int) *Cache {
	return &Cache{
		db:      db,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		enabled: enabled && db != nil,
	}
}

// Get retrieves a cached response by key. Returns ("", false) on miss.
func (c *Cache) Get(key string) (string, bool) {
	if !c.enabled {
		return "", false
	}
	var out string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(entryKey(key))
		if err != nil {
			return err
		}
		v, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out = string(v)
		return nil
	})
	if err != nil {
		return "", false
	}
	return out, true
}

// Put stores a response in the cache.
func (c *Cache) Put(key, response string) error {
	if !c.enabled {
		return nil
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(entryKey(key), []byte(response))
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Clear removes all cache entries.
func (c *Cache) Clear() error {
	if c.db == nil {
		return nil
	}
	if err := c.db.DropPrefix([]byte(keyPrefix)); err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}
	return nil
}

// Stats returns cache statistics.
type Stats struct {
	Enabled    bool   `json:"enabled"`
	TTLSeconds int    `json:"ttlSeconds"`
	Entries    int    `json:"entries"`
	TotalBytes int64  `json:"totalBytes"`
	Oldest     string `json:"oldestExpiry,omitempty"`
}

// GetStats returns information about the live entries in the cache.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Enabled: c.enabled, TTLSeconds: int(c.ttl / time.Second)}
	if c.db == nil {
		return stats, nil
	}
	var oldest uint64
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			stats.Entries++
			stats.TotalBytes += item.ValueSize()
			if exp := item.ExpiresAt(); exp > 0 && (oldest == 0 || exp < oldest) {
				oldest = exp
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("reading cache stats: %w", err)
	}
	if oldest > 0 {
		stats.Oldest = time.Unix(int64(oldest), 0).UTC().Format(time.RFC3339)
	}
	return stats, nil
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

// Key builds a cache key from the parts that determine a response, such as
// provider, model and prompts.
func Key(parts ...string) string {
	return HashKey(strings.Join(parts, "\x00"))
}

func entryKey(key string) []byte {
	return []byte(keyPrefix + key)
}

