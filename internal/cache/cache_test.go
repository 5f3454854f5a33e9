package cache

import (
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func openDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("opening badger: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCache_PutGet(t *testing.T) {
	c := New(openDB(t), true, 86400)

	key := Key("openai", "gpt-4o", "system", "user")
	value := `{"reviews":[{"line":3,"issue":"x","severity":"HIGH"}]}`

	// Miss before put
	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss before put")
	}

	if err := c.Put(key, value); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	got, ok := c.Get(key)
	if !ok {
		t.Fatal("Expected cache hit after put")
	}
	if got != value {
		t.Errorf("Got = %q, want %q", got, value)
	}
}

func TestCache_TTLExpiration(t *testing.T) {
	c := New(openDB(t), true, 1) // 1 second TTL

	key := "expire-test"
	if err := c.Put(key, "data"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	if _, ok := c.Get(key); !ok {
		t.Error("Expected cache hit before expiration")
	}

	time.Sleep(2100 * time.Millisecond)

	if _, ok := c.Get(key); ok {
		t.Error("Expected cache miss after TTL expiration")
	}
}

func TestCache_Disabled(t *testing.T) {
	c := New(openDB(t), false, 0)
	if c.Enabled() {
		t.Error("Cache should be disabled")
	}

	if err := c.Put("key", "value"); err != nil {
		t.Errorf("Put on disabled cache should not error: %v", err)
	}
	if _, ok := c.Get("key"); ok {
		t.Error("Get on disabled cache should always miss")
	}
	if err := c.Clear(); err != nil {
		t.Errorf("Clear on disabled cache should not error: %v", err)
	}

	if New(nil, true, 10).Enabled() {
		t.Error("Cache without a database should be disabled")
	}
}

func TestCache_ClearKeepsOtherKeys(t *testing.T) {
	db := openDB(t)
	c := New(db, true, 86400)

	for i := 0; i < 5; i++ {
		if err := c.Put(string(rune('a'+i)), "data"); err != nil {
			t.Fatalf("Put error: %v", err)
		}
	}
	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("hash/a.py"), []byte("abc"))
	})
	if err != nil {
		t.Fatalf("seeding foreign key: %v", err)
	}

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 5 {
		t.Fatalf("Expected 5 cache entries, got %d", stats.Entries)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear error: %v", err)
	}

	stats, _ = c.GetStats()
	if stats.Entries != 0 {
		t.Errorf("Expected 0 cache entries after clear, got %d", stats.Entries)
	}
	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte("hash/a.py"))
		return err
	})
	if err != nil {
		t.Errorf("Clear removed a non-cache key: %v", err)
	}
}

func TestCache_GetStats(t *testing.T) {
	c := New(openDB(t), true, 3600)

	stats, err := c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d, want 0", stats.Entries)
	}

	c.Put("key1", "value1")
	c.Put("key2", "value2")

	stats, err = c.GetStats()
	if err != nil {
		t.Fatalf("GetStats error: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("Entries = %d, want 2", stats.Entries)
	}
	if stats.TotalBytes <= 0 {
		t.Error("TotalBytes should be > 0")
	}
	if stats.TTLSeconds != 3600 {
		t.Errorf("TTLSeconds = %d, want 3600", stats.TTLSeconds)
	}
	if stats.Oldest == "" {
		t.Error("Oldest expiry should be set for TTL entries")
	}
}

func TestHashKey(t *testing.T) {
	h1 := HashKey("test")
	h2 := HashKey("test")
	h3 := HashKey("other")

	if h1 != h2 {
		t.Error("Same input should produce same hash")
	}
	if h1 == h3 {
		t.Error("Different input should produce different hash")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length = %d, want 64", len(h1))
	}
}

func TestKey(t *testing.T) {
	k1 := Key("openai", "gpt-4o", "diff content")
	k2 := Key("openai", "gpt-4o", "diff content")
	k3 := Key("ollama", "gpt-4o", "diff content")
	k4 := Key("openai", "gpt-4odiff", " content")

	if k1 != k2 {
		t.Error("Same inputs should produce same cache key")
	}
	if k1 == k3 {
		t.Error("Different provider should produce different cache key")
	}
	if k1 == k4 {
		t.Error("Part boundaries should be part of the key")
	}
}
