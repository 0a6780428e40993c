package cache

import (
	"fmt"
	"sync"
	"testing"
)

// testBasicOperations tests basic cache operations.
func testBasicOperations(t *testing.T, cache Cache[string]) {
	// Test Get on empty cache
	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss, got value: %s", value)
	}

	// Test Set and Get
	isNew, err := cache.Set("key1", "value1")
	if err != nil {
		t.Fatalf("Unexpected error setting key: %v", err)
	}
	if !isNew {
		t.Error("Expected new entry creation")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1" {
		t.Errorf("Expected 'value1', got value: %s, exists: %t", value, exists)
	}

	// Test Update
	isNew, err = cache.Set("key1", "value1_updated")
	if err != nil {
		t.Fatalf("Unexpected error updating key: %v", err)
	}
	if isNew {
		t.Error("Expected existing entry update")
	}

	if value, exists := cache.Get("key1"); !exists || value != "value1_updated" {
		t.Errorf("Expected 'value1_updated', got value: %s, exists: %t", value, exists)
	}

	// Test Delete
	deleted, err := cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting key: %v", err)
	}
	if !deleted {
		t.Error("Expected successful deletion")
	}

	deleted, err = cache.Delete("key1")
	if err != nil {
		t.Fatalf("Unexpected error deleting non-existent key: %v", err)
	}
	if deleted {
		t.Error("Expected deletion failure for non-existent key")
	}

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss after deletion, got value: %s", value)
	}
}

// testSizeOperations tests cache size tracking.
func testSizeOperations(t *testing.T, cache Cache[string]) {
	if cache.Size() != 0 {
		t.Errorf("Expected size 0, got %d", cache.Size())
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	if cache.Size() != 2 {
		t.Errorf("Expected size 2, got %d", cache.Size())
	}

	_, _ = cache.Delete("key1")

	if cache.Size() != 1 {
		t.Errorf("Expected size 1, got %d", cache.Size())
	}
}

// testKeysOperation tests cache key listing.
func testKeysOperation(t *testing.T, cache Cache[string]) {
	if len(cache.Keys()) != 0 {
		t.Errorf("Expected no keys, got %v", cache.Keys())
	}

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	keys := cache.Keys()
	if len(keys) != 2 {
		t.Errorf("Expected 2 keys, got %d", len(keys))
	}

	keyMap := make(map[string]bool)
	for _, key := range keys {
		keyMap[key] = true
	}

	if !keyMap["key1"] || !keyMap["key2"] {
		t.Errorf("Expected keys 'key1' and 'key2', got %v", keys)
	}
}

// testClearOperation tests cache clearing.
func testClearOperation(t *testing.T, cache Cache[string]) {
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")

	_ = cache.Clear()

	if cache.Size() != 0 {
		t.Errorf("Expected size 0 after clear, got %d", cache.Size())
	}

	if value, exists := cache.Get("key1"); exists {
		t.Errorf("Expected cache miss after clear, got value: %s", value)
	}
}

// testSuite runs common cache tests across all implementations.
func testSuite(t *testing.T, createCache func() Cache[string]) {
	t.Run("BasicOperations", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testBasicOperations(t, cache)
	})

	t.Run("Size", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testSizeOperations(t, cache)
	})

	t.Run("Keys", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testKeysOperation(t, cache)
	})

	t.Run("Clear", func(t *testing.T) {
		cache := createCache()
		defer cache.Close()
		testClearOperation(t, cache)
	})
}

// TestSimpleCache tests the simple cache implementation.
func TestSimpleCache(t *testing.T) {
	testSuite(t, func() Cache[string] {
		cache, err := NewSimple[string]()
		if err != nil {
			panic(err)
		}
		return cache
	})

	t.Run("NoEviction", func(t *testing.T) {
		cache, err := NewSimple[string]()
		if err != nil {
			t.Fatal(err)
		}
		defer cache.Close()

		// Add many items to ensure no eviction
		for i := 0; i < 1000; i++ {
			_, _ = cache.Set(fmt.Sprintf("key%d", i), fmt.Sprintf("value%d", i))
		}

		if cache.Size() != 1000 {
			t.Errorf("Expected size 1000, got %d", cache.Size())
		}

		// All items should still be present
		for i := 0; i < 1000; i++ {
			if value, exists := cache.Get(fmt.Sprintf("key%d", i)); !exists || value != fmt.Sprintf("value%d", i) {
				t.Errorf("Item %d missing or incorrect", i)
			}
		}
	})
}

// runConcurrentOperations performs concurrent cache operations for testing.
func runConcurrentOperations(t *testing.T, cache Cache[string], numGoroutines, numOperations int) {
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	// Concurrent reads and writes
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()

			for j := 0; j < numOperations; j++ {
				key := fmt.Sprintf("key%d-%d", id, j)
				value := fmt.Sprintf("value%d-%d", id, j)

				_, _ = cache.Set(key, value)

				if retrievedValue, exists := cache.Get(key); exists && retrievedValue != value {
					t.Errorf("Expected %s, got %s", value, retrievedValue)
				}

				if j%10 == 0 {
					_, _ = cache.Delete(key)
				}
			}
		}(i)
	}

	wg.Wait()
}

// TestConcurrency tests thread safety of the simple cache.
func TestConcurrency(t *testing.T) {
	cache, err := NewSimple[string]()
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	const numGoroutines = 10
	const numOperations = 100

	runConcurrentOperations(t, cache, numGoroutines, numOperations)
}

// TestEvictCallback tests the eviction callback functionality on Delete/Clear.
func TestEvictCallback(t *testing.T) {
	var evictedKeys []string
	var mu sync.Mutex

	cache, err := NewSimple[string](WithEvictionCallback[string](func(key string, _ string) {
		mu.Lock()
		evictedKeys = append(evictedKeys, key)
		mu.Unlock()
	}))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")
	_, _ = cache.Delete("key1")

	mu.Lock()
	if len(evictedKeys) != 1 || evictedKeys[0] != "key1" {
		t.Errorf("Expected evicted keys [key1], got %v", evictedKeys)
	}
	mu.Unlock()
}

// TestStatistics tests the statistics functionality.
func TestStatistics(t *testing.T) {
	cache, err := NewSimple[string]()
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()

	stats := cache.Stats()
	if stats == nil {
		t.Fatal("Expected stats to be enabled")
	}

	// Test basic operations
	_, _ = cache.Set("key1", "value1")
	_, _ = cache.Set("key2", "value2")
	cache.Get("key1") // hit
	cache.Get("key3") // miss
	_, _ = cache.Delete("key2")

	if stats.Sets() != 2 {
		t.Errorf("Expected 2 sets, got %d", stats.Sets())
	}

	if stats.Hits() != 1 {
		t.Errorf("Expected 1 hit, got %d", stats.Hits())
	}

	if stats.Misses() != 1 {
		t.Errorf("Expected 1 miss, got %d", stats.Misses())
	}

	if stats.Deletes() != 1 {
		t.Errorf("Expected 1 delete, got %d", stats.Deletes())
	}

	if stats.HitRatio() != 0.5 {
		t.Errorf("Expected hit ratio 0.5, got %f", stats.HitRatio())
	}

	if stats.CurrentSize() != 1 {
		t.Errorf("Expected current size 1, got %d", stats.CurrentSize())
	}
}
