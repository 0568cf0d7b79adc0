package compiler

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anhnt/edge/internal/vm"
)

// Cache holds compiled programs keyed by template name with LRU eviction
// and an optional TTL. It is safe for concurrent use.
type Cache struct {
	entries map[string]*CacheEntry
	mutex   sync.Mutex
	maxSize int
	ttl     time.Duration
	// LRU list with sentinel head and tail
	head *CacheEntry
	tail *CacheEntry

	hits      int64
	misses    int64
	sets      int64
	deletes   int64
	evictions int64
}

// CacheEntry is one cached program.
type CacheEntry struct {
	Key        string
	Program    *vm.Program
	CreatedAt  time.Time
	AccessedAt time.Time

	prev *CacheEntry
	next *CacheEntry
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries   int     `json:"entries" yaml:"entries"`
	MaxSize   int     `json:"max_size" yaml:"max_size"`
	Hits      int64   `json:"hits" yaml:"hits"`
	Misses    int64   `json:"misses" yaml:"misses"`
	Sets      int64   `json:"sets" yaml:"sets"`
	Deletes   int64   `json:"deletes" yaml:"deletes"`
	Evictions int64   `json:"evictions" yaml:"evictions"`
	HitRate   float64 `json:"hit_rate" yaml:"hit_rate"`
}

// NewCache creates a cache bounded to maxSize programs. A zero ttl keeps
// entries until they are evicted or invalidated.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = 1
	}
	c := &Cache{
		entries: make(map[string]*CacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		head:    &CacheEntry{},
		tail:    &CacheEntry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a program from the cache
func (c *Cache) Get(key string) (*vm.Program, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	if c.expired(entry) {
		c.remove(entry)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	c.moveToFront(entry)
	entry.AccessedAt = time.Now()
	atomic.AddInt64(&c.hits, 1)
	return entry.Program, true
}

// Set stores a program in the cache. Concurrent first compiles of the same
// template may both call Set; the last one wins.
func (c *Cache) Set(key string, prog *vm.Program) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	atomic.AddInt64(&c.sets, 1)

	if existing, exists := c.entries[key]; exists {
		existing.Program = prog
		existing.CreatedAt = now
		existing.AccessedAt = now
		c.moveToFront(existing)
		return
	}

	for len(c.entries) >= c.maxSize && c.tail.prev != c.head {
		c.remove(c.tail.prev)
		atomic.AddInt64(&c.evictions, 1)
	}

	entry := &CacheEntry{Key: key, Program: prog, CreatedAt: now, AccessedAt: now}
	c.entries[key] = entry
	c.addToFront(entry)
}

// Delete removes key and reports whether it was cached.
func (c *Cache) Delete(key string) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		return false
	}
	c.remove(entry)
	atomic.AddInt64(&c.deletes, 1)
	return true
}

// InvalidateFunc removes every entry whose key matches and returns how many
// were removed.
func (c *Cache) InvalidateFunc(match func(key string) bool) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	invalidated := 0
	for key, entry := range c.entries {
		if !match(key) {
			continue
		}
		c.remove(entry)
		invalidated++
	}
	atomic.AddInt64(&c.deletes, int64(invalidated))
	return invalidated
}

// InvalidatePrefix removes every entry whose key starts with prefix.
func (c *Cache) InvalidatePrefix(prefix string) int {
	return c.InvalidateFunc(func(key string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

// Clear clears all cache entries and resets statistics
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]*CacheEntry)
	c.head.next = c.tail
	c.tail.prev = c.head

	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.sets, 0)
	atomic.StoreInt64(&c.deletes, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Len returns the number of cached programs.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// Keys returns the cached keys from most to least recently used.
func (c *Cache) Keys() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	keys := make([]string, 0, len(c.entries))
	for e := c.head.next; e != c.tail; e = e.next {
		keys = append(keys, e.Key)
	}
	return keys
}

// Stats returns cache statistics
func (c *Cache) Stats() CacheStats {
	c.mutex.Lock()
	entries := len(c.entries)
	c.mutex.Unlock()

	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	stats := CacheStats{
		Entries:   entries,
		MaxSize:   c.maxSize,
		Hits:      hits,
		Misses:    misses,
		Sets:      atomic.LoadInt64(&c.sets),
		Deletes:   atomic.LoadInt64(&c.deletes),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

func (c *Cache) expired(entry *CacheEntry) bool {
	return c.ttl > 0 && time.Since(entry.CreatedAt) > c.ttl
}

func (c *Cache) remove(entry *CacheEntry) {
	c.removeFromList(entry)
	delete(c.entries, entry.Key)
}

// LRU doubly-linked list operations
func (c *Cache) addToFront(entry *CacheEntry) {
	entry.prev = c.head
	entry.next = c.head.next
	c.head.next.prev = entry
	c.head.next = entry
}

func (c *Cache) removeFromList(entry *CacheEntry) {
	entry.prev.next = entry.next
	entry.next.prev = entry.prev
}

func (c *Cache) moveToFront(entry *CacheEntry) {
	c.removeFromList(entry)
	c.addToFront(entry)
}
