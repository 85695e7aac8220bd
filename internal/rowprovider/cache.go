package rowprovider

import "sync"

// rowCacheEntry holds one cached GetRows window.
type rowCacheEntry struct {
	records []Record
	key     string
	prev    *rowCacheEntry
	next    *rowCacheEntry
}

// rowWindowCache is a memory-bounded LRU cache of recently fetched GetRows
// windows, keyed by "rowsFrom:numRows". The view, a Finder validating a
// match, and a Sorter reading ahead of its own scan all tend to re-request
// the same window across consecutive polls; caching it turns a repeat
// request into a map lookup instead of a re-open-and-rescan.
//
// Adapted from the teacher's internal/common.BlockCache (same doubly-linked
// LRU list and byte-budget eviction), re-keyed from a decompressed on-disk
// index block to an in-memory []Record window since RowProvider has no
// static block file to cache pages of (SPEC_FULL.md §4.1a).
type rowWindowCache struct {
	mu       sync.Mutex
	items    map[string]*rowCacheEntry
	head     *rowCacheEntry
	tail     *rowCacheEntry
	curBytes int64
	maxBytes int64
}

// approxRecordBytes estimates a Record's cache weight; exact sizing isn't
// worth tracking for a bound whose only job is capping memory use.
const approxRecordBytes = 128

func newRowWindowCache(maxBytes int64) *rowWindowCache {
	return &rowWindowCache{
		items:    make(map[string]*rowCacheEntry),
		maxBytes: maxBytes,
	}
}

func (c *rowWindowCache) get(key string) ([]Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.moveToHead(entry)
	return entry.records, true
}

func (c *rowWindowCache) put(key string, records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.items[key]; ok {
		return
	}

	weight := int64(len(records)) * approxRecordBytes
	if weight > c.maxBytes {
		return
	}
	for c.curBytes+weight > c.maxBytes && c.tail != nil {
		c.evict()
	}

	entry := &rowCacheEntry{records: records, key: key}
	c.items[key] = entry
	c.curBytes += weight
	c.addToHead(entry)
}

// invalidate drops every cached window. Called when the underlying file is
// observed to have changed (SPEC_FULL.md §4.8): a cached window may now
// point at stale or shifted records.
func (c *rowWindowCache) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*rowCacheEntry)
	c.head, c.tail = nil, nil
	c.curBytes = 0
}

func (c *rowWindowCache) addToHead(entry *rowCacheEntry) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	}
	c.head = entry
	if c.tail == nil {
		c.tail = entry
	}
}

func (c *rowWindowCache) moveToHead(entry *rowCacheEntry) {
	if entry == c.head {
		return
	}
	c.removeFromList(entry)
	c.addToHead(entry)
}

func (c *rowWindowCache) removeFromList(entry *rowCacheEntry) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}

func (c *rowWindowCache) evict() {
	if c.tail == nil {
		return
	}
	victim := c.tail
	c.removeFromList(victim)
	c.curBytes -= int64(len(victim.records)) * approxRecordBytes
	delete(c.items, victim.key)
}
