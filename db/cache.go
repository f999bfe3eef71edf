package db

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/nickyhof/PrimitiveDB/core"
)

// selectCache remembers select results for one HEAD transaction. Any commit
// moves HEAD, so entries from an older transaction are dropped on the next
// lookup instead of being invalidated per write.
type selectCache struct {
	mu          sync.Mutex
	transaction string
	entries     map[string][]core.Record
	limit       int
}

const defaultCacheEntries = 128

func newSelectCache(limit int) *selectCache {
	return &selectCache{limit: limit}
}

func cacheKey(table string, where core.Predicate) string {
	columns := slices.Sorted(maps.Keys(where))

	var key strings.Builder
	key.WriteString(table)
	for _, column := range columns {
		key.WriteString("\x00" + column + "\x00" + where[column])
	}
	return key.String()
}

func (c *selectCache) get(transaction, table string, where core.Predicate) ([]core.Record, bool) {
	if c == nil || c.limit <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if transaction != c.transaction {
		c.transaction = transaction
		c.entries = nil
		return nil, false
	}

	records, ok := c.entries[cacheKey(table, where)]
	if !ok {
		return nil, false
	}
	return cloneRecords(records), true
}

func (c *selectCache) put(transaction, table string, where core.Predicate, records []core.Record) {
	if c == nil || c.limit <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if transaction != c.transaction || c.entries == nil {
		c.transaction = transaction
		c.entries = make(map[string][]core.Record)
	}
	if len(c.entries) >= c.limit {
		clear(c.entries)
	}
	c.entries[cacheKey(table, where)] = cloneRecords(records)
}

// cloneRecords copies records and each record's map, so callers never share
// storage with a cached entry.
func cloneRecords(records []core.Record) []core.Record {
	if records == nil {
		return nil
	}
	cloned := make([]core.Record, len(records))
	for i, record := range records {
		cloned[i] = maps.Clone(record)
	}
	return cloned
}

func (c *selectCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
