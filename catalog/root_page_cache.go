package catalog

import (
	"github.com/spaolacci/murmur3"

	"github.com/ryogrid/SamehadaDB/types"
)

// rootPageCacheKey identifies one column's index within the catalog.
type rootPageCacheKey struct {
	tableOid uint32
	column   string
}

type rootPageCacheEntry struct {
	key      rootPageCacheKey
	rootPage types.PageID
	occupied bool
}

// rootPageCache is a small open-addressed hash table mapping (table oid,
// column name) to the column's B+ tree root page id. GetIndexRootPageId
// consults it before falling back to a walk over the table's schema
// columns; the columns catalog heap remains the durable
// source of truth and this cache is rebuilt from it on catalog load.
type rootPageCache struct {
	buckets []rootPageCacheEntry
	count   int
}

const rootPageCacheInitialBuckets = 16

func newRootPageCache() *rootPageCache {
	return &rootPageCache{buckets: make([]rootPageCacheEntry, rootPageCacheInitialBuckets)}
}

func (c *rootPageCache) hash(key rootPageCacheKey) uint32 {
	h := murmur3.New32()
	buf := make([]byte, 4)
	buf[0] = byte(key.tableOid)
	buf[1] = byte(key.tableOid >> 8)
	buf[2] = byte(key.tableOid >> 16)
	buf[3] = byte(key.tableOid >> 24)
	h.Write(buf)
	h.Write([]byte(key.column))
	return h.Sum32()
}

func (c *rootPageCache) grow() {
	old := c.buckets
	c.buckets = make([]rootPageCacheEntry, len(old)*2)
	c.count = 0
	for _, e := range old {
		if e.occupied {
			c.put(e.key, e.rootPage)
		}
	}
}

// put inserts or overwrites the root page id for key, linear-probing past
// collisions.
func (c *rootPageCache) put(key rootPageCacheKey, rootPage types.PageID) {
	if c.count*2 >= len(c.buckets) {
		c.grow()
	}
	idx := int(c.hash(key)) % len(c.buckets)
	for {
		e := &c.buckets[idx]
		if !e.occupied {
			*e = rootPageCacheEntry{key: key, rootPage: rootPage, occupied: true}
			c.count++
			return
		}
		if e.key == key {
			e.rootPage = rootPage
			return
		}
		idx = (idx + 1) % len(c.buckets)
	}
}

// get returns the cached root page id for key, if present.
func (c *rootPageCache) get(key rootPageCacheKey) (types.PageID, bool) {
	if len(c.buckets) == 0 {
		return types.InvalidPageID, false
	}
	idx := int(c.hash(key)) % len(c.buckets)
	for probes := 0; probes < len(c.buckets); probes++ {
		e := &c.buckets[idx]
		if !e.occupied {
			return types.InvalidPageID, false
		}
		if e.key == key {
			return e.rootPage, true
		}
		idx = (idx + 1) % len(c.buckets)
	}
	return types.InvalidPageID, false
}
