package glyph

import (
	"hash/maphash"
	"sync"
)

// Shaping cache defaults. The shard count must stay a power of two so
// shard selection is a bitwise AND.
const (
	shapeCacheShards   = 8
	shapeCacheCapacity = 512
)

// shapeKey identifies one shaping request.
type shapeKey struct {
	face uint64
	text string
}

var shapeSeed = maphash.MakeSeed()

func (k shapeKey) hash() uint64 {
	var h maphash.Hash
	h.SetSeed(shapeSeed)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(k.face >> (8 * i))
	}
	h.Write(buf[:])
	h.WriteString(k.text)
	return h.Sum64()
}

// shapeCache is a sharded LRU of shaping results. Terminal workloads
// re-shape the same short clusters constantly, so a small per-shard
// capacity already yields high hit rates while bounding memory.
type shapeCache struct {
	shards [shapeCacheShards]shapeCacheShard
}

type shapeCacheShard struct {
	mu      sync.Mutex
	entries map[shapeKey]*shapeEntry
	head    *shapeEntry
	tail    *shapeEntry
}

type shapeEntry struct {
	key    shapeKey
	glyphs []ShapedGlyph

	prev, next *shapeEntry
}

func newShapeCache() *shapeCache {
	c := &shapeCache{}
	for i := range c.shards {
		c.shards[i].entries = make(map[shapeKey]*shapeEntry)
	}
	return c
}

func (c *shapeCache) shard(key shapeKey) *shapeCacheShard {
	return &c.shards[key.hash()&(shapeCacheShards-1)]
}

// getOrCreate returns the cached result for key, calling create under
// the shard lock on a miss so concurrent misses shape only once.
func (c *shapeCache) getOrCreate(key shapeKey, create func() []ShapedGlyph) []ShapedGlyph {
	s := c.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		s.moveToFront(e)
		return e.glyphs
	}

	for len(s.entries) >= shapeCacheCapacity {
		oldest := s.tail
		if oldest == nil {
			break
		}
		s.unlink(oldest)
		delete(s.entries, oldest.key)
	}

	e := &shapeEntry{key: key, glyphs: create()}
	s.pushFront(e)
	s.entries[key] = e
	return e.glyphs
}

func (c *shapeCache) len() int {
	n := 0
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

func (c *shapeCache) clear() {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		s.entries = make(map[shapeKey]*shapeEntry)
		s.head, s.tail = nil, nil
		s.mu.Unlock()
	}
}

func (s *shapeCacheShard) pushFront(e *shapeEntry) {
	e.prev = nil
	e.next = s.head
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *shapeCacheShard) unlink(e *shapeEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (s *shapeCacheShard) moveToFront(e *shapeEntry) {
	if e == s.head {
		return
	}
	s.unlink(e)
	s.pushFront(e)
}
