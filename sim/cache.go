// sim/cache.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Outcome classifies a single cache access.
type Outcome int

const (
	// Hit means the tag was present and valid in its set.
	Hit Outcome = iota
	// Miss means the tag was absent and an invalid line was filled.
	Miss
	// MissEviction means the tag was absent and the set's least recently used line was replaced.
	MissEviction
)

// String returns the words the simulator prints in verbose mode.
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Miss:
		return "miss"
	case MissEviction:
		return "miss eviction"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// IsMiss reports whether the access missed, with or without eviction.
func (o Outcome) IsMiss() bool {
	return o == Miss || o == MissEviction
}

// Line is one storage slot of a set.
type Line struct {
	Valid bool
	Tag   uint64
}

// AccessResult describes where an address landed and what happened to it.
type AccessResult struct {
	Address  uint64
	SetIndex uint64
	Tag      uint64
	Way      int // way that holds the tag after the access
	Outcome  Outcome
}

// cacheSet is a group of E lines selected by the set-index bits, together
// with the recency order of its valid lines.
type cacheSet struct {
	lines []Line
	order *LRUOrder
}

// Cache is a set-associative cache model with LRU replacement.
// It tracks presence only; no data is stored and no dirty state is kept.
// A Cache is not safe for concurrent use.
type Cache struct {
	geom     Geometry
	sets     []cacheSet
	counters Counters
}

// NewCache builds an empty cache, every line invalid.
func NewCache(g Geometry) (*Cache, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	c := &Cache{
		geom: g,
		sets: make([]cacheSet, g.NumSets()),
	}
	for i := range c.sets {
		c.sets[i] = cacheSet{
			lines: make([]Line, g.Associativity),
			order: NewLRUOrder(g.Associativity),
		}
	}
	logrus.Debugf("cache built: S=%d E=%d B=%d set mask=%#x", g.NumSets(), g.Associativity, g.BlockSize(), g.SetMask())
	return c, nil
}

// Access simulates one load or store of address and updates the counters.
//
// The set's ways are scanned in ascending order: first for a valid line with
// a matching tag, then, on a miss, for the first invalid line. Only when
// every line is valid is the least recently used one evicted. The scans are
// O(E); recency updates are O(1).
func (c *Cache) Access(address uint64) AccessResult {
	setIndex, tag := c.geom.Decode(address)
	res := AccessResult{Address: address, SetIndex: setIndex, Tag: tag}
	res.Way, res.Outcome = c.sets[setIndex].place(tag)
	c.counters.Add(res.Outcome)
	return res
}

// place makes tag resident in the set and returns the way holding it.
func (s *cacheSet) place(tag uint64) (int, Outcome) {
	for way := range s.lines {
		if s.lines[way].Valid && s.lines[way].Tag == tag {
			s.order.Touch(way)
			return way, Hit
		}
	}

	for way := range s.lines {
		if !s.lines[way].Valid {
			s.lines[way] = Line{Valid: true, Tag: tag}
			s.order.InsertNew(way)
			return way, Miss
		}
	}

	victim := s.order.EvictVictim()
	s.lines[victim].Tag = tag
	s.order.InsertNew(victim)
	return victim, MissEviction
}

// Counters returns the accumulated hit, miss and eviction counts.
func (c *Cache) Counters() Counters {
	return c.counters
}

// Geometry returns the shape the cache was built with.
func (c *Cache) Geometry() Geometry {
	return c.geom
}

// Line returns a copy of the line at (setIndex, way).
func (c *Cache) Line(setIndex uint64, way int) Line {
	return c.sets[setIndex].lines[way]
}

// Recency returns the valid ways of a set from most to least recently used.
func (c *Cache) Recency(setIndex uint64) []int {
	return c.sets[setIndex].order.Order()
}

// Reset invalidates every line and clears the counters.
func (c *Cache) Reset() {
	for i := range c.sets {
		clear(c.sets[i].lines)
		c.sets[i].order.Reset()
	}
	c.counters = Counters{}
}
