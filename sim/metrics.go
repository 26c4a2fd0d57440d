// Tracks simulation-wide cache statistics for final reporting.

package sim

import (
	"fmt"
	"io"
)

// Counters aggregates the outcome of every simulated access.
// Each access increments exactly one of Hits or Misses; an access that
// replaces a valid line also increments Evictions.
type Counters struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// Accesses returns the number of simulated accesses.
func (c Counters) Accesses() uint64 {
	return c.Hits + c.Misses
}

// HitRate returns Hits / Accesses, or 0 before any access.
func (c Counters) HitRate() float64 {
	if c.Accesses() == 0 {
		return 0
	}
	return float64(c.Hits) / float64(c.Accesses())
}

// Add accumulates one outcome.
func (c *Counters) Add(o Outcome) {
	switch o {
	case Hit:
		c.Hits++
	case Miss:
		c.Misses++
	case MissEviction:
		c.Misses++
		c.Evictions++
	}
}

// Print writes the one-line summary in the cachelab format.
func (c Counters) Print(w io.Writer) error {
	_, err := fmt.Fprintf(w, "hits:%d misses:%d evictions:%d\n", c.Hits, c.Misses, c.Evictions)
	return err
}
