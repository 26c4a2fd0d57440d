package sim

import "fmt"

// nilWay marks the absence of a link in LRUOrder.
const nilWay = -1

// InvariantViolation is the panic value raised when the recency bookkeeping of
// a set is used in a way the cache model never should. It indicates a bug in
// the simulator, not bad input.
type InvariantViolation struct {
	Op     string
	Way    int
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("lru invariant violated in %s(way=%d): %s", e.Op, e.Way, e.Detail)
}

// LRUOrder keeps the ways of one set ordered from most to least recently used.
//
// It is a doubly linked list whose nodes are the way indices themselves: the
// links live in two fixed arrays of length E, so the structure never holds
// more than E entries and every operation is O(1) regardless of E.
type LRUOrder struct {
	prev   []int
	next   []int
	linked []bool
	head   int // most recently used
	tail   int // least recently used
	size   int
}

// NewLRUOrder returns an empty order for a set with the given number of ways.
func NewLRUOrder(ways int) *LRUOrder {
	o := &LRUOrder{
		prev:   make([]int, ways),
		next:   make([]int, ways),
		linked: make([]bool, ways),
	}
	o.Reset()
	return o
}

// Reset forgets every tracked way.
func (o *LRUOrder) Reset() {
	for i := range o.linked {
		o.prev[i] = nilWay
		o.next[i] = nilWay
		o.linked[i] = false
	}
	o.head = nilWay
	o.tail = nilWay
	o.size = 0
}

// Len returns the number of tracked ways.
func (o *LRUOrder) Len() int {
	return o.size
}

// Cap returns the associativity the order was built for.
func (o *LRUOrder) Cap() int {
	return len(o.linked)
}

// Contains reports whether way is tracked.
func (o *LRUOrder) Contains(way int) bool {
	return way >= 0 && way < len(o.linked) && o.linked[way]
}

// MostRecent returns the most recently used way.
func (o *LRUOrder) MostRecent() (int, bool) {
	return o.head, o.head != nilWay
}

// LeastRecent returns the least recently used way, the next eviction victim.
func (o *LRUOrder) LeastRecent() (int, bool) {
	return o.tail, o.tail != nilWay
}

// Touch moves a tracked way to the most recently used position.
func (o *LRUOrder) Touch(way int) {
	if !o.Contains(way) {
		panic(&InvariantViolation{Op: "Touch", Way: way, Detail: "way is not tracked"})
	}
	if o.head == way {
		return
	}
	o.unlink(way)
	o.pushFront(way)
}

// InsertNew starts tracking way as the most recently used entry.
func (o *LRUOrder) InsertNew(way int) {
	if way < 0 || way >= len(o.linked) {
		panic(&InvariantViolation{Op: "InsertNew", Way: way, Detail: fmt.Sprintf("way out of range [0, %d)", len(o.linked))})
	}
	if o.linked[way] {
		panic(&InvariantViolation{Op: "InsertNew", Way: way, Detail: "way already tracked"})
	}
	o.pushFront(way)
}

// EvictVictim removes and returns the least recently used way. The caller
// must reinsert it with InsertNew once the line is refilled. It may only be
// called when every way of the set is tracked.
func (o *LRUOrder) EvictVictim() int {
	if o.size < len(o.linked) {
		panic(&InvariantViolation{
			Op:     "EvictVictim",
			Way:    o.tail,
			Detail: fmt.Sprintf("only %d of %d ways tracked", o.size, len(o.linked)),
		})
	}
	victim := o.tail
	o.unlink(victim)
	return victim
}

// Order returns the tracked ways from most to least recently used.
func (o *LRUOrder) Order() []int {
	ways := make([]int, 0, o.size)
	for w := o.head; w != nilWay; w = o.next[w] {
		ways = append(ways, w)
	}
	return ways
}

func (o *LRUOrder) pushFront(way int) {
	o.prev[way] = nilWay
	o.next[way] = o.head
	if o.head != nilWay {
		o.prev[o.head] = way
	} else {
		o.tail = way
	}
	o.head = way
	o.linked[way] = true
	o.size++
}

func (o *LRUOrder) unlink(way int) {
	p, n := o.prev[way], o.next[way]
	if p != nilWay {
		o.next[p] = n
	} else {
		o.head = n
	}
	if n != nilWay {
		o.prev[n] = p
	} else {
		o.tail = p
	}
	o.prev[way] = nilWay
	o.next[way] = nilWay
	o.linked[way] = false
	o.size--
}
