package sim

import (
	"errors"
	"fmt"
)

// MaxSetBits bounds the set-index width so that the set array stays allocatable.
const MaxSetBits = 24

// ErrInvalidGeometry is wrapped by every error returned from Geometry.Validate.
var ErrInvalidGeometry = errors.New("invalid cache geometry")

// Geometry is the fixed shape of a set-associative cache.
// An address is split, from low to high bits, into BlockBits of block offset,
// SetBits of set index and the remaining bits of tag.
type Geometry struct {
	SetBits       int // s: number of set-index bits; the cache has 2^s sets
	Associativity int // E: lines per set
	BlockBits     int // b: number of block-offset bits; blocks are 2^b bytes
}

// Validate checks that the geometry describes a cache that can be built.
// SetBits = 0 gives a fully associative cache and BlockBits = 0 one-byte blocks.
func (g Geometry) Validate() error {
	if g.Associativity < 1 {
		return fmt.Errorf("%w: associativity must be positive, got %d", ErrInvalidGeometry, g.Associativity)
	}
	if g.SetBits < 0 || g.SetBits > MaxSetBits {
		return fmt.Errorf("%w: set bits must be in [0, %d], got %d", ErrInvalidGeometry, MaxSetBits, g.SetBits)
	}
	if g.BlockBits < 0 {
		return fmt.Errorf("%w: block bits must be non-negative, got %d", ErrInvalidGeometry, g.BlockBits)
	}
	if g.SetBits+g.BlockBits > 64 {
		return fmt.Errorf("%w: set bits + block bits must not exceed 64, got %d", ErrInvalidGeometry, g.SetBits+g.BlockBits)
	}
	return nil
}

// NumSets returns S = 2^s.
func (g Geometry) NumSets() int {
	return 1 << g.SetBits
}

// BlockSize returns B = 2^b in bytes, saturating at the largest uint64.
func (g Geometry) BlockSize() uint64 {
	if g.BlockBits >= 64 {
		return ^uint64(0)
	}
	return uint64(1) << g.BlockBits
}

// SetMask returns the mask applied to the address after dropping the block offset.
func (g Geometry) SetMask() uint64 {
	return uint64(1)<<g.SetBits - 1
}

// Decode splits an address into its set index and tag.
// Shifts of 64 or more yield zero, so a geometry with s+b = 64 has a single tag.
func (g Geometry) Decode(address uint64) (setIndex, tag uint64) {
	setIndex = (address >> g.BlockBits) & g.SetMask()
	tag = address >> (g.SetBits + g.BlockBits)
	return setIndex, tag
}

// Capacity returns the number of data bytes the cache can hold, saturating
// at the largest uint64.
func (g Geometry) Capacity() uint64 {
	lines := uint64(g.NumSets()) * uint64(g.Associativity)
	bs := g.BlockSize()
	if bs != 0 && lines > ^uint64(0)/bs {
		return ^uint64(0)
	}
	return lines * bs
}

func (g Geometry) String() string {
	return fmt.Sprintf("s=%d E=%d b=%d", g.SetBits, g.Associativity, g.BlockBits)
}
