// Package trace provides memory-access trace events and a reader for the
// lackey/cachelab text format.
// This package has no dependencies on sim/ and stores pure data types.
package trace

import "fmt"

// Kind identifies the type of a memory-access event.
type Kind byte

const (
	// Instruction is an instruction fetch. Simulators skip it.
	Instruction Kind = 'I'
	// Load reads data from address.
	Load Kind = 'L'
	// Store writes data to address.
	Store Kind = 'S'
	// Modify is a load followed by a store to the same address.
	Modify Kind = 'M'
)

// validKinds maps accepted event kind letters.
var validKinds = map[Kind]bool{
	Instruction: true,
	Load:        true,
	Store:       true,
	Modify:      true,
}

// IsValidKind returns true if the given letter is a recognized event kind.
// Matching is case-sensitive.
func IsValidKind(k byte) bool {
	return validKinds[Kind(k)]
}

// String returns the single-letter trace representation of the kind.
func (k Kind) String() string {
	if !validKinds[k] {
		return fmt.Sprintf("Kind(%d)", byte(k))
	}
	return string(rune(k))
}

// Accesses returns the number of data accesses the kind expands to.
// Instruction fetches expand to none, modifies to two.
func (k Kind) Accesses() int {
	switch k {
	case Load, Store:
		return 1
	case Modify:
		return 2
	default:
		return 0
	}
}

// Event is one line of a memory trace.
type Event struct {
	Kind    Kind
	Address uint64
	Size    uint64 // bytes touched; recorded but not used for addressing
	Line    int    // 1-based source line, 0 if not read from text
}

// IsData reports whether the event touches data memory.
func (e Event) IsData() bool {
	return e.Kind.Accesses() > 0
}

// String formats the event the way it appears in verbose simulator output,
// e.g. "L 7ff0005c8,8".
func (e Event) String() string {
	return fmt.Sprintf("%s %x,%d", e.Kind, e.Address, e.Size)
}
