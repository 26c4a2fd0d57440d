package trace

// TraceSummary aggregates per-kind statistics over a sequence of events.
type TraceSummary struct {
	TotalEvents  int
	Instructions int
	Loads        int
	Stores       int
	Modifies     int
	MinAddress   uint64
	MaxAddress   uint64
}

// Add folds one event into the summary.
func (s *TraceSummary) Add(ev Event) {
	s.TotalEvents++
	switch ev.Kind {
	case Instruction:
		s.Instructions++
		return
	case Load:
		s.Loads++
	case Store:
		s.Stores++
	case Modify:
		s.Modifies++
	}

	// Address range covers data events only.
	if s.DataEvents() == 1 || ev.Address < s.MinAddress {
		s.MinAddress = ev.Address
	}
	if ev.Address > s.MaxAddress {
		s.MaxAddress = ev.Address
	}
}

// DataEvents returns the number of load, store and modify events.
func (s *TraceSummary) DataEvents() int {
	return s.Loads + s.Stores + s.Modifies
}

// Accesses returns the number of cache accesses the data events expand to.
// A modify counts twice.
func (s *TraceSummary) Accesses() int {
	return s.Loads + s.Stores + 2*s.Modifies
}
