package sim

import (
	"bufio"
	"io"

	"github.com/inference-sim/csim/sim/trace"
)

// VerboseObserver prints one line per data event followed by the outcome of
// each access, e.g. "M 20,1 miss eviction hit".
type VerboseObserver struct {
	w   *bufio.Writer
	err error
}

// NewVerboseObserver returns an observer writing to w. Call Flush when the run ends.
func NewVerboseObserver(w io.Writer) *VerboseObserver {
	return &VerboseObserver{w: bufio.NewWriter(w)}
}

// ObserveEvent implements EventObserver.
func (v *VerboseObserver) ObserveEvent(_ int, ev trace.Event, results []AccessResult) {
	if v.err != nil {
		return
	}
	_, v.err = v.w.WriteString(ev.String())
	for _, res := range results {
		if v.err != nil {
			return
		}
		_, v.err = v.w.WriteString(" " + res.Outcome.String())
	}
	if v.err == nil {
		v.err = v.w.WriteByte('\n')
	}
}

// Flush writes buffered output and returns the first error seen.
func (v *VerboseObserver) Flush() error {
	if v.err != nil {
		return v.err
	}
	return v.w.Flush()
}
