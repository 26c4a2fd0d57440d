package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/inference-sim/csim/sim"
)

// printSummary writes the one-line run summary.
func printSummary(w io.Writer, c sim.Counters) error {
	if err := c.Print(w); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// writeResultsFile stores "hits misses evictions" for graders and scripts,
// replacing any previous contents.
func writeResultsFile(path string, c sim.Counters) error {
	data := fmt.Sprintf("%d %d %d\n", c.Hits, c.Misses, c.Evictions)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("writing results file: %w", err)
	}
	return nil
}
