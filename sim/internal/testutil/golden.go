// Package testutil provides shared test infrastructure for the csim simulator.
// It consolidates golden dataset types and trace fixtures used across
// sim/ and cmd/ test packages.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one trace replayed under one cache geometry.
type GoldenTestCase struct {
	Trace         string        `json:"trace"` // file name under testdata/traces/
	SetBits       int           `json:"s"`
	Associativity int           `json:"E"`
	BlockBits     int           `json:"b"`
	Metrics       GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected counters of a golden test case.
// All values are exact: the simulator is deterministic.
type GoldenMetrics struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// testdataDir resolves the repo root testdata/ relative to this source file:
// sim/internal/testutil/ → testdata/.
func testdataDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata")
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	path := filepath.Join(testdataDir(t), "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// TracePath returns the absolute path of a trace fixture.
func TracePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(testdataDir(t), "traces", name)
}
