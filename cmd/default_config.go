package cmd

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/csim/sim"
)

// defaultPresetsPath is the presets file shipped at the repository root.
const defaultPresetsPath = "presets.yaml"

// Preset describes a named cache geometry in presets.yaml.
type Preset struct {
	SetBits       int    `yaml:"s"`
	Associativity int    `yaml:"E"`
	BlockBits     int    `yaml:"b"`
	Description   string `yaml:"description"`
}

// PresetsConfig represents the full presets.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type PresetsConfig struct {
	Version    string            `yaml:"version"`
	Geometries map[string]Preset `yaml:"geometries"`
}

// LoadPresets parses a presets file with strict field checking: a misspelled
// key is an error rather than a silently zero geometry.
func LoadPresets(path string) (PresetsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PresetsConfig{}, fmt.Errorf("reading presets file: %w", err)
	}

	var cfg PresetsConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return PresetsConfig{}, fmt.Errorf("parsing presets YAML %s: %w", path, err)
	}
	return cfg, nil
}

// Geometry looks up a preset by name and validates it.
func (c PresetsConfig) Geometry(name string) (sim.Geometry, error) {
	p, ok := c.Geometries[name]
	if !ok {
		return sim.Geometry{}, fmt.Errorf("unknown preset %q (available: %v)", name, c.Names())
	}
	g := sim.Geometry{SetBits: p.SetBits, Associativity: p.Associativity, BlockBits: p.BlockBits}
	if err := g.Validate(); err != nil {
		return sim.Geometry{}, fmt.Errorf("preset %q: %w", name, err)
	}
	return g, nil
}

// Names returns the preset names in sorted order.
func (c PresetsConfig) Names() []string {
	names := make([]string, 0, len(c.Geometries))
	for name := range c.Geometries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
