// Package statusmap translates between Frame.io asset labels and Flame
// colour labels. The mapping is bidirectional and must stay one-to-one in
// both directions.
package statusmap

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RGB is a Flame colour label value, each channel in [0,1].
type RGB struct {
	R float64 `yaml:"r"`
	G float64 `yaml:"g"`
	B float64 `yaml:"b"`
}

// Entry pairs a Frame.io label with its Flame status name and colour.
type Entry struct {
	Label  string `yaml:"label"`  // Frame.io label, e.g. "needs_review"
	Status string `yaml:"status"` // Flame status name, e.g. "Needs Review"
	Colour RGB    `yaml:"colour"`
}

// Map holds the resolved bidirectional table.
type Map struct {
	byLabel  map[string]Entry
	byStatus map[string]Entry
	entries  []Entry
}

// builtin is the stock table shipped with the bridge.
var builtin = []Entry{
	{Label: "approved", Status: "Approved", Colour: RGB{0.1137, 0.2627, 0.1765}},
	{Label: "needs_review", Status: "Needs Review", Colour: RGB{0.6, 0.3451, 0.1647}},
	{Label: "in_progress", Status: "In Progress", Colour: RGB{0.2627, 0.4078, 0.5020}},
}

// Default returns the stock mapping.
func Default() *Map {
	m, err := build(builtin)
	if err != nil {
		panic(err) // builtin table is fixed at compile time
	}
	return m
}

// LoadFile reads a YAML override file replacing the stock table. The file
// is a list of entries:
//
//	- label: approved
//	  status: Approved
//	  colour: {r: 0.11, g: 0.26, b: 0.18}
func LoadFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("statusmap: read %s: %w", path, err)
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("statusmap: parse %s: %w", path, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("statusmap: %s defines no entries", path)
	}
	m, err := build(entries)
	if err != nil {
		return nil, fmt.Errorf("statusmap: %s: %w", path, err)
	}
	return m, nil
}

// Load returns the mapping from the override file at path, or the stock
// table when path is empty.
func Load(path string) (*Map, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func build(entries []Entry) (*Map, error) {
	m := &Map{
		byLabel:  make(map[string]Entry, len(entries)),
		byStatus: make(map[string]Entry, len(entries)),
		entries:  entries,
	}
	for _, e := range entries {
		if e.Label == "" || e.Status == "" {
			return nil, fmt.Errorf("entry %+v missing label or status", e)
		}
		if _, dup := m.byLabel[e.Label]; dup {
			return nil, fmt.Errorf("duplicate label %q", e.Label)
		}
		if _, dup := m.byStatus[e.Status]; dup {
			return nil, fmt.Errorf("duplicate status %q", e.Status)
		}
		m.byLabel[e.Label] = e
		m.byStatus[e.Status] = e
	}
	return m, nil
}

// StatusFor returns the Flame status entry for a Frame.io label.
func (m *Map) StatusFor(label string) (Entry, bool) {
	e, ok := m.byLabel[label]
	return e, ok
}

// LabelFor returns the Frame.io label entry for a Flame status name.
func (m *Map) LabelFor(status string) (Entry, bool) {
	e, ok := m.byStatus[status]
	return e, ok
}

// Entries returns the table in declaration order.
func (m *Map) Entries() []Entry {
	return m.entries
}
