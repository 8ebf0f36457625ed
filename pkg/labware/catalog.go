package labware

import (
	"fmt"
	"sort"
	"sync"
)

// Definition describes a labware geometry by catalog name. Definitions are
// plain data; Build turns them into deck-loadable labware.
type Definition struct {
	Name        string  `json:"name" yaml:"name" mapstructure:"name"`
	DisplayName string  `json:"display_name,omitempty" yaml:"display_name,omitempty" mapstructure:"display_name"`
	Rows        int     `json:"rows" yaml:"rows" mapstructure:"rows"`
	Cols        int     `json:"cols" yaml:"cols" mapstructure:"cols"`
	WellVolume  float64 `json:"well_volume_ul" yaml:"well_volume_ul" mapstructure:"well_volume_ul"`
	TipLength   float64 `json:"tip_length_mm,omitempty" yaml:"tip_length_mm,omitempty" mapstructure:"tip_length_mm"`
	Trash       bool    `json:"trash,omitempty" yaml:"trash,omitempty" mapstructure:"trash"`
}

// IsTipRack reports whether the definition describes a tip rack.
func (d Definition) IsTipRack() bool { return d.TipLength > 0 }

// Validate checks that a definition can actually be built.
func (d Definition) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("labware definition missing name")
	}
	if d.Rows < 1 || d.Cols < 1 {
		return fmt.Errorf("labware %s: grid must be at least 1x1, got %dx%d", d.Name, d.Rows, d.Cols)
	}
	if d.WellVolume < 0 || d.TipLength < 0 {
		return fmt.Errorf("labware %s: negative dimensions", d.Name)
	}
	return nil
}

// Catalog maps definition names to definitions. It is safe for concurrent
// use; registering an existing name overwrites it.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewCatalog creates a catalog pre-populated with the built-in definitions.
func NewCatalog() *Catalog {
	c := &Catalog{defs: make(map[string]Definition)}
	for _, def := range builtins {
		c.defs[def.Name] = def
	}
	return c
}

// Register adds or replaces a definition.
func (c *Catalog) Register(def Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[def.Name] = def
	return nil
}

// Get looks up a definition by name.
func (c *Catalog) Get(name string) (Definition, error) {
	c.mu.RLock()
	def, ok := c.defs[name]
	c.mu.RUnlock()
	if !ok {
		return Definition{}, fmt.Errorf("labware definition not found: %s", name)
	}
	return def, nil
}

// Names returns the registered definition names, sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build constructs labware from a registered definition. Tip rack
// definitions must be built with BuildTipRack.
func (c *Catalog) Build(name string) (*Labware, error) {
	def, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	if def.IsTipRack() {
		return nil, fmt.Errorf("labware %s is a tip rack; load it as one", name)
	}
	return New(def), nil
}

// BuildTipRack constructs a tip rack from a registered definition.
func (c *Catalog) BuildTipRack(name string) (*TipRack, error) {
	def, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	return NewTipRack(def)
}

// builtins are the definitions every robot knows without registration.
// Dimensions follow common ANSI/SLAS 96-well and 12-channel formats.
var builtins = []Definition{
	{Name: "plate_96_340ul", DisplayName: "96-well plate, 340 µL", Rows: 8, Cols: 12, WellVolume: 340},
	{Name: "plate_384_50ul", DisplayName: "384-well plate, 50 µL", Rows: 16, Cols: 24, WellVolume: 50},
	{Name: "reservoir_12_15ml", DisplayName: "12-channel reservoir, 15 mL", Rows: 1, Cols: 12, WellVolume: 15000},
	{Name: "tuberack_24_1500ul", DisplayName: "24 tube rack, 1.5 mL", Rows: 4, Cols: 6, WellVolume: 1500},
	{Name: "tiprack_10ul", DisplayName: "96 tip rack, 10 µL", Rows: 8, Cols: 12, TipLength: 33.0},
	{Name: "tiprack_300ul", DisplayName: "96 tip rack, 300 µL", Rows: 8, Cols: 12, TipLength: 59.3},
	{Name: "tiprack_1000ul", DisplayName: "96 tip rack, 1000 µL", Rows: 8, Cols: 12, TipLength: 88.0},
	{Name: "fixed_trash", DisplayName: "Fixed trash", Rows: 1, Cols: 1, Trash: true},
}
