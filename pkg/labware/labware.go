package labware

import (
	"fmt"
	"strconv"
	"strings"
)

// Labware is a rectangular grid of wells loaded onto a deck slot: a plate,
// a reservoir, a tip rack, or the fixed trash.
type Labware struct {
	name    string
	label   string
	slot    int // 0 until loaded
	rows    int
	cols    int
	wellVol float64
	trash   bool
}

// New builds labware from a definition. Most callers should go through
// the catalog (labware.Build) instead of constructing definitions inline.
func New(def Definition) *Labware {
	return &Labware{
		name:    def.Name,
		rows:    def.Rows,
		cols:    def.Cols,
		wellVol: def.WellVolume,
		trash:   def.Trash,
	}
}

// Name returns the catalog name this labware was built from.
func (l *Labware) Name() string { return l.name }

// Label returns the user-assigned label, or the catalog name if none was set.
func (l *Labware) Label() string {
	if l.label != "" {
		return l.label
	}
	return l.name
}

// SetLabel assigns a display label.
func (l *Labware) SetLabel(label string) { l.label = label }

// Slot returns the deck slot this labware occupies, or 0 if unloaded.
func (l *Labware) Slot() int { return l.slot }

// Rows returns the number of well rows (A, B, C, ...).
func (l *Labware) Rows() int { return l.rows }

// Cols returns the number of well columns (1, 2, 3, ...).
func (l *Labware) Cols() int { return l.cols }

// WellVolume returns the working volume of each well in microliters.
func (l *Labware) WellVolume() float64 { return l.wellVol }

// IsTrash reports whether this labware is a trash container.
func (l *Labware) IsTrash() bool { return l.trash }

// WellAt returns the well at the given zero-based row and column.
// It panics on out-of-range indices; use Well for validated lookup.
func (l *Labware) WellAt(row, col int) Well {
	if row < 0 || row >= l.rows || col < 0 || col >= l.cols {
		panic(fmt.Sprintf("labware %s: well index (%d,%d) out of range %dx%d",
			l.Label(), row, col, l.rows, l.cols))
	}
	return Well{lab: l, row: row, col: col}
}

// Well resolves a well by name, e.g. "A1" or "H12".
func (l *Labware) Well(name string) (Well, error) {
	row, col, err := parseWellName(name)
	if err != nil {
		return Well{}, fmt.Errorf("labware %s: %w", l.Label(), err)
	}
	if row >= l.rows || col >= l.cols {
		return Well{}, fmt.Errorf("labware %s: no well %s in %dx%d grid",
			l.Label(), name, l.rows, l.cols)
	}
	return Well{lab: l, row: row, col: col}, nil
}

// Wells returns every well in column-major order (A1, B1, ..., A2, B2, ...),
// the order tips deplete and serial transfers walk a plate.
func (l *Labware) Wells() []Well {
	out := make([]Well, 0, l.rows*l.cols)
	for c := 0; c < l.cols; c++ {
		for r := 0; r < l.rows; r++ {
			out = append(out, Well{lab: l, row: r, col: c})
		}
	}
	return out
}

// Column returns the wells of the zero-based column index, top to bottom.
func (l *Labware) Column(col int) []Well {
	out := make([]Well, 0, l.rows)
	for r := 0; r < l.rows; r++ {
		out = append(out, l.WellAt(r, col))
	}
	return out
}

// Columns returns all columns in order. Multi-channel pipettes address a
// plate column-by-column, so this is the natural multi-channel iteration.
func (l *Labware) Columns() [][]Well {
	out := make([][]Well, 0, l.cols)
	for c := 0; c < l.cols; c++ {
		out = append(out, l.Column(c))
	}
	return out
}

func (l *Labware) String() string {
	if l.slot > 0 {
		return fmt.Sprintf("%s in slot %d", l.Label(), l.slot)
	}
	return l.Label()
}

// Well is a reference to a single cavity of a piece of labware. Wells are
// small comparable values; two references to the same physical well are ==.
type Well struct {
	lab *Labware
	row int
	col int
}

// Parent returns the labware this well belongs to.
func (w Well) Parent() *Labware { return w.lab }

// Row returns the zero-based row index.
func (w Well) Row() int { return w.row }

// Col returns the zero-based column index.
func (w Well) Col() int { return w.col }

// Name returns the conventional well name, e.g. "A1".
func (w Well) Name() string {
	return fmt.Sprintf("%c%d", 'A'+rune(w.row), w.col+1)
}

// MaxVolume returns the working volume of the well in microliters.
func (w Well) MaxVolume() float64 {
	if w.lab == nil {
		return 0
	}
	return w.lab.WellVolume()
}

// IsZero reports whether the reference points at no well.
func (w Well) IsZero() bool { return w.lab == nil }

func (w Well) String() string {
	if w.lab == nil {
		return "<no well>"
	}
	return fmt.Sprintf("%s of %s", w.Name(), w.lab.String())
}

// parseWellName splits "B11" into zero-based (row, col).
func parseWellName(name string) (row, col int, err error) {
	if len(name) < 2 {
		return 0, 0, fmt.Errorf("invalid well name %q", name)
	}
	r := strings.ToUpper(name)[0]
	if r < 'A' || r > 'Z' {
		return 0, 0, fmt.Errorf("invalid well name %q: row must be a letter", name)
	}
	n, convErr := strconv.Atoi(name[1:])
	if convErr != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid well name %q: column must be a positive number", name)
	}
	return int(r - 'A'), n - 1, nil
}
