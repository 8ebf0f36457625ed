package labware

import (
	"fmt"
	"strings"
)

// Location is one addressable pipetting target. For a single-channel
// pipette that is a single well; for a multi-channel pipette it is an
// ordered group of wells (typically a plate column) reached in one move,
// anchored at the group's first well.
type Location struct {
	wells []Well
}

// At makes a single-well location.
func At(w Well) Location {
	return Location{wells: []Well{w}}
}

// Group makes a multi-well location addressed as one unit. The first well
// is the anchor the pipette aligns to.
func Group(wells ...Well) Location {
	cp := make([]Well, len(wells))
	copy(cp, wells)
	return Location{wells: cp}
}

// Anchor returns the well the pipette physically aligns to.
func (loc Location) Anchor() Well {
	if len(loc.wells) == 0 {
		return Well{}
	}
	return loc.wells[0]
}

// Wells returns the wells covered by this location, anchor first.
func (loc Location) Wells() []Well { return loc.wells }

// Size returns how many wells the location covers.
func (loc Location) Size() int { return len(loc.wells) }

// IsZero reports whether the location addresses nothing.
func (loc Location) IsZero() bool { return len(loc.wells) == 0 }

// Equal reports whether two locations address exactly the same wells in
// the same order. Step compression groups steps by this equality.
func (loc Location) Equal(other Location) bool {
	if len(loc.wells) != len(other.wells) {
		return false
	}
	for i := range loc.wells {
		if loc.wells[i] != other.wells[i] {
			return false
		}
	}
	return true
}

func (loc Location) String() string {
	switch len(loc.wells) {
	case 0:
		return "<no location>"
	case 1:
		return loc.wells[0].String()
	default:
		names := make([]string, len(loc.wells))
		for i, w := range loc.wells {
			names[i] = w.Name()
		}
		anchor := loc.wells[0]
		if anchor.lab == nil {
			return strings.Join(names, "+")
		}
		return fmt.Sprintf("%s of %s", strings.Join(names, "+"), anchor.lab.String())
	}
}
