package domain

import (
	"fmt"

	"github.com/openlh/aliquot/pkg/labware"
)

// Op identifies a primitive pipetting operation. The names are stable and
// appear in traces, logs, metrics labels and the HTTP/MCP wire forms.
type Op string

const (
	OpPickUpTip Op = "pick_up_tip"
	OpAspirate  Op = "aspirate"
	OpDispense  Op = "dispense"
	OpMix       Op = "mix"
	OpTouchTip  Op = "touch_tip"
	OpBlowOut   Op = "blow_out"
	OpAirGap    Op = "air_gap"
	OpDropTip   Op = "drop_tip"
)

// Command is one primitive instrument call, bound to its typed parameters.
// A transfer plan is an ordered sequence of Commands. The set of
// implementations is closed; the executor dispatches on the concrete type.
type Command interface {
	Op() Op
	fmt.Stringer

	sealed()
}

// PickUpTip acquires a fresh tip. The pickup well is resolved at execution
// time against the attached tip racks, in rack priority order.
type PickUpTip struct{}

func (PickUpTip) Op() Op         { return OpPickUpTip }
func (PickUpTip) String() string { return "pick_up_tip" }
func (PickUpTip) sealed()        {}

// Aspirate draws liquid from a location at a rate multiplier of the
// instrument's default flow rate.
type Aspirate struct {
	Volume   float64
	Location labware.Location
	Rate     float64
}

func (c Aspirate) Op() Op { return OpAspirate }
func (c Aspirate) String() string {
	return fmt.Sprintf("aspirate %g uL from %s", c.Volume, c.Location)
}
func (Aspirate) sealed() {}

// Dispense expels liquid into a location.
type Dispense struct {
	Volume   float64
	Location labware.Location
	Rate     float64
}

func (c Dispense) Op() Op { return OpDispense }
func (c Dispense) String() string {
	return fmt.Sprintf("dispense %g uL into %s", c.Volume, c.Location)
}
func (Dispense) sealed() {}

// Mix pipettes a volume up and down in place.
type Mix struct {
	Repetitions int
	Volume      float64
	Location    labware.Location
	Rate        float64
}

func (c Mix) Op() Op { return OpMix }
func (c Mix) String() string {
	return fmt.Sprintf("mix %d x %g uL at %s", c.Repetitions, c.Volume, c.Location)
}
func (Mix) sealed() {}

// TouchTip drags the tip against the well walls at the instrument's
// current location to knock off droplets. Speed is mm/s; zero means the
// instrument default.
type TouchTip struct {
	Speed float64
}

func (c TouchTip) Op() Op { return OpTouchTip }
func (c TouchTip) String() string {
	if c.Speed > 0 {
		return fmt.Sprintf("touch_tip at %g mm/s", c.Speed)
	}
	return "touch_tip"
}
func (TouchTip) sealed() {}

// BlowOut pushes the remaining liquid out with a plunger stroke past the
// dispense stop. A zero Location targets the fixed trash.
type BlowOut struct {
	Location labware.Location
}

func (c BlowOut) Op() Op { return OpBlowOut }
func (c BlowOut) String() string {
	if c.Location.IsZero() {
		return "blow_out to trash"
	}
	return fmt.Sprintf("blow_out into %s", c.Location)
}
func (BlowOut) sealed() {}

// AirGap draws air above the held liquid to keep it from dripping during
// the move to the dispense location.
type AirGap struct {
	Volume float64
}

func (c AirGap) Op() Op         { return OpAirGap }
func (c AirGap) String() string { return fmt.Sprintf("air_gap %g uL", c.Volume) }
func (AirGap) sealed()          {}

// DropTip discards the attached tip. Return sends it back to the well it
// was picked up from instead of the trash.
type DropTip struct {
	Return bool
}

func (c DropTip) Op() Op { return OpDropTip }
func (c DropTip) String() string {
	if c.Return {
		return "drop_tip to origin"
	}
	return "drop_tip to trash"
}
func (DropTip) sealed() {}
