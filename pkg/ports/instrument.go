package ports

import "github.com/openlh/aliquot/pkg/labware"

// TouchTipParams tunes the wall-touch motion. Zero values mean the
// defaults; use DefaultTouchTipParams as the base when overriding.
type TouchTipParams struct {
	// RadiusPct scales how far toward the well wall the tip travels.
	// 1.0 touches the wall, 0.5 stops halfway.
	RadiusPct float64
	// VOffset is the height relative to the well top in mm; negative
	// goes below the rim.
	VOffset float64
	// Speed of the touch move in mm/s, clamped to [20, 80] by
	// implementations.
	Speed float64
}

// DefaultTouchTipParams returns the stock touch motion: full radius,
// 1 mm below the rim, 60 mm/s.
func DefaultTouchTipParams() TouchTipParams {
	return TouchTipParams{RadiusPct: 1.0, VOffset: -1.0, Speed: 60.0}
}

// PickUpParams tunes the tip seating motion.
type PickUpParams struct {
	// Presses is how many times the mount pushes onto the tip.
	Presses int
	// Increment is the extra depth per press in mm.
	Increment float64
}

// DefaultPickUpParams returns the stock seating motion: three presses,
// 1 mm deeper each.
func DefaultPickUpParams() PickUpParams {
	return PickUpParams{Presses: 3, Increment: 1.0}
}

// Instrument is the contract one mounted pipette offers the executor.
// Every primitive blocks until the hardware (or simulator) finishes it
// and returns its failure synchronously; at most one primitive per
// instrument may be in flight. Cancellation happens between primitives,
// never inside one.
type Instrument interface {
	// Aspirate draws volume uL from the location. rate scales the
	// default flow rate.
	Aspirate(volume float64, loc labware.Location, rate float64) error
	// Dispense expels volume uL into the location.
	Dispense(volume float64, loc labware.Location, rate float64) error
	// Mix pipettes volume uL up and down repetitions times in place.
	Mix(repetitions int, volume float64, loc labware.Location, rate float64) error
	// TouchTip drags the tip against the well walls. A zero location
	// means the last visited well.
	TouchTip(loc labware.Location, p TouchTipParams) error
	// BlowOut pushes residual liquid out past the dispense stop. A zero
	// location means the last visited well.
	BlowOut(loc labware.Location) error
	// AirGap draws volume uL of air at the last visited well.
	AirGap(volume float64) error
	// PickUpTip seats a fresh tip from the given tip-rack well.
	PickUpTip(loc labware.Location, p PickUpParams) error
	// DropTip ejects the tip at the location; home returns the plunger
	// to its rest position afterwards.
	DropTip(loc labware.Location, home bool) error

	// Name identifies the instrument, e.g. "p300_single".
	Name() string
	// Channels is the number of simultaneous tips (1 or 8).
	Channels() int
	// MaxVolume is the largest holdable volume in uL.
	MaxVolume() float64
	// MinVolume is the smallest accurately handled volume in uL.
	MinVolume() float64
	// HasTip reports whether a tip is attached.
	HasTip() bool
	// CurrentVolume is the held volume in uL, air gaps included.
	CurrentVolume() float64
}
