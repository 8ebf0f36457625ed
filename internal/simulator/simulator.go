// Package simulator provides an in-memory instrument that models the
// plunger and tip state of a single pipette. It is the dry-run engine and
// the reference instrument for tests: every primitive call is validated
// against the instrument state and recorded in an append-only trace.
package simulator

import (
	"log/slog"
	"math"
	"sync"

	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/openlh/aliquot/pkg/ports"
)

const volumeTolerance = 1e-9

// Call records one primitive invocation on the simulated instrument.
// Fields that do not apply to an op are left zero.
type Call struct {
	Op       domain.Op
	Volume   float64
	Location labware.Location
	Rate     float64
	Speed    float64
	Home     bool
}

// Instrument simulates a pipette. The zero value is not usable; construct
// with New.
type Instrument struct {
	name     string
	channels int
	maxVol   float64
	minVol   float64
	logger   *slog.Logger

	mu     sync.Mutex
	tip    bool
	volume float64
	loc    labware.Location
	calls  []Call
}

var _ ports.Instrument = (*Instrument)(nil)

// Option configures the simulated instrument.
type Option func(*Instrument)

// WithMinVolume sets the smallest working volume. Aspirating below it logs
// a warning rather than failing, matching how real pipettes lose precision
// below their rated range instead of refusing to move.
func WithMinVolume(v float64) Option {
	return func(s *Instrument) { s.minVol = v }
}

// WithLogger routes the instrument's warnings to the given logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Instrument) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTip starts the instrument with a tip already attached.
func WithTip() Option {
	return func(s *Instrument) { s.tip = true }
}

// New creates a simulated pipette with the given channel count and tip
// capacity in microliters.
func New(name string, channels int, maxVolume float64, opts ...Option) *Instrument {
	s := &Instrument{
		name:     name,
		channels: channels,
		maxVol:   maxVolume,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Instrument) Name() string       { return s.name }
func (s *Instrument) Channels() int      { return s.channels }
func (s *Instrument) MaxVolume() float64 { return s.maxVol }
func (s *Instrument) MinVolume() float64 { return s.minVol }

// HasTip reports whether a tip is currently attached.
func (s *Instrument) HasTip() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tip
}

// CurrentVolume reports the total volume drawn into the tip, air gaps
// included.
func (s *Instrument) CurrentVolume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Calls returns a copy of the primitive trace recorded so far.
func (s *Instrument) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// Reset detaches the tip, empties the plunger and clears the trace.
func (s *Instrument) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tip = false
	s.volume = 0
	s.loc = labware.Location{}
	s.calls = nil
}

// Aspirate draws volume microliters from loc at the given rate multiplier.
func (s *Instrument) Aspirate(volume float64, loc labware.Location, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draw(domain.OpAspirate, volume, loc, rate)
}

// Dispense expels volume microliters into loc at the given rate multiplier.
func (s *Instrument) Dispense(volume float64, loc labware.Location, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expel(domain.OpDispense, volume, loc, rate)
}

// Mix performs repetitions aspirate/dispense cycles of volume at loc. The
// trace records the expansion: aspirate, then (repetitions-1) dispense/
// aspirate pairs, then a final dispense.
func (s *Instrument) Mix(repetitions int, volume float64, loc labware.Location, rate float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if repetitions < 1 {
		return domain.Statef(domain.OpMix, "repetitions must be at least 1, got %d", repetitions)
	}
	target, err := s.resolve(domain.OpMix, loc)
	if err != nil {
		return err
	}
	if err := s.draw(domain.OpAspirate, volume, target, rate); err != nil {
		return err
	}
	for i := 1; i < repetitions; i++ {
		if err := s.expel(domain.OpDispense, volume, target, rate); err != nil {
			return err
		}
		if err := s.draw(domain.OpAspirate, volume, target, rate); err != nil {
			return err
		}
	}
	return s.expel(domain.OpDispense, volume, target, rate)
}

// TouchTip drags the tip against the walls of loc. A zero loc means the
// last visited location.
func (s *Instrument) TouchTip(loc labware.Location, p ports.TouchTipParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tip {
		return domain.Statef(domain.OpTouchTip, "no tip attached")
	}
	target, err := s.resolve(domain.OpTouchTip, loc)
	if err != nil {
		return err
	}
	s.loc = target
	s.calls = append(s.calls, Call{Op: domain.OpTouchTip, Location: target, Speed: p.Speed})
	return nil
}

// BlowOut pushes the plunger past its dispense stop, emptying the tip into
// loc. A zero loc means the last visited location.
func (s *Instrument) BlowOut(loc labware.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tip {
		return domain.Statef(domain.OpBlowOut, "no tip attached")
	}
	target, err := s.resolve(domain.OpBlowOut, loc)
	if err != nil {
		return err
	}
	s.volume = 0
	s.loc = target
	s.calls = append(s.calls, Call{Op: domain.OpBlowOut, Location: target})
	return nil
}

// AirGap draws volume microliters of air above the last visited location.
func (s *Instrument) AirGap(volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loc.IsZero() {
		return domain.Statef(domain.OpAirGap, "no location visited to gap above")
	}
	return s.draw(domain.OpAirGap, volume, s.loc, 1.0)
}

// PickUpTip presses the nozzle into the tip at loc.
func (s *Instrument) PickUpTip(loc labware.Location, p ports.PickUpParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tip {
		return domain.Statef(domain.OpPickUpTip, "a tip is already attached")
	}
	if loc.IsZero() {
		return domain.Statef(domain.OpPickUpTip, "no tip location given")
	}
	s.tip = true
	s.volume = 0
	s.loc = loc
	s.calls = append(s.calls, Call{Op: domain.OpPickUpTip, Location: loc})
	return nil
}

// DropTip ejects the tip into loc. home resets the plunger to its rest
// position afterwards.
func (s *Instrument) DropTip(loc labware.Location, home bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tip {
		return domain.Statef(domain.OpDropTip, "no tip attached")
	}
	if loc.IsZero() {
		return domain.Statef(domain.OpDropTip, "no drop location given")
	}
	s.tip = false
	s.volume = 0
	s.loc = loc
	s.calls = append(s.calls, Call{Op: domain.OpDropTip, Location: loc, Home: home})
	return nil
}

// draw is the shared plunger-up path for aspirate and air gap. The caller
// holds the mutex.
func (s *Instrument) draw(op domain.Op, volume float64, loc labware.Location, rate float64) error {
	if !s.tip {
		return domain.Statef(op, "no tip attached")
	}
	if volume <= 0 {
		return domain.Statef(op, "volume must be positive, got %g", volume)
	}
	target, err := s.resolve(op, loc)
	if err != nil {
		return err
	}
	if s.volume+volume > s.maxVol+volumeTolerance {
		return domain.Statef(op, "%g uL would overflow the tip: %g uL held, capacity %g uL",
			volume, s.volume, s.maxVol)
	}
	if s.minVol > 0 && volume < s.minVol {
		s.logger.Warn("volume below the instrument's working range",
			"instrument", s.name, "op", string(op), "volume", volume, "min_volume", s.minVol)
	}
	s.volume += volume
	s.loc = target
	s.calls = append(s.calls, Call{Op: op, Volume: volume, Location: target, Rate: rate})
	return nil
}

// expel is the shared plunger-down path for dispense. The caller holds the
// mutex.
func (s *Instrument) expel(op domain.Op, volume float64, loc labware.Location, rate float64) error {
	if !s.tip {
		return domain.Statef(op, "no tip attached")
	}
	if volume <= 0 {
		return domain.Statef(op, "volume must be positive, got %g", volume)
	}
	target, err := s.resolve(op, loc)
	if err != nil {
		return err
	}
	if volume > s.volume+volumeTolerance {
		return domain.Statef(op, "dispensing %g uL but only %g uL held", volume, s.volume)
	}
	s.volume -= volume
	if math.Abs(s.volume) < volumeTolerance {
		s.volume = 0
	}
	s.loc = target
	s.calls = append(s.calls, Call{Op: op, Volume: volume, Location: target, Rate: rate})
	return nil
}

// resolve returns loc, or the last visited location when loc is zero.
func (s *Instrument) resolve(op domain.Op, loc labware.Location) (labware.Location, error) {
	if !loc.IsZero() {
		return loc, nil
	}
	if s.loc.IsZero() {
		return labware.Location{}, domain.Statef(op, "no location given and none visited yet")
	}
	return s.loc, nil
}
