package domain

// TipPolicy controls how many times a tip is acquired during a plan.
type TipPolicy string

const (
	// TipNever reuses the already attached tip. Building a plan with
	// TipNever and no attached tip is a configuration error.
	TipNever TipPolicy = "never"
	// TipOnce picks up a single tip before the first aspirate. Default.
	TipOnce TipPolicy = "once"
	// TipAlways picks up a fresh tip for every aspirate group and drops
	// it once the group's liquid is placed.
	TipAlways TipPolicy = "always"
)

// Mode selects how adjacent steps compress into aspirate groups.
type Mode string

const (
	// ModeTransfer keeps one aspirate/dispense pair per step.
	ModeTransfer Mode = "transfer"
	// ModeDistribute merges adjacent same-source steps into one aspirate
	// followed by several dispenses.
	ModeDistribute Mode = "distribute"
	// ModeConsolidate merges adjacent same-destination steps into several
	// aspirates followed by one dispense.
	ModeConsolidate Mode = "consolidate"
)

// MixStrategy selects which mix phases run around a transfer step.
type MixStrategy string

const (
	MixNever  MixStrategy = "never"
	MixBefore MixStrategy = "before"
	MixAfter  MixStrategy = "after"
	MixBoth   MixStrategy = "both"
)

// Before reports whether the strategy mixes before aspirating.
func (s MixStrategy) Before() bool { return s == MixBefore || s == MixBoth }

// After reports whether the strategy mixes after dispensing.
func (s MixStrategy) After() bool { return s == MixAfter || s == MixBoth }

func (s MixStrategy) with(phase MixStrategy) MixStrategy {
	switch {
	case s == MixNever || s == phase:
		return phase
	default:
		return MixBoth
	}
}

// TouchTipStrategy selects whether the tip touches the well walls after
// each aspirate and dispense.
type TouchTipStrategy string

const (
	TouchTipNever  TouchTipStrategy = "never"
	TouchTipAlways TouchTipStrategy = "always"
)

// BlowOutStrategy selects whether to blow out after a dispense that
// empties the pipette.
type BlowOutStrategy string

const (
	BlowOutNever BlowOutStrategy = "never"
	BlowOutTrash BlowOutStrategy = "trash"
)

// DropTipStrategy selects where a used tip goes.
type DropTipStrategy string

const (
	DropTipTrash  DropTipStrategy = "trash"
	DropTipReturn DropTipStrategy = "return"
)

// MixSpec configures one mix phase. The zero value disables the phase.
type MixSpec struct {
	Repetitions int
	Volume      float64
}

// Enabled reports whether the phase does anything.
func (m MixSpec) Enabled() bool { return m.Repetitions > 0 && m.Volume > 0 }

// GradientFn maps a normalized step position in [0,1] to a normalized
// volume fraction in [0,1], used to interpolate a (low, high) volume range
// across a plan's steps.
type GradientFn func(t float64) float64

// Touch-tip speeds in mm/s. Requested speeds outside the limits clamp
// during validation, same as the hardware would.
const (
	TouchTipSpeedDefault = 60.0
	TouchTipSpeedMin     = 20.0
	TouchTipSpeedMax     = 80.0
)

// TransferOptions captures every policy choice of a transfer, distribute
// or consolidate call. Values are immutable once built; construct them
// with NewTransferOptions and the With* options.
type TransferOptions struct {
	mode          Mode
	tipPolicy     TipPolicy
	airGap        float64
	carryover     bool
	gradient      GradientFn
	disposal      float64
	mixStrategy   MixStrategy
	mixBefore     MixSpec
	mixAfter      MixSpec
	touchTip      TouchTipStrategy
	touchTipSpeed float64
	blowOut       BlowOutStrategy
	dropTip       DropTipStrategy
	rate          float64
}

// TransferOption mutates options under construction.
type TransferOption func(*TransferOptions)

// NewTransferOptions builds validated options for the given mode over the
// documented defaults: tip policy once, carryover on, linear gradient,
// rate 1.0, mixes and touch-tip and blow-out off, used tips to the trash.
func NewTransferOptions(mode Mode, opts ...TransferOption) (TransferOptions, error) {
	o := TransferOptions{
		mode:          mode,
		tipPolicy:     TipOnce,
		carryover:     true,
		gradient:      func(t float64) float64 { return t },
		mixStrategy:   MixNever,
		touchTip:      TouchTipNever,
		touchTipSpeed: TouchTipSpeedDefault,
		blowOut:       BlowOutNever,
		dropTip:       DropTipTrash,
		rate:          1.0,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return TransferOptions{}, err
	}
	return o, nil
}

// WithTipPolicy overrides the tip acquisition policy.
func WithTipPolicy(p TipPolicy) TransferOption {
	return func(o *TransferOptions) { o.tipPolicy = p }
}

// WithAirGap aspirates a buffer of air after each liquid aspirate.
func WithAirGap(volume float64) TransferOption {
	return func(o *TransferOptions) { o.airGap = volume }
}

// WithCarryover enables or disables splitting volumes that exceed the
// pipette capacity. Disabled, an oversized volume fails the build.
func WithCarryover(enabled bool) TransferOption {
	return func(o *TransferOptions) { o.carryover = enabled }
}

// WithGradient replaces the linear volume interpolation curve.
func WithGradient(f GradientFn) TransferOption {
	return func(o *TransferOptions) { o.gradient = f }
}

// WithDisposalVolume aspirates extra volume per distribute group so every
// dispense stays accurate despite the pipette's dead volume.
func WithDisposalVolume(volume float64) TransferOption {
	return func(o *TransferOptions) { o.disposal = volume }
}

// WithMixBefore mixes at the source before each aspirate from it.
func WithMixBefore(repetitions int, volume float64) TransferOption {
	return func(o *TransferOptions) {
		o.mixBefore = MixSpec{Repetitions: repetitions, Volume: volume}
		o.mixStrategy = o.mixStrategy.with(MixBefore)
	}
}

// WithMixAfter mixes at the destination after the step's dispenses.
func WithMixAfter(repetitions int, volume float64) TransferOption {
	return func(o *TransferOptions) {
		o.mixAfter = MixSpec{Repetitions: repetitions, Volume: volume}
		o.mixStrategy = o.mixStrategy.with(MixAfter)
	}
}

// WithTouchTip touches the tip to the well walls after each aspirate and
// dispense, at the default speed.
func WithTouchTip() TransferOption {
	return func(o *TransferOptions) { o.touchTip = TouchTipAlways }
}

// WithTouchTipSpeed enables touch-tip at the given speed in mm/s. Speeds
// outside [TouchTipSpeedMin, TouchTipSpeedMax] clamp.
func WithTouchTipSpeed(speed float64) TransferOption {
	return func(o *TransferOptions) {
		o.touchTip = TouchTipAlways
		o.touchTipSpeed = speed
	}
}

// WithBlowOut blows the dead volume out into the trash after a dispense
// that empties the pipette.
func WithBlowOut() TransferOption {
	return func(o *TransferOptions) { o.blowOut = BlowOutTrash }
}

// WithTipReturn sends used tips back to their rack wells instead of the
// trash.
func WithTipReturn() TransferOption {
	return func(o *TransferOptions) { o.dropTip = DropTipReturn }
}

// WithRate scales the instrument's default aspirate/dispense flow rate.
func WithRate(rate float64) TransferOption {
	return func(o *TransferOptions) { o.rate = rate }
}

func (o *TransferOptions) validate() error {
	switch o.mode {
	case ModeTransfer, ModeDistribute, ModeConsolidate:
	default:
		return Configf("unknown mode %q", o.mode)
	}
	switch o.tipPolicy {
	case TipNever, TipOnce, TipAlways:
	default:
		return Configf("unknown tip policy %q", o.tipPolicy)
	}
	switch o.mixStrategy {
	case MixNever, MixBefore, MixAfter, MixBoth:
	default:
		return Configf("unknown mix strategy %q", o.mixStrategy)
	}
	switch o.touchTip {
	case TouchTipNever, TouchTipAlways:
	default:
		return Configf("unknown touch-tip strategy %q", o.touchTip)
	}
	switch o.blowOut {
	case BlowOutNever, BlowOutTrash:
	default:
		return Configf("unknown blow-out strategy %q", o.blowOut)
	}
	switch o.dropTip {
	case DropTipTrash, DropTipReturn:
	default:
		return Configf("unknown drop-tip strategy %q", o.dropTip)
	}
	if o.airGap < 0 {
		return Configf("air gap volume must be non-negative, got %g", o.airGap)
	}
	if o.disposal < 0 {
		return Configf("disposal volume must be non-negative, got %g", o.disposal)
	}
	if o.rate <= 0 {
		return Configf("rate must be positive, got %g", o.rate)
	}
	if o.gradient == nil {
		return Configf("gradient function must not be nil")
	}
	if o.mixBefore.Repetitions < 0 || o.mixBefore.Volume < 0 ||
		o.mixAfter.Repetitions < 0 || o.mixAfter.Volume < 0 {
		return Configf("mix repetitions and volume must be non-negative")
	}
	if o.mixStrategy.Before() && !o.mixBefore.Enabled() {
		return Configf("mix-before strategy set without repetitions and volume")
	}
	if o.mixStrategy.After() && !o.mixAfter.Enabled() {
		return Configf("mix-after strategy set without repetitions and volume")
	}
	if o.touchTipSpeed < TouchTipSpeedMin {
		o.touchTipSpeed = TouchTipSpeedMin
	}
	if o.touchTipSpeed > TouchTipSpeedMax {
		o.touchTipSpeed = TouchTipSpeedMax
	}
	return nil
}

// Mode returns the compression mode.
func (o TransferOptions) Mode() Mode { return o.mode }

// TipPolicy returns the tip acquisition policy.
func (o TransferOptions) TipPolicy() TipPolicy { return o.tipPolicy }

// AirGap returns the air buffer volume in microliters, zero when off.
func (o TransferOptions) AirGap() float64 { return o.airGap }

// Carryover reports whether oversized volumes split instead of failing.
func (o TransferOptions) Carryover() bool { return o.carryover }

// Gradient returns the volume interpolation curve.
func (o TransferOptions) Gradient() GradientFn { return o.gradient }

// DisposalVolume returns the extra per-group aspirate in microliters.
func (o TransferOptions) DisposalVolume() float64 { return o.disposal }

// MixStrategy returns which mix phases run.
func (o TransferOptions) MixStrategy() MixStrategy { return o.mixStrategy }

// MixBeforeSpec returns the before-aspirate mix configuration.
func (o TransferOptions) MixBeforeSpec() MixSpec { return o.mixBefore }

// MixAfterSpec returns the after-dispense mix configuration.
func (o TransferOptions) MixAfterSpec() MixSpec { return o.mixAfter }

// TouchTip returns the touch-tip strategy.
func (o TransferOptions) TouchTip() TouchTipStrategy { return o.touchTip }

// TouchTipSpeed returns the touch-tip speed in mm/s, already clamped.
func (o TransferOptions) TouchTipSpeed() float64 { return o.touchTipSpeed }

// BlowOut returns the blow-out strategy.
func (o TransferOptions) BlowOut() BlowOutStrategy { return o.blowOut }

// DropTip returns the drop-tip strategy.
func (o TransferOptions) DropTip() DropTipStrategy { return o.dropTip }

// Rate returns the flow rate multiplier.
func (o TransferOptions) Rate() float64 { return o.rate }
