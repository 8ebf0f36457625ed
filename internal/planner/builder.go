package planner

import (
	"github.com/openlh/aliquot/pkg/domain"
)

// Request is a fully specified transfer ask: what to move, from where,
// to where, under which options.
type Request struct {
	Volume  domain.VolumeSpec
	Source  domain.WellSeq
	Dest    domain.WellSeq
	Options domain.TransferOptions
}

// Instrument captures the pipette facts planning needs.
type Instrument struct {
	Channels  int
	MaxVolume float64
	HasTip    bool
}

// Build compiles a request into a lazy command plan. Every configuration
// problem surfaces here, before a single command is produced: the
// resulting plan only fails at execution time for resource or hardware
// reasons.
func Build(req Request, instr Instrument) (*domain.Plan, error) {
	opts := req.Options
	if instr.Channels < 1 {
		return nil, domain.Configf("instrument reports %d channels", instr.Channels)
	}
	if instr.MaxVolume <= 0 {
		return nil, domain.Configf("instrument reports max volume %g uL", instr.MaxVolume)
	}
	if opts.TipPolicy() == domain.TipNever && !instr.HasTip {
		return nil, domain.Configf("tip policy %q needs a tip already attached", domain.TipNever)
	}
	maxStep := instr.MaxVolume - opts.AirGap()
	if maxStep <= 0 {
		return nil, domain.Configf("air gap %g uL leaves no capacity on a %g uL pipette",
			opts.AirGap(), instr.MaxVolume)
	}

	sources, dests, err := expandPair(req.Source, req.Dest, instr.Channels)
	if err != nil {
		return nil, err
	}
	vols, err := expandVolumes(req.Volume, len(sources), opts.Gradient())
	if err != nil {
		return nil, err
	}
	steps := make([]step, len(vols))
	for i := range steps {
		steps[i] = step{src: sources[i], dst: dests[i], vol: vols[i]}
	}
	steps, err = expandCarryover(steps, maxStep, opts.Carryover())
	if err != nil {
		return nil, err
	}

	// The disposal volume only plays in distribute mode, same as the
	// compression it feeds.
	disposal := 0.0
	if opts.Mode() == domain.ModeDistribute {
		disposal = opts.DisposalVolume()
	}
	groups, err := compress(opts.Mode(), steps, disposal, maxStep)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, g := range groups {
		total += g.liquidOut()
	}
	info := domain.PlanInfo{
		Mode:        opts.Mode(),
		Steps:       len(groups),
		TotalVolume: total,
	}
	e := emitter{groups: groups, opts: opts, disposal: disposal, startTip: instr.HasTip}
	return domain.NewPlan(info, opts, e.generator), nil
}
