package aliquot

import (
	"context"
	"time"

	"github.com/openlh/aliquot/internal/planner"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/executor"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/openlh/aliquot/pkg/ports"
)

// Pipette is a mounted instrument: the planning surface for liquid
// handling. Transfer, Distribute and Consolidate compile a plan and run
// it; the Plan variants stop after compilation for dry-runs. The direct
// primitives below bypass planning entirely.
type Pipette struct {
	robot *Robot
	mount string
	instr ports.Instrument
	exec  *executor.Executor
}

// Name returns the instrument name, typically its model.
func (p *Pipette) Name() string { return p.instr.Name() }

// Mount returns the head position the pipette occupies.
func (p *Pipette) Mount() string { return p.mount }

// Channels returns the number of tips the head moves at once.
func (p *Pipette) Channels() int { return p.instr.Channels() }

// MaxVolume returns the largest volume one tip holds, in microliters.
func (p *Pipette) MaxVolume() float64 { return p.instr.MaxVolume() }

// MinVolume returns the smallest accurate volume, in microliters.
func (p *Pipette) MinVolume() float64 { return p.instr.MinVolume() }

// HasTip reports whether a tip is currently attached.
func (p *Pipette) HasTip() bool { return p.instr.HasTip() }

// CurrentVolume returns the aspirated volume held right now.
func (p *Pipette) CurrentVolume() float64 { return p.instr.CurrentVolume() }

// AddTipRack appends a rack to the pipette's tip supply.
func (p *Pipette) AddTipRack(r *labware.TipRack) { p.exec.AddTipRack(r) }

// Transfer moves volumes from sources to destinations pairwise.
func (p *Pipette) Transfer(ctx context.Context, volume domain.VolumeSpec, src, dst domain.WellSeq, opts ...domain.TransferOption) error {
	plan, err := p.PlanTransfer(volume, src, dst, opts...)
	if err != nil {
		return err
	}
	return p.Run(ctx, plan)
}

// Distribute spreads volume from sources across destinations, merging
// adjacent same-source steps into one aspirate with several dispenses.
func (p *Pipette) Distribute(ctx context.Context, volume domain.VolumeSpec, src, dst domain.WellSeq, opts ...domain.TransferOption) error {
	plan, err := p.PlanDistribute(volume, src, dst, opts...)
	if err != nil {
		return err
	}
	return p.Run(ctx, plan)
}

// Consolidate gathers volumes from sources into destinations, merging
// adjacent same-destination steps into several aspirates with one
// dispense.
func (p *Pipette) Consolidate(ctx context.Context, volume domain.VolumeSpec, src, dst domain.WellSeq, opts ...domain.TransferOption) error {
	plan, err := p.PlanConsolidate(volume, src, dst, opts...)
	if err != nil {
		return err
	}
	return p.Run(ctx, plan)
}

// PlanTransfer compiles a transfer without executing it.
func (p *Pipette) PlanTransfer(volume domain.VolumeSpec, src, dst domain.WellSeq, opts ...domain.TransferOption) (*domain.Plan, error) {
	return p.plan(domain.ModeTransfer, volume, src, dst, opts)
}

// PlanDistribute compiles a distribute without executing it.
func (p *Pipette) PlanDistribute(volume domain.VolumeSpec, src, dst domain.WellSeq, opts ...domain.TransferOption) (*domain.Plan, error) {
	return p.plan(domain.ModeDistribute, volume, src, dst, opts)
}

// PlanConsolidate compiles a consolidate without executing it.
func (p *Pipette) PlanConsolidate(volume domain.VolumeSpec, src, dst domain.WellSeq, opts ...domain.TransferOption) (*domain.Plan, error) {
	return p.plan(domain.ModeConsolidate, volume, src, dst, opts)
}

func (p *Pipette) plan(mode domain.Mode, volume domain.VolumeSpec, src, dst domain.WellSeq, opts []domain.TransferOption) (*domain.Plan, error) {
	o, err := domain.NewTransferOptions(mode, opts...)
	if err != nil {
		return nil, err
	}
	req := planner.Request{Volume: volume, Source: src, Dest: dst, Options: o}
	return planner.Build(req, planner.Instrument{
		Channels:  p.instr.Channels(),
		MaxVolume: p.instr.MaxVolume(),
		HasTip:    p.instr.HasTip(),
	})
}

// Run executes a compiled plan on this pipette.
func (p *Pipette) Run(ctx context.Context, plan *domain.Plan) error {
	start := time.Now()
	err := p.exec.Run(ctx, plan)
	if m := p.robot.metrics; m != nil {
		m.ObserveRun(time.Since(start))
	}
	return err
}

// Executor returns the underlying command executor, for callers that
// need to drive individual commands with their own sequencing.
func (p *Pipette) Executor() *executor.Executor { return p.exec }

// PickUpTip takes a fresh tip from the pipette's racks.
func (p *Pipette) PickUpTip(ctx context.Context) error {
	return p.exec.Execute(ctx, domain.PickUpTip{})
}

// DropTip discards the attached tip into the trash.
func (p *Pipette) DropTip(ctx context.Context) error {
	return p.exec.Execute(ctx, domain.DropTip{})
}

// ReturnTip puts the attached tip back into the well it came from.
func (p *Pipette) ReturnTip(ctx context.Context) error {
	return p.exec.Execute(ctx, domain.DropTip{Return: true})
}

// Aspirate draws liquid from a well. Rate scales the instrument's
// default flow rate; 1.0 is nominal.
func (p *Pipette) Aspirate(ctx context.Context, volume float64, w labware.Well, rate float64) error {
	return p.exec.Execute(ctx, domain.Aspirate{Volume: volume, Location: labware.At(w), Rate: rate})
}

// Dispense expels liquid into a well.
func (p *Pipette) Dispense(ctx context.Context, volume float64, w labware.Well, rate float64) error {
	return p.exec.Execute(ctx, domain.Dispense{Volume: volume, Location: labware.At(w), Rate: rate})
}

// Mix pipettes volume up and down in a well the given number of times.
func (p *Pipette) Mix(ctx context.Context, repetitions int, volume float64, w labware.Well, rate float64) error {
	return p.exec.Execute(ctx, domain.Mix{Repetitions: repetitions, Volume: volume, Location: labware.At(w), Rate: rate})
}

// TouchTip knocks droplets off against the walls of the last visited
// well. A zero speed uses the instrument default.
func (p *Pipette) TouchTip(ctx context.Context, speed float64) error {
	return p.exec.Execute(ctx, domain.TouchTip{Speed: speed})
}

// BlowOut pushes residual liquid out into the trash.
func (p *Pipette) BlowOut(ctx context.Context) error {
	return p.exec.Execute(ctx, domain.BlowOut{})
}

// BlowOutInto pushes residual liquid out into a specific well.
func (p *Pipette) BlowOutInto(ctx context.Context, w labware.Well) error {
	return p.exec.Execute(ctx, domain.BlowOut{Location: labware.At(w)})
}

// AirGap draws air above the held liquid to keep it from dripping.
func (p *Pipette) AirGap(ctx context.Context, volume float64) error {
	return p.exec.Execute(ctx, domain.AirGap{Volume: volume})
}
