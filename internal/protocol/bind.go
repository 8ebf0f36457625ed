package protocol

import (
	"context"
	"fmt"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// Setup builds a simulated robot from the document's declarations:
// custom definitions registered, labware and tip racks loaded into their
// slots, pipettes mounted with their racks attached.
func Setup(doc *Document, opts ...aliquot.Option) (*aliquot.Robot, error) {
	robot := aliquot.Simulate(opts...)

	for _, def := range doc.Definitions {
		if err := robot.Catalog().Register(def); err != nil {
			return nil, fmt.Errorf("definition %q: %w", def.Name, err)
		}
	}

	racks := make(map[int]*labware.TipRack)
	var rackOrder []int
	for _, decl := range doc.Labware {
		def, err := robot.Catalog().Get(decl.Name)
		if err != nil {
			return nil, err
		}
		if def.IsTipRack() {
			rack, err := robot.LoadTipRack(decl.Name, decl.Slot)
			if err != nil {
				return nil, err
			}
			if decl.Label != "" {
				rack.SetLabel(decl.Label)
			}
			racks[decl.Slot] = rack
			rackOrder = append(rackOrder, decl.Slot)
			continue
		}
		lw, err := robot.LoadLabware(decl.Name, decl.Slot)
		if err != nil {
			return nil, err
		}
		if decl.Label != "" {
			lw.SetLabel(decl.Label)
		}
	}

	for _, decl := range doc.Pipettes {
		var attach []*labware.TipRack
		if len(decl.TipRacks) > 0 {
			for _, slot := range decl.TipRacks {
				rack, ok := racks[slot]
				if !ok {
					return nil, fmt.Errorf("pipette %q: no tip rack in slot %d", decl.Model, slot)
				}
				attach = append(attach, rack)
			}
		} else {
			// No racks declared: attach every loaded rack, in
			// declaration order.
			for _, slot := range rackOrder {
				attach = append(attach, racks[slot])
			}
		}
		if _, err := robot.LoadInstrument(decl.Model, decl.Mount, aliquot.WithTipRacks(attach...)); err != nil {
			return nil, err
		}
	}
	return robot, nil
}

// Run executes the document's steps in order on a freshly set up robot.
// The robot is returned even when a step fails, so callers can persist
// the partial trace.
func Run(ctx context.Context, doc *Document, opts ...aliquot.Option) (*aliquot.Robot, error) {
	robot, err := Setup(doc, opts...)
	if err != nil {
		return nil, err
	}
	for i, step := range doc.Steps {
		if err := runStep(ctx, robot, doc, step); err != nil {
			return robot, fmt.Errorf("step %d (%s): %w", i+1, step.Type, err)
		}
	}
	return robot, nil
}

func runStep(ctx context.Context, robot *aliquot.Robot, doc *Document, step Step) error {
	pip, err := resolvePipette(robot, doc, step)
	if err != nil {
		return err
	}
	src, err := wellSeq(robot.Deck(), step.From)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	dst, err := wellSeq(robot.Deck(), step.To)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}

	vol := step.volumeSpec()
	opts := step.Options.transferOptions()
	switch step.Type {
	case StepDistribute:
		return pip.Distribute(ctx, vol, src, dst, opts...)
	case StepConsolidate:
		return pip.Consolidate(ctx, vol, src, dst, opts...)
	default:
		return pip.Transfer(ctx, vol, src, dst, opts...)
	}
}

// StepPlan pairs a compiled plan with the step it came from.
type StepPlan struct {
	Index int
	Type  string
	Plan  *domain.Plan
}

// Compile builds every step's plan without executing anything, for
// validation and reports. Tip state is threaded between steps the way
// execution would leave it: once and always policies end each plan with
// the tip dropped.
func Compile(doc *Document, opts ...aliquot.Option) ([]StepPlan, error) {
	robot, err := Setup(doc, opts...)
	if err != nil {
		return nil, err
	}
	plans := make([]StepPlan, 0, len(doc.Steps))
	for i, step := range doc.Steps {
		plan, err := compileStep(robot, doc, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Type, err)
		}
		plans = append(plans, StepPlan{Index: i + 1, Type: step.Type, Plan: plan})
	}
	return plans, nil
}

func compileStep(robot *aliquot.Robot, doc *Document, step Step) (*domain.Plan, error) {
	pip, err := resolvePipette(robot, doc, step)
	if err != nil {
		return nil, err
	}
	src, err := wellSeq(robot.Deck(), step.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	dst, err := wellSeq(robot.Deck(), step.To)
	if err != nil {
		return nil, fmt.Errorf("to: %w", err)
	}

	vol := step.volumeSpec()
	opts := step.Options.transferOptions()
	switch step.Type {
	case StepDistribute:
		return pip.PlanDistribute(vol, src, dst, opts...)
	case StepConsolidate:
		return pip.PlanConsolidate(vol, src, dst, opts...)
	default:
		return pip.PlanTransfer(vol, src, dst, opts...)
	}
}

func resolvePipette(robot *aliquot.Robot, doc *Document, step Step) (*aliquot.Pipette, error) {
	mount := step.Pipette
	if mount == "" {
		mount = doc.Pipettes[0].Mount
	}
	pip, ok := robot.Pipette(mount)
	if !ok {
		return nil, fmt.Errorf("no pipette on mount %q", mount)
	}
	return pip, nil
}

func wellSeq(deck *labware.Deck, w Wells) (domain.WellSeq, error) {
	lw := deck.At(w.Slot)
	if lw == nil {
		return domain.WellSeq{}, fmt.Errorf("no labware in slot %d", w.Slot)
	}
	if len(w.Columns) > 0 {
		groups := make([][]labware.Well, len(w.Columns))
		for i, c := range w.Columns {
			if c < 0 || c >= lw.Cols() {
				return domain.WellSeq{}, fmt.Errorf("labware %s has no column %d", lw.Label(), c)
			}
			groups[i] = lw.Column(c)
		}
		return domain.ColumnGroups(groups...), nil
	}
	wells := make([]labware.Well, len(w.Wells))
	for i, name := range w.Wells {
		well, err := lw.Well(name)
		if err != nil {
			return domain.WellSeq{}, err
		}
		wells[i] = well
	}
	return domain.EachWell(wells...), nil
}
