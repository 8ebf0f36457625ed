package planner

import (
	"math"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// emitter lazily turns compressed groups into commands, tracking the tip
// and held liquid across groups the way execution will see them. Commands
// for a group only materialize once the cursor reaches it.
type emitter struct {
	groups   []group
	opts     domain.TransferOptions
	disposal float64
	startTip bool
}

// generator returns a fresh StreamFunc positioned at the plan's start.
func (e emitter) generator() domain.StreamFunc {
	var (
		buf    []domain.Command
		idx    int
		next   int
		tip    = e.startTip
		liquid float64
	)
	return func() (domain.Command, bool, error) {
		for idx >= len(buf) {
			if next >= len(e.groups) {
				return nil, false, nil
			}
			buf = e.emitGroup(e.groups[next], next == len(e.groups)-1, &tip, &liquid)
			idx = 0
			next++
		}
		cmd := buf[idx]
		idx++
		return cmd, true, nil
	}
}

// emitGroup produces the command run for one aspirate group:
//
//	pick_up_tip?            tip policy, only when none attached
//	per aspirate:
//	  mix?                  mix-before, only into an empty pipette
//	  aspirate
//	  air_gap?              after every aspirate
//	  touch_tip?
//	per dispense:
//	  dispense
//	  touch_tip?
//	mix?                    mix-after, at the last destination
//	blow_out?               when only the disposal volume remains
//	drop_tip?               every group (always) or the last one (once)
func (e emitter) emitGroup(grp group, last bool, tip *bool, liquid *float64) []domain.Command {
	opts := e.opts
	touch := opts.TouchTip() == domain.TouchTipAlways
	var out []domain.Command

	switch opts.TipPolicy() {
	case domain.TipOnce, domain.TipAlways:
		if !*tip {
			out = append(out, domain.PickUpTip{})
			*tip = true
		}
	}

	for _, m := range grp.aspirates {
		if opts.MixStrategy().Before() && *liquid == 0 {
			spec := opts.MixBeforeSpec()
			out = append(out, domain.Mix{
				Repetitions: spec.Repetitions,
				Volume:      spec.Volume,
				Location:    m.loc,
				Rate:        opts.Rate(),
			})
		}
		out = append(out, domain.Aspirate{Volume: m.vol, Location: m.loc, Rate: opts.Rate()})
		*liquid += m.vol
		if opts.AirGap() > 0 {
			out = append(out, domain.AirGap{Volume: opts.AirGap()})
		}
		if touch {
			out = append(out, domain.TouchTip{Speed: opts.TouchTipSpeed()})
		}
	}

	var lastDest labware.Location
	for _, m := range grp.dispenses {
		out = append(out, domain.Dispense{Volume: m.vol, Location: m.loc, Rate: opts.Rate()})
		*liquid -= m.vol
		lastDest = m.loc
		if touch {
			out = append(out, domain.TouchTip{Speed: opts.TouchTipSpeed()})
		}
	}
	if math.Abs(*liquid) < volumeTolerance {
		*liquid = 0
	}

	if opts.MixStrategy().After() {
		spec := opts.MixAfterSpec()
		out = append(out, domain.Mix{
			Repetitions: spec.Repetitions,
			Volume:      spec.Volume,
			Location:    lastDest,
			Rate:        opts.Rate(),
		})
	}

	if opts.BlowOut() == domain.BlowOutTrash && *liquid <= e.disposal+volumeTolerance {
		out = append(out, domain.BlowOut{})
		*liquid = 0
	}

	drop := false
	switch opts.TipPolicy() {
	case domain.TipAlways:
		drop = *tip
	case domain.TipOnce:
		drop = last && *tip
	}
	if drop {
		out = append(out, domain.DropTip{Return: opts.DropTip() == domain.DropTipReturn})
		*tip = false
		*liquid = 0
	}
	return out
}
