/*
Package aliquot plans and simulates liquid-handling protocols for
laboratory pipetting robots.

It separates planning from execution: Transfer, Distribute and
Consolidate compile a request into an ordered sequence of primitive
commands (pick up tip, aspirate, dispense, ...) which an executor then
drives against an instrument port. The built-in port is a simulator that
enforces physical rules, so protocols can be validated end to end
without hardware.

# Concept

A Robot holds a deck of labware and the pipettes mounted on its head.
Each pipette plans over its own volume envelope and channel count: a
volume larger than the tip splits into carryover steps, adjacent steps
merge into multi-dispense or multi-aspirate groups, and an 8-channel
head addresses whole plate columns as single locations. Every executed
command lands in the robot's trace, which persists as a run record.

# Usage

Load labware, mount an instrument and move liquid:

	package main

	import (
		"context"
		"log"

		"github.com/openlh/aliquot"
		"github.com/openlh/aliquot/pkg/domain"
	)

	func main() {
		robot := aliquot.Simulate()

		plate, err := robot.LoadLabware("plate_96_340ul", 1)
		if err != nil {
			log.Fatal(err)
		}
		tips, err := robot.LoadTipRack("tiprack_300ul", 2)
		if err != nil {
			log.Fatal(err)
		}

		p300, err := robot.LoadInstrument("p300_single", "right",
			aliquot.WithTipRacks(tips))
		if err != nil {
			log.Fatal(err)
		}

		a1, _ := plate.Well("A1")
		b1, _ := plate.Well("B1")

		err = p300.Transfer(context.Background(),
			domain.Volume(100),
			domain.OneWell(a1),
			domain.OneWell(b1),
			domain.WithTouchTip(),
		)
		if err != nil {
			log.Fatal(err)
		}

		for _, entry := range robot.Trace() {
			log.Println(entry.Op, entry.Location)
		}
	}

Plan-only variants return the compiled sequence without touching the
instrument, for dry-runs and reports:

	plan, err := p300.PlanTransfer(domain.Volume(100), src, dst)
	cmds, err := plan.Commands()
*/
package aliquot
