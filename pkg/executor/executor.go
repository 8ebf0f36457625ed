// Package executor drives transfer plans against an instrument. It owns
// the execution-time concerns the planner cannot see: the tip supply, the
// trash target, the tip's origin well and the last visited location.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/openlh/aliquot/pkg/ports"
)

// Executor dispatches commands to a single instrument. One command is in
// flight at a time; Run and Execute are not safe for concurrent use, but
// tip racks may be added while a run is in progress.
type Executor struct {
	instr  ports.Instrument
	trash  labware.Well
	logger *slog.Logger
	hooks  Hooks

	mu    sync.Mutex
	racks []*labware.TipRack

	tipOrigin labware.Location
	lastLoc   labware.Location
}

// Option configures the executor.
type Option func(*Executor)

// WithTipRacks attaches tip racks in priority order. Pick-ups scan them
// front to back.
func WithTipRacks(racks ...*labware.TipRack) Option {
	return func(e *Executor) { e.racks = append(e.racks, racks...) }
}

// WithLogger configures command-level logging.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks registers lifecycle hooks (metrics, trace building).
func WithHooks(h Hooks) Option {
	return func(e *Executor) { e.hooks = h }
}

// New creates an executor for the given instrument. trash receives tip
// drops and blow-outs that name no explicit location.
func New(instr ports.Instrument, trash labware.Well, opts ...Option) *Executor {
	e := &Executor{
		instr:  instr,
		trash:  trash,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddTipRack appends a rack at the lowest priority.
func (e *Executor) AddTipRack(r *labware.TipRack) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.racks = append(e.racks, r)
}

// Run consumes the plan's command stream in order. The first failure
// aborts the run: no retry, no rollback, instrument state is left as-is.
// Cancellation is honored between commands, never mid-primitive.
func (e *Executor) Run(ctx context.Context, plan *domain.Plan) error {
	stream := plan.Stream()
	seq := 0
	for stream.Next() {
		cmd := stream.Command()
		if err := e.Execute(ctx, cmd); err != nil {
			return fmt.Errorf("command %d (%s): %w", seq, cmd.Op(), err)
		}
		seq++
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("plan stream: %w", err)
	}
	return nil
}

// Execute dispatches a single command. It checks the context first, then
// routes on the concrete command type.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if h := e.hooks.OnCommand; h != nil {
		h(cmd)
	}
	err := e.dispatch(cmd)
	if h := e.hooks.OnResult; h != nil {
		h(cmd, err)
	}
	if err != nil {
		e.logger.Error("command failed", "op", string(cmd.Op()), "err", err)
		return err
	}
	e.logger.Debug("command", "op", string(cmd.Op()), "detail", cmd.String())
	return nil
}

func (e *Executor) dispatch(cmd domain.Command) error {
	switch c := cmd.(type) {
	case domain.PickUpTip:
		return e.pickUp()
	case domain.Aspirate:
		if err := e.instr.Aspirate(c.Volume, c.Location, c.Rate); err != nil {
			return err
		}
		e.lastLoc = c.Location
		return nil
	case domain.Dispense:
		if err := e.instr.Dispense(c.Volume, c.Location, c.Rate); err != nil {
			return err
		}
		e.lastLoc = c.Location
		return nil
	case domain.Mix:
		if err := e.instr.Mix(c.Repetitions, c.Volume, c.Location, c.Rate); err != nil {
			return err
		}
		if !c.Location.IsZero() {
			e.lastLoc = c.Location
		}
		return nil
	case domain.TouchTip:
		p := ports.DefaultTouchTipParams()
		if c.Speed > 0 {
			p.Speed = c.Speed
		}
		return e.instr.TouchTip(e.lastLoc, p)
	case domain.BlowOut:
		loc := c.Location
		if loc.IsZero() {
			loc = labware.At(e.trash)
		}
		return e.instr.BlowOut(loc)
	case domain.AirGap:
		return e.instr.AirGap(c.Volume)
	case domain.DropTip:
		return e.dropTip(c)
	default:
		// The union is sealed; a new variant here is a programming error.
		return fmt.Errorf("unhandled command type %T", cmd)
	}
}

// pickUp resolves a fresh tip by scanning the attached racks in priority
// order. The scan is a flat loop over racks and their columns.
func (e *Executor) pickUp() error {
	channels := e.instr.Channels()

	e.mu.Lock()
	racks := make([]*labware.TipRack, len(e.racks))
	copy(racks, e.racks)
	e.mu.Unlock()

	for _, rack := range racks {
		tip, ok := rack.NextTip(channels)
		if !ok {
			continue
		}
		loc := labware.At(tip)
		if err := e.instr.PickUpTip(loc, ports.DefaultPickUpParams()); err != nil {
			return err
		}
		rack.UseTips(tip, channels)
		e.tipOrigin = loc
		return nil
	}
	return fmt.Errorf("pick_up_tip: %w", domain.ErrOutOfTips)
}

// dropTip sends the tip to the trash, or back to its origin well when the
// command asks for a return. Returned tips stay marked as used; a fresh
// pick-up never takes one again.
func (e *Executor) dropTip(c domain.DropTip) error {
	loc := labware.At(e.trash)
	home := true
	if c.Return {
		if e.tipOrigin.IsZero() {
			return domain.Statef(domain.OpDropTip, "no tip origin recorded to return to")
		}
		loc = e.tipOrigin
		home = false
	}
	if err := e.instr.DropTip(loc, home); err != nil {
		return err
	}
	e.tipOrigin = labware.Location{}
	return nil
}
