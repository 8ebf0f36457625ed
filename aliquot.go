package aliquot

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/internal/simulator"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/executor"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/openlh/aliquot/pkg/observability"
	"github.com/openlh/aliquot/pkg/ports"
	"github.com/openlh/aliquot/pkg/runs"
)

// Robot is the high-level entry point of the library: a deck, a labware
// catalog and the instruments mounted on the head. Every command an
// instrument executes is appended to the robot's trace.
type Robot struct {
	deck    *labware.Deck
	catalog *labware.Catalog
	logger  *slog.Logger
	metrics *observability.Metrics
	store   ports.RunStore
	hooks   executor.Hooks

	mu     sync.Mutex
	mounts map[string]*Pipette
	trace  []domain.TraceEntry
	seq    int
}

// Option defines a functional option for configuring the Robot.
type Option func(*Robot)

// WithLogger sets a structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Robot) { r.logger = logger }
}

// WithCatalog replaces the built-in labware catalog.
func WithCatalog(c *labware.Catalog) Option {
	return func(r *Robot) { r.catalog = c }
}

// WithMetrics attaches Prometheus instrumentation to every instrument
// mounted after this option is applied.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Robot) { r.metrics = m }
}

// WithStore configures the run store SaveRun persists to.
func WithStore(s ports.RunStore) Option {
	return func(r *Robot) { r.store = s }
}

// WithHooks registers observation hooks on every mounted instrument.
func WithHooks(h executor.Hooks) Option {
	return func(r *Robot) { r.hooks = h }
}

// Simulate builds a robot whose instruments are dry-run simulators. The
// deck comes up empty apart from on the fixed trash.
func Simulate(opts ...Option) *Robot {
	r := &Robot{
		deck:    labware.NewDeck(),
		catalog: labware.NewCatalog(),
		logger:  logging.NewNop(),
		mounts:  make(map[string]*Pipette),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Deck returns the robot's working surface.
func (r *Robot) Deck() *labware.Deck { return r.deck }

// Catalog returns the labware catalog used by LoadLabware and LoadTipRack.
func (r *Robot) Catalog() *labware.Catalog { return r.catalog }

// Trash returns the fixed trash well.
func (r *Robot) Trash() labware.Well { return r.deck.Trash() }

// LoadLabware builds catalog labware and places it into a deck slot.
func (r *Robot) LoadLabware(name string, slot int) (*labware.Labware, error) {
	lw, err := r.catalog.Build(name)
	if err != nil {
		return nil, err
	}
	if err := r.deck.Load(lw, slot); err != nil {
		return nil, err
	}
	r.logger.Info("Labware loaded", "name", name, "slot", slot)
	return lw, nil
}

// LoadTipRack builds a catalog tip rack and places it into a deck slot.
func (r *Robot) LoadTipRack(name string, slot int) (*labware.TipRack, error) {
	rack, err := r.catalog.BuildTipRack(name)
	if err != nil {
		return nil, err
	}
	if err := r.deck.LoadTipRack(rack, slot); err != nil {
		return nil, err
	}
	r.logger.Info("Tip rack loaded", "name", name, "slot", slot)
	return rack, nil
}

// InstrumentOption configures a LoadInstrument or Attach call.
type InstrumentOption func(*instrumentConfig)

type instrumentConfig struct {
	racks   []*labware.TipRack
	replace bool
}

// WithTipRacks assigns the tip racks the instrument draws fresh tips
// from, in priority order.
func WithTipRacks(racks ...*labware.TipRack) InstrumentOption {
	return func(c *instrumentConfig) { c.racks = append(c.racks, racks...) }
}

// WithReplace allows mounting over an occupied mount.
func WithReplace() InstrumentOption {
	return func(c *instrumentConfig) { c.replace = true }
}

// LoadInstrument mounts a simulated pipette of the given model. Mounting
// onto an occupied mount is an error unless WithReplace is given.
func (r *Robot) LoadInstrument(model, mount string, opts ...InstrumentOption) (*Pipette, error) {
	m, err := LookupModel(model)
	if err != nil {
		return nil, err
	}
	sim := simulator.New(m.Name, m.Channels, m.MaxVolume,
		simulator.WithMinVolume(m.MinVolume),
		simulator.WithLogger(r.logger),
	)
	return r.Attach(sim, mount, opts...)
}

// Attach mounts an already constructed instrument port, for hardware
// backends and test doubles. Mount rules match LoadInstrument.
func (r *Robot) Attach(instr ports.Instrument, mount string, opts ...InstrumentOption) (*Pipette, error) {
	cfg := instrumentConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, taken := r.mounts[mount]; taken && !cfg.replace {
		return nil, domain.Configf("mount %q already holds %s", mount, prev.Name())
	}

	hooks := []executor.Hooks{r.traceHooks()}
	if r.metrics != nil {
		hooks = append(hooks, r.metrics.Hooks())
	}
	hooks = append(hooks, r.hooks)

	exec := executor.New(instr, r.deck.Trash(),
		executor.WithTipRacks(cfg.racks...),
		executor.WithLogger(r.logger),
		executor.WithHooks(executor.Combine(hooks...)),
	)
	p := &Pipette{robot: r, mount: mount, instr: instr, exec: exec}
	r.mounts[mount] = p
	r.logger.Info("Instrument mounted", "name", instr.Name(), "mount", mount)
	return p, nil
}

// Pipette returns the instrument on a mount.
func (r *Robot) Pipette(mount string) (*Pipette, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.mounts[mount]
	return p, ok
}

// Mounts returns the occupied mount names, sorted.
func (r *Robot) Mounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.mounts))
	for m := range r.mounts {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// traceHooks appends every successful command to the robot's trace.
func (r *Robot) traceHooks() executor.Hooks {
	return executor.Hooks{
		OnResult: func(cmd domain.Command, err error) {
			if err != nil {
				return
			}
			r.mu.Lock()
			r.trace = append(r.trace, domain.NewTraceEntry(r.seq, cmd))
			r.seq++
			r.mu.Unlock()
		},
	}
}

// Trace returns a copy of every command executed so far, across all
// mounted instruments, in execution order.
func (r *Robot) Trace() []domain.TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TraceEntry, len(r.trace))
	copy(out, r.trace)
	return out
}

// ResetTrace clears the trace and restarts its sequence numbering.
func (r *Robot) ResetTrace() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = nil
	r.seq = 0
}

// SaveRun snapshots the trace into a run record and persists it to the
// configured store. A non-nil runErr marks the run failed and keeps its
// message on the record.
func (r *Robot) SaveRun(ctx context.Context, protocol string, runErr error) (*domain.RunRecord, error) {
	if r.store == nil {
		return nil, domain.Configf("no run store configured")
	}
	now := time.Now().UTC()
	rec := &domain.RunRecord{
		ID:        runs.NewID(),
		Protocol:  protocol,
		Status:    domain.RunSucceeded,
		Trace:     r.Trace(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if runErr != nil {
		rec.Status = domain.RunFailed
		rec.Error = runErr.Error()
	}
	if err := r.store.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist run %q: %w", rec.ID, err)
	}
	r.logger.Info("Run saved", "run_id", rec.ID, "status", rec.Status, "commands", len(rec.Trace))
	return rec, nil
}
