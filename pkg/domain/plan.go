package domain

// StreamFunc produces the next command of a plan. ok is false once the
// plan is exhausted; a non-nil err ends the stream with a failure.
type StreamFunc func() (cmd Command, ok bool, err error)

// PlanInfo summarizes a compiled plan.
type PlanInfo struct {
	Mode        Mode    `json:"mode" yaml:"mode"`
	Steps       int     `json:"steps" yaml:"steps"`
	TotalVolume float64 `json:"total_volume_ul" yaml:"total_volume_ul"`
}

// Plan is a compiled command sequence. Commands are produced lazily, one
// at a time, so a consumer may execute while enumerating; Stream opens
// independent cursors over the same plan.
type Plan struct {
	info   PlanInfo
	opts   TransferOptions
	source func() StreamFunc
}

// NewPlan wraps a command generator factory. Every call of the factory
// must return a fresh generator positioned at the plan's start.
func NewPlan(info PlanInfo, opts TransferOptions, source func() StreamFunc) *Plan {
	return &Plan{info: info, opts: opts, source: source}
}

// Info returns the plan summary.
func (p *Plan) Info() PlanInfo { return p.info }

// Options returns the options the plan was built with.
func (p *Plan) Options() TransferOptions { return p.opts }

// Stream opens a cursor at the start of the plan.
func (p *Plan) Stream() *Stream {
	return &Stream{next: p.source()}
}

// Commands materializes the whole sequence, for dry-runs and validation.
func (p *Plan) Commands() ([]Command, error) {
	var out []Command
	s := p.Stream()
	for s.Next() {
		out = append(out, s.Command())
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stream yields a plan's commands in execution order, in the manner of
// bufio.Scanner: Next advances, Command returns the current command, Err
// explains a stream that stopped early.
type Stream struct {
	next StreamFunc
	cur  Command
	err  error
	done bool
}

// Next advances to the next command. It returns false when the plan is
// exhausted or production failed; Err distinguishes the two.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	cmd, ok, err := s.next()
	if err != nil {
		s.err = err
		s.done = true
		return false
	}
	if !ok {
		s.done = true
		return false
	}
	s.cur = cmd
	return true
}

// Command returns the command produced by the last successful Next.
func (s *Stream) Command() Command { return s.cur }

// Err returns the error that ended the stream, nil on normal exhaustion.
func (s *Stream) Err() error { return s.err }
