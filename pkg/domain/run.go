package domain

import (
	"fmt"
	"time"
)

// RunStatus tracks a protocol run through its lifecycle.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// TraceEntry is one executed command in wire-safe form: locations collapse
// to their display strings so entries survive JSON round-trips through the
// stores and the HTTP/MCP adapters.
type TraceEntry struct {
	Seq      int     `json:"seq" yaml:"seq" mapstructure:"seq"`
	Op       Op      `json:"op" yaml:"op" mapstructure:"op"`
	Volume   float64 `json:"volume_ul,omitempty" yaml:"volume_ul,omitempty" mapstructure:"volume_ul"`
	Location string  `json:"location,omitempty" yaml:"location,omitempty" mapstructure:"location"`
	Detail   string  `json:"detail,omitempty" yaml:"detail,omitempty" mapstructure:"detail"`
}

// NewTraceEntry flattens a command into its wire-safe trace form.
func NewTraceEntry(seq int, cmd Command) TraceEntry {
	e := TraceEntry{Seq: seq, Op: cmd.Op()}
	switch c := cmd.(type) {
	case Aspirate:
		e.Volume = c.Volume
		e.Location = c.Location.String()
	case Dispense:
		e.Volume = c.Volume
		e.Location = c.Location.String()
	case Mix:
		e.Volume = c.Volume
		e.Location = c.Location.String()
		e.Detail = fmt.Sprintf("%d repetitions", c.Repetitions)
	case TouchTip:
		if c.Speed > 0 {
			e.Detail = fmt.Sprintf("%g mm/s", c.Speed)
		}
	case BlowOut:
		if c.Location.IsZero() {
			e.Detail = "trash"
		} else {
			e.Location = c.Location.String()
		}
	case AirGap:
		e.Volume = c.Volume
	case DropTip:
		if c.Return {
			e.Detail = "return"
		} else {
			e.Detail = "trash"
		}
	}
	return e
}

// RunRecord is the persisted outcome of one protocol run.
type RunRecord struct {
	ID        string       `json:"id" yaml:"id"`
	Protocol  string       `json:"protocol" yaml:"protocol"`
	Status    RunStatus    `json:"status" yaml:"status"`
	Error     string       `json:"error,omitempty" yaml:"error,omitempty"`
	Trace     []TraceEntry `json:"trace,omitempty" yaml:"trace,omitempty"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" yaml:"updated_at"`
}

// Clone returns a deep copy, so stores can hand out records without
// sharing trace slices with callers.
func (r *RunRecord) Clone() *RunRecord {
	if r == nil {
		return nil
	}
	cp := *r
	if r.Trace != nil {
		cp.Trace = make([]TraceEntry, len(r.Trace))
		copy(cp.Trace, r.Trace)
	}
	return &cp
}

// Finished reports whether the run reached a terminal status.
func (r *RunRecord) Finished() bool {
	return r.Status == RunSucceeded || r.Status == RunFailed
}
