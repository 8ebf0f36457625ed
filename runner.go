package aliquot

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/openlh/aliquot/pkg/domain"
)

// Runner drives a compiled plan against a pipette, echoing every command
// to Output as it executes. It decouples IO from execution so different
// frontends (CLI, TUI, tests) can reuse the same loop.
type Runner struct {
	Output   io.Writer
	Renderer ContentRenderer
	DryRun   bool
}

// ContentRenderer transforms a command line before output. This allows
// TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// NewRunner creates a Runner. Set Output before calling Run; tests
// usually point it at a bytes.Buffer, the CLI at os.Stdout.
func NewRunner() *Runner {
	return &Runner{}
}

// Run enumerates the plan, printing each command and, unless DryRun is
// set, executing it on the pipette. It stops at the first failure.
func (r *Runner) Run(ctx context.Context, p *Pipette, plan *domain.Plan) error {
	writer := r.Output
	if writer == nil {
		return fmt.Errorf("output writer must be set (use os.Stdout)")
	}

	stream := plan.Stream()
	seq := 0
	for stream.Next() {
		cmd := stream.Command()

		line := fmt.Sprintf("%4d  %s", seq, cmd)
		if r.Renderer != nil {
			if rendered, rerr := r.Renderer(line); rerr == nil {
				line = rendered
			}
		}
		fmt.Fprintln(writer, strings.TrimRight(line, "\n"))

		if !r.DryRun {
			if err := p.Executor().Execute(ctx, cmd); err != nil {
				return fmt.Errorf("command %d (%s): %w", seq, cmd.Op(), err)
			}
		}
		seq++
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("plan stream: %w", err)
	}
	return nil
}
