package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/internal/presentation/tui"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <protocol.yaml>",
	Short: "Execute a protocol on the simulated robot",
	Long: `Parses the protocol, sets up a simulated robot from its declarations and
executes every step in order, echoing each command as it completes.
Pass --save to persist the run record to the configured store.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runProtocol(cmd, args[0]); err != nil {
			fmt.Printf("Run failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	registerStoreFlags(runCmd)
	runCmd.Flags().Bool("save", false, "Persist the run record to the store")
	runCmd.Flags().BoolP("quiet", "q", false, "Suppress the banner and the command echo")
}

func runProtocol(cmd *cobra.Command, path string) error {
	quiet, _ := cmd.Flags().GetBool("quiet")
	save, _ := cmd.Flags().GetBool("save")

	doc, err := protocol.ParseFile(path)
	if err != nil {
		return err
	}

	opts := aliquotOptions(cmd)
	if save {
		store, closeStore, err := newRunStore(cmd)
		if err != nil {
			return err
		}
		defer closeStore()
		opts = append(opts, aliquot.WithStore(store))
	}

	if !quiet {
		tui.PrintBanner()
		fmt.Printf("Running %q (%d steps)\n\n", doc.Name, len(doc.Steps))
	}

	// Interrupts cancel between commands; the command in flight always
	// finishes first.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	robot, runErr := protocol.Run(ctx, doc, opts...)
	if robot == nil {
		// Setup never started executing; there is no trace to report.
		return runErr
	}

	trace := robot.Trace()
	if !quiet {
		for _, e := range trace {
			fmt.Printf("%4d  %s\n", e.Seq, formatTrace(e))
		}
		fmt.Println()
	}

	if save {
		rec, err := robot.SaveRun(context.Background(), doc.Name, runErr)
		if err != nil {
			return err
		}
		fmt.Printf("Run %s saved (%s)\n", rec.ID, rec.Status)
	}

	if runErr != nil {
		return runErr
	}
	fmt.Printf("Run complete: %d commands\n", len(trace))
	return nil
}

// formatTrace renders one trace entry for the terminal.
func formatTrace(e domain.TraceEntry) string {
	parts := []string{string(e.Op)}
	if e.Volume > 0 {
		parts = append(parts, fmt.Sprintf("%g uL", e.Volume))
	}
	if e.Location != "" {
		parts = append(parts, "at "+e.Location)
	}
	if e.Detail != "" {
		parts = append(parts, "("+e.Detail+")")
	}
	return strings.Join(parts, " ")
}
