package main

import (
	"fmt"
	"os"

	"github.com/openlh/aliquot/internal/presentation/report"
	"github.com/openlh/aliquot/internal/presentation/tui"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/spf13/cobra"
)

// planCmd represents the plan command
var planCmd = &cobra.Command{
	Use:   "plan <protocol.yaml>",
	Short: "Compile a protocol and print its command sequence",
	Long: `Compiles every step of the protocol into its pipetting command sequence
without touching any instrument. Nothing is executed; tip state is still
threaded between steps the way a real run would leave it.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		render, _ := cmd.Flags().GetBool("render")
		if err := runPlan(cmd, args[0], render); err != nil {
			fmt.Printf("Planning failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().BoolP("render", "r", false, "Render the plan as a formatted report")
}

func runPlan(cmd *cobra.Command, path string, render bool) error {
	doc, err := protocol.ParseFile(path)
	if err != nil {
		return err
	}
	plans, err := protocol.Compile(doc, aliquotOptions(cmd)...)
	if err != nil {
		return err
	}

	if render {
		md, err := report.Markdown(doc, plans)
		if err != nil {
			return err
		}
		out, err := tui.NewRenderer()(md)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	}

	for _, sp := range plans {
		info := sp.Plan.Info()
		fmt.Printf("# step %d: %s (%g uL in %d groups)\n", sp.Index, sp.Type, info.TotalVolume, info.Steps)
		cmds, err := sp.Plan.Commands()
		if err != nil {
			return fmt.Errorf("step %d: %w", sp.Index, err)
		}
		for _, c := range cmds {
			fmt.Println(c)
		}
	}
	return nil
}
