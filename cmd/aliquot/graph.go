package main

import (
	"fmt"
	"os"

	"github.com/openlh/aliquot/internal/presentation/graph"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <protocol.yaml>",
	Short: "Export the liquid-flow visualization",
	Long:  `Compiles the protocol and outputs a Mermaid diagram (graph TD) of the liquid movement between wells.`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) < 1 {
			fmt.Println("Error: protocol file required")
			os.Exit(1)
		}
		doc, err := protocol.ParseFile(args[0])
		if err != nil {
			fmt.Printf("Error parsing protocol: %v\n", err)
			os.Exit(1)
		}
		plans, err := protocol.Compile(doc, aliquotOptions(cmd)...)
		if err != nil {
			fmt.Printf("Error compiling protocol: %v\n", err)
			os.Exit(1)
		}

		var cmds []domain.Command
		for _, sp := range plans {
			stepCmds, err := sp.Plan.Commands()
			if err != nil {
				fmt.Printf("Error in step %d: %v\n", sp.Index, err)
				os.Exit(1)
			}
			cmds = append(cmds, stepCmds...)
		}

		// Generate and print Mermaid graph
		fmt.Print(graph.GenerateMermaid(cmds))
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
