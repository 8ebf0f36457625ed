package main

import (
	"fmt"
	"os"

	"github.com/openlh/aliquot/internal/protocol"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <protocol.yaml>",
	Short: "Check a protocol for consistency",
	Long: `Parses the protocol and compiles every step against a simulated deck,
reporting unknown labware, missing wells, volume errors and option
conflicts without executing anything.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd, args[0]); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Protocol is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, path string) error {
	doc, err := protocol.ParseFile(path)
	if err != nil {
		return err
	}
	// Compiling materializes every step's plan, which surfaces the
	// configuration errors a bare parse cannot see.
	plans, err := protocol.Compile(doc, aliquotOptions(cmd)...)
	if err != nil {
		return err
	}
	for _, sp := range plans {
		if _, err := sp.Plan.Commands(); err != nil {
			return fmt.Errorf("step %d: %w", sp.Index, err)
		}
	}
	return nil
}
