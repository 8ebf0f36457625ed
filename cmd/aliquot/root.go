package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "aliquot",
	Short: "Aliquot plans and simulates liquid-handling protocols",
	Long: `Aliquot compiles transfer, distribute and consolidate requests into
ordered pipetting command sequences and runs them against a simulated robot.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (defaults to $ALIQUOT_LOG_LEVEL, then info)")
}

// newLogger builds the CLI logger from --log-level, falling back to the
// ALIQUOT_LOG_LEVEL environment variable. Logs go to stderr so stdout
// stays clean for plan output.
func newLogger(cmd *cobra.Command) *slog.Logger {
	name, _ := cmd.Flags().GetString("log-level")
	if name == "" {
		name = os.Getenv("ALIQUOT_LOG_LEVEL")
	}
	return logging.New(logging.ParseLevel(name))
}

// aliquotOptions builds the robot options shared by every command that
// sets up a simulated robot from a protocol document.
func aliquotOptions(cmd *cobra.Command) []aliquot.Option {
	return []aliquot.Option{aliquot.WithLogger(newLogger(cmd))}
}
