package main

import (
	"fmt"
	"strings"

	"github.com/openlh/aliquot"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of aliquot",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("aliquot version %s\n", strings.TrimSpace(aliquot.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
