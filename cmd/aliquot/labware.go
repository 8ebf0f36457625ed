package main

import (
	"fmt"

	"github.com/openlh/aliquot"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/spf13/cobra"
)

// labwareCmd represents the labware command
var labwareCmd = &cobra.Command{
	Use:   "labware",
	Short: "List the labware catalog and pipette models",
	Run: func(cmd *cobra.Command, args []string) {
		catalog := labware.NewCatalog()

		fmt.Println("Labware:")
		for _, name := range catalog.Names() {
			def, err := catalog.Get(name)
			if err != nil {
				continue
			}
			kind := "plate"
			switch {
			case def.Trash:
				kind = "trash"
			case def.IsTipRack():
				kind = "tip rack"
			}
			fmt.Printf("  %-28s %dx%-3d %8g uL  %s\n", def.Name, def.Rows, def.Cols, def.WellVolume, kind)
		}

		fmt.Println("\nPipette models:")
		for _, m := range aliquot.Models() {
			fmt.Printf("  %-28s %d channel(s)  %g-%g uL\n", m.Name, m.Channels, m.MinVolume, m.MaxVolume)
		}
	},
}

func init() {
	rootCmd.AddCommand(labwareCmd)
}
