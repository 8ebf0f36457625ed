package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlh/aliquot/internal/presentation/graph"
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

func mustWell(t *testing.T, lw *labware.Labware, name string) labware.Well {
	t.Helper()
	w, err := lw.Well(name)
	require.NoError(t, err)
	return w
}

func TestGenerateMermaid(t *testing.T) {
	reservoir := labware.New(labware.Definition{Name: "reservoir", Rows: 1, Cols: 12, WellVolume: 15000})
	plate := labware.New(labware.Definition{Name: "plate", Rows: 8, Cols: 12, WellVolume: 340})
	src := mustWell(t, reservoir, "A1")
	dstA1 := mustWell(t, plate, "A1")
	dstB1 := mustWell(t, plate, "B1")

	t.Run("distribute fans out", func(t *testing.T) {
		cmds := []domain.Command{
			domain.PickUpTip{},
			domain.Aspirate{Volume: 110, Location: labware.At(src)},
			domain.Dispense{Volume: 50, Location: labware.At(dstA1)},
			domain.Dispense{Volume: 50, Location: labware.At(dstB1)},
			domain.BlowOut{},
			domain.DropTip{},
		}
		got := graph.GenerateMermaid(cmds)

		assert.Contains(t, got, "graph TD")
		assert.Contains(t, got, `A1_of_reservoir(("A1 of reservoir"))`, "sources are circles")
		assert.Contains(t, got, `A1_of_plate["A1 of plate"]`, "destinations are rectangles")
		assert.Contains(t, got, `trash[["trash"]]`)
		assert.Contains(t, got, `A1_of_reservoir -- "50 uL" --> A1_of_plate`)
		assert.Contains(t, got, `A1_of_reservoir -- "50 uL" --> B1_of_plate`)
		assert.Contains(t, got, "A1_of_reservoir -.-> trash", "blow-out is a dotted edge")
		assert.Contains(t, got, "class A1_of_reservoir source;")
	})

	t.Run("repeated hops aggregate", func(t *testing.T) {
		cmds := []domain.Command{
			domain.Aspirate{Volume: 300, Location: labware.At(src)},
			domain.Dispense{Volume: 300, Location: labware.At(dstA1)},
			domain.Aspirate{Volume: 100, Location: labware.At(src)},
			domain.Dispense{Volume: 100, Location: labware.At(dstA1)},
		}
		got := graph.GenerateMermaid(cmds)
		assert.Contains(t, got, `-- "400 uL (2x)" -->`)
	})

	t.Run("column group locations sanitize", func(t *testing.T) {
		col := labware.Group(plate.Column(0)...)
		cmds := []domain.Command{
			domain.Aspirate{Volume: 40, Location: col},
			domain.Dispense{Volume: 40, Location: labware.Group(plate.Column(1)...)},
		}
		got := graph.GenerateMermaid(cmds)
		assert.Contains(t, got, `A1_B1_C1_D1_E1_F1_G1_H1_of_plate(("A1+B1+C1+D1+E1+F1+G1+H1 of plate"))`,
			"ids sanitize while labels keep the raw location")
	})

	t.Run("empty input", func(t *testing.T) {
		got := graph.GenerateMermaid(nil)
		assert.Contains(t, got, "graph TD")
		assert.NotContains(t, got, "-->")
	})
}
