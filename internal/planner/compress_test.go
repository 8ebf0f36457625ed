package planner

import (
	"testing"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlate(t *testing.T) *labware.Labware {
	t.Helper()
	return labware.New(labware.Definition{Name: "plate", Rows: 8, Cols: 12, WellVolume: 340})
}

func linear(t float64) float64 { return t }

func TestExpandVolumes(t *testing.T) {
	t.Run("scalar repeats", func(t *testing.T) {
		vols, err := expandVolumes(domain.Volume(25), 4, linear)
		require.NoError(t, err)
		assert.Equal(t, []float64{25, 25, 25, 25}, vols)
	})

	t.Run("list used verbatim", func(t *testing.T) {
		vols, err := expandVolumes(domain.Volumes(10, 20, 30), 3, linear)
		require.NoError(t, err)
		assert.Equal(t, []float64{10, 20, 30}, vols)
	})

	t.Run("list length mismatch", func(t *testing.T) {
		_, err := expandVolumes(domain.Volumes(10, 20), 3, linear)
		require.Error(t, err)
		var cfg *domain.ConfigurationError
		assert.ErrorAs(t, err, &cfg)
	})

	t.Run("linear range hits both endpoints", func(t *testing.T) {
		vols, err := expandVolumes(domain.VolumeRange(10, 100), 4, linear)
		require.NoError(t, err)
		require.Len(t, vols, 4)
		assert.Equal(t, 10.0, vols[0])
		assert.Equal(t, 100.0, vols[3])
		assert.InDelta(t, 40.0, vols[1], 1e-9)
		assert.InDelta(t, 70.0, vols[2], 1e-9)
	})

	t.Run("range with one step takes the low bound", func(t *testing.T) {
		vols, err := expandVolumes(domain.VolumeRange(10, 100), 1, linear)
		require.NoError(t, err)
		assert.Equal(t, []float64{10}, vols)
	})

	t.Run("custom gradient curve", func(t *testing.T) {
		square := func(x float64) float64 { return x * x }
		vols, err := expandVolumes(domain.VolumeRange(10, 100), 3, square)
		require.NoError(t, err)
		assert.Equal(t, 10.0, vols[0])
		assert.InDelta(t, 32.5, vols[1], 1e-9) // 10 + 0.25*90
		assert.Equal(t, 100.0, vols[2])
	})

	t.Run("descending range", func(t *testing.T) {
		vols, err := expandVolumes(domain.VolumeRange(100, 10), 2, linear)
		require.NoError(t, err)
		assert.Equal(t, []float64{100, 10}, vols)
	})

	t.Run("zero and negative volumes rejected", func(t *testing.T) {
		_, err := expandVolumes(domain.Volume(0), 2, linear)
		assert.Error(t, err)
		_, err = expandVolumes(domain.Volumes(10, -5), 2, linear)
		assert.Error(t, err)
	})
}

func TestExpandCarryover(t *testing.T) {
	plate := testPlate(t)
	src := labware.At(plate.WellAt(0, 0))
	dst := labware.At(plate.WellAt(0, 1))

	t.Run("splits into equal parts that sum back", func(t *testing.T) {
		out, err := expandCarryover([]step{{src: src, dst: dst, vol: 400}}, 300, true)
		require.NoError(t, err)
		require.Len(t, out, 2)
		sum := 0.0
		for _, st := range out {
			assert.LessOrEqual(t, st.vol, 300.0)
			assert.Equal(t, src, st.src)
			assert.Equal(t, dst, st.dst)
			sum += st.vol
		}
		assert.InDelta(t, 400.0, sum, 1e-9)
	})

	t.Run("uneven split", func(t *testing.T) {
		out, err := expandCarryover([]step{{src: src, dst: dst, vol: 700}}, 300, true)
		require.NoError(t, err)
		require.Len(t, out, 3)
		sum := 0.0
		for _, st := range out {
			assert.LessOrEqual(t, st.vol, 300.0+volumeTolerance)
			sum += st.vol
		}
		assert.InDelta(t, 700.0, sum, 1e-9)
	})

	t.Run("volume at the limit passes through", func(t *testing.T) {
		out, err := expandCarryover([]step{{src: src, dst: dst, vol: 300}}, 300, true)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, 300.0, out[0].vol)
	})

	t.Run("disabled carryover rejects oversize", func(t *testing.T) {
		_, err := expandCarryover([]step{{src: src, dst: dst, vol: 400}}, 300, false)
		require.Error(t, err)
		var cfg *domain.ConfigurationError
		assert.ErrorAs(t, err, &cfg)
	})
}

func TestCompressDistribute(t *testing.T) {
	plate := testPlate(t)
	src := labware.At(plate.WellAt(0, 0))
	d := func(col int) labware.Location { return labware.At(plate.WellAt(0, col)) }

	t.Run("merges adjacent same-source steps", func(t *testing.T) {
		steps := []step{
			{src: src, dst: d(1), vol: 20},
			{src: src, dst: d(2), vol: 20},
			{src: src, dst: d(3), vol: 20},
		}
		groups, err := compress(domain.ModeDistribute, steps, 0, 300)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		require.Len(t, groups[0].aspirates, 1)
		assert.Equal(t, 60.0, groups[0].aspirates[0].vol)
		assert.Len(t, groups[0].dispenses, 3)
	})

	t.Run("disposal volume counts once per aspirate", func(t *testing.T) {
		steps := []step{
			{src: src, dst: d(1), vol: 150},
			{src: src, dst: d(2), vol: 150},
		}
		// 150+150+20 over the 300 limit: two groups of one dispense each.
		groups, err := compress(domain.ModeDistribute, steps, 20, 300)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		for _, g := range groups {
			assert.Equal(t, 170.0, g.aspirates[0].vol)
			assert.Len(t, g.dispenses, 1)
		}
	})

	t.Run("budget closes groups", func(t *testing.T) {
		steps := []step{
			{src: src, dst: d(1), vol: 150},
			{src: src, dst: d(2), vol: 150},
			{src: src, dst: d(3), vol: 150},
		}
		groups, err := compress(domain.ModeDistribute, steps, 0, 300)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, 300.0, groups[0].aspirates[0].vol)
		assert.Equal(t, 150.0, groups[1].aspirates[0].vol)
	})

	t.Run("source change starts a new group", func(t *testing.T) {
		other := labware.At(plate.WellAt(1, 0))
		steps := []step{
			{src: src, dst: d(1), vol: 20},
			{src: other, dst: d(2), vol: 20},
			{src: src, dst: d(3), vol: 20},
		}
		groups, err := compress(domain.ModeDistribute, steps, 0, 300)
		require.NoError(t, err)
		assert.Len(t, groups, 3, "merging never reorders, only groups adjacent runs")
	})

	t.Run("single step cannot fit disposal", func(t *testing.T) {
		steps := []step{{src: src, dst: d(1), vol: 295}}
		_, err := compress(domain.ModeDistribute, steps, 10, 300)
		require.Error(t, err)
		var cfg *domain.ConfigurationError
		assert.ErrorAs(t, err, &cfg)
	})

	t.Run("no further merge is possible", func(t *testing.T) {
		steps := []step{
			{src: src, dst: d(1), vol: 160},
			{src: src, dst: d(2), vol: 160},
			{src: src, dst: d(3), vol: 160},
		}
		groups, err := compress(domain.ModeDistribute, steps, 0, 300)
		require.NoError(t, err)
		// Adjacent groups sharing a source must only exist because their
		// combined volume would blow the budget; otherwise compression
		// was not exhaustive and a second run would change the output.
		for i := 1; i < len(groups); i++ {
			prev, cur := groups[i-1], groups[i]
			if prev.aspirates[0].loc.Equal(cur.aspirates[0].loc) {
				combined := prev.liquidOut() + cur.liquidOut()
				assert.Greater(t, combined, 300.0)
			}
		}
	})
}

func TestCompressConsolidate(t *testing.T) {
	plate := testPlate(t)
	dst := labware.At(plate.WellAt(0, 11))
	s := func(col int) labware.Location { return labware.At(plate.WellAt(0, col)) }

	t.Run("merges adjacent same-destination steps", func(t *testing.T) {
		steps := []step{
			{src: s(0), dst: dst, vol: 40},
			{src: s(1), dst: dst, vol: 40},
			{src: s(2), dst: dst, vol: 40},
		}
		groups, err := compress(domain.ModeConsolidate, steps, 0, 300)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Len(t, groups[0].aspirates, 3)
		require.Len(t, groups[0].dispenses, 1)
		assert.Equal(t, 120.0, groups[0].dispenses[0].vol)
	})

	t.Run("budget closes groups", func(t *testing.T) {
		steps := []step{
			{src: s(0), dst: dst, vol: 150},
			{src: s(1), dst: dst, vol: 150},
			{src: s(2), dst: dst, vol: 150},
		}
		groups, err := compress(domain.ModeConsolidate, steps, 0, 300)
		require.NoError(t, err)
		require.Len(t, groups, 2)
		assert.Equal(t, 300.0, groups[0].dispenses[0].vol)
		assert.Equal(t, 150.0, groups[1].dispenses[0].vol)
	})
}

func TestCompressTransferIsIdentity(t *testing.T) {
	plate := testPlate(t)
	steps := []step{
		{src: labware.At(plate.WellAt(0, 0)), dst: labware.At(plate.WellAt(0, 1)), vol: 10},
		{src: labware.At(plate.WellAt(0, 0)), dst: labware.At(plate.WellAt(0, 2)), vol: 20},
	}
	groups, err := compress(domain.ModeTransfer, steps, 0, 300)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	for i, g := range groups {
		require.Len(t, g.aspirates, 1)
		require.Len(t, g.dispenses, 1)
		assert.Equal(t, steps[i].vol, g.aspirates[0].vol)
		assert.Equal(t, steps[i].vol, g.dispenses[0].vol)
	}
}

func TestCompressDeterministic(t *testing.T) {
	plate := testPlate(t)
	src := labware.At(plate.WellAt(0, 0))
	steps := make([]step, 6)
	for i := range steps {
		steps[i] = step{src: src, dst: labware.At(plate.WellAt(0, i+1)), vol: 90}
	}
	first, err := compress(domain.ModeDistribute, steps, 5, 300)
	require.NoError(t, err)
	second, err := compress(domain.ModeDistribute, steps, 5, 300)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
