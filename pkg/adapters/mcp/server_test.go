package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlh/aliquot/internal/logging"
	"github.com/openlh/aliquot/pkg/labware"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	return NewServer(nil, WithLogger(logging.NewNop()))
}

func TestPlanTransferTool(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	t.Run("single transfer", func(t *testing.T) {
		resp, err := s.handlePlanTransfer(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"pipette":      "p300_single",
			"volume":       float64(50),
			"source_wells": "A1",
			"dest_wells":   "B1",
		})
		require.NoError(t, err)
		assert.Equal(t, "p300_single", resp.Pipette)
		assert.Equal(t, "transfer", resp.Mode)
		assert.Equal(t, 1, resp.Steps)
		require.Len(t, resp.Commands, 4)
		assert.Equal(t, "pick_up_tip", resp.Commands[0])
		assert.Contains(t, resp.Commands[1], "aspirate 50 uL from A1 of plate_96_340ul in slot 1")
		assert.Contains(t, resp.Commands[2], "dispense 50 uL into B1 of plate_96_340ul in slot 1")
	})

	t.Run("distribute across labware", func(t *testing.T) {
		resp, err := s.handlePlanTransfer(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"pipette":        "p300_single",
			"volume":         float64(50),
			"mode":           "distribute",
			"source_labware": "reservoir_12_15ml",
			"source_wells":   "A1",
			"dest_labware":   "plate_96_340ul",
			"dest_wells":     "A1,B1",
			"options":        `{"disposal_volume":10,"blow_out":true}`,
		})
		require.NoError(t, err)
		assert.Equal(t, "distribute", resp.Mode)
		assert.Equal(t, 1, resp.Steps, "both dispenses fit one aspirate group")
		require.Len(t, resp.Commands, 6)
		assert.Contains(t, resp.Commands[1], "aspirate 110 uL from A1 of reservoir_12_15ml in slot 1")
		assert.Contains(t, resp.Commands[3], "dispense 50 uL into B1 of plate_96_340ul in slot 2")
		assert.Equal(t, "blow_out to trash", resp.Commands[4])
	})

	t.Run("multi-channel columns", func(t *testing.T) {
		resp, err := s.handlePlanTransfer(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"pipette":        "p300_multi",
			"volume":         float64(40),
			"source_columns": "[0]",
			"dest_columns":   "[1]",
		})
		require.NoError(t, err)
		require.Len(t, resp.Commands, 4)
		assert.Contains(t, resp.Commands[1], "A1")
	})

	t.Run("unknown model", func(t *testing.T) {
		_, err := s.handlePlanTransfer(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"pipette":      "p99",
			"volume":       float64(10),
			"source_wells": "A1",
			"dest_wells":   "B1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown pipette model")
	})

	t.Run("missing wells", func(t *testing.T) {
		_, err := s.handlePlanTransfer(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"pipette":    "p300_single",
			"volume":     float64(10),
			"dest_wells": "B1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "wells or columns required")
	})

	t.Run("malformed options", func(t *testing.T) {
		_, err := s.handlePlanTransfer(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"pipette":      "p300_single",
			"volume":       float64(10),
			"source_wells": "A1",
			"dest_wells":   "B1",
			"options":      "{not json",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "options")
	})
}

func TestSimulateProtocolTool(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	const doc = `
name: serial-dilution
labware:
  - name: plate_96_340ul
    slot: 1
  - name: tiprack_300ul
    slot: 2
pipettes:
  - model: p300_single
    mount: right
steps:
  - type: transfer
    volume: 50
    from: {slot: 1, wells: [A1]}
    to: {slot: 1, wells: [B1]}
`

	t.Run("successful run", func(t *testing.T) {
		resp, err := s.handleSimulateProtocol(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"protocol": doc,
		})
		require.NoError(t, err)
		assert.Equal(t, "serial-dilution", resp.Protocol)
		assert.Equal(t, "succeeded", resp.Status)
		assert.Empty(t, resp.Error)
		require.Len(t, resp.Trace, 4)
		assert.Equal(t, "pick_up_tip", string(resp.Trace[0].Op))
	})

	t.Run("failed run reports the step", func(t *testing.T) {
		const bad = `
name: over-capacity
labware:
  - name: plate_96_340ul
    slot: 1
  - name: tiprack_300ul
    slot: 2
pipettes:
  - model: p300_single
    mount: right
steps:
  - type: transfer
    volume: 400
    options: {carryover: false}
    from: {slot: 1, wells: [A1]}
    to: {slot: 1, wells: [B1]}
`
		resp, err := s.handleSimulateProtocol(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"protocol": bad,
		})
		require.NoError(t, err)
		assert.Equal(t, "failed", resp.Status)
		assert.Contains(t, resp.Error, "step 1")
		assert.Empty(t, resp.Trace)
	})

	t.Run("parse failure is a tool error", func(t *testing.T) {
		_, err := s.handleSimulateProtocol(ctx, mcp.CallToolRequest{}, map[string]interface{}{
			"protocol": "\t{not yaml",
		})
		require.Error(t, err)
	})
}

func TestLabwareJSON(t *testing.T) {
	s := testServer(t)

	out, err := s.labwareJSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), "plate_96_340ul")
	assert.Contains(t, string(out), "tiprack_300ul")

	t.Run("reflects a custom catalog", func(t *testing.T) {
		catalog := labware.NewCatalog()
		require.NoError(t, catalog.Register(labware.Definition{
			Name: "deepwell_24_10ml", Rows: 4, Cols: 6, WellVolume: 10000,
		}))
		s := NewServer(catalog, WithLogger(logging.NewNop()))
		out, err := s.labwareJSON()
		require.NoError(t, err)
		assert.Contains(t, string(out), "deepwell_24_10ml")
	})
}

func TestWellsArg(t *testing.T) {
	w, err := wellsArg(map[string]interface{}{"wells": "A1, B1 ,C1"}, "wells", "columns", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, w.Slot)
	assert.Equal(t, []string{"A1", "B1", "C1"}, w.Wells)

	w, err = wellsArg(map[string]interface{}{"columns": "[0,2]"}, "wells", "columns", 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, w.Columns)

	_, err = wellsArg(map[string]interface{}{"columns": "nope"}, "wells", "columns", 1)
	assert.Error(t, err)
}
