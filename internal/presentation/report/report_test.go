package report_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlh/aliquot/internal/presentation/report"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/openlh/aliquot/pkg/domain"
)

const fillYAML = `
name: plate-fill
description: Seed two wells from the buffer trough.
labware:
  - name: reservoir_12_15ml
    slot: 1
    label: buffer
  - name: plate_96_340ul
    slot: 2
  - name: tiprack_300ul
    slot: 3
pipettes:
  - model: p300_single
    mount: right
    tip_racks: [3]
steps:
  - type: distribute
    volume: 50
    from: {slot: 1, wells: [A1]}
    to: {slot: 2, wells: [A1, B1]}
    options: {disposal_volume: 10, blow_out: true}
`

func compileFill(t *testing.T) (md string) {
	t.Helper()
	doc, err := protocol.Parse([]byte(fillYAML))
	require.NoError(t, err)
	plans, err := protocol.Compile(doc)
	require.NoError(t, err)
	md, err = report.Markdown(doc, plans)
	require.NoError(t, err)
	return md
}

func TestMarkdown(t *testing.T) {
	md := compileFill(t)

	assert.True(t, strings.HasPrefix(md, "# plate-fill\n"), md)
	assert.Contains(t, md, "Seed two wells from the buffer trough.")

	t.Run("deck table", func(t *testing.T) {
		assert.Contains(t, md, "| Slot | Labware | Label |")
		assert.Contains(t, md, "| 1 | reservoir_12_15ml | buffer |")
		assert.Contains(t, md, "| 3 | tiprack_300ul |  |")
	})

	t.Run("pipettes", func(t *testing.T) {
		assert.Contains(t, md, "- p300_single on right (tip racks: slot 3)")
	})

	t.Run("step section", func(t *testing.T) {
		assert.Contains(t, md, "## Step 1: distribute")
		assert.Contains(t, md, "100 uL total in 1 group.")
		assert.Contains(t, md, "aspirate 110 uL from A1 of buffer in slot 1")
		assert.Contains(t, md, "dispense 50 uL into B1 of plate_96_340ul in slot 2")
	})

	t.Run("liquid flow chart", func(t *testing.T) {
		assert.Contains(t, md, "```mermaid\ngraph TD\n")
		assert.Contains(t, md, `-- "50 uL" -->`)
		assert.Contains(t, md, `trash[["trash"]]`)
	})
}

func TestMarkdownMultiStep(t *testing.T) {
	yaml := fillYAML + `
  - type: transfer
    volume: 30
    from: {slot: 2, wells: [A1]}
    to: {slot: 2, wells: [C1]}
`
	doc, err := protocol.Parse([]byte(yaml))
	require.NoError(t, err)
	plans, err := protocol.Compile(doc)
	require.NoError(t, err)
	require.Len(t, plans, 2)

	md, err := report.Markdown(doc, plans)
	require.NoError(t, err)

	assert.Contains(t, md, "## Step 1: distribute")
	assert.Contains(t, md, "## Step 2: transfer")
	assert.Contains(t, md, "30 uL total in 1 group.")
	assert.Less(t, strings.Index(md, "## Step 1"), strings.Index(md, "## Step 2"))
}

func TestMarkdownPlanError(t *testing.T) {
	doc, err := protocol.Parse([]byte(fillYAML))
	require.NoError(t, err)

	opts, err := domain.NewTransferOptions(domain.ModeTransfer)
	require.NoError(t, err)
	broken := domain.NewPlan(domain.PlanInfo{Mode: domain.ModeTransfer, Steps: 1}, opts,
		func() domain.StreamFunc {
			return func() (domain.Command, bool, error) {
				return nil, false, errors.New("stream broke")
			}
		})

	_, err = report.Markdown(doc, []protocol.StepPlan{{Index: 1, Type: "transfer", Plan: broken}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1")
	assert.Contains(t, err.Error(), "stream broke")
}
