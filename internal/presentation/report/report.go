// Package report renders compiled protocols as markdown, for terminal
// display through glamour and for plain-text docs.
package report

import (
	"fmt"
	"strings"

	"github.com/openlh/aliquot/internal/presentation/graph"
	"github.com/openlh/aliquot/internal/protocol"
	"github.com/openlh/aliquot/pkg/domain"
)

// Markdown renders a protocol document and its compiled plans as one
// report: deck layout, pipettes, per-step command listings and a Mermaid
// chart of the liquid flow.
func Markdown(doc *protocol.Document, plans []protocol.StepPlan) (string, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", doc.Name)
	if doc.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", doc.Description)
	}

	sb.WriteString("## Deck\n\n")
	sb.WriteString("| Slot | Labware | Label |\n")
	sb.WriteString("|-----:|---------|-------|\n")
	for _, lw := range doc.Labware {
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", lw.Slot, lw.Name, lw.Label)
	}
	sb.WriteString("\n## Pipettes\n\n")
	for _, p := range doc.Pipettes {
		if len(p.TipRacks) > 0 {
			racks := make([]string, len(p.TipRacks))
			for i, slot := range p.TipRacks {
				racks[i] = fmt.Sprintf("slot %d", slot)
			}
			fmt.Fprintf(&sb, "- %s on %s (tip racks: %s)\n", p.Model, p.Mount, strings.Join(racks, ", "))
		} else {
			fmt.Fprintf(&sb, "- %s on %s\n", p.Model, p.Mount)
		}
	}

	var all []domain.Command
	for _, sp := range plans {
		info := sp.Plan.Info()
		groups := "groups"
		if info.Steps == 1 {
			groups = "group"
		}
		fmt.Fprintf(&sb, "\n## Step %d: %s\n\n", sp.Index, sp.Type)
		fmt.Fprintf(&sb, "%g uL total in %d %s.\n\n", info.TotalVolume, info.Steps, groups)

		cmds, err := sp.Plan.Commands()
		if err != nil {
			return "", fmt.Errorf("step %d: %w", sp.Index, err)
		}
		sb.WriteString("```\n")
		for _, cmd := range cmds {
			sb.WriteString(cmd.String())
			sb.WriteByte('\n')
		}
		sb.WriteString("```\n")
		all = append(all, cmds...)
	}

	if len(all) > 0 {
		sb.WriteString("\n## Liquid flow\n\n")
		sb.WriteString("```mermaid\n")
		sb.WriteString(graph.GenerateMermaid(all))
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}
