// Package graph renders liquid movement as Mermaid flowcharts, for plan
// reports and documentation tooling.
package graph

import (
	"fmt"
	"strings"

	"github.com/openlh/aliquot/pkg/domain"
)

type edge struct {
	from, to string
	volume   float64
	hops     int
}

// GenerateMermaid produces a Mermaid flowchart of a command sequence:
// wells are nodes, every aspirate→dispense hop an edge labeled with the
// moved volume. Wells liquid was drawn from render as circles, pure
// destinations as rectangles, the trash as a subroutine box. Blow-outs
// draw dotted edges since they discard rather than deliver.
func GenerateMermaid(cmds []domain.Command) string {
	var (
		order  []string
		labels = make(map[string]string)
		edges  []*edge
		index  = make(map[[2]string]*edge)
		src    string
	)

	node := func(name string) string {
		id := sanitizeMermaidID(name)
		if _, ok := labels[id]; !ok {
			labels[id] = name
			order = append(order, id)
		}
		return id
	}
	hop := func(from, to string, vol float64) {
		key := [2]string{from, to}
		e, ok := index[key]
		if !ok {
			e = &edge{from: from, to: to}
			index[key] = e
			edges = append(edges, e)
		}
		e.volume += vol
		e.hops++
	}

	sources := make(map[string]bool)
	for _, cmd := range cmds {
		switch c := cmd.(type) {
		case domain.Aspirate:
			src = node(c.Location.String())
			sources[src] = true
		case domain.Dispense:
			if src == "" {
				continue
			}
			hop(src, node(c.Location.String()), c.Volume)
		case domain.BlowOut:
			if src == "" {
				continue
			}
			if c.Location.IsZero() {
				hop(src, node("trash"), 0)
			} else {
				hop(src, node(c.Location.String()), 0)
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, id := range order {
		opener, closer := "[", "]"
		switch {
		case labels[id] == "trash":
			opener, closer = "[[", "]]"
		case sources[id]:
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, labels[id], closer))
	}

	for _, e := range edges {
		if e.volume == 0 {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", e.from, e.to))
			continue
		}
		label := fmt.Sprintf("%g uL", e.volume)
		if e.hops > 1 {
			label = fmt.Sprintf("%g uL (%dx)", e.volume, e.hops)
		}
		sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", e.from, e.to, label))
	}

	sb.WriteString("\n    classDef source fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
	for _, id := range order {
		if sources[id] {
			sb.WriteString(fmt.Sprintf("    class %s source;\n", id))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
