package planner

import (
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// expandPair aligns the source and destination sequences into two
// equal-length location lists, one entry per step. The shorter side
// repeats round-robin until the lengths match.
func expandPair(src, dst domain.WellSeq, channels int) (sources, dests []labware.Location, err error) {
	sources, err = expandSide(src, channels, "source")
	if err != nil {
		return nil, nil, err
	}
	dests, err = expandSide(dst, channels, "destination")
	if err != nil {
		return nil, nil, err
	}
	switch {
	case len(sources) < len(dests):
		sources = cycle(sources, len(dests))
	case len(dests) < len(sources):
		dests = cycle(dests, len(sources))
	}
	return sources, dests, nil
}

// expandSide turns one side of the request into addressable locations.
// A multi-channel pipette keeps explicit groups as single units, one
// location per group; everything else is one location per well, with
// grouped input flattened for single-channel pipettes.
func expandSide(seq domain.WellSeq, channels int, side string) ([]labware.Location, error) {
	if seq.Empty() {
		return nil, domain.Configf("%s addresses no wells", side)
	}
	if channels > 1 && seq.Nested() {
		groups := seq.Groups()
		out := make([]labware.Location, 0, len(groups))
		for i, g := range groups {
			if len(g) == 0 {
				return nil, domain.Configf("%s group %d is empty", side, i)
			}
			for _, w := range g {
				if w.IsZero() {
					return nil, domain.Configf("%s group %d contains an unresolved well", side, i)
				}
			}
			out = append(out, labware.Group(g...))
		}
		return out, nil
	}
	wells := seq.Flatten()
	out := make([]labware.Location, 0, len(wells))
	for i, w := range wells {
		if w.IsZero() {
			return nil, domain.Configf("%s well %d is unresolved", side, i)
		}
		out = append(out, labware.At(w))
	}
	return out, nil
}

func cycle(locs []labware.Location, n int) []labware.Location {
	out := make([]labware.Location, n)
	for i := range out {
		out[i] = locs[i%len(locs)]
	}
	return out
}
