package planner

import (
	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// measure is a volume bound to a location.
type measure struct {
	loc labware.Location
	vol float64
}

// group is one physical pipetting cycle: what the tip pulls in and where
// it lets it out. Transfer steps map one to one; distribute and
// consolidate fold runs of adjacent steps into a single group.
type group struct {
	aspirates []measure
	dispenses []measure
}

// liquidOut is the volume the group delivers to destinations.
func (g group) liquidOut() float64 {
	total := 0.0
	for _, m := range g.dispenses {
		total += m.vol
	}
	return total
}

// compress folds adjacent steps into groups per the mode. Distribute
// merges runs sharing a source into one aspirate and several dispenses;
// consolidate merges runs sharing a destination into several aspirates
// and one dispense. Merging never reorders steps and a group closes as
// soon as its aspirate total would exceed maxStep. The disposal volume
// counts once per distribute aspirate; consolidate does not use it.
func compress(mode domain.Mode, steps []step, disposal, maxStep float64) ([]group, error) {
	switch mode {
	case domain.ModeDistribute:
		return compressDistribute(steps, disposal, maxStep)
	case domain.ModeConsolidate:
		return compressConsolidate(steps, maxStep)
	default:
		out := make([]group, len(steps))
		for i, st := range steps {
			out[i] = group{
				aspirates: []measure{{loc: st.src, vol: st.vol}},
				dispenses: []measure{{loc: st.dst, vol: st.vol}},
			}
		}
		return out, nil
	}
}

func compressDistribute(steps []step, disposal, maxStep float64) ([]group, error) {
	var out []group
	for i := 0; i < len(steps); {
		src := steps[i].src
		if steps[i].vol+disposal > maxStep+volumeTolerance {
			return nil, domain.Configf(
				"step volume %g uL plus disposal volume %g uL exceeds the %g uL step limit",
				steps[i].vol, disposal, maxStep)
		}
		total := steps[i].vol
		dispenses := []measure{{loc: steps[i].dst, vol: steps[i].vol}}
		j := i + 1
		for j < len(steps) && steps[j].src.Equal(src) &&
			total+steps[j].vol+disposal <= maxStep+volumeTolerance {
			total += steps[j].vol
			dispenses = append(dispenses, measure{loc: steps[j].dst, vol: steps[j].vol})
			j++
		}
		out = append(out, group{
			aspirates: []measure{{loc: src, vol: total + disposal}},
			dispenses: dispenses,
		})
		i = j
	}
	return out, nil
}

func compressConsolidate(steps []step, maxStep float64) ([]group, error) {
	var out []group
	for i := 0; i < len(steps); {
		dst := steps[i].dst
		total := steps[i].vol
		aspirates := []measure{{loc: steps[i].src, vol: steps[i].vol}}
		j := i + 1
		for j < len(steps) && steps[j].dst.Equal(dst) &&
			total+steps[j].vol <= maxStep+volumeTolerance {
			total += steps[j].vol
			aspirates = append(aspirates, measure{loc: steps[j].src, vol: steps[j].vol})
			j++
		}
		out = append(out, group{
			aspirates: aspirates,
			dispenses: []measure{{loc: dst, vol: total}},
		})
		i = j
	}
	return out, nil
}
