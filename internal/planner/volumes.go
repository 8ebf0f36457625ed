package planner

import (
	"math"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// volumeTolerance absorbs float drift in carryover sums and budget checks.
const volumeTolerance = 1e-9

// expandVolumes resolves the volume spec into exactly one volume per step.
// A list spec must match the step count; a range spec interpolates through
// the gradient function; a scalar repeats. Non-positive volumes anywhere
// fail the build, never get dropped.
func expandVolumes(spec domain.VolumeSpec, steps int, gradient domain.GradientFn) ([]float64, error) {
	if steps < 1 {
		return nil, domain.Configf("no transfer steps to assign volumes to")
	}
	var out []float64
	switch {
	case spec.IsList():
		out = spec.List()
		if len(out) != steps {
			return nil, domain.Configf("got %d volumes for %d transfer steps", len(out), steps)
		}
	case spec.IsRange():
		low, high := spec.Range()
		out = make([]float64, steps)
		if steps == 1 {
			out[0] = low
			break
		}
		span := high - low
		for i := range out {
			t := float64(i) / float64(steps-1)
			out[i] = low + gradient(t)*span
		}
	default:
		out = make([]float64, steps)
		for i := range out {
			out[i] = spec.Single()
		}
	}
	for i, v := range out {
		if v <= 0 {
			return nil, domain.Configf("step %d volume must be positive, got %g", i, v)
		}
	}
	return out, nil
}

// step is one logical liquid movement before compression.
type step struct {
	src labware.Location
	dst labware.Location
	vol float64
}

// expandCarryover splits steps whose volume exceeds maxStep into
// ceil(vol/maxStep) equal sub-steps between the same locations, summing
// back to the original volume. With carryover disabled an oversized
// volume fails the build instead.
func expandCarryover(steps []step, maxStep float64, enabled bool) ([]step, error) {
	out := make([]step, 0, len(steps))
	for i, st := range steps {
		if st.vol <= maxStep+volumeTolerance {
			out = append(out, st)
			continue
		}
		if !enabled {
			return nil, domain.Configf(
				"step %d volume %g uL exceeds the %g uL step limit and carryover is disabled",
				i, st.vol, maxStep)
		}
		parts := int(math.Ceil(st.vol / maxStep))
		each := st.vol / float64(parts)
		for p := 0; p < parts; p++ {
			out = append(out, step{src: st.src, dst: st.dst, vol: each})
		}
	}
	return out, nil
}
