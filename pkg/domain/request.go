package domain

import "github.com/openlh/aliquot/pkg/labware"

// VolumeSpec describes the volume side of a transfer request: one volume
// for every step, an explicit per-step list, or a (low, high) range
// interpolated across the steps by the options' gradient function.
type VolumeSpec struct {
	kind   volumeKind
	values []float64
}

type volumeKind int

const (
	volumeScalar volumeKind = iota
	volumeList
	volumeRange
)

// Volume requests the same volume for every step.
func Volume(v float64) VolumeSpec {
	return VolumeSpec{kind: volumeScalar, values: []float64{v}}
}

// Volumes requests one explicit volume per step. The list length must
// match the paired step count exactly.
func Volumes(values ...float64) VolumeSpec {
	cp := make([]float64, len(values))
	copy(cp, values)
	return VolumeSpec{kind: volumeList, values: cp}
}

// VolumeRange requests volumes interpolated from low to high across the
// steps through the gradient function.
func VolumeRange(low, high float64) VolumeSpec {
	return VolumeSpec{kind: volumeRange, values: []float64{low, high}}
}

// IsList reports whether the spec is an explicit per-step list.
func (v VolumeSpec) IsList() bool { return v.kind == volumeList }

// IsRange reports whether the spec is an interpolated range.
func (v VolumeSpec) IsRange() bool { return v.kind == volumeRange }

// Single returns the scalar volume. Zero for non-scalar specs.
func (v VolumeSpec) Single() float64 {
	if v.kind != volumeScalar || len(v.values) == 0 {
		return 0
	}
	return v.values[0]
}

// List returns the per-step volumes of a list spec.
func (v VolumeSpec) List() []float64 {
	if v.kind != volumeList {
		return nil
	}
	cp := make([]float64, len(v.values))
	copy(cp, v.values)
	return cp
}

// Range returns the (low, high) bounds of a range spec.
func (v VolumeSpec) Range() (low, high float64) {
	if v.kind != volumeRange {
		return 0, 0
	}
	return v.values[0], v.values[1]
}

// WellSeq describes one side of a transfer: a single well, a flat
// sequence of wells, or explicit multi-well groups.
type WellSeq struct {
	groups [][]labware.Well
	nested bool
}

// OneWell addresses a single well.
func OneWell(w labware.Well) WellSeq {
	return WellSeq{groups: [][]labware.Well{{w}}}
}

// EachWell addresses the given wells one step at a time.
func EachWell(wells ...labware.Well) WellSeq {
	groups := make([][]labware.Well, len(wells))
	for i, w := range wells {
		groups[i] = []labware.Well{w}
	}
	return WellSeq{groups: groups}
}

// ColumnGroups addresses explicit well groups. A multi-channel pipette
// treats each group as one addressable unit; a single-channel pipette
// flattens the groups back into individual wells.
func ColumnGroups(groups ...[]labware.Well) WellSeq {
	cp := make([][]labware.Well, len(groups))
	for i, g := range groups {
		cp[i] = make([]labware.Well, len(g))
		copy(cp[i], g)
	}
	return WellSeq{groups: cp, nested: true}
}

// Nested reports whether the sequence was built from explicit groups.
func (s WellSeq) Nested() bool { return s.nested }

// Groups returns the well groups, one per prospective step.
func (s WellSeq) Groups() [][]labware.Well { return s.groups }

// Flatten returns every well in order, groups unrolled.
func (s WellSeq) Flatten() []labware.Well {
	var out []labware.Well
	for _, g := range s.groups {
		out = append(out, g...)
	}
	return out
}

// Empty reports whether the sequence addresses no wells at all.
func (s WellSeq) Empty() bool {
	for _, g := range s.groups {
		if len(g) > 0 {
			return false
		}
	}
	return true
}
