package protocol

import (
	"fmt"

	"github.com/openlh/aliquot/pkg/domain"
	"github.com/openlh/aliquot/pkg/labware"
)

// Step types a document may declare.
const (
	StepTransfer    = "transfer"
	StepDistribute  = "distribute"
	StepConsolidate = "consolidate"
)

// Document is the root of a protocol file.
// It uses "mapstructure" tags so YAML and JSON documents decode through
// the same typed path.
type Document struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description,omitempty" mapstructure:"description"`

	// Definitions registers custom labware before anything is built.
	Definitions []labware.Definition `json:"definitions,omitempty" mapstructure:"definitions"`

	Labware  []LabwareDecl `json:"labware" mapstructure:"labware"`
	Pipettes []PipetteDecl `json:"pipettes" mapstructure:"pipettes"`
	Steps    []Step        `json:"steps" mapstructure:"steps"`
}

// LabwareDecl places one catalog item into a deck slot. Tip racks are
// recognized by their definition and load as racks.
type LabwareDecl struct {
	Name  string `json:"name" mapstructure:"name"`
	Slot  int    `json:"slot" mapstructure:"slot"`
	Label string `json:"label,omitempty" mapstructure:"label"`
}

// PipetteDecl mounts one pipette model. TipRacks lists the deck slots of
// the racks it draws from, in priority order; empty means every declared
// rack, in declaration order.
type PipetteDecl struct {
	Model    string `json:"model" mapstructure:"model"`
	Mount    string `json:"mount" mapstructure:"mount"`
	TipRacks []int  `json:"tip_racks,omitempty" mapstructure:"tip_racks"`
}

// Step is one transfer, distribute or consolidate. Exactly one of
// Volume, Volumes and VolumeRange must be set. Pipette names the mount
// and may be omitted when only one pipette is declared.
type Step struct {
	Type    string `json:"type" mapstructure:"type"`
	Pipette string `json:"pipette,omitempty" mapstructure:"pipette"`

	Volume      float64     `json:"volume,omitempty" mapstructure:"volume"`
	Volumes     []float64   `json:"volumes,omitempty" mapstructure:"volumes"`
	VolumeRange *VolumeSpan `json:"volume_range,omitempty" mapstructure:"volume_range"`

	From Wells `json:"from" mapstructure:"from"`
	To   Wells `json:"to" mapstructure:"to"`

	Options StepOptions `json:"options,omitempty" mapstructure:"options"`
}

// VolumeSpan is a (low, high) gradient interpolated across the steps.
type VolumeSpan struct {
	Low  float64 `json:"low" mapstructure:"low"`
	High float64 `json:"high" mapstructure:"high"`
}

// Wells addresses one side of a step: named wells of the labware in a
// slot, or whole plate columns for multi-channel heads. Wells and
// Columns are mutually exclusive.
type Wells struct {
	Slot    int      `json:"slot" mapstructure:"slot"`
	Wells   []string `json:"wells,omitempty" mapstructure:"wells"`
	Columns []int    `json:"columns,omitempty" mapstructure:"columns"`
}

// StepOptions carries the per-step policies. Zero values mean the
// planning defaults; Carryover is a pointer so "absent" and "false"
// stay distinguishable.
type StepOptions struct {
	TipPolicy      string   `json:"tip_policy,omitempty" mapstructure:"tip_policy"`
	AirGap         float64  `json:"air_gap,omitempty" mapstructure:"air_gap"`
	Carryover      *bool    `json:"carryover,omitempty" mapstructure:"carryover"`
	DisposalVolume float64  `json:"disposal_volume,omitempty" mapstructure:"disposal_volume"`
	MixBefore      *MixDecl `json:"mix_before,omitempty" mapstructure:"mix_before"`
	MixAfter       *MixDecl `json:"mix_after,omitempty" mapstructure:"mix_after"`
	TouchTip       bool     `json:"touch_tip,omitempty" mapstructure:"touch_tip"`
	TouchTipSpeed  float64  `json:"touch_tip_speed,omitempty" mapstructure:"touch_tip_speed"`
	BlowOut        bool     `json:"blow_out,omitempty" mapstructure:"blow_out"`
	TipReturn      bool     `json:"tip_return,omitempty" mapstructure:"tip_return"`
	Rate           float64  `json:"rate,omitempty" mapstructure:"rate"`
}

// MixDecl configures one mix phase.
type MixDecl struct {
	Repetitions int     `json:"repetitions" mapstructure:"repetitions"`
	Volume      float64 `json:"volume" mapstructure:"volume"`
}

// Validate checks the document's structure. Semantic problems that need
// the catalog or deck (unknown labware, missing wells) surface when the
// document is bound to a robot.
func (d *Document) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("protocol missing name")
	}
	if len(d.Pipettes) == 0 {
		return fmt.Errorf("protocol %q declares no pipettes", d.Name)
	}
	if len(d.Steps) == 0 {
		return fmt.Errorf("protocol %q declares no steps", d.Name)
	}

	slots := make(map[int]string)
	for i, lw := range d.Labware {
		if lw.Name == "" {
			return fmt.Errorf("labware %d: missing name", i+1)
		}
		if lw.Slot < 1 || lw.Slot >= labware.TrashSlot {
			return fmt.Errorf("labware %q: slot %d out of range 1-%d",
				lw.Name, lw.Slot, labware.TrashSlot-1)
		}
		if prev, taken := slots[lw.Slot]; taken {
			return fmt.Errorf("labware %q: slot %d already holds %q", lw.Name, lw.Slot, prev)
		}
		slots[lw.Slot] = lw.Name
	}

	mounts := make(map[string]bool)
	for i, p := range d.Pipettes {
		if p.Model == "" || p.Mount == "" {
			return fmt.Errorf("pipette %d: model and mount are required", i+1)
		}
		if mounts[p.Mount] {
			return fmt.Errorf("pipette %q: mount %q declared twice", p.Model, p.Mount)
		}
		mounts[p.Mount] = true
		for _, slot := range p.TipRacks {
			if _, ok := slots[slot]; !ok {
				return fmt.Errorf("pipette %q: tip rack slot %d is not declared", p.Model, slot)
			}
		}
	}

	for i, s := range d.Steps {
		if err := s.validate(mounts, len(d.Pipettes)); err != nil {
			return fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Step) validate(mounts map[string]bool, pipettes int) error {
	switch s.Type {
	case StepTransfer, StepDistribute, StepConsolidate:
	case "":
		return fmt.Errorf("missing type")
	default:
		return fmt.Errorf("unknown type %q", s.Type)
	}

	if s.Pipette == "" && pipettes > 1 {
		return fmt.Errorf("pipette is required when several pipettes are declared")
	}
	if s.Pipette != "" && !mounts[s.Pipette] {
		return fmt.Errorf("pipette %q is not declared", s.Pipette)
	}

	forms := 0
	if s.Volume != 0 {
		forms++
	}
	if len(s.Volumes) > 0 {
		forms++
	}
	if s.VolumeRange != nil {
		forms++
	}
	if forms != 1 {
		return fmt.Errorf("exactly one of volume, volumes and volume_range must be set")
	}

	if err := s.From.validate(); err != nil {
		return fmt.Errorf("from: %w", err)
	}
	if err := s.To.validate(); err != nil {
		return fmt.Errorf("to: %w", err)
	}
	return nil
}

func (w *Wells) validate() error {
	if w.Slot == 0 {
		return fmt.Errorf("missing slot")
	}
	if len(w.Wells) > 0 && len(w.Columns) > 0 {
		return fmt.Errorf("wells and columns are mutually exclusive")
	}
	if len(w.Wells) == 0 && len(w.Columns) == 0 {
		return fmt.Errorf("wells or columns required")
	}
	return nil
}

// volumeSpec converts the document's volume form to the domain spec.
func (s *Step) volumeSpec() domain.VolumeSpec {
	switch {
	case len(s.Volumes) > 0:
		return domain.Volumes(s.Volumes...)
	case s.VolumeRange != nil:
		return domain.VolumeRange(s.VolumeRange.Low, s.VolumeRange.High)
	default:
		return domain.Volume(s.Volume)
	}
}

// transferOptions translates the declared policies into planner options.
// Value validation happens inside NewTransferOptions.
func (o StepOptions) transferOptions() []domain.TransferOption {
	var opts []domain.TransferOption
	if o.TipPolicy != "" {
		opts = append(opts, domain.WithTipPolicy(domain.TipPolicy(o.TipPolicy)))
	}
	if o.AirGap > 0 {
		opts = append(opts, domain.WithAirGap(o.AirGap))
	}
	if o.Carryover != nil {
		opts = append(opts, domain.WithCarryover(*o.Carryover))
	}
	if o.DisposalVolume > 0 {
		opts = append(opts, domain.WithDisposalVolume(o.DisposalVolume))
	}
	if o.MixBefore != nil {
		opts = append(opts, domain.WithMixBefore(o.MixBefore.Repetitions, o.MixBefore.Volume))
	}
	if o.MixAfter != nil {
		opts = append(opts, domain.WithMixAfter(o.MixAfter.Repetitions, o.MixAfter.Volume))
	}
	if o.TouchTipSpeed > 0 {
		opts = append(opts, domain.WithTouchTipSpeed(o.TouchTipSpeed))
	} else if o.TouchTip {
		opts = append(opts, domain.WithTouchTip())
	}
	if o.BlowOut {
		opts = append(opts, domain.WithBlowOut())
	}
	if o.TipReturn {
		opts = append(opts, domain.WithTipReturn())
	}
	if o.Rate > 0 {
		opts = append(opts, domain.WithRate(o.Rate))
	}
	return opts
}
