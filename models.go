package aliquot

import (
	"sort"

	"github.com/openlh/aliquot/pkg/domain"
)

// Model describes a pipette head: its channel count and the volume
// envelope a single tip can hold.
type Model struct {
	Name      string  `json:"name" yaml:"name"`
	Channels  int     `json:"channels" yaml:"channels"`
	MinVolume float64 `json:"min_volume_ul" yaml:"min_volume_ul"`
	MaxVolume float64 `json:"max_volume_ul" yaml:"max_volume_ul"`
}

// models are the pipette heads every robot knows. Multi heads share the
// single-channel volume envelope across eight nozzles.
var models = map[string]Model{
	"p10_single":   {Name: "p10_single", Channels: 1, MinVolume: 1, MaxVolume: 10},
	"p10_multi":    {Name: "p10_multi", Channels: 8, MinVolume: 1, MaxVolume: 10},
	"p50_single":   {Name: "p50_single", Channels: 1, MinVolume: 5, MaxVolume: 50},
	"p50_multi":    {Name: "p50_multi", Channels: 8, MinVolume: 5, MaxVolume: 50},
	"p300_single":  {Name: "p300_single", Channels: 1, MinVolume: 30, MaxVolume: 300},
	"p300_multi":   {Name: "p300_multi", Channels: 8, MinVolume: 30, MaxVolume: 300},
	"p1000_single": {Name: "p1000_single", Channels: 1, MinVolume: 100, MaxVolume: 1000},
}

// LookupModel resolves a pipette model by name.
func LookupModel(name string) (Model, error) {
	m, ok := models[name]
	if !ok {
		return Model{}, domain.Configf("unknown pipette model %q", name)
	}
	return m, nil
}

// Models returns every known pipette model, sorted by name.
func Models() []Model {
	out := make([]Model, 0, len(models))
	for _, m := range models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
