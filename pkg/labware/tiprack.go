package labware

import "fmt"

// TipRack is labware whose wells hold disposable tips. It tracks which
// tips have been consumed; depletion is the only labware state that
// survives across transfer plans.
type TipRack struct {
	*Labware
	tipLength float64
	used      []bool // column-major, parallel to Wells()
}

// NewTipRack builds a tip rack from a definition with a nonzero TipLength.
func NewTipRack(def Definition) (*TipRack, error) {
	if def.TipLength <= 0 {
		return nil, fmt.Errorf("labware %s is not a tip rack (tip length %.1f)", def.Name, def.TipLength)
	}
	return &TipRack{
		Labware:   New(def),
		tipLength: def.TipLength,
		used:      make([]bool, def.Rows*def.Cols),
	}, nil
}

// TipLength returns the tip length in millimeters, used by the hardware
// layer to offset motion while a tip is attached.
func (r *TipRack) TipLength() float64 { return r.tipLength }

// index maps a well to its position in the column-major used slice.
func (r *TipRack) index(w Well) int { return w.col*r.rows + w.row }

// HasTip reports whether the given well still holds a tip.
func (r *TipRack) HasTip(w Well) bool {
	if w.lab != r.Labware {
		return false
	}
	return !r.used[r.index(w)]
}

// NextTip returns the next available pickup well for a pipette with the
// given channel count, scanning columns left to right. A multi-channel
// pipette needs a fully stocked contiguous run of `channels` tips in one
// column and receives the run's top well; a single-channel pipette gets
// the first free tip in column-major order. ok is false when the rack
// cannot satisfy the request.
func (r *TipRack) NextTip(channels int) (tip Well, ok bool) {
	if channels <= 1 {
		for c := 0; c < r.cols; c++ {
			for row := 0; row < r.rows; row++ {
				w := r.WellAt(row, c)
				if !r.used[r.index(w)] {
					return w, true
				}
			}
		}
		return Well{}, false
	}
	if channels > r.rows {
		return Well{}, false
	}
	for c := 0; c < r.cols; c++ {
		for start := 0; start+channels <= r.rows; start++ {
			free := true
			for i := 0; i < channels; i++ {
				if r.used[r.index(r.WellAt(start+i, c))] {
					free = false
					break
				}
			}
			if free {
				return r.WellAt(start, c), true
			}
		}
	}
	return Well{}, false
}

// UseTips marks `channels` tips as consumed starting at the given well
// and walking down the column, mirroring how a multi-channel head seats.
func (r *TipRack) UseTips(start Well, channels int) {
	if start.lab != r.Labware {
		return
	}
	if channels < 1 {
		channels = 1
	}
	for i := 0; i < channels && start.row+i < r.rows; i++ {
		r.used[r.index(r.WellAt(start.row+i, start.col))] = true
	}
}

// ReturnTips marks tips as available again, the bookkeeping counterpart
// of dropping a tip back into its origin well.
func (r *TipRack) ReturnTips(start Well, channels int) {
	if start.lab != r.Labware {
		return
	}
	if channels < 1 {
		channels = 1
	}
	for i := 0; i < channels && start.row+i < r.rows; i++ {
		r.used[r.index(r.WellAt(start.row+i, start.col))] = false
	}
}

// Remaining counts the tips still available.
func (r *TipRack) Remaining() int {
	n := 0
	for _, u := range r.used {
		if !u {
			n++
		}
	}
	return n
}

// Refill restores every tip, e.g. after an operator replaces the rack.
func (r *TipRack) Refill() {
	for i := range r.used {
		r.used[i] = false
	}
}
