package labware

import (
	"fmt"
	"sort"
)

// TrashSlot is the deck position reserved for the fixed trash.
const TrashSlot = 12

// Deck is the robot's working surface: numbered slots each holding at
// most one piece of labware. Slot 12 is pre-loaded with the fixed trash.
type Deck struct {
	slots map[int]*Labware
	trash *Labware
}

// NewDeck builds a deck with the fixed trash installed.
func NewDeck() *Deck {
	trash := New(Definition{Name: "fixed_trash", Rows: 1, Cols: 1, WellVolume: 0, Trash: true})
	trash.slot = TrashSlot
	return &Deck{
		slots: map[int]*Labware{TrashSlot: trash},
		trash: trash,
	}
}

// Load places labware into a slot. Loading over an occupied slot is an
// error; the fixed trash cannot be displaced.
func (d *Deck) Load(lw *Labware, slot int) error {
	if slot < 1 || slot > TrashSlot {
		return fmt.Errorf("deck slot %d out of range 1-%d", slot, TrashSlot)
	}
	if occupied, ok := d.slots[slot]; ok {
		return fmt.Errorf("deck slot %d already holds %s", slot, occupied.Label())
	}
	lw.slot = slot
	d.slots[slot] = lw
	return nil
}

// LoadTipRack places a tip rack; it shares slot rules with Load.
func (d *Deck) LoadTipRack(r *TipRack, slot int) error {
	return d.Load(r.Labware, slot)
}

// At returns the labware in a slot, or nil when empty.
func (d *Deck) At(slot int) *Labware { return d.slots[slot] }

// Slots returns the occupied slot numbers in ascending order.
func (d *Deck) Slots() []int {
	out := make([]int, 0, len(d.slots))
	for s := range d.slots {
		out = append(out, s)
	}
	sort.Ints(out)
	return out
}

// Trash returns the fixed trash well, the default target for blow-outs
// and discarded tips.
func (d *Deck) Trash() Well {
	return d.trash.WellAt(0, 0)
}
