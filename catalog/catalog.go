// Package catalog projects a seat list onto what the user can see and pick:
// feature filtering, a fixed display order and a single selected seat.
package catalog

import (
	"sort"

	"libseat-cli/model"
)

// Filters are feature requirements. Every enabled filter must hold.
type Filters struct {
	PowerOutlet bool
	NearWindow  bool
}

func (f Filters) Allows(seat model.Seat) bool {
	if f.PowerOutlet && !seat.HasPowerOutlet {
		return false
	}
	if f.NearWindow && !seat.NearWindow {
		return false
	}
	return true
}

func (f Filters) Active() bool {
	return f.PowerOutlet || f.NearWindow
}

type Status int

const (
	StatusAvailable Status = iota
	StatusSelected
	StatusBooked
)

func (s Status) String() string {
	switch s {
	case StatusSelected:
		return "selected"
	case StatusBooked:
		return "booked"
	default:
		return "available"
	}
}

// Cell is one seat as drawn in the grid.
type Cell struct {
	Seat   model.Seat
	Status Status
}

// View holds the current seat list and the selected seat id (0 when none).
type View struct {
	seats    []model.Seat
	filters  Filters
	selected int
}

func New(filters Filters) *View {
	return &View{filters: filters}
}

// SetSeats replaces the seat list. The selection is left alone so a seat
// that just became booked can still be shown as the one that failed.
func (v *View) SetSeats(seats []model.Seat) {
	v.seats = append([]model.Seat(nil), seats...)
}

func (v *View) Seats() []model.Seat {
	return append([]model.Seat(nil), v.seats...)
}

func (v *View) Seat(id int) (model.Seat, bool) {
	for _, seat := range v.seats {
		if seat.Id == id {
			return seat, true
		}
	}
	return model.Seat{}, false
}

// Available returns the seats a user may pick, sorted by seat number using
// plain string comparison, so "A10" sorts before "A2".
func (v *View) Available() []model.Seat {
	out := make([]model.Seat, 0, len(v.seats))
	for _, seat := range v.seats {
		if seat.IsAvailable && v.filters.Allows(seat) {
			out = append(out, seat)
		}
	}
	sortByNumber(out)
	return out
}

// Cells returns every seat passing the filters, booked ones included, in
// the same order as Available.
func (v *View) Cells() []Cell {
	visible := make([]model.Seat, 0, len(v.seats))
	for _, seat := range v.seats {
		if v.filters.Allows(seat) {
			visible = append(visible, seat)
		}
	}
	sortByNumber(visible)

	cells := make([]Cell, 0, len(visible))
	for _, seat := range visible {
		status := StatusAvailable
		switch {
		case seat.Id == v.selected:
			status = StatusSelected
		case !seat.IsAvailable:
			status = StatusBooked
		}
		cells = append(cells, Cell{Seat: seat, Status: status})
	}
	return cells
}

// Toggle deselects the seat when it is already selected and selects it
// otherwise. Unknown, booked and filtered-out seats are ignored. It reports
// whether the selection changed.
func (v *View) Toggle(id int) bool {
	if id != 0 && id == v.selected {
		v.selected = 0
		return true
	}
	seat, ok := v.Seat(id)
	if !ok || !seat.IsAvailable || !v.filters.Allows(seat) {
		return false
	}
	v.selected = id
	return true
}

func (v *View) Selected() (model.Seat, bool) {
	if v.selected == 0 {
		return model.Seat{}, false
	}
	return v.Seat(v.selected)
}

func (v *View) SelectedID() int {
	return v.selected
}

func (v *View) Filters() Filters {
	return v.filters
}

// SetFilters swaps the active filters and drops a selection they now hide.
// It reports whether the selection was dropped.
func (v *View) SetFilters(filters Filters) bool {
	v.filters = filters
	if v.selected == 0 {
		return false
	}
	if seat, ok := v.Seat(v.selected); ok && filters.Allows(seat) {
		return false
	}
	v.selected = 0
	return true
}

// Reconcile drops a selection that is no longer an available seat in the
// current list. It reports whether the selection was dropped.
func (v *View) Reconcile() bool {
	if v.selected == 0 {
		return false
	}
	if seat, ok := v.Seat(v.selected); ok && seat.IsAvailable && v.filters.Allows(seat) {
		return false
	}
	v.selected = 0
	return true
}

func (v *View) ClearSelection() {
	v.selected = 0
}

// Clear forgets both the seat list and the selection.
func (v *View) Clear() {
	v.seats = nil
	v.selected = 0
}

// Counts returns how many listed seats are free and how many there are.
func (v *View) Counts() (available int, total int) {
	for _, seat := range v.seats {
		if seat.IsAvailable {
			available++
		}
	}
	return available, len(v.seats)
}

func sortByNumber(seats []model.Seat) {
	sort.SliceStable(seats, func(i, j int) bool {
		return seats[i].Number < seats[j].Number
	})
}
