package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libseat-cli/model"
)

func seat(id int, number string, available bool) model.Seat {
	return model.Seat{Id: id, Number: number, SectionId: 1, IsAvailable: available}
}

func numbers(seats []model.Seat) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.Number)
	}
	return out
}

func TestAvailable_SortsByStringNotNumber(t *testing.T) {
	v := New(Filters{})
	v.SetSeats([]model.Seat{seat(1, "A10", true), seat(2, "A2", true), seat(3, "A1", true)})

	assert.Equal(t, []string{"A1", "A10", "A2"}, numbers(v.Available()))
}

func TestAvailable_StableForEqualNumbers(t *testing.T) {
	v := New(Filters{})
	v.SetSeats([]model.Seat{seat(7, "B1", true), seat(3, "A1", true), seat(5, "B1", true)})

	got := v.Available()
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 7, 5}, []int{got[0].Id, got[1].Id, got[2].Id})
}

func TestAvailable_FiltersAreConjunctive(t *testing.T) {
	outlet := seat(1, "A1", true)
	outlet.HasPowerOutlet = true
	window := seat(2, "A2", true)
	window.NearWindow = true
	both := seat(3, "A3", true)
	both.HasPowerOutlet, both.NearWindow = true, true
	bookedBoth := seat(4, "A4", false)
	bookedBoth.HasPowerOutlet, bookedBoth.NearWindow = true, true

	v := New(Filters{PowerOutlet: true, NearWindow: true})
	v.SetSeats([]model.Seat{outlet, window, both, bookedBoth, seat(5, "A5", true)})

	assert.Equal(t, []string{"A3"}, numbers(v.Available()))

	v.SetFilters(Filters{PowerOutlet: true})
	assert.Equal(t, []string{"A1", "A3"}, numbers(v.Available()))

	v.SetFilters(Filters{})
	assert.Equal(t, []string{"A1", "A2", "A3", "A5"}, numbers(v.Available()))
}

func TestToggle(t *testing.T) {
	v := New(Filters{})
	v.SetSeats([]model.Seat{seat(1, "A1", true), seat(2, "A2", true), seat(3, "A3", false)})

	assert.True(t, v.Toggle(1))
	assert.Equal(t, 1, v.SelectedID())

	assert.True(t, v.Toggle(2), "a different seat replaces the selection")
	assert.Equal(t, 2, v.SelectedID())

	assert.False(t, v.Toggle(3), "booked seats cannot be selected")
	assert.Equal(t, 2, v.SelectedID())

	assert.False(t, v.Toggle(99))
	assert.Equal(t, 2, v.SelectedID())

	assert.True(t, v.Toggle(2), "selecting the selected seat deselects it")
	_, ok := v.Selected()
	assert.False(t, ok)
}

func TestSetFilters_DropsHiddenSelection(t *testing.T) {
	plain := seat(1, "A1", true)
	outlet := seat(2, "A2", true)
	outlet.HasPowerOutlet = true

	v := New(Filters{})
	v.SetSeats([]model.Seat{plain, outlet})
	require.True(t, v.Toggle(2))

	assert.False(t, v.SetFilters(Filters{PowerOutlet: true}))
	assert.Equal(t, 2, v.SelectedID())

	v.SetFilters(Filters{})
	require.True(t, v.Toggle(1))
	assert.True(t, v.SetFilters(Filters{PowerOutlet: true}))
	assert.Zero(t, v.SelectedID())
}

func TestCells_MarksBookedAndSelected(t *testing.T) {
	v := New(Filters{})
	v.SetSeats([]model.Seat{seat(1, "A2", false), seat(2, "A1", true), seat(3, "A3", true)})
	require.True(t, v.Toggle(3))

	cells := v.Cells()
	require.Len(t, cells, 3)
	assert.Equal(t, "A1", cells[0].Seat.Number)
	assert.Equal(t, StatusAvailable, cells[0].Status)
	assert.Equal(t, StatusBooked, cells[1].Status)
	assert.Equal(t, StatusSelected, cells[2].Status)
}

func TestSetSeats_KeepsSelectionUntilReconciled(t *testing.T) {
	v := New(Filters{})
	v.SetSeats([]model.Seat{seat(1, "A1", true)})
	require.True(t, v.Toggle(1))

	v.SetSeats([]model.Seat{seat(1, "A1", false)})
	assert.Equal(t, 1, v.SelectedID())
	assert.Equal(t, StatusSelected, v.Cells()[0].Status)

	assert.True(t, v.Reconcile())
	assert.Zero(t, v.SelectedID())

	available, total := v.Counts()
	assert.Equal(t, 0, available)
	assert.Equal(t, 1, total)

	v.Clear()
	assert.Empty(t, v.Seats())
}
