package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"libseat-cli/booking"
	"libseat-cli/catalog"
	"libseat-cli/timeline"
)

var (
	trackBackgroundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	trackBodyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	trackHandleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("63")).Bold(true)
	trackActiveStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Bold(true)

	seatStyleAvailable = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	seatStyleSelected  = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14")).Bold(true)
	seatStyleBooked    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Faint(true)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// bookingView renders the timeline on row trackRow and the seat grid from
// row gridTop, counting the header and the blank line after it.
func (m appModel) bookingView() string {
	iv := m.editor.Interval()
	b := m.editor.Bounds()
	t := m.editor.Track()
	pad := strings.Repeat(" ", trackLeft)

	title := fmt.Sprintf("Time  %s (%dh)", iv.String(), iv.Duration())
	if m.editor.Dragging() {
		title += hint("  dragging " + m.editor.Mode().String())
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Render(title),
		pad + hint(hourLabels(t, b)),
		pad + renderTrack(iv, b, t, m.editor.Mode()),
		"",
		m.seatsTitle(),
	}
	lines = append(lines, m.seatGrid()...)
	lines = append(lines, "")
	lines = append(lines, m.selectionLine())
	if status := m.statusView(); status != "" {
		lines = append(lines, "", status)
	}
	if m.notice != "" {
		lines = append(lines, "", warnStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

// trackFor fits whole cells per hour into the terminal width.
func trackFor(width int, b timeline.Bounds) timeline.Track {
	span := b.Span()
	if span <= 0 {
		return timeline.Track{Left: trackLeft}
	}
	per := maxCellsPerHour
	if width > 0 {
		per = min(max((width-2*trackLeft)/span, minCellsPerHour), maxCellsPerHour)
	}
	return timeline.Track{Left: trackLeft, Width: per * span}
}

func renderTrack(iv timeline.Interval, b timeline.Bounds, t timeline.Track, mode timeline.Mode) string {
	first, last := t.Filled(iv, b)
	hourCols := make(map[int]bool, b.Span()+1)
	for h := b.Min; h <= b.Max; h++ {
		hourCols[t.Column(h, b)] = true
	}

	startStyle, endStyle := trackHandleStyle, trackHandleStyle
	switch mode {
	case timeline.ModeMovingStart:
		startStyle = trackActiveStyle
	case timeline.ModeMovingEnd:
		endStyle = trackActiveStyle
	}

	var sb strings.Builder
	for off := 0; off < t.Width; off++ {
		switch {
		case off == last:
			sb.WriteString(endStyle.Render("]"))
		case off == first:
			sb.WriteString(startStyle.Render("["))
		case off > first && off < last:
			if mode == timeline.ModeMovingRange {
				sb.WriteString(trackActiveStyle.Render("="))
			} else {
				sb.WriteString(trackBodyStyle.Render("█"))
			}
		case hourCols[off]:
			sb.WriteString(trackBackgroundStyle.Render("┼"))
		default:
			sb.WriteString(trackBackgroundStyle.Render("─"))
		}
	}
	return sb.String()
}

// hourLabels places a short label every two hours, skipping labels that
// would collide with the previous one.
func hourLabels(t timeline.Track, b timeline.Bounds) string {
	line := []rune(strings.Repeat(" ", t.Width+4))
	next := 0
	for h := b.Min; h <= b.Max; h += 2 {
		label := []rune(shortHour(h))
		col := t.Column(h, b)
		if col < next || col+len(label) > len(line) {
			continue
		}
		copy(line[col:], label)
		next = col + len(label) + 1
	}
	return strings.TrimRight(string(line), " ")
}

func shortHour(h timeline.Hour) string {
	hour := int(h) % 24
	suffix := "a"
	if hour >= 12 {
		suffix = "p"
	}
	hour %= 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d%s", hour, suffix)
}

func (m appModel) seatsTitle() string {
	view := m.coord.Seats()
	filters := view.Filters()
	available, total := view.Counts()
	parts := []string{
		lipgloss.NewStyle().Bold(true).Render("Seats"),
		fmt.Sprintf("%d of %d free", available, total),
		"outlet " + onOff(filters.PowerOutlet),
		"window " + onOff(filters.NearWindow),
	}
	title := strings.Join(parts, " • ")
	if m.coord.Loading() {
		title += " " + m.spinner.View()
	}
	return title
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func (m appModel) seatGrid() []string {
	if err := m.coord.FetchErr(); err != nil {
		return []string{errStyle.Render("Could not load seats: " + err.Error()), hint("Press r to retry.")}
	}
	cells := m.coord.Seats().Cells()
	if len(cells) == 0 {
		if m.coord.Loading() {
			return []string{m.spinner.View() + " Loading seats"}
		}
		if m.coord.Seats().Filters().Active() {
			return []string{hint("No seats match the filters.")}
		}
		return []string{hint("No seats in this section.")}
	}

	cols := gridColumns(m.width)
	pad := strings.Repeat(" ", trackLeft)
	var rows []string
	for start := 0; start < len(cells); start += cols {
		end := min(start+cols, len(cells))
		parts := make([]string, 0, end-start)
		for _, cell := range cells[start:end] {
			parts = append(parts, renderSeat(cell))
		}
		rows = append(rows, pad+strings.Join(parts, strings.Repeat(" ", seatGap)))
	}
	return rows
}

func renderSeat(cell catalog.Cell) string {
	text := padCell(cell.Seat.Number, seatCellWidth)
	switch cell.Status {
	case catalog.StatusSelected:
		return seatStyleSelected.Render(text)
	case catalog.StatusBooked:
		return seatStyleBooked.Render(text)
	default:
		return seatStyleAvailable.Render(text)
	}
}

func gridColumns(width int) int {
	if width <= 0 {
		return 10
	}
	return max(1, (width-trackLeft+seatGap)/(seatCellWidth+seatGap))
}

// seatAt maps a screen cell to the seat drawn there.
func (m appModel) seatAt(x int, y int) (int, bool) {
	if m.coord.FetchErr() != nil {
		return 0, false
	}
	row := y - gridTop
	rel := x - trackLeft
	if row < 0 || rel < 0 {
		return 0, false
	}
	stride := seatCellWidth + seatGap
	if rel%stride >= seatCellWidth {
		return 0, false
	}
	cols := gridColumns(m.width)
	col := rel / stride
	if col >= cols {
		return 0, false
	}
	cells := m.coord.Seats().Cells()
	idx := row*cols + col
	if idx >= len(cells) {
		return 0, false
	}
	return cells[idx].Seat.Id, true
}

func (m appModel) selectionLine() string {
	seat, ok := m.coord.Seats().Selected()
	if !ok {
		return hint("Click a seat or press tab to pick one.")
	}
	parts := []string{"Selected: " + seat.Number}
	if seat.HasPowerOutlet {
		parts = append(parts, "power outlet")
	}
	if seat.NearWindow {
		parts = append(parts, "window")
	}
	return strings.Join(parts, " • ")
}

func (m appModel) statusView() string {
	outcome := m.coord.Outcome()
	switch m.coord.Phase() {
	case booking.PhaseSubmitting:
		return m.spinner.View() + " Booking seat..."
	case booking.PhaseConfirmed:
		seat, _ := m.coord.Seats().Selected()
		return okStyle.Render(fmt.Sprintf("Booked! Reservation #%d for seat %s, %s.", outcome.ReservationId, seat.Number, m.coord.Selection().Interval)) +
			"\n" + hint("Run libseat bookings to see your QR code.")
	case booking.PhaseConflict:
		return warnStyle.Render("That seat is already booked for this time: "+outcome.Reason) +
			"\n" + hint("Pick another seat or change the time.")
	case booking.PhaseFailed:
		return errStyle.Render("Booking failed: "+outcome.Reason) +
			"\n" + hint("Press enter to try again.")
	}
	return ""
}

func padCell(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if text == "" {
		return strings.Repeat(" ", width)
	}
	if len(text) >= width {
		return text[:width]
	}
	padding := width - len(text)
	left := padding / 2
	right := padding - left
	return strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
}
