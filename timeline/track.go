package timeline

// Region is what a pointer lands on inside the timeline.
type Region int

const (
	RegionOutside Region = iota
	RegionBackground
	RegionBody
	RegionStartHandle
	RegionEndHandle
)

func (r Region) String() string {
	switch r {
	case RegionBackground:
		return "background"
	case RegionBody:
		return "body"
	case RegionStartHandle:
		return "start-handle"
	case RegionEndHandle:
		return "end-handle"
	default:
		return "outside"
	}
}

// Track is the on-screen geometry of the timeline: the column of its first
// cell and how many cells it spans.
type Track struct {
	Left  int
	Width int
}

func (t Track) Contains(x int) bool {
	return t.Width > 0 && x >= t.Left && x < t.Left+t.Width
}

// Relative returns the position of the centre of cell x as a fraction of the
// track width. Values outside [0, 1] mean the pointer is past an end.
func (t Track) Relative(x int) float64 {
	if t.Width <= 0 {
		return 0
	}
	return (float64(x-t.Left) + 0.5) / float64(t.Width)
}

// Column is the cell offset, relative to Left, at which hour h begins.
func (t Track) Column(h Hour, b Bounds) int {
	span := b.Span()
	if t.Width <= 0 || span <= 0 {
		return 0
	}
	h = clampHour(h, b.Min, b.Max)
	return int(h-b.Min) * t.Width / span
}

// Filled returns the first and last cell offsets covered by iv. A range is
// always at least one cell wide.
func (t Track) Filled(iv Interval, b Bounds) (first, last int) {
	first = t.Column(iv.Start, b)
	last = t.Column(iv.End, b) - 1
	if first >= t.Width {
		first = t.Width - 1
	}
	if last < first {
		last = first
	}
	return first, last
}

// HitTest classifies column x. The end handle is drawn over the start handle,
// so it wins when the range is a single cell.
func (t Track) HitTest(x int, iv Interval, b Bounds) Region {
	if !t.Contains(x) {
		return RegionOutside
	}
	offset := x - t.Left
	first, last := t.Filled(iv, b)
	switch {
	case offset == last:
		return RegionEndHandle
	case offset == first:
		return RegionStartHandle
	case offset > first && offset < last:
		return RegionBody
	default:
		return RegionBackground
	}
}

// HourDelta converts a horizontal pointer displacement into whole hours.
func (t Track) HourDelta(dx int, b Bounds) int {
	if t.Width <= 0 {
		return 0
	}
	return int(roundHalfUp(float64(dx) / float64(t.Width) * float64(b.Span())))
}
