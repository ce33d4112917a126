package timeline

import (
	"errors"
	"fmt"
	"math"
)

// Hour is a whole hour of the day.
type Hour int

// Interval is a [Start, End) booking window in whole hours.
type Interval struct {
	Start Hour
	End   Hour
}

// Bounds is the day window an interval may occupy.
type Bounds struct {
	Min Hour
	Max Hour
}

// Edge names the side of an interval being edited.
type Edge int

const (
	EdgeStart Edge = iota
	EdgeEnd
)

// NewBounds validates a day window.
func NewBounds(minHour, maxHour int) (Bounds, error) {
	if minHour < 0 || maxHour > 24 {
		return Bounds{}, fmt.Errorf("bounds %d-%d outside of the day", minHour, maxHour)
	}
	if maxHour <= minHour {
		return Bounds{}, errors.New("max hour must be after min hour")
	}
	return Bounds{Min: Hour(minHour), Max: Hour(maxHour)}, nil
}

// Span is the number of hours the bounds cover.
func (b Bounds) Span() int {
	return int(b.Max - b.Min)
}

func (iv Interval) Duration() int {
	return int(iv.End - iv.Start)
}

// Valid reports whether iv sits inside b with Start < End.
func (iv Interval) Valid(b Bounds) bool {
	return b.Min <= iv.Start && iv.Start < iv.End && iv.End <= b.Max
}

func (iv Interval) Contains(h Hour) bool {
	return iv.Start <= h && h < iv.End
}

func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

func (iv Interval) String() string {
	return fmt.Sprintf("%s - %s", FormatHour(iv.Start), FormatHour(iv.End))
}

// Clamp forces iv into b, keeping Start and moving End when the two collide.
func Clamp(iv Interval, b Bounds) Interval {
	return ClampEdge(iv, b, EdgeEnd)
}

// ClampEdge forces iv into b with Start < End. The edited edge gives way when
// the edges collide: a start edit pins Start to End-1, an end edit pins End
// to Start+1.
func ClampEdge(iv Interval, b Bounds, edited Edge) Interval {
	if edited == EdgeStart {
		end := clampHour(iv.End, b.Min+1, b.Max)
		start := clampHour(iv.Start, b.Min, end-1)
		return Interval{Start: start, End: end}
	}
	start := clampHour(iv.Start, b.Min, b.Max-1)
	end := clampHour(iv.End, start+1, b.Max)
	return Interval{Start: start, End: end}
}

// PercentageOf maps an hour to its relative position in b, in [0, 1].
func PercentageOf(h Hour, b Bounds) float64 {
	span := b.Span()
	if span <= 0 {
		return 0
	}
	p := float64(h-b.Min) / float64(span)
	return math.Max(0, math.Min(1, p))
}

// HourFromPosition is the inverse of PercentageOf, rounded half-up to the
// nearest hour and clamped to b.
func HourFromPosition(rel float64, b Bounds) Hour {
	if math.IsNaN(rel) {
		rel = 0
	}
	rel = math.Max(0, math.Min(1, rel))
	h := Hour(roundHalfUp(float64(b.Min) + rel*float64(b.Span())))
	return clampHour(h, b.Min, b.Max)
}

// Translate shifts iv by delta hours. Duration is preserved; an interval
// pushed past a bound slides back inside instead of being truncated.
func Translate(iv Interval, delta int, b Bounds) Interval {
	iv = Clamp(iv, b)
	duration := Hour(iv.Duration())
	start := clampHour(iv.Start+Hour(delta), b.Min, b.Max-duration)
	return Interval{Start: start, End: start + duration}
}

// Recenter places iv so that its midpoint lands as close as possible to h.
// The left offset is floor(duration/2), so odd durations lean right of h.
func Recenter(iv Interval, h Hour, b Bounds) Interval {
	iv = Clamp(iv, b)
	duration := Hour(iv.Duration())
	start := clampHour(h-duration/2, b.Min, b.Max-duration)
	return Interval{Start: start, End: start + duration}
}

// FormatHour renders h as a 12-hour clock label, e.g. "9:00 AM".
func FormatHour(h Hour) string {
	period := "AM"
	if h >= 12 && h < 24 {
		period = "PM"
	}
	display := int(h) % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, period)
}

func clampHour(h, lo, hi Hour) Hour {
	if h < lo {
		return lo
	}
	if h > hi {
		return hi
	}
	return h
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
