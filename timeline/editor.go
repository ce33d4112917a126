package timeline

// Mode is the drag state of an Editor.
type Mode int

const (
	ModeIdle Mode = iota
	ModeMovingStart
	ModeMovingEnd
	ModeMovingRange
)

func (m Mode) String() string {
	switch m {
	case ModeMovingStart:
		return "moving-start"
	case ModeMovingEnd:
		return "moving-end"
	case ModeMovingRange:
		return "moving-range"
	default:
		return "idle"
	}
}

// PointerCapture is attached when a drag begins and released when it ends,
// so pointer tracking lives exactly as long as the drag session.
type PointerCapture interface {
	Capture()
	Release()
}

type dragSession struct {
	mode    Mode
	anchorX int
	origin  Interval
}

// Editor turns pointer gestures on a Track into Interval edits.
//
// Every accepted edit is reported synchronously through the change callback;
// edits that clamp to the current interval are not reported.
type Editor struct {
	bounds   Bounds
	track    Track
	interval Interval
	onChange func(Interval)
	capture  PointerCapture
	drag     *dragSession
}

// NewEditor returns an idle editor holding iv clamped to b.
func NewEditor(iv Interval, b Bounds, onChange func(Interval)) *Editor {
	return &Editor{
		bounds:   b,
		interval: Clamp(iv, b),
		onChange: onChange,
	}
}

func (e *Editor) Interval() Interval { return e.interval }

func (e *Editor) Bounds() Bounds { return e.bounds }

func (e *Editor) Track() Track { return e.track }

// SetTrack updates the on-screen geometry, e.g. after a resize.
func (e *Editor) SetTrack(t Track) { e.track = t }

func (e *Editor) SetCapture(pc PointerCapture) { e.capture = pc }

func (e *Editor) SetOnChange(fn func(Interval)) { e.onChange = fn }

func (e *Editor) Mode() Mode {
	if e.drag == nil {
		return ModeIdle
	}
	return e.drag.mode
}

func (e *Editor) Dragging() bool { return e.drag != nil }

// SetInterval replaces the interval from the owner side. It does not notify.
func (e *Editor) SetInterval(iv Interval) {
	e.interval = Clamp(iv, e.bounds)
}

// PointerDown starts a drag on a handle or the range body, or recenters the
// range on a background click. It reports whether the press hit the track.
// A press while a drag is active is ignored.
func (e *Editor) PointerDown(x int) bool {
	if e.drag != nil {
		return false
	}
	switch e.track.HitTest(x, e.interval, e.bounds) {
	case RegionStartHandle:
		e.enter(ModeMovingStart, x)
	case RegionEndHandle:
		e.enter(ModeMovingEnd, x)
	case RegionBody:
		e.enter(ModeMovingRange, x)
	case RegionBackground:
		clicked := HourFromPosition(e.track.Relative(x), e.bounds)
		e.commit(Recenter(e.interval, clicked, e.bounds))
	default:
		return false
	}
	return true
}

// PointerMove applies the displacement since the drag began to the interval
// captured at drag start. It reports whether a new interval was committed.
func (e *Editor) PointerMove(x int) bool {
	if e.drag == nil {
		return false
	}
	delta := e.track.HourDelta(x-e.drag.anchorX, e.bounds)
	return e.commit(e.candidate(e.drag.mode, e.drag.origin, delta))
}

// PointerUp ends the drag. The last committed interval stands.
func (e *Editor) PointerUp() {
	e.exit()
}

// Cancel ends the drag when the pointer is lost, e.g. the window lost focus.
func (e *Editor) Cancel() {
	e.exit()
}

// Step nudges the interval by delta hours using the same edge policy as a
// drag. It is a no-op while a drag is active.
func (e *Editor) Step(mode Mode, delta int) bool {
	if e.drag != nil || mode == ModeIdle {
		return false
	}
	return e.commit(e.candidate(mode, e.interval, delta))
}

func (e *Editor) candidate(mode Mode, origin Interval, delta int) Interval {
	switch mode {
	case ModeMovingStart:
		return ClampEdge(Interval{Start: origin.Start + Hour(delta), End: origin.End}, e.bounds, EdgeStart)
	case ModeMovingEnd:
		return ClampEdge(Interval{Start: origin.Start, End: origin.End + Hour(delta)}, e.bounds, EdgeEnd)
	case ModeMovingRange:
		return Translate(origin, delta, e.bounds)
	default:
		return e.interval
	}
}

func (e *Editor) commit(next Interval) bool {
	if next == e.interval {
		return false
	}
	e.interval = next
	if e.onChange != nil {
		e.onChange(next)
	}
	return true
}

func (e *Editor) enter(mode Mode, x int) {
	e.drag = &dragSession{mode: mode, anchorX: x, origin: e.interval}
	if e.capture != nil {
		e.capture.Capture()
	}
}

func (e *Editor) exit() {
	if e.drag == nil {
		return
	}
	e.drag = nil
	if e.capture != nil {
		e.capture.Release()
	}
}
