// Package booking drives a seat reservation from the first section pick to
// the server's verdict. All methods must be called from one goroutine, the
// UI event loop; network work is handed back as Tasks to run elsewhere.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"libseat-cli/catalog"
	"libseat-cli/model"
	"libseat-cli/service"
	"libseat-cli/session"
	"libseat-cli/timeline"
)

const (
	requestLayout = "2006-01-02T15:04:05"
	queryDate     = "2006-01-02"
)

// API is the part of the booking service the coordinator calls.
type API interface {
	ListSeats(ctx context.Context, query model.SeatQuery) ([]model.Seat, error)
	CreateBooking(ctx context.Context, req model.BookingRequest) (int, error)
}

type Phase int

const (
	PhaseNoSelection Phase = iota
	PhaseSectionChosen
	PhaseDateChosen
	PhaseIntervalChosen
	PhaseSeatChosen
	PhaseSubmitting
	PhaseConfirmed
	PhaseConflict
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseSectionChosen:
		return "section-chosen"
	case PhaseDateChosen:
		return "date-chosen"
	case PhaseIntervalChosen:
		return "interval-chosen"
	case PhaseSeatChosen:
		return "seat-chosen"
	case PhaseSubmitting:
		return "submitting"
	case PhaseConfirmed:
		return "confirmed"
	case PhaseConflict:
		return "conflict"
	case PhaseFailed:
		return "failed"
	default:
		return "no-selection"
	}
}

// Selection is what the user intends to book. Zero values mean unset.
type Selection struct {
	SectionId   int
	Date        time.Time
	Interval    timeline.Interval
	HasInterval bool
	SeatId      int
}

type OutcomeKind int

const (
	OutcomeNone OutcomeKind = iota
	OutcomeConfirmed
	OutcomeConflict
	OutcomeFailure
)

// Outcome is the verdict of the last submission.
type Outcome struct {
	Kind          OutcomeKind
	ReservationId int
	Reason        string
}

// Task performs one network call off the event loop. Its Result must be
// passed back to Apply.
type Task func(ctx context.Context) Result

type resultKind int

const (
	fetchResult resultKind = iota + 1
	submitResult
)

// Result carries the output of a Task.
type Result struct {
	kind          resultKind
	seq           uint64
	seats         []model.Seat
	reservationId int
	err           error
}

// Options configure a Coordinator. A zero Interval leaves the interval
// unchosen.
type Options struct {
	Bounds   timeline.Bounds
	Interval timeline.Interval
	Filters  catalog.Filters
	Logger   *zap.Logger
}

type Coordinator struct {
	api     API
	sess    *session.Session
	logger  *zap.Logger
	bounds  timeline.Bounds
	phase   Phase
	sel     Selection
	view    *catalog.View
	outcome Outcome

	fetchSeq  uint64
	submitSeq uint64
	loading   bool
	fetchErr  error
}

// New builds a coordinator. sess is the explicit auth context; a nil
// session is treated as signed out.
func New(api API, sess *session.Session, opts Options) *Coordinator {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Coordinator{
		api:    api,
		sess:   sess,
		logger: logger.Named("booking"),
		bounds: opts.Bounds,
		view:   catalog.New(opts.Filters),
	}
	if opts.Interval != (timeline.Interval{}) {
		c.sel.Interval = timeline.Clamp(opts.Interval, opts.Bounds)
		c.sel.HasInterval = true
	}
	c.settle()
	return c
}

func (c *Coordinator) Phase() Phase { return c.phase }

func (c *Coordinator) Selection() Selection {
	sel := c.sel
	sel.SeatId = c.view.SelectedID()
	return sel
}

func (c *Coordinator) Outcome() Outcome { return c.outcome }

// Seats is the catalog projection of the current seat list.
func (c *Coordinator) Seats() *catalog.View { return c.view }

func (c *Coordinator) Bounds() timeline.Bounds { return c.bounds }

// Loading reports whether the latest seat fetch is still outstanding.
func (c *Coordinator) Loading() bool { return c.loading }

// FetchErr is the error of the latest seat fetch, if it failed.
func (c *Coordinator) FetchErr() error { return c.fetchErr }

func (c *Coordinator) CanSubmit() bool {
	return c.phase == PhaseSeatChosen || (c.phase == PhaseFailed && c.view.SelectedID() != 0)
}

// ChooseSection selects a section, dropping the seat list and seat.
func (c *Coordinator) ChooseSection(sectionID int) Task {
	if c.phase == PhaseSubmitting || sectionID == 0 || sectionID == c.sel.SectionId {
		return nil
	}
	c.sel.SectionId = sectionID
	c.view.Clear()
	return c.revised()
}

// ChooseDate selects the calendar day of day, dropping the seat list and seat.
func (c *Coordinator) ChooseDate(day time.Time) Task {
	if c.phase == PhaseSubmitting || day.IsZero() {
		return nil
	}
	y, m, d := day.Date()
	day = time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	if day.Equal(c.sel.Date) {
		return nil
	}
	c.sel.Date = day
	c.view.Clear()
	return c.revised()
}

// ChooseInterval revises the time window. The seat is dropped and the seat
// list refetched; the old list stays visible until the new one arrives.
func (c *Coordinator) ChooseInterval(iv timeline.Interval) Task {
	if c.phase == PhaseSubmitting {
		return nil
	}
	iv = timeline.Clamp(iv, c.bounds)
	if c.sel.HasInterval && iv == c.sel.Interval {
		return nil
	}
	c.sel.Interval = iv
	c.sel.HasInterval = true
	c.view.ClearSelection()
	return c.revised()
}

// ToggleSeat selects or deselects a seat. It reports whether the selection
// changed.
func (c *Coordinator) ToggleSeat(seatID int) bool {
	if c.phase == PhaseSubmitting || !c.ready() {
		return false
	}
	if !c.view.Toggle(seatID) {
		return false
	}
	c.outcome = Outcome{}
	c.settle()
	return true
}

// SetFilters changes the feature filters. A selection they hide is dropped.
func (c *Coordinator) SetFilters(filters catalog.Filters) {
	if c.phase == PhaseSubmitting {
		return
	}
	if c.view.SetFilters(filters) {
		c.outcome = Outcome{}
		c.settle()
	}
}

// Refresh refetches the seat list for the current selection.
func (c *Coordinator) Refresh() Task {
	if c.phase == PhaseSubmitting {
		return nil
	}
	return c.fetch()
}

// Submit validates the selection and returns the task that books it. While a
// submission is in flight it returns nil, nil.
func (c *Coordinator) Submit() (Task, error) {
	if c.phase == PhaseSubmitting {
		return nil, nil
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	seat, _ := c.view.Selected()
	req := BuildRequest(seat.Id, c.sel.Date, c.sel.Interval)

	c.submitSeq++
	seq := c.submitSeq
	c.phase = PhaseSubmitting
	c.outcome = Outcome{}
	c.logger.Info("submitting booking",
		zap.Int("seat_id", req.SeatId),
		zap.String("start", req.StartTime),
		zap.String("end", req.EndTime),
		zap.Int("user_id", c.sess.User().Id),
	)

	api := c.api
	return func(ctx context.Context) Result {
		id, err := api.CreateBooking(ctx, req)
		return Result{kind: submitResult, seq: seq, reservationId: id, err: err}
	}, nil
}

// Apply folds a task result into the state. Superseded results return
// ErrStaleResponse and change nothing. A conflict returns a follow-up fetch
// so the seat shows as booked.
func (c *Coordinator) Apply(r Result) (Task, error) {
	switch r.kind {
	case fetchResult:
		return nil, c.applyFetch(r)
	case submitResult:
		return c.applySubmit(r)
	default:
		return nil, errors.New("unknown result")
	}
}

func (c *Coordinator) applyFetch(r Result) error {
	if r.seq != c.fetchSeq {
		c.logger.Debug("discarding stale seat list", zap.Uint64("seq", r.seq), zap.Uint64("latest", c.fetchSeq))
		return ErrStaleResponse
	}
	c.loading = false
	if r.err != nil {
		c.fetchErr = &TransportError{Err: r.err}
		c.logger.Warn("seat fetch failed", zap.Error(r.err))
		return c.fetchErr
	}
	c.fetchErr = nil
	c.view.SetSeats(r.seats)
	switch c.phase {
	case PhaseIntervalChosen, PhaseSeatChosen, PhaseFailed:
		if c.view.Reconcile() {
			c.settle()
		}
	}
	return nil
}

func (c *Coordinator) applySubmit(r Result) (Task, error) {
	if r.seq != c.submitSeq || c.phase != PhaseSubmitting {
		c.logger.Debug("discarding stale booking result", zap.Uint64("seq", r.seq))
		return nil, ErrStaleResponse
	}
	switch {
	case r.err == nil:
		c.phase = PhaseConfirmed
		c.outcome = Outcome{Kind: OutcomeConfirmed, ReservationId: r.reservationId}
		c.logger.Info("booking confirmed", zap.Int("reservation_id", r.reservationId))
		return c.fetch(), nil
	case service.IsConflict(r.err):
		reason := conflictReason(r.err)
		c.phase = PhaseConflict
		c.outcome = Outcome{Kind: OutcomeConflict, Reason: reason}
		c.logger.Info("booking conflict", zap.String("reason", reason))
		return c.fetch(), &ConflictError{Reason: reason}
	default:
		c.phase = PhaseFailed
		c.outcome = Outcome{Kind: OutcomeFailure, Reason: r.err.Error()}
		c.logger.Warn("booking failed", zap.Error(r.err))
		return nil, &TransportError{Err: r.err}
	}
}

func (c *Coordinator) validate() error {
	var missing []string
	if c.sel.SectionId == 0 {
		missing = append(missing, "section")
	}
	if c.sel.Date.IsZero() {
		missing = append(missing, "date")
	}
	if !c.sel.HasInterval {
		missing = append(missing, "time")
	}
	if c.view.SelectedID() == 0 {
		missing = append(missing, "seat")
	}
	if !c.sess.Authenticated() {
		missing = append(missing, "sign-in")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}

	switch c.phase {
	case PhaseConflict:
		return &ValidationError{Reason: "pick another seat or time"}
	case PhaseConfirmed:
		return &ValidationError{Reason: "this booking is already confirmed"}
	}
	if seat, ok := c.view.Selected(); !ok || !seat.IsAvailable {
		return &ValidationError{Reason: "the selected seat is no longer available"}
	}
	return nil
}

// revised clears the outcome after an upstream choice changed and starts a
// fetch when the selection allows one.
func (c *Coordinator) revised() Task {
	c.outcome = Outcome{}
	c.fetchErr = nil
	c.settle()
	return c.fetch()
}

func (c *Coordinator) ready() bool {
	return c.sel.SectionId != 0 && !c.sel.Date.IsZero() && c.sel.HasInterval
}

func (c *Coordinator) fetch() Task {
	if !c.ready() {
		// Invalidate anything still in flight for an older selection.
		c.fetchSeq++
		c.loading = false
		return nil
	}
	c.fetchSeq++
	seq := c.fetchSeq
	c.loading = true
	query := model.SeatQuery{
		SectionId: c.sel.SectionId,
		Date:      c.sel.Date.Format(queryDate),
		StartTime: fmt.Sprintf("%02d:00", c.sel.Interval.Start),
		EndTime:   fmt.Sprintf("%02d:00", c.sel.Interval.End),
	}
	c.logger.Debug("fetching seats",
		zap.Uint64("seq", seq),
		zap.Int("section_id", query.SectionId),
		zap.String("date", query.Date),
		zap.String("window", c.sel.Interval.String()),
	)

	api := c.api
	return func(ctx context.Context) Result {
		seats, err := api.ListSeats(ctx, query)
		return Result{kind: fetchResult, seq: seq, seats: seats, err: err}
	}
}

// settle derives the pre-submission phase from the selection.
func (c *Coordinator) settle() {
	switch {
	case c.sel.SectionId == 0:
		c.phase = PhaseNoSelection
	case c.sel.Date.IsZero():
		c.phase = PhaseSectionChosen
	case !c.sel.HasInterval:
		c.phase = PhaseDateChosen
	case c.view.SelectedID() == 0:
		c.phase = PhaseIntervalChosen
	default:
		c.phase = PhaseSeatChosen
	}
}

// BuildRequest combines a calendar day with the interval edges into local
// date-times with zero seconds. Hour 24 rolls over to midnight of the next day.
func BuildRequest(seatID int, day time.Time, iv timeline.Interval) model.BookingRequest {
	y, m, d := day.Date()
	loc := day.Location()
	start := time.Date(y, m, d, int(iv.Start), 0, 0, 0, loc)
	end := time.Date(y, m, d, int(iv.End), 0, 0, 0, loc)
	return model.BookingRequest{
		SeatId:    seatID,
		StartTime: start.Format(requestLayout),
		EndTime:   end.Format(requestLayout),
	}
}

func conflictReason(err error) string {
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	return err.Error()
}
