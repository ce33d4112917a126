package tui

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"

	"libseat-cli/booking"
	"libseat-cli/model"
	"libseat-cli/service"
	"libseat-cli/session"
	"libseat-cli/timeline"
)

var dayBounds = timeline.Bounds{Min: 9, Max: 18}

type testItem struct {
	value string
}

func (t testItem) Title() string       { return t.value }
func (t testItem) Description() string { return "" }
func (t testItem) FilterValue() string { return strings.ToLower(t.value) }

func setTestDirs(t *testing.T) {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)
	t.Setenv("XDG_CONFIG_HOME", root+"/config")
	t.Setenv("XDG_CACHE_HOME", root+"/cache")
}

func signedIn(t *testing.T) *session.Session {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":    3,
		"first_name": "Grace",
		"exp":        time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	sess, err := session.New(token)
	if err != nil {
		t.Fatalf("decode token: %v", err)
	}
	return sess
}

func newTestModel(t *testing.T, baseURL string, sess *session.Session) appModel {
	t.Helper()
	setTestDirs(t)
	client := service.NewClient(baseURL, sess, service.WithRateLimit(0, 0))
	return New(Deps{
		Client:         client,
		Session:        sess,
		Bounds:         dayBounds,
		Interval:       timeline.Interval{Start: 9, End: 11},
		RequestTimeout: 5 * time.Second,
	}).(appModel)
}

func newFilterModel(t *testing.T, items []list.Item) *appModel {
	m := newTestModel(t, "http://127.0.0.1:1", session.Anonymous())
	m.state = stateSelectSection
	m.sectionList = newList("Select Section")
	m.sectionList.SetItems(items)
	return &m
}

func libraryAPI(t *testing.T, bookingStatus int) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/sections/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1,"name":"Quiet Floor","description":"Silent study"}]`)
	})
	mux.HandleFunc("/api/seats/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("section_id") != "1" {
			t.Errorf("unexpected seat query %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `[
			{"id":1,"number":"A10","section":1,"is_available":true,"has_power_outlet":true},
			{"id":2,"number":"A2","section":1,"is_available":true},
			{"id":3,"number":"A1","section":1,"is_available":false}
		]`)
	})
	mux.HandleFunc("/api/bookings/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(bookingStatus)
		if bookingStatus == http.StatusConflict {
			fmt.Fprint(w, `{"detail":"Seat is already booked for this time."}`)
			return
		}
		fmt.Fprint(w, `{"id":77}`)
	})
	return mux
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	updated, ok := next.(appModel)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return updated, cmd
}

// drain runs cmd and everything it spawns, feeding data messages back into
// the model. Other messages are returned in the order they were produced.
func drain(t *testing.T, m appModel, cmd tea.Cmd) (appModel, []tea.Msg) {
	t.Helper()
	var other []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case taskMsg, sectionsMsg, errMsg:
			var more tea.Cmd
			m, more = update(t, m, msg)
			queue = append(queue, more)
		default:
			other = append(other, msg)
		}
	}
	return m, other
}

func contains(msgs []tea.Msg, want tea.Msg) bool {
	for _, msg := range msgs {
		if msg == want {
			return true
		}
	}
	return false
}

// newBookingModel walks through section and date selection against a fake API.
func newBookingModel(t *testing.T, sess *session.Session, bookingStatus int) appModel {
	t.Helper()
	server := httptest.NewServer(libraryAPI(t, bookingStatus))
	t.Cleanup(server.Close)

	m := newTestModel(t, server.URL, sess)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 40})
	m, _ = drain(t, m, m.Init())
	if m.state != stateSelectSection {
		t.Fatalf("expected section list, got state %d (err %v)", m.state, m.err)
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = drain(t, m, cmd)
	if m.state != stateSelectDate {
		t.Fatalf("expected date picker, got state %d", m.state)
	}

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = drain(t, m, cmd)
	if m.state != stateBooking {
		t.Fatalf("expected booking view, got state %d", m.state)
	}
	if got := len(m.coord.Seats().Seats()); got != 3 {
		t.Fatalf("expected 3 seats, got %d", got)
	}
	return m
}

func press(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
}

func motion(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft}
}

func release(x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft}
}

func TestHandleFilterInput_AppendsRunes(t *testing.T) {
	m := newFilterModel(t, []list.Item{
		testItem{value: "Quiet Floor"},
		testItem{value: "Group Study"},
	})

	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}) {
		t.Fatal("expected filter input to be handled")
	}
	if got := m.sectionList.FilterValue(); got != "q" {
		t.Fatalf("expected filter value to be %q, got %q", "q", got)
	}

	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("u")}) {
		t.Fatal("expected filter input to be handled")
	}
	if got := m.sectionList.FilterValue(); got != "qu" {
		t.Fatalf("expected filter value to be %q, got %q", "qu", got)
	}
}

func TestHandleFilterInput_BackspaceAndSpace(t *testing.T) {
	m := newFilterModel(t, []list.Item{
		testItem{value: "Quiet Floor"},
	})

	_ = m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	_ = m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeyBackspace}) {
		t.Fatal("expected backspace to be handled")
	}
	if got := m.sectionList.FilterValue(); got != "q" {
		t.Fatalf("expected filter value to be %q, got %q", "q", got)
	}
	if !m.handleFilterInput(tea.KeyMsg{Type: tea.KeySpace}) {
		t.Fatal("expected space to be handled")
	}
	if got := m.sectionList.FilterValue(); got != "q " {
		t.Fatalf("expected filter value to be %q, got %q", "q ", got)
	}
}

func TestHandleFilterInput_IgnoredOutsideSectionList(t *testing.T) {
	m := newFilterModel(t, nil)
	m.state = stateBooking
	if m.handleFilterInput(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")}) {
		t.Fatal("expected runes to reach the booking key map")
	}
}

func TestBuildSectionItems_RecentFirst(t *testing.T) {
	sections := []model.Section{
		{Id: 1, Name: "Quiet Floor"},
		{Id: 2, Name: "Group Study"},
		{Id: 3, Name: "Archive"},
		{Id: 4, Name: "Reading Room"},
	}
	items := buildSectionItems(sections, []int{4, 1})

	var got []string
	for _, item := range items {
		got = append(got, item.(sectionItem).section.Name)
	}
	want := []string{"Reading Room", "Quiet Floor", "Archive", "Group Study"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !items[0].(sectionItem).recent || items[2].(sectionItem).recent {
		t.Fatal("expected only recent sections to be marked")
	}
}

func TestTimelineDrag_EndHandle(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusCreated)
	track := m.editor.Track()
	if track.Left != trackLeft || track.Width != 54 {
		t.Fatalf("unexpected track geometry %+v", track)
	}
	endHandle := track.Left + 11

	m, cmd := update(t, m, press(endHandle, trackRow))
	m, msgs := drain(t, m, cmd)
	if m.editor.Mode() != timeline.ModeMovingEnd {
		t.Fatalf("expected moving-end, got %s", m.editor.Mode())
	}
	if !contains(msgs, tea.EnableMouseAllMotion()) {
		t.Fatal("expected all-motion reporting while dragging")
	}

	m, cmd = update(t, m, motion(endHandle+30, trackRow+4))
	m, _ = drain(t, m, cmd)
	if got := m.editor.Interval(); got != (timeline.Interval{Start: 9, End: 16}) {
		t.Fatalf("expected 9-16, got %v", got)
	}
	if got := m.coord.Selection().Interval; got != (timeline.Interval{Start: 9, End: 16}) {
		t.Fatalf("expected coordinator to follow the drag, got %v", got)
	}

	m, cmd = update(t, m, motion(endHandle+48, trackRow))
	m, _ = drain(t, m, cmd)
	if got := m.editor.Interval(); got != (timeline.Interval{Start: 9, End: 18}) {
		t.Fatalf("expected 9-18, got %v", got)
	}

	m, cmd = update(t, m, release(endHandle+48, trackRow))
	m, msgs = drain(t, m, cmd)
	if m.editor.Dragging() {
		t.Fatal("expected drag to end on release")
	}
	if !contains(msgs, tea.EnableMouseCellMotion()) {
		t.Fatal("expected pointer capture to be released")
	}
	if !strings.Contains(m.View(), "9:00 AM - 6:00 PM") {
		t.Fatal("expected the new interval in the view")
	}
}

func TestTimelineClick_Recenters(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusCreated)
	track := m.editor.Track()

	// Hour 15 starts at cell 36.
	m, cmd := update(t, m, press(track.Left+36, trackRow))
	m, msgs := drain(t, m, cmd)
	if m.editor.Dragging() {
		t.Fatal("background click must not start a drag")
	}
	if contains(msgs, tea.EnableMouseAllMotion()) {
		t.Fatal("background click must not capture the pointer")
	}
	if got := m.coord.Selection().Interval; got != (timeline.Interval{Start: 14, End: 16}) {
		t.Fatalf("expected 14-16, got %v", got)
	}
}

func TestBlur_CancelsDrag(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusCreated)
	track := m.editor.Track()

	m, cmd := update(t, m, press(track.Left+5, trackRow))
	m, _ = drain(t, m, cmd)
	if m.editor.Mode() != timeline.ModeMovingRange {
		t.Fatalf("expected moving-range, got %s", m.editor.Mode())
	}

	m, cmd = update(t, m, tea.BlurMsg{})
	_, msgs := drain(t, m, cmd)
	if m.editor.Dragging() {
		t.Fatal("expected blur to cancel the drag")
	}
	if !contains(msgs, tea.EnableMouseCellMotion()) {
		t.Fatal("expected pointer capture to be released on blur")
	}
}

func TestSeatClick_TogglesSelection(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusCreated)
	stride := seatCellWidth + seatGap

	// Cells are A1 (booked), A10, A2.
	m, _ = update(t, m, press(trackLeft, gridTop))
	if _, ok := m.coord.Seats().Selected(); ok {
		t.Fatal("booked seat must not be selectable")
	}

	m, _ = update(t, m, press(trackLeft+stride+1, gridTop))
	seat, ok := m.coord.Seats().Selected()
	if !ok || seat.Number != "A10" {
		t.Fatalf("expected A10 selected, got %+v", seat)
	}
	if m.coord.Phase() != booking.PhaseSeatChosen {
		t.Fatalf("expected seat-chosen, got %s", m.coord.Phase())
	}
	if !strings.Contains(m.View(), "power outlet") {
		t.Fatal("expected seat features in the view")
	}

	m, _ = update(t, m, press(trackLeft+stride+1, gridTop))
	if _, ok := m.coord.Seats().Selected(); ok {
		t.Fatal("expected second click to deselect")
	}
}

func TestSubmit_Conflict(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusConflict)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if _, ok := m.coord.Seats().Selected(); !ok {
		t.Fatal("expected tab to pick a seat")
	}

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.coord.Phase() != booking.PhaseSubmitting {
		t.Fatalf("expected submitting, got %s", m.coord.Phase())
	}
	m, _ = drain(t, m, cmd)
	if m.coord.Phase() != booking.PhaseConflict {
		t.Fatalf("expected conflict, got %s", m.coord.Phase())
	}
	if !strings.Contains(m.View(), "Seat is already booked for this time.") {
		t.Fatal("expected the conflict reason in the view")
	}
}

func TestSubmit_Confirmed(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusCreated)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m, _ = drain(t, m, cmd)
	if m.coord.Phase() != booking.PhaseConfirmed {
		t.Fatalf("expected confirmed, got %s", m.coord.Phase())
	}
	if !strings.Contains(m.View(), "Reservation #77") {
		t.Fatal("expected the reservation id in the view")
	}
}

func TestSubmit_RequiresSignIn(t *testing.T) {
	m := newBookingModel(t, session.Anonymous(), http.StatusCreated)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatal("expected no request without a credential")
	}
	if m.notice != "missing sign-in" {
		t.Fatalf("unexpected notice %q", m.notice)
	}
}

func TestHourLabels(t *testing.T) {
	labels := hourLabels(timeline.Track{Left: trackLeft, Width: 54}, dayBounds)
	for label, col := range map[string]int{"9a": 0, "11a": 12, "1p": 24, "3p": 36, "5p": 48} {
		if got := strings.Index(labels, label); got != col {
			t.Fatalf("expected %s at %d, got %d in %q", label, col, got, labels)
		}
	}
}

func TestTrackFor(t *testing.T) {
	if got := trackFor(80, dayBounds); got.Width != 54 {
		t.Fatalf("expected 6 cells per hour, got width %d", got.Width)
	}
	if got := trackFor(20, dayBounds); got.Width != 18 {
		t.Fatalf("expected 2 cells per hour, got width %d", got.Width)
	}
}

func TestSeatAt_SkipsGaps(t *testing.T) {
	m := newBookingModel(t, signedIn(t), http.StatusCreated)
	if _, ok := m.seatAt(trackLeft+seatCellWidth, gridTop); ok {
		t.Fatal("expected the gap between seats to miss")
	}
	if _, ok := m.seatAt(trackLeft, gridTop-1); ok {
		t.Fatal("expected the title row to miss")
	}
	if _, ok := m.seatAt(trackLeft, gridTop+1); ok {
		t.Fatal("expected the empty second row to miss")
	}
}

func TestShortHour(t *testing.T) {
	cases := map[timeline.Hour]string{0: "12a", 9: "9a", 12: "12p", 13: "1p", 24: "12a"}
	for h, want := range cases {
		if got := shortHour(h); got != want {
			t.Fatalf("shortHour(%d): expected %q, got %q", h, want, got)
		}
	}
}
