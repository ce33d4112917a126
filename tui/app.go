package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"libseat-cli/booking"
	"libseat-cli/catalog"
	"libseat-cli/model"
	"libseat-cli/service"
	"libseat-cli/session"
	"libseat-cli/store"
	"libseat-cli/timeline"
)

type appState int

const (
	stateLoadingSections appState = iota
	stateSelectSection
	stateSelectDate
	stateBooking
	stateError
)

const (
	headerLines = 3
	// Screen rows of the booking view, counted from the top of the terminal.
	trackRow  = headerLines + 3
	seatsRow  = trackRow + 2
	gridTop   = seatsRow + 1
	trackLeft = 2

	minCellsPerHour = 2
	maxCellsPerHour = 6
	seatCellWidth   = 5
	seatGap         = 1
	dateChoices     = 7
)

// Deps are the collaborators the TUI is built from.
type Deps struct {
	Client         *service.Client
	Session        *session.Session
	Logger         *zap.Logger
	Bounds         timeline.Bounds
	Interval       timeline.Interval
	RequestTimeout time.Duration
}

type appModel struct {
	client  *service.Client
	sess    *session.Session
	logger  *zap.Logger
	coord   *booking.Coordinator
	editor  *timeline.Editor
	fx      *effects
	timeout time.Duration

	state     appState
	lastState appState
	err       error

	width  int
	height int

	sections []model.Section
	section  model.Section
	date     time.Time

	sectionList list.Model
	dateList    list.Model

	spinner spinner.Model
	help    help.Model
	keys    keyMap

	notice string
}

type errMsg struct {
	err error
}

type sectionsMsg struct {
	sections []model.Section
	err      error
}

type taskMsg struct {
	result booking.Result
}

// effects collects commands raised by callbacks that run inside Update.
type effects struct {
	cmds []tea.Cmd
}

func (e *effects) add(cmd tea.Cmd) {
	if cmd != nil {
		e.cmds = append(e.cmds, cmd)
	}
}

func (e *effects) drain() []tea.Cmd {
	cmds := e.cmds
	e.cmds = nil
	return cmds
}

// mouseCapture switches the terminal to report every pointer motion while a
// drag is in progress and back to press/drag reporting when it ends.
type mouseCapture struct {
	fx *effects
}

func (c mouseCapture) Capture() { c.fx.add(tea.EnableMouseAllMotion) }

func (c mouseCapture) Release() { c.fx.add(tea.EnableMouseCellMotion) }

func New(deps Deps) tea.Model {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := deps.RequestTimeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	saved, err := store.LoadSeatFilters()
	if err != nil {
		logger.Warn("load seat filters", zap.Error(err))
	}

	fx := &effects{}
	coord := booking.New(deps.Client, deps.Session, booking.Options{
		Bounds:   deps.Bounds,
		Interval: deps.Interval,
		Filters:  catalog.Filters{PowerOutlet: saved.PowerOutlet, NearWindow: saved.NearWindow},
		Logger:   logger,
	})
	editor := timeline.NewEditor(deps.Interval, deps.Bounds, func(iv timeline.Interval) {
		fx.add(startTask(coord.ChooseInterval(iv), timeout))
	})
	editor.SetCapture(mouseCapture{fx: fx})
	editor.SetTrack(trackFor(0, deps.Bounds))

	m := appModel{
		client:  deps.Client,
		sess:    deps.Session,
		logger:  logger,
		coord:   coord,
		editor:  editor,
		fx:      fx,
		timeout: timeout,
		state:   stateLoadingSections,
		date:    truncateDate(time.Now()),
		keys:    defaultKeys(),
		help:    help.New(),
	}

	m.sectionList = newList("Select Section")
	m.dateList = newList("Select Date")
	m.dateList.SetFilteringEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	m.spinner = sp

	return m
}

func (m appModel) Init() tea.Cmd {
	return tea.Batch(m.fetchSectionsCmd(), m.spinner.Tick)
}

// Update dispatches msg and then flushes the commands that editor and
// capture callbacks queued while it ran.
func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	next, cmd := m.update(msg)
	pending := m.fx.drain()
	if len(pending) == 0 {
		return next, cmd
	}
	if m.coord.Loading() {
		pending = append(pending, m.spinner.Tick)
	}
	return next, tea.Batch(append(pending, cmd)...)
}

func (m appModel) update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.resizeLists()
		m.editor.SetTrack(trackFor(m.width, m.coord.Bounds()))
		return m, nil

	case tea.BlurMsg:
		m.editor.Cancel()
		return m, nil

	case tea.MouseMsg:
		if m.state == stateBooking {
			return m.handleMouse(msg)
		}

	case tea.KeyMsg:
		if m.handleFilterInput(msg) {
			return m, nil
		}
		next, cmd, handled := m.handleKey(msg)
		if handled {
			return next, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.isLoading() {
			return m, cmd
		}
		return m, nil

	case errMsg:
		m.err = msg.err
		m.lastState = recoverStateFrom(m.state)
		m.state = stateError
		return m, nil

	case sectionsMsg:
		if msg.err != nil {
			return m, errCmd(msg.err)
		}
		m.sections = msg.sections
		m.sectionList.SetItems(buildSectionItems(msg.sections, recentSections()))
		m.state = stateSelectSection
		return m, nil

	case taskMsg:
		return m.applyTask(msg)
	}

	var cmd tea.Cmd
	switch m.state {
	case stateSelectSection:
		m.sectionList, cmd = m.sectionList.Update(msg)
	case stateSelectDate:
		m.dateList, cmd = m.dateList.Update(msg)
	}
	return m, cmd
}

func (m appModel) applyTask(msg taskMsg) (tea.Model, tea.Cmd) {
	follow, err := m.coord.Apply(msg.result)
	if errors.Is(err, booking.ErrStaleResponse) {
		return m, nil
	}
	if m.coord.Phase() != booking.PhaseSubmitting && !m.editor.Dragging() {
		m.editor.SetInterval(m.coord.Selection().Interval)
	}

	switch {
	case err == nil:
	case errors.As(err, new(*booking.ConflictError)), errors.As(err, new(*booking.TransportError)):
		// Rendered from the coordinator's outcome and fetch error.
		m.notice = ""
	default:
		m.notice = err.Error()
	}
	return m, m.startTask(follow)
}

func (m appModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if msg.Y == trackRow && m.canEditTime() {
			m.notice = ""
			m.editor.PointerDown(msg.X)
			return m, nil
		}
		if id, ok := m.seatAt(msg.X, msg.Y); ok {
			if m.coord.ToggleSeat(id) {
				m.notice = ""
			}
		}
	case tea.MouseActionMotion:
		m.editor.PointerMove(msg.X)
	case tea.MouseActionRelease:
		if m.editor.Dragging() {
			m.editor.PointerUp()
			m.editor.SetInterval(m.coord.Selection().Interval)
		}
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit, true
	}

	switch m.state {
	case stateBooking:
		return m.handleBookingKey(msg)
	case stateError:
		switch msg.String() {
		case "q":
			return m, tea.Quit, true
		case "esc":
			m.state = m.lastState
			return m, nil, true
		case "r":
			if m.lastState == stateLoadingSections || len(m.sections) == 0 {
				m.state = stateLoadingSections
				return m, tea.Batch(m.fetchSectionsCmd(), m.spinner.Tick), true
			}
		}
		return m, nil, true
	case stateSelectSection:
		if msg.String() == "esc" {
			if m.sectionList.SettingFilter() || m.sectionList.IsFiltered() {
				m.sectionList.ResetFilter()
				return m, nil, true
			}
			if m.coord.Phase() >= booking.PhaseIntervalChosen {
				m.state = stateBooking
			}
			return m, nil, true
		}
		if msg.Type == tea.KeyEnter {
			item, ok := m.sectionList.SelectedItem().(sectionItem)
			if !ok {
				return m, nil, true
			}
			m.section = item.section
			if err := store.RememberSection(item.section.Id); err != nil {
				m.logger.Warn("remember section", zap.Error(err))
			}
			cmd := m.startTask(m.coord.ChooseSection(item.section.Id))
			if m.coord.Phase() == booking.PhaseSectionChosen {
				m.openDatePicker()
				return m, cmd, true
			}
			m.state = stateBooking
			return m, cmd, true
		}
	case stateSelectDate:
		switch msg.String() {
		case "q":
			return m, tea.Quit, true
		case "esc":
			if m.coord.Phase() == booking.PhaseSectionChosen {
				m.state = stateSelectSection
			} else {
				m.state = stateBooking
			}
			return m, nil, true
		}
		if msg.Type == tea.KeyEnter {
			item, ok := m.dateList.SelectedItem().(dateItem)
			if !ok {
				return m, nil, true
			}
			m.date = item.date
			m.state = stateBooking
			return m, m.startTask(m.coord.ChooseDate(item.date)), true
		}
	}
	return m, nil, false
}

func (m appModel) handleBookingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		return m, tea.Quit, true
	case key.Matches(msg, k.Section):
		m.state = stateSelectSection
		return m, nil, true
	case key.Matches(msg, k.Date):
		m.openDatePicker()
		return m, nil, true
	case key.Matches(msg, k.EarlierRange):
		m.nudge(timeline.ModeMovingRange, -1)
	case key.Matches(msg, k.LaterRange):
		m.nudge(timeline.ModeMovingRange, 1)
	case key.Matches(msg, k.StartEarlier):
		m.nudge(timeline.ModeMovingStart, -1)
	case key.Matches(msg, k.StartLater):
		m.nudge(timeline.ModeMovingStart, 1)
	case key.Matches(msg, k.EndEarlier):
		m.nudge(timeline.ModeMovingEnd, -1)
	case key.Matches(msg, k.EndLater):
		m.nudge(timeline.ModeMovingEnd, 1)
	case key.Matches(msg, k.NextSeat):
		m.cycleSeat(1)
	case key.Matches(msg, k.PrevSeat):
		m.cycleSeat(-1)
	case key.Matches(msg, k.Outlet):
		filters := m.coord.Seats().Filters()
		filters.PowerOutlet = !filters.PowerOutlet
		m.setFilters(filters)
	case key.Matches(msg, k.Window):
		filters := m.coord.Seats().Filters()
		filters.NearWindow = !filters.NearWindow
		m.setFilters(filters)
	case key.Matches(msg, k.Refresh):
		return m, m.startTask(m.coord.Refresh()), true
	case key.Matches(msg, k.Submit):
		if m.editor.Dragging() {
			return m, nil, true
		}
		task, err := m.coord.Submit()
		if err != nil {
			m.notice = err.Error()
			return m, nil, true
		}
		m.notice = ""
		return m, m.startTask(task), true
	default:
		return m, nil, false
	}
	return m, nil, true
}

func (m *appModel) nudge(mode timeline.Mode, delta int) {
	if !m.canEditTime() {
		return
	}
	m.notice = ""
	m.editor.Step(mode, delta)
}

func (m appModel) canEditTime() bool {
	return m.coord.Phase() != booking.PhaseSubmitting
}

// cycleSeat moves the selection to the next or previous available seat.
func (m *appModel) cycleSeat(dir int) {
	seats := m.coord.Seats().Available()
	if len(seats) == 0 {
		return
	}
	current := -1
	for i, seat := range seats {
		if seat.Id == m.coord.Selection().SeatId {
			current = i
			break
		}
	}
	next := 0
	if current >= 0 {
		next = (current + dir + len(seats)) % len(seats)
	} else if dir < 0 {
		next = len(seats) - 1
	}
	if m.coord.ToggleSeat(seats[next].Id) {
		m.notice = ""
	}
}

func (m *appModel) setFilters(filters catalog.Filters) {
	m.coord.SetFilters(filters)
	if err := store.SaveSeatFilters(store.SeatFilters{PowerOutlet: filters.PowerOutlet, NearWindow: filters.NearWindow}); err != nil {
		m.logger.Warn("save seat filters", zap.Error(err))
	}
}

func (m *appModel) openDatePicker() {
	m.state = stateSelectDate
	m.dateList.SetItems(buildDateItems(time.Now()))
	for i, item := range m.dateList.Items() {
		if d, ok := item.(dateItem); ok && isSameDay(d.date, m.date) {
			m.dateList.Select(i)
			break
		}
	}
}

func (m appModel) View() string {
	header := m.headerView()
	switch m.state {
	case stateLoadingSections:
		return header + "\n\n" + m.loadingView()
	case stateSelectSection:
		return header + "\n\n" + m.sectionList.View()
	case stateSelectDate:
		return header + "\n\n" + m.dateList.View()
	case stateBooking:
		return header + "\n\n" + m.bookingView()
	case stateError:
		return header + "\n\n" + lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(m.err.Error()) + "\n\n" + hint("Press r to retry, esc to go back or ctrl+c to quit.")
	default:
		return header
	}
}

// headerView is always exactly headerLines tall so mouse rows stay fixed.
func (m appModel) headerView() string {
	title := lipgloss.NewStyle().Bold(true).Render("Library Seats")
	sub := []string{}
	if m.sess.Authenticated() {
		sub = append(sub, "Welcome, "+m.sess.User().DisplayName())
	} else {
		sub = append(sub, "Not signed in (run libseat login)")
	}
	if m.section.Name != "" {
		sub = append(sub, fmt.Sprintf("Section: %s", m.section.Name))
	}
	if sel := m.coord.Selection(); !sel.Date.IsZero() {
		sub = append(sub, fmt.Sprintf("Date: %s", sel.Date.Format(time.DateOnly)))
	}
	meta := lipgloss.NewStyle().Faint(true).Render(strings.Join(sub, " • "))

	hints := "ctrl+c quit • type to filter • enter select"
	switch m.state {
	case stateSelectDate:
		hints = "ctrl+c quit • esc back • enter select date"
	case stateBooking:
		return title + "\n" + meta + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
	case stateError:
		hints = "ctrl+c quit • esc back • r retry"
	}
	return title + "\n" + meta + "\n" + hint(hints)
}

func (m appModel) loadingView() string {
	return fmt.Sprintf("%s %s\n\n%s", m.spinner.View(), "Loading sections", hint("Fetching data..."))
}

func (m appModel) isLoading() bool {
	if m.state == stateLoadingSections {
		return true
	}
	return m.state == stateBooking && (m.coord.Loading() || m.coord.Phase() == booking.PhaseSubmitting)
}

func (m *appModel) resizeLists() {
	if m.width == 0 || m.height == 0 {
		return
	}
	h := m.height - 6
	if h < 6 {
		h = 6
	}
	m.sectionList.SetSize(m.width, h)
	m.dateList.SetSize(m.width, h)
}

func (m *appModel) handleFilterInput(msg tea.KeyMsg) bool {
	if m.state != stateSelectSection || !m.sectionList.FilteringEnabled() {
		return false
	}
	listPtr := &m.sectionList
	switch msg.Type {
	case tea.KeyRunes:
		if len(msg.Runes) == 0 {
			return false
		}
		listPtr.SetFilterText(listPtr.FilterValue() + string(msg.Runes))
		return true
	case tea.KeySpace:
		listPtr.SetFilterText(listPtr.FilterValue() + " ")
		return true
	case tea.KeyBackspace, tea.KeyDelete:
		value := listPtr.FilterValue()
		if value == "" {
			return false
		}
		value = trimLastRune(value)
		if value == "" {
			listPtr.ResetFilter()
			return true
		}
		listPtr.SetFilterText(value)
		return true
	default:
		return false
	}
}

// startTask runs a booking task off the event loop and reports its result
// back as a taskMsg.
func startTask(task booking.Task, timeout time.Duration) tea.Cmd {
	if task == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return taskMsg{result: task(ctx)}
	}
}

func (m appModel) startTask(task booking.Task) tea.Cmd {
	cmd := startTask(task, m.timeout)
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, m.spinner.Tick)
}

func (m appModel) fetchSectionsCmd() tea.Cmd {
	client, timeout, logger := m.client, m.timeout, m.logger
	return func() tea.Msg {
		cached, fresh, cacheErr := store.LoadSectionCache()
		if cacheErr == nil && fresh && len(cached) > 0 {
			return sectionsMsg{sections: cached}
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		sections, err := client.ListSections(ctx)
		if err != nil {
			if len(cached) > 0 {
				logger.Warn("using stale section cache", zap.Error(err))
				return sectionsMsg{sections: cached}
			}
			return sectionsMsg{err: fmt.Errorf("load sections: %w", err)}
		}
		if len(sections) == 0 {
			return sectionsMsg{err: errors.New("the library has no sections yet")}
		}
		if err := store.SaveSectionCache(sections); err != nil {
			logger.Warn("save section cache", zap.Error(err))
		}
		return sectionsMsg{sections: sections}
	}
}

func recentSections() []int {
	recent, err := store.LoadRecentSections()
	if err != nil {
		return nil
	}
	return recent
}

func newList(title string) list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = title
	l.Filter = caseInsensitiveFilter
	l.SetFilteringEnabled(true)
	l.SetShowFilter(true)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	return l
}

func hint(text string) string {
	return lipgloss.NewStyle().Faint(true).Render(text)
}

func errCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return errMsg{err: err}
	}
}

func recoverStateFrom(state appState) appState {
	switch state {
	case stateLoadingSections, stateError:
		return stateLoadingSections
	default:
		return state
	}
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func trimLastRune(value string) string {
	runes := []rune(value)
	if len(runes) <= 1 {
		return ""
	}
	return string(runes[:len(runes)-1])
}

func caseInsensitiveFilter(term string, targets []string) []list.Rank {
	term = strings.ToLower(term)
	lower := make([]string, len(targets))
	for i, t := range targets {
		lower[i] = strings.ToLower(t)
	}
	return list.DefaultFilter(term, lower)
}

type sectionItem struct {
	section model.Section
	recent  bool
}

func (s sectionItem) Title() string {
	if s.recent {
		return s.section.Name + " • recent"
	}
	return s.section.Name
}

func (s sectionItem) Description() string {
	return s.section.Description
}

func (s sectionItem) FilterValue() string {
	return strings.ToLower(s.section.Name)
}

// buildSectionItems lists recently used sections first, most recent first,
// then the rest by name.
func buildSectionItems(sections []model.Section, recent []int) []list.Item {
	rank := make(map[int]int, len(recent))
	for i, id := range recent {
		rank[id] = i + 1
	}
	items := make([]list.Item, 0, len(sections))
	for _, section := range sections {
		items = append(items, sectionItem{section: section, recent: rank[section.Id] > 0})
	}
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].(sectionItem), items[j].(sectionItem)
		ra, rb := rank[a.section.Id], rank[b.section.Id]
		switch {
		case ra > 0 && rb > 0:
			return ra < rb
		case ra > 0 || rb > 0:
			return ra > 0
		default:
			return strings.ToLower(a.section.Name) < strings.ToLower(b.section.Name)
		}
	})
	return items
}

type dateItem struct {
	date time.Time
}

func (d dateItem) Title() string {
	if isSameDay(d.date, time.Now()) {
		return fmt.Sprintf("%s • %s (Today)", d.date.Format("Mon"), d.date.Format("Jan 2"))
	}
	return fmt.Sprintf("%s • %s", d.date.Format("Mon"), d.date.Format("Jan 2"))
}

func (d dateItem) Description() string {
	return d.date.Format(time.DateOnly)
}

func (d dateItem) FilterValue() string {
	return d.Title()
}

func buildDateItems(base time.Time) []list.Item {
	start := truncateDate(base)
	items := make([]list.Item, 0, dateChoices)
	for i := 0; i < dateChoices; i++ {
		items = append(items, dateItem{date: start.AddDate(0, 0, i)})
	}
	return items
}

func isSameDay(a time.Time, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
