package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harshit-mishr/sky-scrapper/internal/core"
	"github.com/harshit-mishr/sky-scrapper/internal/currency"
	"github.com/harshit-mishr/sky-scrapper/internal/output"
	"github.com/harshit-mishr/sky-scrapper/internal/prefs"
)

type mode int

const (
	modeResults mode = iota
	modePicker
	modeDate
)

type pickTarget int

const (
	pickOrigin pickTarget = iota
	pickDestination
)

var sortCycle = []core.SortOption{core.SortByPrice, core.SortByDuration, core.SortByDeparture}

type (
	stateMsg      struct{}
	airportsMsg   []core.Airport
	searchDoneMsg struct {
		result *core.SearchResult
		err    error
	}
)

type Options struct {
	// Context bounds searches started from the UI. Defaults to Background.
	Context      context.Context
	Logger       *slog.Logger
	Store        *core.Store
	Orchestrator *core.Orchestrator
	Prefs        *prefs.Prefs
	Currency     currency.Currency
	Dark         bool
	Debounce     time.Duration
	Request      core.FlightSearchRequest
	OriginName   string
	DestName     string
}

// Model browses the store's derived view and drives new searches.
type Model struct {
	store  *core.Store
	orch   *core.Orchestrator
	prefs  *prefs.Prefs
	lookup *core.AirportLookup
	ctx    context.Context
	log    *slog.Logger

	stateCh    chan struct{}
	airportsCh chan []core.Airport
	unsub      func()

	state       core.FlightState
	req         core.FlightSearchRequest
	originName  string
	destName    string
	currency    currency.Currency
	dark        bool
	theme       theme
	airlineIdx  int
	showChart   bool
	cursor      int
	offset      int
	width       int
	height      int
	mode        mode
	target      pickTarget
	input       textinput.Model
	suggestions []core.Airport
	suggestIdx  int
	status      string
	quitting    bool
}

func NewModel(opts Options) Model {
	if opts.Store == nil {
		opts.Store = core.NewStore()
	}
	if !currency.Valid(opts.Currency) {
		opts.Currency = currency.Reference
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	in := textinput.New()
	in.CharLimit = 64

	m := Model{
		store:      opts.Store,
		orch:       opts.Orchestrator,
		prefs:      opts.Prefs,
		ctx:        opts.Context,
		log:        opts.Logger,
		stateCh:    make(chan struct{}, 16),
		airportsCh: make(chan []core.Airport, 4),
		req:        opts.Request,
		originName: opts.OriginName,
		destName:   opts.DestName,
		currency:   opts.Currency,
		dark:       opts.Dark,
		theme:      newTheme(opts.Dark),
		airlineIdx: -1,
		input:      in,
		width:      120,
		height:     30,
	}

	stateCh := m.stateCh
	m.unsub = m.store.Subscribe(func(core.FlightState) {
		select {
		case stateCh <- struct{}{}:
		default:
		}
	})

	if m.orch != nil {
		airportsCh := m.airportsCh
		m.lookup = core.NewAirportLookup(m.orch,
			core.WithDebounce(opts.Debounce),
			core.OnResults(func(a []core.Airport) {
				select {
				case airportsCh <- a:
				default:
				}
			}),
		)
	}

	m.state = m.store.State()
	return m
}

// Close releases the store subscription and any pending airport lookup.
func (m Model) Close() {
	if m.unsub != nil {
		m.unsub()
	}
	if m.lookup != nil {
		m.lookup.Close()
	}
}

func waitForState(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return stateMsg{}
	}
}

func waitForAirports(ch <-chan []core.Airport) tea.Cmd {
	return func() tea.Msg {
		return airportsMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForState(m.stateCh), waitForAirports(m.airportsCh))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampOffset()
		return m, nil

	case stateMsg:
		m.refresh()
		return m, waitForState(m.stateCh)

	case airportsMsg:
		if m.mode == modePicker {
			m.suggestions = msg
			m.suggestIdx = 0
		}
		return m, waitForAirports(m.airportsCh)

	case searchDoneMsg:
		return m.searchDone(msg), nil

	case tea.KeyMsg:
		switch m.mode {
		case modePicker:
			return m.updatePicker(msg)
		case modeDate:
			return m.updateDate(msg)
		default:
			return m.updateResults(msg)
		}
	}
	return m, nil
}

func (m *Model) refresh() {
	m.state = m.store.State()
	airlines := core.UniqueAirlines(m.state.Flights)
	if m.airlineIdx >= len(airlines) {
		m.airlineIdx = -1
	}
	if m.cursor >= len(m.state.Filtered) {
		m.cursor = max(0, len(m.state.Filtered)-1)
	}
	m.clampOffset()
}

func (m Model) updateResults(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.clampOffset()
		}

	case "down", "j":
		if m.cursor < len(m.state.Filtered)-1 {
			m.cursor++
			m.clampOffset()
		}

	case "s":
		m.store.SetSortBy(nextSort(m.state.SortBy))

	case "0", "1", "2":
		m.store.PatchFilters(core.WithStops(toggleStop(m.state.Filters.Stops, core.StopBucket(msg.String()[0]-'0'))...))

	case "a":
		airlines := core.UniqueAirlines(m.state.Flights)
		m.airlineIdx++
		if m.airlineIdx >= len(airlines) {
			m.airlineIdx = -1
		}
		if m.airlineIdx < 0 {
			m.store.PatchFilters(core.WithAirlines())
		} else {
			m.store.PatchFilters(core.WithAirlines(airlines[m.airlineIdx]))
		}

	case "-", "+", "=":
		m.adjustMaxPrice(msg.String() == "-")

	case "r":
		m.airlineIdx = -1
		m.store.ResetFilters()

	case "c":
		m.currency = currency.Next(m.currency)
		if m.prefs != nil {
			if err := m.prefs.SetCurrency(m.currency); err != nil {
				m.status = "could not save currency: " + err.Error()
			}
		}

	case "t":
		m.dark = !m.dark
		m.theme = newTheme(m.dark)
		if m.prefs != nil {
			if err := m.prefs.SetDarkMode(m.dark); err != nil {
				m.status = "could not save theme: " + err.Error()
			}
		}

	case "g":
		m.showChart = !m.showChart

	case "o", "d":
		if m.lookup == nil {
			m.status = "airport lookup unavailable"
			return m, nil
		}
		m.target = pickOrigin
		if msg.String() == "d" {
			m.target = pickDestination
		}
		m.lookup.Clear()
		m.suggestions = nil
		m.input.Placeholder = "city or airport code"
		m.input.SetValue("")
		m.mode = modePicker
		return m, m.input.Focus()

	case "e":
		m.input.Placeholder = "YYYY-MM-DD"
		m.input.SetValue(m.req.DepartDate)
		m.input.CursorEnd()
		m.mode = modeDate
		return m, m.input.Focus()

	case "enter":
		return m.startSearch()
	}

	m.refresh()
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.lookup.Clear()
		m.input.Blur()
		m.mode = modeResults
		return m, nil

	case "up":
		if m.suggestIdx > 0 {
			m.suggestIdx--
		}
		return m, nil

	case "down":
		if m.suggestIdx < len(m.suggestions)-1 {
			m.suggestIdx++
		}
		return m, nil

	case "enter":
		var ap core.Airport
		switch {
		case len(m.suggestions) > 0:
			ap = m.suggestions[m.suggestIdx]
		case len(strings.TrimSpace(m.input.Value())) == 3:
			ap = core.Airport{IATACode: strings.ToUpper(strings.TrimSpace(m.input.Value()))}
		default:
			return m, nil
		}
		m.lookup.Select(ap)
		m.input.SetValue(m.lookup.Query())
		if m.target == pickOrigin {
			m.req.From, m.originName = ap.IATACode, ap.Name
		} else {
			m.req.To, m.destName = ap.IATACode, ap.Name
		}
		m.status = m.lookup.Query()
		m.suggestions = nil
		m.input.Blur()
		m.mode = modeResults
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.lookup.SetQuery(m.input.Value())
	if m.lookup.State() == core.LookupIdle {
		m.suggestions = nil
	}
	return m, cmd
}

func (m Model) updateDate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.mode = modeResults
		return m, nil
	case "enter":
		v := strings.TrimSpace(m.input.Value())
		if _, err := time.Parse("2006-01-02", v); err != nil {
			m.status = "date must be YYYY-MM-DD"
			return m, nil
		}
		m.req.DepartDate = v
		m.input.Blur()
		m.mode = modeResults
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startSearch() (tea.Model, tea.Cmd) {
	if m.orch == nil {
		m.status = "search unavailable"
		return m, nil
	}
	req := m.req
	orch := m.orch
	ctx := m.ctx
	m.status = fmt.Sprintf("Searching %s to %s...", req.From, req.To)
	return m, func() tea.Msg {
		res, err := orch.Search(ctx, req)
		return searchDoneMsg{result: res, err: err}
	}
}

func (m Model) searchDone(msg searchDoneMsg) Model {
	if msg.err != nil {
		m.status = core.UserMessage(msg.err)
		m.refresh()
		return m
	}
	if msg.result == nil || msg.result.Stale {
		return m
	}
	m.status = fmt.Sprintf("%d flights from %s", msg.result.TotalFound, strings.Join(msg.result.Providers, ", "))
	if m.prefs != nil {
		if _, err := m.prefs.SaveSearch(msg.result.Query, m.originName, m.destName); err != nil {
			m.log.Warn("prefs.save_search_failed", "error", err.Error())
		}
	}
	m.cursor = 0
	m.offset = 0
	m.refresh()
	return m
}

func (m *Model) adjustMaxPrice(lower bool) {
	full, ok := core.PriceRangeOf(m.state.Flights)
	if !ok {
		return
	}
	step := (full.Max - full.Min) / 10
	if step <= 0 {
		step = 1
	}
	cur := m.state.Filters.PriceRange
	next := cur.Max + step
	if lower {
		next = cur.Max - step
	}
	next = min(max(next, cur.Min), full.Max)
	m.store.PatchFilters(core.WithPriceRange(cur.Min, next))
}

func nextSort(cur core.SortOption) core.SortOption {
	for i, s := range sortCycle {
		if s == cur {
			return sortCycle[(i+1)%len(sortCycle)]
		}
	}
	return sortCycle[0]
}

func toggleStop(stops []core.StopBucket, b core.StopBucket) []core.StopBucket {
	out := make([]core.StopBucket, 0, len(stops)+1)
	found := false
	for _, s := range stops {
		if s == b {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, b)
	}
	return out
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderTitle() + "\n")
	b.WriteString(m.renderFilters() + "\n")

	switch {
	case m.state.Loading:
		b.WriteString(m.theme.dim.Render("  Searching...") + "\n")
	case m.state.Error != "":
		b.WriteString(m.theme.errorText.Render("  "+m.state.Error) + "\n")
	default:
		b.WriteString("\n")
	}

	if m.mode == modePicker {
		b.WriteString(m.renderPicker())
		return b.String()
	}

	if m.showChart {
		var chart strings.Builder
		_ = output.PriceChart(&chart, m.state.Filtered, m.currency, 6)
		b.WriteString(chart.String())
	}

	b.WriteString(m.renderTable())

	switch m.mode {
	case modeDate:
		b.WriteString(m.theme.statusBar.Render("Departure: ") + m.input.View() + "\n")
	default:
		if m.status != "" {
			b.WriteString(m.theme.statusBar.Render(m.status) + "\n")
		}
	}
	b.WriteString(m.theme.help.Render("  enter: search  o/d: airports  e: date  s: sort  0/1/2: stops  a: airline  -/+: max price  r: reset  c: currency  g: chart  t: theme  q: quit"))
	return b.String()
}

func (m Model) renderTitle() string {
	route := "pick a route with o and d"
	if m.req.From != "" || m.req.To != "" {
		route = fmt.Sprintf("%s → %s  %s", orDash(m.req.From), orDash(m.req.To), orDash(m.req.DepartDate))
	}
	info := m.theme.dim.Render(fmt.Sprintf("  %s  [sort: %s] [%s]  %d of %d flights",
		route, m.state.SortBy, m.currency, len(m.state.Filtered), len(m.state.Flights)))
	return m.theme.title.Render("Sky Scrapper") + info
}

func (m Model) renderFilters() string {
	var chips []string
	for _, bucket := range []core.StopBucket{core.NonStop, core.OneStop, core.MultiStop} {
		style := m.theme.chip
		for _, s := range m.state.Filters.Stops {
			if s == bucket {
				style = m.theme.chipOn
			}
		}
		chips = append(chips, style.Render(bucket.String()))
	}

	airline := "all airlines"
	if len(m.state.Filters.Airlines) > 0 {
		airline = core.AirlineName(m.state.Filters.Airlines[0])
	}
	chips = append(chips, m.theme.chip.Render(airline))

	pr := m.state.Filters.PriceRange
	chips = append(chips, m.theme.chip.Render(fmt.Sprintf("%s - %s",
		currency.Format(currency.Convert(pr.Min, currency.Reference, m.currency), m.currency),
		currency.Format(currency.Convert(pr.Max, currency.Reference, m.currency), m.currency))))

	return lipgloss.JoinHorizontal(lipgloss.Top, chips...)
}

func (m Model) renderTable() string {
	var b strings.Builder
	header := fmt.Sprintf("%s %s %s %s %s %s",
		pad("Price", 12), pad("Airline", 22), pad("Stops", 9), pad("Duration", 9), pad("Depart", 13), pad("Arrive", 13))
	b.WriteString(m.theme.header.Render(header) + "\n")

	visible := m.visibleRows()
	end := min(m.offset+visible, len(m.state.Filtered))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(m.state.Filtered[i], i == m.cursor) + "\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(f core.FlightOffer, selected bool) string {
	price := "n/a"
	if p, ok := core.PriceOK(f); ok {
		price = currency.Format(currency.Convert(p, currency.Reference, m.currency), m.currency)
	}
	airline := "Unknown"
	if len(f.ValidatingAirlineCodes) > 0 {
		airline = core.AirlineName(f.ValidatingAirlineCodes[0])
	}
	duration := ""
	if len(f.Itineraries) > 0 {
		duration = core.FormatDuration(f.Itineraries[0].Duration)
	}
	depart, arrive := "", ""
	if t, ok := core.DepartureTime(f); ok {
		depart = t.Format("01-02 15:04")
	}
	if t, ok := core.ArrivalTime(f); ok {
		arrive = t.Format("01-02 15:04")
	}

	cols := []string{
		pad(price, 12),
		pad(airline, 22),
		pad(output.StopsLabel(core.StopsCount(f)), 9),
		pad(duration, 9),
		pad(depart, 13),
		pad(arrive, 13),
	}

	if selected {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, m.theme.selected.Render(strings.Join(cols, " ")))
	}
	cols[0] = m.theme.price.Render(cols[0])
	return m.theme.normal.Render(strings.Join(cols, " "))
}

func (m Model) renderPicker() string {
	var b strings.Builder
	label := "Origin: "
	if m.target == pickDestination {
		label = "Destination: "
	}
	b.WriteString(m.theme.statusBar.Render(label) + m.input.View() + "\n")

	if m.lookup != nil && m.lookup.Loading() {
		b.WriteString(m.theme.dim.Render("  looking up airports...") + "\n")
	}
	for i, ap := range m.suggestions {
		line := fmt.Sprintf("  %s  %s", ap.IATACode, ap.Name)
		if ap.CityName != "" {
			line += m.theme.dim.Render("  " + ap.CityName)
		}
		if i == m.suggestIdx {
			line = m.theme.selected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(m.theme.help.Render("  type at least 2 characters  up/down: choose  enter: select  esc: cancel"))
	return b.String()
}

func (m Model) visibleRows() int {
	rows := m.height - 7
	if m.showChart {
		rows -= 7
	}
	return max(rows, 1)
}

func (m *Model) clampOffset() {
	visible := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// Currency returns the display currency chosen in the session.
func (m Model) Currency() currency.Currency {
	return m.currency
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
