package main

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/YS-L/csvlens-sub000/internal/columnsfilter"
	"github.com/YS-L/csvlens-sub000/internal/config"
	"github.com/YS-L/csvlens-sub000/internal/events"
	"github.com/YS-L/csvlens-sub000/internal/finder"
	"github.com/YS-L/csvlens-sub000/internal/input"
	"github.com/YS-L/csvlens-sub000/internal/rowprovider"
	"github.com/YS-L/csvlens-sub000/internal/sorter"
	"github.com/YS-L/csvlens-sub000/internal/view"
	"github.com/YS-L/csvlens-sub000/internal/watch"
)

// selectionMode mirrors the TAB-cycled row/column/cell selection state
// named in SPEC_FULL.md §4.6's key table and §6's "Enter in cell-selection
// mode writes the selected cell to stdout" behavior. Cell styling itself
// (highlighting the selection) is the named rendering non-goal; only the
// mode and its Enter-to-stdout effect are in scope.
type selectionMode int

const (
	selectRow selectionMode = iota
	selectColumn
	selectCell
)

func (s selectionMode) next() selectionMode { return (s + 1) % 3 }

// eventMsg wraps an events.Event as a tea.Msg; listenEvents blocks on the
// events channel and Update re-arms it after every delivered event.
type eventMsg events.Event

func listenEvents(c <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c
		if !ok {
			return nil
		}
		return eventMsg(ev)
	}
}

// model is the bubbletea program's root state, translating terminal
// events into the core packages' Control/poll vocabulary and rendering
// the current RowsView window with lipgloss. Key presses arrive as
// tea.KeyMsg straight from bubbletea; tick and file-change notifications
// arrive as eventMsg, forwarded from an internal/events.Source run
// alongside it (SPEC_FULL.md §4.7).
type model struct {
	cfg      *config.Config
	provider *rowprovider.RowProvider
	rowsView *view.RowsView
	colFil   *columnsfilter.ColumnsFilter

	handler  *input.Handler
	eventSrc *events.Source

	activeFinder *finder.Finder
	filterCond   *finder.Condition
	activeSorter *sorter.Sorter
	sortApplied  bool
	isRowFilter  bool

	selMode selectionMode
	selCol  int

	showHelp      bool
	debugOverride bool

	// busySpinner animates while a Finder scan is still running, so a slow
	// regex on a large file gives visible feedback rather than looking
	// hung. A running Sorter does not count as busy.
	busySpinner spinner.Model

	userError string
	width     int
	height    int

	selectedEcho string
	quitting     bool
}

func newModel(cfg *config.Config, provider *rowprovider.RowProvider, w *watch.Watcher, rv *view.RowsView, colFil *columnsfilter.ColumnsFilter) *model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	// bubbletea itself owns the terminal's raw keyboard loop and delivers
	// presses as tea.KeyMsg, so the keys channel handed to events.NewSource
	// is never written to: only its tick/file-change branches are driven
	// through the multiplexer here, per SPEC_FULL.md §4.7.
	keys := make(chan input.Key)
	return &model{
		cfg:         cfg,
		provider:    provider,
		rowsView:    rv,
		colFil:      colFil,
		handler:     input.New(),
		eventSrc:    events.NewSource(keys, watch.NewCursor(w)),
		busySpinner: sp,
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(listenEvents(m.eventSrc.C), m.busySpinner.Tick)
}

func (m *model) busy() bool {
	return m.activeFinder != nil && !m.activeFinder.Done()
}

// startFind launches a background Finder over pattern; asRowFilter
// installs the growing match set as the RowsView's row filter (the
// `-filter` flag's behavior), while !asRowFilter just positions the
// cursor for n/N navigation (the `-find` flag's behavior).
func (m *model) startFind(pattern string, asRowFilter bool) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		m.userError = fmt.Sprintf("Invalid regex: %v", err)
		return
	}
	if m.activeFinder != nil {
		m.activeFinder.Terminate()
	}
	var order finder.RowOrderSource
	if m.activeSorter != nil {
		order = m.activeSorter
	}
	m.activeFinder = finder.New(m.provider, re, nil, order)
	m.filterCond = nil
	m.isRowFilter = asRowFilter
	if asRowFilter {
		_ = m.rowsView.InitFilter()
	}
}

// startFilter launches a background scan of pattern as a row predicate
// via RowsView.SetRowFilter (SPEC_FULL.md §4.2a/§4.5a), the interactive
// `&` control's Condition-tree path — distinct from startFind(_, true),
// which filters by a plain regex with no predicate tree attached. Grounded
// on original_source/src/app.rs's step(), where Control::Find and
// Control::Filter are handled as two branches of the same match arm but
// diverge on whether rows_view.set_filter vs reset_filter is called.
func (m *model) startFilter(pattern string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		m.userError = fmt.Sprintf("Invalid regex: %v", err)
		return
	}
	if m.activeFinder != nil {
		m.activeFinder.Terminate()
	}
	var order finder.RowOrderSource
	if m.activeSorter != nil {
		order = m.activeSorter
	}
	cond := finder.NewRegexCondition(re, -1)
	m.activeFinder = finder.NewCondition(m.provider, cond, order)
	m.filterCond = cond
	m.isRowFilter = true
	_ = m.rowsView.SetRowFilter(cond, nil)
}

// startSort launches a background Sorter over the 0-based column index
// entered by the user (the "s<digits><enter>" command). An existing
// Finder is invalidated (spec.md §4.2, "when a sort completes after
// matches accumulated, the client is responsible for rebuilding the
// Finder") rather than rewired against the new permutation.
func (m *model) startSort(column int) {
	headers := m.rowsView.Headers()
	if column < 0 || column >= len(headers) {
		m.userError = fmt.Sprintf("no such column: %d", column)
		return
	}
	if m.activeSorter != nil {
		m.activeSorter.Terminate()
	}
	if m.activeFinder != nil {
		m.activeFinder.Terminate()
		m.activeFinder = nil
	}
	m.activeSorter = sorter.New(m.provider, column)
	m.sortApplied = false
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if m.height > 4 {
			_ = m.rowsView.SetNumRows(int64(m.height - 4))
		}
		return m, nil

	case eventMsg:
		m.onEvent(events.Event(msg))
		return m, listenEvents(m.eventSrc.C)

	case tea.KeyMsg:
		return m.onKey(msg)

	case spinner.TickMsg:
		if m.busy() {
			var cmd tea.Cmd
			m.busySpinner, cmd = m.busySpinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}
	return m, nil
}

// onEvent handles one multiplexed events.Event: Tick and FileChanged both
// drive the same poll-bound work (refetch matches, apply a finished
// sort), while FileChanged additionally drops the provider's cached row
// windows before that work runs. KeyPress never reaches here —
// bubbletea delivers key presses as tea.KeyMsg directly.
func (m *model) onEvent(ev events.Event) {
	if ev.Kind == events.FileChanged {
		m.provider.Invalidate()
	}
	if m.activeFinder != nil && m.isRowFilter {
		subset := m.activeFinder.GetSubset(0, m.activeFinder.Count())
		if m.filterCond != nil {
			_ = m.rowsView.SetRowFilter(m.filterCond, subset)
		} else {
			_ = m.rowsView.SetFilter(subset)
		}
	}
	m.applySortIfReady()
}

// applySortIfReady installs the sorter's full permutation as the
// RowsView's index list the first tick after it reaches Finished. The
// permutation reuses the same filter-index indirection a Finder's
// matches go through (view.RowsView.SetFilter → GetRowsForIndices),
// since "project the window through an index list" is exactly what a
// completed sort needs too.
func (m *model) applySortIfReady() {
	if m.activeSorter == nil || m.sortApplied {
		return
	}
	status, msg := m.activeSorter.GetStatus()
	switch status {
	case sorter.Error:
		m.userError = fmt.Sprintf("sort failed: %s", msg)
		m.activeSorter = nil
		m.sortApplied = true
	case sorter.Finished:
		total, ok := m.activeSorter.Total()
		if !ok {
			return
		}
		indices, ok := m.activeSorter.GetSortedIndices(0, total, sorter.Ascending)
		if !ok {
			return
		}
		_ = m.rowsView.SetFilter(indices)
		m.sortApplied = true
	}
}

func keyFromTea(msg tea.KeyMsg) input.Key {
	switch msg.Type {
	case tea.KeyBackspace:
		return input.Key{Type: input.KeyBackspace}
	case tea.KeyEsc:
		return input.Key{Type: input.KeyEsc}
	case tea.KeyEnter:
		return input.Key{Type: input.KeyEnter}
	case tea.KeyPgDown:
		return input.Key{Type: input.KeyPageDown}
	case tea.KeyPgUp:
		return input.Key{Type: input.KeyPageUp}
	case tea.KeyCtrlF:
		return input.Key{Type: input.KeyCtrlF}
	case tea.KeyCtrlB:
		return input.Key{Type: input.KeyCtrlB}
	case tea.KeyHome:
		return input.Key{Type: input.KeyHome}
	case tea.KeyEnd:
		return input.Key{Type: input.KeyEnd}
	case tea.KeyTab:
		return input.Key{Type: input.KeyTab}
	case tea.KeyUp:
		return input.Key{Type: input.KeyUp}
	case tea.KeyDown:
		return input.Key{Type: input.KeyDown}
	case tea.KeyCtrlC:
		return input.Key{Type: input.KeyOther}
	case tea.KeyRunes:
		if len(msg.Runes) > 0 {
			return input.Key{Type: input.KeyChar, Rune: msg.Runes[0]}
		}
	}
	return input.Key{Type: input.KeyOther}
}

func (m *model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		m.captureEchoColumn()
		m.eventSrc.Stop()
		return m, tea.Quit
	}

	// Up/down recall buffer history (§4.6a) only while a line buffer is
	// active; outside buffering they fall through to HandleKey, which maps
	// them to ScrollUp/ScrollDown like k/j.
	if m.handler.Buffering() {
		switch msg.Type {
		case tea.KeyUp:
			m.handler.HistoryPrev()
			return m, nil
		case tea.KeyDown:
			m.handler.HistoryNext()
			return m, nil
		}
	}

	// In cell-selection mode, Enter writes the selected cell to stdout and
	// exits (SPEC_FULL.md §6); it never reaches the line-buffering handler
	// since no buffer is active outside Find/Filter/.../GotoLine entry.
	if msg.Type == tea.KeyEnter && !m.handler.Buffering() && m.selMode == selectCell {
		m.quitting = true
		m.captureSelectedCell()
		m.eventSrc.Stop()
		return m, tea.Quit
	}

	key := keyFromTea(msg)
	control := m.handler.HandleKey(key)
	if control.Kind != input.Nothing {
		m.userError = ""
	}

	switch control.Kind {
	case input.Quit:
		m.quitting = true
		m.captureEchoColumn()
		m.eventSrc.Stop()
		return m, tea.Quit
	case input.Find:
		m.startFind(control.Text, false)
		return m, m.busySpinner.Tick
	case input.Filter:
		m.startFilter(control.Text)
		return m, m.busySpinner.Tick
	case input.FilterColumns:
		re, err := regexp.Compile(control.Text)
		if err != nil {
			m.userError = fmt.Sprintf("Invalid regex: %v", err)
			return m, nil
		}
		m.colFil = columnsfilter.New(re, m.rowsView.Headers())
		return m, nil
	case input.FreezeColumns:
		m.rowsView.SetFreezeCols(control.Goto)
		return m, nil
	case input.Option:
		m.applyOption(control.Text)
		return m, nil
	case input.Help:
		m.showHelp = !m.showHelp
		return m, nil
	case input.CycleSelectionMode:
		m.selMode = m.selMode.next()
		return m, nil
	case input.BufferReset, input.BufferContent:
		return m, nil
	case input.ScrollToNextFound:
		if m.activeFinder != nil {
			m.activeFinder.SetRowHint(m.rowsView.RowsFrom())
			if rec, ok := m.activeFinder.Next(); ok {
				_ = m.rowsView.SetRowsFrom(rec.RowOrder)
			}
		}
		return m, nil
	case input.ScrollToPrevFound:
		if m.activeFinder != nil {
			m.activeFinder.SetRowHint(m.rowsView.RowsFrom())
			if rec, ok := m.activeFinder.Prev(); ok {
				_ = m.rowsView.SetRowsFrom(rec.RowOrder)
			}
		}
		return m, nil
	case input.Sort:
		m.startSort(control.Goto)
		return m, nil
	default:
		if err := m.rowsView.HandleControl(control); err != nil {
			m.userError = err.Error()
		}
	}
	return m, nil
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.helpText()
	}

	headers := m.rowsView.Headers()
	indices := make([]int, len(headers))
	for i := range indices {
		indices[i] = i
	}
	if m.colFil != nil {
		indices = m.colFil.Indices()
		headers = m.colFil.FilteredHeaders()
	}
	indices, headers = m.applyColsOffset(indices, headers)

	headerStyle := lipgloss.NewStyle().Bold(true).Underline(true)
	var b strings.Builder
	b.WriteString(headerStyle.Render(strings.Join(headers, "  ")))
	b.WriteString("\n")

	for _, row := range m.rowsView.Rows() {
		cells := make([]string, 0, len(indices))
		for _, idx := range indices {
			if idx < len(row.Fields) {
				cells = append(cells, row.Fields[idx])
			} else {
				cells = append(cells, "")
			}
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	if m.cfg.Debug != m.debugOverride {
		stats := m.provider.Stats()
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("debug: parse_errors=%d bytes_scanned=%d index_blocks=%d",
			stats.ParseErrors, stats.BytesScanned, stats.IndexBlocks))
	}
	if m.userError != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Render(m.userError))
	}
	return b.String()
}

// applyColsOffset splits indices/headers into a frozen prefix (always
// shown) and a scrollable remainder, sliced from RowsView.ColsOffset()
// onward (SPEC_FULL.md §4.5a's freeze_cols + ScrollLeft/ScrollRight).
func (m *model) applyColsOffset(indices []int, headers []string) ([]int, []string) {
	freeze := m.rowsView.FreezeCols()
	if freeze < 0 {
		freeze = 0
	}
	if freeze > len(indices) {
		freeze = len(indices)
	}
	offset := m.rowsView.ColsOffset()
	scrollableIdx, scrollableHdr := indices[freeze:], headers[freeze:]
	if offset > len(scrollableIdx) {
		offset = len(scrollableIdx)
	}
	outIdx := append(append([]int(nil), indices[:freeze]...), scrollableIdx[offset:]...)
	outHdr := append(append([]string(nil), headers[:freeze]...), scrollableHdr[offset:]...)
	return outIdx, outHdr
}

// helpText renders the static key-binding reference for the `H` toggle
// (SPEC_FULL.md §4.6's Help mode); it replaces the normal row/header view
// entirely while active, matching the teacher's minimal-styling approach.
func (m *model) helpText() string {
	lines := []string{
		"csvlens key bindings (H to close)",
		"",
		"j/down       scroll down       k/up        scroll up",
		"h            scroll left       l           scroll right",
		"g/home       scroll to top     G/end       scroll to bottom",
		"ctrl-f/pgdn  page down         ctrl-b/pgup page up",
		"n / N        next/prev match   0-9         goto line",
		"/            find              &           filter rows",
		"*            filter columns    f           freeze columns",
		"s            sort by column    o           set option",
		"tab          cycle selection (row/column/cell)",
		"enter        in cell-selection mode, print the selected cell and quit",
		"q / ctrl-c   quit",
	}
	return strings.Join(lines, "\n")
}

// applyOption interprets a committed Option-mode buffer (SPEC_FULL.md
// §4.6's Option mode has no further operational definition in the source
// this was ported from, so only the one toggle with an obvious runtime
// effect — the debug stats panel — is wired; anything else reports an
// error rather than silently doing nothing).
func (m *model) applyOption(text string) {
	switch text {
	case "debug":
		m.debugOverride = !m.debugOverride
	default:
		m.userError = fmt.Sprintf("unknown option: %q", text)
	}
}

// captureSelectedCell records the value at selCol of the first row in the
// current window when Enter is pressed in cell-selection mode (SPEC_FULL.md
// §6). No key moves the cell cursor independently of the row window, so
// the selected column is fixed at selCol (column 0 unless changed).
func (m *model) captureSelectedCell() {
	rows := m.rowsView.Rows()
	if len(rows) == 0 {
		return
	}
	col := m.selCol
	if col < 0 || col >= len(rows[0].Fields) {
		return
	}
	m.selectedEcho = rows[0].Fields[col]
}

// captureEchoColumn records the -echo-column value of the first row in
// the current window, for main() to print to stdout after the program
// exits (a scripting convenience: "pick a row, print one of its fields").
func (m *model) captureEchoColumn() {
	if m.cfg.EchoColumn == "" {
		return
	}
	rows := m.rowsView.Rows()
	if len(rows) == 0 {
		return
	}
	headers := m.rowsView.Headers()
	for i, h := range headers {
		if h == m.cfg.EchoColumn && i < len(rows[0].Fields) {
			m.selectedEcho = rows[0].Fields[i]
			return
		}
	}
}

func (m *model) statusLine() string {
	total, exact := m.provider.GetTotalLineNumbers()
	totalStr := "?"
	if exact {
		totalStr = fmt.Sprintf("%d", total)
	} else if approx := m.provider.GetTotalLineNumbersApprox(); approx > 0 {
		totalStr = fmt.Sprintf("~%d", approx)
	}
	line := fmt.Sprintf("[Row %d/%s, Col 1/%d]", m.rowsView.RowsFrom()+1, totalStr, len(m.rowsView.Headers()))
	if m.cfg.Prompt != "" {
		line = fmt.Sprintf("%s  %s", line, m.cfg.Prompt)
	}
	if m.busy() {
		line = fmt.Sprintf("%s %s scanning (%d matches)", line, m.busySpinner.View(), m.activeFinder.Count())
	}
	return line
}
