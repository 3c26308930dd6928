package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

const (
	tickInterval = 150 * time.Millisecond
	marqueeGap   = "   "
	columnGap    = "  "
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg advances the spinner and any scrolling cells.
type tickMsg time.Time

// Column is a table column. Width is the minimum cell width; the header
// always fits.
type Column struct {
	Header string
	Width  int
}

// Row is one plugin folder in the table.
type Row struct {
	Key    string
	Fields []string
}

// ProgressModel renders the sync table: one row per plugin folder, the
// STATUS column coloured by stage and a running tally underneath.
type ProgressModel struct {
	title   string
	columns []Column
	widths  []int
	// status is the index of the STATUS column, -1 without one.
	status int

	rows  []Row
	byKey map[string]int

	tick        int
	done        bool
	interrupted bool
	err         error
}

// NewProgressModel returns an empty table with the given columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	m := ProgressModel{
		title:   title,
		columns: columns,
		widths:  make([]int, len(columns)),
		status:  -1,
		byKey:   make(map[string]int),
	}
	for i, c := range columns {
		m.widths[i] = max(runewidth.StringWidth(c.Header), c.Width)
		if m.status < 0 && strings.EqualFold(c.Header, "STATUS") {
			m.status = i
		}
	}
	return m
}

// AddRow appends a row before the program starts. Missing trailing fields
// are left blank.
func (m *ProgressModel) AddRow(key string, fields []string) {
	row := Row{Key: key, Fields: make([]string, len(m.columns))}
	copy(row.Fields, fields)
	m.byKey[key] = len(m.rows)
	m.rows = append(m.rows, row)
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()
	case RowUpdateMsg:
		m.apply(msg)
		return m, nil
	case WorkDoneMsg:
		m.done = true
		return m, tea.Quit
	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.done = true
			m.interrupted = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *ProgressModel) apply(msg RowUpdateMsg) {
	i, ok := m.byKey[msg.Key]
	if !ok {
		return
	}
	fields := m.rows[i].Fields
	for j, c := range m.columns {
		if v, set := msg.Fields[c.Header]; set {
			fields[j] = v
		}
	}
}

func (m ProgressModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	header := make([]string, len(m.columns))
	for i, c := range m.columns {
		header[i] = HeaderStyle.Render(pad(c.Header, m.widths[i]))
	}
	b.WriteString(strings.Join(header, columnGap))
	b.WriteByte('\n')

	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteByte('\n')
	}

	processed, total := m.progressCounts()
	switch {
	case m.interrupted:
		fmt.Fprintf(&b, "\nInterrupted after %d/%d plugins\n", processed, total)
	case !m.done:
		spinner := spinnerFrames[m.tick%len(spinnerFrames)]
		fmt.Fprintf(&b, "\n%s Syncing %d/%d plugins...\n", spinner, processed, total)
	default:
		if tally := m.tally(); tally != "" {
			fmt.Fprintf(&b, "\n%d plugins: %s\n", total, tally)
		}
	}
	return b.String()
}

func (m ProgressModel) renderRow(row Row) string {
	cells := make([]string, len(m.columns))
	for i, w := range m.widths {
		val := strings.TrimSpace(row.Fields[i])
		// Long cells scroll while the sync runs and are cut once it stops.
		if !m.done && runewidth.StringWidth(val) > w {
			val = marqueeText(val, w, m.tick)
		} else {
			val = TruncateWithEllipsis(val, w)
		}
		cell := pad(val, w)
		if i == m.status {
			cell = StatusStyle(val).Render(cell)
		}
		cells[i] = cell
	}
	return strings.Join(cells, columnGap)
}

// progressCounts returns how many rows reached a final status, and the row
// count.
func (m ProgressModel) progressCounts() (int, int) {
	if m.status < 0 {
		return 0, len(m.rows)
	}
	n := 0
	for _, row := range m.rows {
		if isFinished(strings.TrimSpace(row.Fields[m.status])) {
			n++
		}
	}
	return n, len(m.rows)
}

// tally summarizes final statuses, e.g. "1 failed, 3 merged".
func (m ProgressModel) tally() string {
	if m.status < 0 {
		return ""
	}
	counts := map[string]int{}
	for _, row := range m.rows {
		if s := strings.TrimSpace(row.Fields[m.status]); isFinished(s) {
			counts[s]++
		}
	}
	parts := make([]string, 0, len(counts))
	for s, n := range counts {
		parts = append(parts, fmt.Sprintf("%d %s", n, s))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func (m ProgressModel) Done() bool { return m.done }

// Err returns the error that ended the sync, if any.
func (m ProgressModel) Err() error { return m.err }

func (m ProgressModel) Title() string { return m.title }

func isFinished(status string) bool {
	switch status {
	case "merged", "unchanged", "failed", "would build":
		return true
	}
	return false
}

func pad(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// marqueeText shows a width-cell window of text that moves one rune per
// tick and wraps around after a short gap.
func marqueeText(text string, width, tick int) string {
	text = strings.TrimSpace(text)
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= width {
		return text
	}
	ring := []rune(text + marqueeGap)
	start := tick % len(ring)

	var out strings.Builder
	cells := 0
	for i := 0; ; i++ {
		r := ring[(start+i)%len(ring)]
		w := runewidth.RuneWidth(r)
		if cells+w > width {
			break
		}
		out.WriteRune(r)
		cells += w
	}
	return pad(out.String(), width)
}

// TruncateWithEllipsis cuts value to max display cells, ending it with
// "..." when there is room.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	value = strings.TrimSpace(value)
	if runewidth.StringWidth(value) <= max {
		return value
	}
	tail := "..."
	if max <= len(tail) {
		tail = ""
	}
	return runewidth.Truncate(value, max, tail)
}
