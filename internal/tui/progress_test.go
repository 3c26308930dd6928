package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
)

func syncModel() ProgressModel {
	m := NewProgressModel("Syncing repo", []Column{
		{Header: "PLUGIN", Width: 20},
		{Header: "STATUS", Width: 10},
		{Header: "REASON", Width: 12},
	})
	m.AddRow("repo/plugin.a", []string{"plugin.a", StatusPending, ""})
	m.AddRow("repo/plugin.b", []string{"plugin.b", StatusPending, ""})
	return m
}

func TestRowUpdateMsg(t *testing.T) {
	m := syncModel()

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "repo/plugin.a",
		Fields: map[string]string{"STATUS": "merged", "REASON": "new plugin"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "merged" {
		t.Errorf("expected STATUS=merged, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[2] != "new plugin" {
		t.Errorf("expected REASON=new plugin, got %q", m.rows[0].Fields[2])
	}
	if m.rows[1].Fields[1] != StatusPending {
		t.Errorf("expected row 2 STATUS=pending, got %q", m.rows[1].Fields[1])
	}
}

func TestRowUpdateMsg_UnknownKey(t *testing.T) {
	m := syncModel()

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "repo/plugin.z",
		Fields: map[string]string{"STATUS": "merged"},
	})
	m = updated.(ProgressModel)

	for i, row := range m.rows {
		if row.Fields[1] != StatusPending {
			t.Errorf("row %d: expected STATUS unchanged, got %q", i, row.Fields[1])
		}
	}
}

func TestWorkDoneMsg(t *testing.T) {
	m := syncModel()

	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after WorkDoneMsg")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestErrorMsg(t *testing.T) {
	m := syncModel()

	updated, cmd := m.Update(ErrorMsg{Err: errors.New("manifest unreadable")})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ErrorMsg")
	}
	if m.Err() == nil {
		t.Error("expected Err() to be non-nil")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
	if !strings.Contains(m.View(), "manifest unreadable") {
		t.Error("expected view to show the error")
	}
}

func TestView(t *testing.T) {
	m := syncModel()
	updated, _ := m.Update(RowUpdateMsg{
		Key:    "repo/plugin.b",
		Fields: map[string]string{"STATUS": "unchanged", "REASON": "up to date"},
	})
	m = updated.(ProgressModel)

	view := m.View()
	for _, want := range []string{"Syncing repo", "PLUGIN", "STATUS", "REASON", "plugin.a", "pending", "unchanged", "up to date"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected view to contain %q", want)
		}
	}
}

func TestTruncateWithEllipsis(t *testing.T) {
	tests := []struct {
		input string
		max   int
		want  string
	}{
		{"short", 10, "short"},
		{"plugin.video.example", 10, "plugin...."},
		{"abc", 3, "abc"},
		{"abcd", 3, "abc"},
		{"", 5, ""},
		{"hello", 0, ""},
		{"日本語テキスト", 7, "日本..."},
	}
	for _, tt := range tests {
		got := TruncateWithEllipsis(tt.input, tt.max)
		if got != tt.want {
			t.Errorf("TruncateWithEllipsis(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.want)
		}
	}
}

func TestPadUsesDisplayWidth(t *testing.T) {
	got := pad("日本", 6)
	if runewidth.StringWidth(got) != 6 {
		t.Errorf("pad width = %d, want 6", runewidth.StringWidth(got))
	}
	if got != "日本  " {
		t.Errorf("pad = %q", got)
	}
}

func TestMarqueeText(t *testing.T) {
	tests := []struct {
		text  string
		width int
		tick  int
		want  string
	}{
		// Text fits: returned as-is
		{"short", 10, 0, "short"},
		// Text exceeds: sliding window of exactly width cells
		{"hello world here", 5, 0, "hello"},
		{"hello world here", 5, 1, "ello "},
		{"hello world here", 5, 5, " worl"},
		// Wraps around with gap
		{"abcdef", 4, 0, "abcd"},
		{"abcdef", 4, 6, "   a"},
	}
	for _, tt := range tests {
		got := marqueeText(tt.text, tt.width, tt.tick)
		if got != tt.want {
			t.Errorf("marqueeText(%q, %d, %d) = %q, want %q", tt.text, tt.width, tt.tick, got, tt.want)
		}
	}
}

func TestTickMsg(t *testing.T) {
	m := syncModel()

	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)

	if m.tick != 1 {
		t.Errorf("expected tick=1 after tickMsg, got %d", m.tick)
	}
	if cmd == nil {
		t.Error("expected next tick command")
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := syncModel()
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	_, cmd := m.Update(tickMsg{})
	if cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestProgressCounts(t *testing.T) {
	m := NewProgressModel("", []Column{
		{Header: "PLUGIN", Width: 5},
		{Header: "STATUS", Width: 10},
	})
	m.AddRow("a", []string{"a", StatusPending})
	m.AddRow("b", []string{"b", "archived"})
	m.AddRow("c", []string{"c", "merged"})
	m.AddRow("d", []string{"d", "failed"})

	processed, total := m.progressCounts()
	if total != 4 {
		t.Errorf("expected total=4, got %d", total)
	}
	if processed != 2 {
		t.Errorf("expected processed=2, got %d", processed)
	}
}

func TestViewShowsSpinnerWhenNotDone(t *testing.T) {
	m := syncModel()
	if !strings.Contains(m.View(), "Syncing 0/2 plugins") {
		t.Error("expected footer while work is running")
	}
}

func TestViewHidesSpinnerWhenDone(t *testing.T) {
	m := syncModel()
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if strings.Contains(m.View(), "plugins...") {
		t.Error("expected no footer when done")
	}
}

func TestCtrlC(t *testing.T) {
	m := syncModel()

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)

	if !m.Done() {
		t.Error("expected Done() to be true after ctrl+c")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
	if !strings.Contains(m.View(), "Interrupted after 0/2 plugins") {
		t.Errorf("expected interrupted footer, got %q", m.View())
	}
}

func TestViewTallyWhenDone(t *testing.T) {
	m := syncModel()
	for key, status := range map[string]string{"repo/plugin.a": "merged", "repo/plugin.b": "failed"} {
		updated, _ := m.Update(RowUpdateMsg{Key: key, Fields: map[string]string{"STATUS": status}})
		m = updated.(ProgressModel)
	}
	updated, _ := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)

	if !strings.Contains(m.View(), "2 plugins: 1 failed, 1 merged") {
		t.Errorf("expected tally, got %q", m.View())
	}
}
