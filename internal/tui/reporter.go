package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"repogen/internal/repo"
)

// Sync progress columns.
var SyncColumns = []Column{
	{Header: "RELEASE", Width: 8},
	{Header: "PLUGIN", Width: 32},
	{Header: "VERSION", Width: 10},
	{Header: "STATUS", Width: 11},
	{Header: "REASON", Width: 16},
}

// SyncRowKey identifies a plugin folder's row.
func SyncRowKey(release, folder string) string {
	return release + "\x00" + folder
}

// SyncReporter forwards repo sync events to a running ProgressModel.
type SyncReporter struct {
	send   func(tea.Msg)
	dryRun bool
}

// NewSyncReporter wraps send. In a dry run stale plugins are shown as
// "would build" since nothing further happens to them.
func NewSyncReporter(send func(tea.Msg), dryRun bool) *SyncReporter {
	return &SyncReporter{send: send, dryRun: dryRun}
}

// Report implements repo.Reporter.
func (r *SyncReporter) Report(ev repo.Event) {
	status := string(ev.Stage)
	if r.dryRun && ev.Stage == repo.StageStale {
		status = "would build"
	}
	fields := map[string]string{"STATUS": status}
	if ev.ID != "" {
		fields["PLUGIN"] = ev.ID
	}
	if ev.Version != "" {
		fields["VERSION"] = ev.Version
	}
	if ev.Reason != "" {
		fields["REASON"] = ev.Reason
	}
	if ev.Stage == repo.StageFailed && ev.Err != nil {
		fields["REASON"] = ev.Err.Error()
	}
	r.send(RowUpdateMsg{Key: SyncRowKey(ev.Release, ev.Folder), Fields: fields})
}
