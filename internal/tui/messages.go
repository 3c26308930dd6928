package tui

// RowUpdateMsg sets fields of the row identified by Key, by column header.
// Headers the model does not have are ignored.
type RowUpdateMsg struct {
	Key    string
	Fields map[string]string
}

// WorkDoneMsg signals that every release has been synchronized.
type WorkDoneMsg struct{}

// ErrorMsg signals a fatal sync error; the TUI should quit and show it.
type ErrorMsg struct {
	Err error
}
