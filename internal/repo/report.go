package repo

// Event describes one transition of a plugin through a sync.
type Event struct {
	Release string
	Folder  string
	ID      string
	Version string
	Stage   Stage
	Reason  string
	Err     error
}

// Reporter receives plugin transitions as a sync proceeds. Implementations
// must not block for long; they run on the sync goroutine.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

func (f ReporterFunc) Report(ev Event) { f(ev) }

type nopReporter struct{}

func (nopReporter) Report(Event) {}
