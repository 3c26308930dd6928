package repo

import "fmt"

// Stage is a plugin's position in a sync:
// discovered -> parsed -> unchanged | stale -> archived -> published -> merged.
type Stage string

const (
	StageDiscovered Stage = "discovered"
	StageParsed     Stage = "parsed"
	StageUnchanged  Stage = "unchanged"
	StageStale      Stage = "stale"
	StageArchived   Stage = "archived"
	StagePublished  Stage = "published"
	StageMerged     Stage = "merged"
	StageFailed     Stage = "failed"
)

// Steps a PluginError can originate from.
const (
	StepDiscover = "discover"
	StepParse    = "parse"
	StepArchive  = "archive"
	StepPublish  = "publish"
)

// PluginError reports a failure confined to a single plugin. The plugin is
// left out of the run's manifest changes and the sync carries on.
type PluginError struct {
	ID     string
	Folder string
	Step   string
	Err    error
}

func (e *PluginError) Error() string {
	name := e.ID
	if name == "" {
		name = e.Folder
	}
	return fmt.Sprintf("%s: %s: %v", name, e.Step, e.Err)
}

func (e *PluginError) Unwrap() error { return e.Err }
