package repo

import (
	"os"
	"path/filepath"

	"repogen/internal/archive"
	"repogen/internal/descriptor"
	"repogen/internal/manifest"
	"repogen/internal/version"
)

const (
	ActionBuild = "build"
	ActionSkip  = "skip"

	ReasonForced         = "forced"
	ReasonNew            = "new plugin"
	ReasonUpgrade        = "version bumped"
	ReasonDowngrade      = "version lowered"
	ReasonRespelled      = "version changed"
	ReasonArchiveMissing = "archive missing"
	ReasonUpToDate       = "up to date"
)

// Decision is the action a sync takes for one parsed plugin.
type Decision struct {
	Descriptor descriptor.Descriptor
	Folder     string
	// Previous is the version recorded in the manifest, empty when the
	// plugin is new.
	Previous string
	Action   string
	Reason   string
}

// Stale reports whether the plugin's archive is rebuilt.
func (d Decision) Stale() bool { return d.Action == ActionBuild }

// Decide compares a plugin's descriptor against its manifest entry. A plugin
// is stale when it has no entry or when the recorded version differs from
// the descriptor's. outputDir is where its archive is expected.
func Decide(doc *manifest.Document, d descriptor.Descriptor, folder, outputDir string, force bool) Decision {
	dec := Decision{Descriptor: d, Folder: folder, Action: ActionBuild}

	prior, exists := doc.Get(d.ID)
	if exists {
		dec.Previous = prior.Version
	}

	switch {
	case force:
		dec.Reason = ReasonForced
	case !exists:
		dec.Reason = ReasonNew
	case prior.Version != d.Version:
		switch {
		case version.IsNewer(d.Version, prior.Version):
			dec.Reason = ReasonUpgrade
		case version.IsNewer(prior.Version, d.Version):
			dec.Reason = ReasonDowngrade
		default:
			dec.Reason = ReasonRespelled
		}
	case !archiveExists(outputDir, d):
		dec.Reason = ReasonArchiveMissing
	default:
		dec.Action = ActionSkip
		dec.Reason = ReasonUpToDate
	}
	return dec
}

// ArchivePath returns where the archive for d is written below outputDir.
func ArchivePath(outputDir string, d descriptor.Descriptor) string {
	return filepath.Join(outputDir, d.ID, archive.Name(d.ID, d.Version))
}

func archiveExists(outputDir string, d descriptor.Descriptor) bool {
	info, err := os.Stat(ArchivePath(outputDir, d))
	return err == nil && info.Mode().IsRegular()
}
