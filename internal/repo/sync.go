// Package repo synchronizes a release's manifest with the plugin folders in
// its scan root.
package repo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"repogen/internal/archive"
	"repogen/internal/descriptor"
	"repogen/internal/digest"
	"repogen/internal/manifest"
	"repogen/internal/paths"
	"repogen/internal/publish"
)

// Options gate what a sync is allowed to do. They are fixed before the sync
// starts; nothing is asked interactively.
type Options struct {
	// Force rebuilds every plugin regardless of its recorded version.
	Force bool
	// DryRun decides and reports but writes nothing.
	DryRun bool
	// PruneCompiled removes compiled caches from the scan root first.
	PruneCompiled bool
}

// Update records a plugin that was rebuilt and merged.
type Update struct {
	ID        string
	Previous  string
	Version   string
	Reason    string
	Archive   archive.Result
	Published publish.Result
}

// Summary describes the outcome of one release sync.
type Summary struct {
	Release    string
	Candidates int
	Unchanged  []string
	Updated    []Update
	// Pending holds the plugins a dry run would rebuild.
	Pending []Decision
	Failed  []*PluginError
	Pruned  PruneResult

	ManifestPath    string
	ManifestChanged bool
	ManifestDigest  string
	// DigestErr is set when the manifest was saved but its sidecar was not.
	DigestErr error
	Manifest  *manifest.Document
}

// Synchronizer rebuilds stale plugins and rewrites the manifest.
type Synchronizer struct {
	RepositoryID   string
	DescriptorName string
	Policy         archive.Policy
	Options        Options
	Logger         *log.Logger
	Reporter       Reporter
}

func (s *Synchronizer) logger() *log.Logger {
	if s.Logger == nil {
		return log.New(io.Discard)
	}
	return s.Logger
}

func (s *Synchronizer) reporter() Reporter {
	if s.Reporter == nil {
		return nopReporter{}
	}
	return s.Reporter
}

func (s *Synchronizer) descriptorName() string {
	if s.DescriptorName == "" {
		return descriptor.FileName
	}
	return s.DescriptorName
}

// Discover lists the plugin folders of scanRoot in name order. A folder is a
// candidate when it is a direct subdirectory, is not the output directory,
// is not hidden and holds a descriptor file.
func Discover(scanRoot, outputName, descriptorName string) ([]string, error) {
	entries, err := os.ReadDir(scanRoot)
	if err != nil {
		return nil, fmt.Errorf("read scan root: %w", err)
	}

	var folders []string
	for _, entry := range entries {
		name := entry.Name()
		if name == outputName || strings.HasPrefix(name, ".") {
			continue
		}
		folder := filepath.Join(scanRoot, name)
		if ok, _ := paths.DirExists(folder); !ok {
			continue
		}
		if ok, _ := paths.FileExists(filepath.Join(folder, descriptorName)); !ok {
			continue
		}
		folders = append(folders, folder)
	}
	return folders, nil
}

// Sync brings the release's manifest up to date with its plugin folders.
// The returned error is fatal for the release: an unreadable manifest, an
// unreadable scan root, a cancelled context or a failed manifest write.
// Per plugin failures are collected in Summary.Failed instead.
func (s *Synchronizer) Sync(ctx context.Context, rel paths.ReleasePaths) (Summary, error) {
	logger := s.logger().With("release", rel.Name)
	report := s.reporter()
	sum := Summary{Release: rel.Name, ManifestPath: rel.ManifestFile}

	doc, err := manifest.Load(rel.ManifestFile)
	if err != nil {
		return sum, err
	}
	sum.Manifest = doc

	if s.Options.PruneCompiled && !s.Options.DryRun {
		sum.Pruned = PruneCompiled(rel.ScanRoot, logger)
	}

	folders, err := Discover(rel.ScanRoot, rel.OutputName, s.descriptorName())
	if err != nil {
		return sum, err
	}
	sum.Candidates = len(folders)
	logger.Info("discovered plugins", "count", len(folders), "path", rel.ScanRoot)

	builder := archive.NewBuilder(rel.OutputDir, s.Policy, logger)
	pub := publish.New(s.descriptorName(), logger)
	seen := make(map[string]string, len(folders))
	changed := false

	fail := func(ev Event, step string, err error) {
		perr := &PluginError{ID: ev.ID, Folder: ev.Folder, Step: step, Err: err}
		sum.Failed = append(sum.Failed, perr)
		logger.Error("plugin excluded from this run", "plugin", ev.ID, "path", ev.Folder, "step", step, "err", err)
		ev.Stage = StageFailed
		ev.Err = perr
		report.Report(ev)
	}

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		ev := Event{Release: rel.Name, Folder: folder, Stage: StageDiscovered}
		report.Report(ev)

		d, err := descriptor.LoadDir(folder, s.descriptorName())
		if err != nil {
			fail(ev, StepParse, err)
			continue
		}
		ev.ID, ev.Version = d.ID, d.Version
		if other, dup := seen[d.ID]; dup {
			fail(ev, StepDiscover, fmt.Errorf("id already provided by %s", other))
			continue
		}
		seen[d.ID] = folder
		ev.Stage = StageParsed
		report.Report(ev)

		dec := Decide(doc, d, folder, rel.OutputDir, s.Options.Force)
		ev.Reason = dec.Reason
		if !dec.Stale() {
			ev.Stage = StageUnchanged
			report.Report(ev)
			sum.Unchanged = append(sum.Unchanged, d.ID)
			continue
		}
		ev.Stage = StageStale
		report.Report(ev)
		if dec.Reason == ReasonDowngrade {
			logger.Warn("plugin version lowered", "plugin", d.ID, "previous", dec.Previous, "version", d.Version)
		}

		if s.Options.DryRun {
			sum.Pending = append(sum.Pending, dec)
			continue
		}

		ar, err := builder.Build(folder, d.ID, d.Version, d.Role(s.RepositoryID))
		if err != nil {
			fail(ev, StepArchive, err)
			continue
		}
		ev.Stage = StageArchived
		report.Report(ev)

		pr, err := pub.Publish(folder, filepath.Join(rel.OutputDir, d.ID))
		if err != nil {
			fail(ev, StepPublish, err)
			continue
		}
		ev.Stage = StagePublished
		report.Report(ev)

		if doc.Upsert(manifest.EntryFrom(d)) {
			changed = true
		}
		ev.Stage = StageMerged
		report.Report(ev)
		logger.Info("plugin updated", "plugin", d.ID, "previous", dec.Previous, "version", d.Version, "reason", dec.Reason)

		sum.Updated = append(sum.Updated, Update{
			ID:        d.ID,
			Previous:  dec.Previous,
			Version:   d.Version,
			Reason:    dec.Reason,
			Archive:   ar,
			Published: pr,
		})
	}

	if s.Options.DryRun {
		return sum, nil
	}
	if !changed {
		s.restoreManifestDigest(logger, &sum)
		return sum, nil
	}

	doc.Finalize()
	if err := doc.Save(rel.ManifestFile); err != nil {
		return sum, fmt.Errorf("save manifest: %w", err)
	}
	sum.ManifestChanged = true
	logger.Info("manifest written", "path", rel.ManifestFile, "entries", doc.Len())

	_, hex, err := digest.WriteSidecar(rel.ManifestFile)
	if err != nil {
		logger.Warn("could not write manifest digest", "path", digest.SidecarPath(rel.ManifestFile), "err", err)
		sum.DigestErr = err
		return sum, nil
	}
	sum.ManifestDigest = hex
	return sum, nil
}

// restoreManifestDigest writes the manifest's sidecar when the manifest
// exists but its sidecar does not. The manifest itself is not touched.
func (s *Synchronizer) restoreManifestDigest(logger *log.Logger, sum *Summary) {
	if ok, _ := paths.FileExists(sum.ManifestPath); !ok {
		return
	}
	recorded, err := digest.Read(sum.ManifestPath)
	if err == nil {
		sum.ManifestDigest = recorded
		return
	}
	if !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not read manifest digest", "path", digest.SidecarPath(sum.ManifestPath), "err", err)
		return
	}
	_, hex, err := digest.WriteSidecar(sum.ManifestPath)
	if err != nil {
		logger.Warn("could not write manifest digest", "path", digest.SidecarPath(sum.ManifestPath), "err", err)
		sum.DigestErr = err
		return
	}
	sum.ManifestDigest = hex
}
