package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"repogen/internal/index"
	"repogen/internal/paths"
	"repogen/internal/repo"
	"repogen/internal/tui"
)

var (
	syncForce      bool
	syncDryRun     bool
	syncNoProgress bool
	syncNoIndex    bool
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sync",
		Aliases: []string{"generate"},
		Short:   "Rebuild changed plugins and rewrite each release manifest",
		RunE:    runSync,
	}

	cmd.Flags().BoolVar(&syncForce, "force", false, "Rebuild every plugin regardless of its recorded version")
	cmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Report what would be rebuilt without writing anything")
	cmd.Flags().BoolVar(&syncNoProgress, "no-progress", false, "Disable the interactive progress table")
	cmd.Flags().BoolVar(&syncNoIndex, "no-index", false, "Skip directory listing generation")
	return cmd
}

type syncOutcome struct {
	Summaries   []repo.Summary
	RootArchive *repo.RootArchive
	// RootErr is set when the repository archive could not be copied to
	// the site root. The manifests are already saved at that point.
	RootErr     error
	Indexes     []string
	IndexErrors []error
}

func runSync(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	releases := a.releases()
	if len(releases) == 0 {
		return fmt.Errorf("no release scan roots found under %s", a.paths.Root)
	}

	syncer := &repo.Synchronizer{
		RepositoryID:   a.cfg.RepositoryID,
		DescriptorName: a.cfg.DescriptorName,
		Policy:         a.cfg.Archive,
		Options: repo.Options{
			Force:         syncForce,
			DryRun:        syncDryRun,
			PruneCompiled: a.cfg.PruneCompiledEnabled(),
		},
		Logger: a.logger,
	}
	a.logger.Info("sync started", "path", a.paths.Root, "force", syncForce, "dry_run", syncDryRun)

	out := cmd.OutOrStdout()
	ctx := commandContext(cmd)
	var outcome syncOutcome

	switch tui.DetectMode(out, syncNoProgress, outputJSON) {
	case tui.ModeTUI:
		err = syncWithProgress(ctx, out, a, syncer, releases, &outcome)
	default:
		err = syncReleases(ctx, syncer, releases, &outcome)
	}
	if err != nil {
		a.logger.Error("sync aborted", "err", err)
		return err
	}

	if !syncDryRun {
		publishRoot(a, &outcome)
		if a.cfg.IndexEnabled() && !syncNoIndex {
			renderIndexes(a, releases, &outcome)
		}
	}

	if outputJSON {
		return writeSyncJSON(out, outcome)
	}
	writeSyncText(a, outcome)
	return nil
}

func syncReleases(ctx context.Context, syncer *repo.Synchronizer, releases []paths.ReleasePaths, outcome *syncOutcome) error {
	for _, rel := range releases {
		sum, err := syncer.Sync(ctx, rel)
		if err != nil {
			return fmt.Errorf("release %s: %w", rel.Name, err)
		}
		outcome.Summaries = append(outcome.Summaries, sum)
	}
	return nil
}

// syncWithProgress runs the sync behind the progress table. Quitting the
// table cancels the sync between plugins.
func syncWithProgress(ctx context.Context, out io.Writer, a *app, syncer *repo.Synchronizer, releases []paths.ReleasePaths, outcome *syncOutcome) error {
	title := "Syncing " + a.paths.Root
	if syncDryRun {
		title += " (dry run)"
	}
	model := tui.NewProgressModel(title, tui.SyncColumns)
	for _, rel := range releases {
		folders, err := repo.Discover(rel.ScanRoot, rel.OutputName, syncer.DescriptorName)
		if err != nil {
			return err
		}
		for _, folder := range folders {
			model.AddRow(tui.SyncRowKey(rel.Name, folder), []string{rel.Name, filepath.Base(folder), "", tui.StatusPending, ""})
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)

	uiErr := tui.RunWithWork(out, model, func(send func(tea.Msg)) error {
		syncer.Reporter = tui.NewSyncReporter(send, syncDryRun)
		err := syncReleases(ctx, syncer, releases, outcome)
		done <- err
		return err
	})
	cancel()
	if err := <-done; err != nil {
		return err
	}
	return uiErr
}

func publishRoot(a *app, outcome *syncOutcome) {
	if a.cfg.RepositoryID == "" {
		return
	}
	for _, sum := range outcome.Summaries {
		rel := a.paths.Release(a.cfg, sum.Release)
		root, ok, err := repo.PublishRootArchive(a.paths.Root, rel, sum.Manifest, a.cfg.RepositoryID)
		if err != nil {
			a.logger.Warn("repository archive not published", "plugin", a.cfg.RepositoryID, "release", sum.Release, "err", err)
			outcome.RootErr = fmt.Errorf("release %s: %w", sum.Release, err)
			return
		}
		if !ok {
			continue
		}
		a.logger.Info("repository archive published", "plugin", root.ID, "version", root.Version, "path", root.Path, "release", sum.Release)
		outcome.RootArchive = &root
		return
	}
	a.logger.Warn("repository package not in any manifest", "plugin", a.cfg.RepositoryID)
}

// renderIndexes writes listings for every release output tree and the site
// root. Failures are advisory.
func renderIndexes(a *app, releases []paths.ReleasePaths, outcome *syncOutcome) {
	r := index.New("/", a.logger)
	r.MinNameWidth = a.cfg.Index.MinNameWidth

	names := make([]string, 0, len(releases))
	for _, rel := range releases {
		names = append(names, rel.Name)
		if ok, _ := paths.DirExists(rel.OutputDir); !ok {
			continue
		}
		tree := *r
		if sub, err := filepath.Rel(a.paths.Root, rel.OutputDir); err == nil {
			tree.BaseURL = "/" + filepath.ToSlash(sub)
		}
		res, err := tree.RenderTree(rel.OutputDir)
		if err != nil {
			outcome.IndexErrors = append(outcome.IndexErrors, err)
			continue
		}
		outcome.Indexes = append(outcome.Indexes, res.Written...)
		outcome.IndexErrors = append(outcome.IndexErrors, res.Errors...)
	}

	pattern := ""
	if a.cfg.RepositoryID != "" {
		pattern = a.cfg.RepositoryID + "-*.zip"
	}
	top, err := r.RenderTop(a.paths.Root, names, pattern)
	if err != nil {
		outcome.IndexErrors = append(outcome.IndexErrors, err)
		return
	}
	outcome.Indexes = append(outcome.Indexes, top)
}

func writeSyncText(a *app, outcome syncOutcome) {
	con := a.console
	for _, sum := range outcome.Summaries {
		con.Heading("%s: %d candidates, %d updated, %d unchanged, %d failed",
			sum.Release, sum.Candidates, len(sum.Updated), len(sum.Unchanged), len(sum.Failed))
		for _, dec := range sum.Pending {
			con.Plain("  %s %s %s (%s)", con.Status("would build"), dec.Descriptor.ID, versionChange(dec.Previous, dec.Descriptor.Version), dec.Reason)
		}
		for _, up := range sum.Updated {
			con.Plain("  %s %s %s (%s)", con.Status("merged"), up.ID, versionChange(up.Previous, up.Version), up.Reason)
			for _, missing := range up.Archive.Missing {
				con.Detail("      skipped missing %s", missing)
			}
		}
		for _, perr := range sum.Failed {
			con.Error("%v", perr)
		}
		if sum.Pruned.Files > 0 || sum.Pruned.Dirs > 0 {
			con.Detail("  pruned %d compiled files, %d cache directories", sum.Pruned.Files, sum.Pruned.Dirs)
		}
		switch {
		case sum.ManifestChanged:
			con.Success("  wrote %s (%s)", sum.ManifestPath, sum.ManifestDigest)
		case len(sum.Pending) == 0:
			con.Detail("  %s unchanged", sum.ManifestPath)
		}
		if sum.DigestErr != nil {
			con.Warn("manifest digest not written: %v", sum.DigestErr)
		}
	}
	if outcome.RootArchive != nil {
		con.Success("published %s", outcome.RootArchive.Path)
	}
	if outcome.RootErr != nil {
		con.Warn("repository archive not published: %v", outcome.RootErr)
	}
	if len(outcome.Indexes) > 0 {
		con.Detail("wrote %d directory listings", len(outcome.Indexes))
	}
	for _, err := range outcome.IndexErrors {
		con.Warn("index: %v", err)
	}
}

func versionChange(previous, current string) string {
	if previous == "" || previous == current {
		return current
	}
	return previous + " -> " + current
}

type syncJSON struct {
	Releases    []syncReleaseJSON `json:"releases"`
	RootArchive string            `json:"root_archive,omitempty"`
	RootError   string            `json:"root_archive_error,omitempty"`
	Indexes     []string          `json:"indexes,omitempty"`
	IndexErrors []string          `json:"index_errors,omitempty"`
}

type syncReleaseJSON struct {
	Release         string           `json:"release"`
	Candidates      int              `json:"candidates"`
	Unchanged       []string         `json:"unchanged"`
	Updated         []syncPluginJSON `json:"updated"`
	Pending         []syncPluginJSON `json:"pending,omitempty"`
	Failed          []syncFailedJSON `json:"failed,omitempty"`
	Manifest        string           `json:"manifest"`
	ManifestChanged bool             `json:"manifest_changed"`
	ManifestDigest  string           `json:"manifest_digest,omitempty"`
}

type syncPluginJSON struct {
	ID       string `json:"id"`
	Previous string `json:"previous,omitempty"`
	Version  string `json:"version"`
	Reason   string `json:"reason"`
	Archive  string `json:"archive,omitempty"`
}

type syncFailedJSON struct {
	ID     string `json:"id,omitempty"`
	Folder string `json:"folder"`
	Step   string `json:"step"`
	Error  string `json:"error"`
}

func writeSyncJSON(out io.Writer, outcome syncOutcome) error {
	payload := syncJSON{Releases: make([]syncReleaseJSON, 0, len(outcome.Summaries))}
	for _, sum := range outcome.Summaries {
		rel := syncReleaseJSON{
			Release:         sum.Release,
			Candidates:      sum.Candidates,
			Unchanged:       append([]string{}, sum.Unchanged...),
			Updated:         make([]syncPluginJSON, 0, len(sum.Updated)),
			Manifest:        sum.ManifestPath,
			ManifestChanged: sum.ManifestChanged,
			ManifestDigest:  sum.ManifestDigest,
		}
		for _, up := range sum.Updated {
			rel.Updated = append(rel.Updated, syncPluginJSON{
				ID: up.ID, Previous: up.Previous, Version: up.Version, Reason: up.Reason, Archive: up.Archive.Path,
			})
		}
		for _, dec := range sum.Pending {
			rel.Pending = append(rel.Pending, syncPluginJSON{
				ID: dec.Descriptor.ID, Previous: dec.Previous, Version: dec.Descriptor.Version, Reason: dec.Reason,
			})
		}
		for _, perr := range sum.Failed {
			rel.Failed = append(rel.Failed, syncFailedJSON{
				ID: perr.ID, Folder: perr.Folder, Step: perr.Step, Error: perr.Err.Error(),
			})
		}
		payload.Releases = append(payload.Releases, rel)
	}
	if outcome.RootArchive != nil {
		payload.RootArchive = outcome.RootArchive.Path
	}
	if outcome.RootErr != nil {
		payload.RootError = outcome.RootErr.Error()
	}
	payload.Indexes = outcome.Indexes
	for _, err := range outcome.IndexErrors {
		payload.IndexErrors = append(payload.IndexErrors, err.Error())
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sync json: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}
