// Package transfer uploads a finished repository to the host that serves it.
// It only reads the output of a sync and never changes it.
package transfer

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"

	"repogen/internal/archive"
	"repogen/internal/digest"
	"repogen/internal/paths"
)

// Item is one file to upload. Remote is slash separated and relative to the
// target's base directory.
type Item struct {
	Local    string
	Remote   string
	Optional bool
}

// Target receives uploaded files.
type Target interface {
	Put(ctx context.Context, local, remote string) error
	Close() error
}

// PlanInput names what PlanFor uploads.
type PlanInput struct {
	SiteRoot     string
	Release      paths.ReleasePaths
	RepositoryID string
	Version      string
}

// PlanFor lists the uploads for a repository release: the root archive under
// repo/, the manifest with its digest and the repository artwork under
// zips/, and the repository package with its descriptor and artwork under
// zips/<repository id>/.
func PlanFor(in PlanInput) []Item {
	zip := archive.Name(in.RepositoryID, in.Version)
	repoFolder := filepath.Join(in.Release.ScanRoot, in.RepositoryID)
	manifestName := filepath.Base(in.Release.ManifestFile)
	pkgDir := path.Join("zips", in.RepositoryID)

	return []Item{
		{Local: filepath.Join(in.SiteRoot, zip), Remote: path.Join("repo", zip)},
		{Local: in.Release.ManifestFile, Remote: path.Join("zips", manifestName)},
		{Local: digest.SidecarPath(in.Release.ManifestFile), Remote: path.Join("zips", manifestName+digest.Suffix)},
		{Local: filepath.Join(repoFolder, "icon.png"), Remote: "zips/icon.png", Optional: true},
		{Local: filepath.Join(repoFolder, "fanart.jpg"), Remote: "zips/fanart.jpg", Optional: true},
		{Local: filepath.Join(in.Release.OutputDir, in.RepositoryID, zip), Remote: path.Join(pkgDir, zip)},
		{Local: filepath.Join(repoFolder, "addon.xml"), Remote: path.Join(pkgDir, "addon.xml")},
		{Local: filepath.Join(repoFolder, "icon.png"), Remote: path.Join(pkgDir, "icon.png"), Optional: true},
		{Local: filepath.Join(repoFolder, "fanart.jpg"), Remote: path.Join(pkgDir, "fanart.jpg"), Optional: true},
	}
}

// Result lists what Run uploaded.
type Result struct {
	Sent    []Item
	Skipped []Item
}

// Run uploads items in order. Missing optional files are skipped; a missing
// required file stops the run before anything is sent.
func Run(ctx context.Context, target Target, items []Item, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var res Result
	var send []Item
	for _, it := range items {
		ok, err := paths.FileExists(it.Local)
		if err != nil {
			return res, fmt.Errorf("stat %s: %w", it.Local, err)
		}
		if ok {
			send = append(send, it)
			continue
		}
		if !it.Optional {
			return res, fmt.Errorf("required file %s not found", it.Local)
		}
		logger.Debug("optional upload missing, skipping", "path", it.Local)
		res.Skipped = append(res.Skipped, it)
	}

	for _, it := range send {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := target.Put(ctx, it.Local, it.Remote); err != nil {
			return res, fmt.Errorf("upload %s: %w", it.Remote, err)
		}
		logger.Info("uploaded", "path", it.Local, "remote", it.Remote)
		res.Sent = append(res.Sent, it)
	}
	return res, nil
}
