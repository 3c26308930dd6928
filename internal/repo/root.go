package repo

import (
	"fmt"
	"path/filepath"

	"repogen/internal/archive"
	"repogen/internal/digest"
	"repogen/internal/manifest"
	"repogen/internal/paths"
)

// RootArchive is the repository package copied to the site root.
type RootArchive struct {
	ID         string
	Version    string
	Path       string
	DigestPath string
}

// PublishRootArchive copies the current archive of repositoryID, and its
// digest when present, from the release output tree into siteRoot. It
// returns false when the manifest has no entry for repositoryID.
func PublishRootArchive(siteRoot string, rel paths.ReleasePaths, doc *manifest.Document, repositoryID string) (RootArchive, bool, error) {
	entry, ok := doc.Get(repositoryID)
	if !ok {
		return RootArchive{}, false, nil
	}

	name := archive.Name(entry.ID, entry.Version)
	src := filepath.Join(rel.OutputDir, entry.ID, name)
	dest := filepath.Join(siteRoot, name)
	if err := paths.CopyFile(src, dest); err != nil {
		return RootArchive{}, true, fmt.Errorf("copy repository archive: %w", err)
	}
	out := RootArchive{ID: entry.ID, Version: entry.Version, Path: dest}

	sidecar := digest.SidecarPath(src)
	if ok, _ := paths.FileExists(sidecar); ok {
		out.DigestPath = digest.SidecarPath(dest)
		if err := paths.CopyFile(sidecar, out.DigestPath); err != nil {
			return out, true, fmt.Errorf("copy repository digest: %w", err)
		}
	}
	return out, true, nil
}
