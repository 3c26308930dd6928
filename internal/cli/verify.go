package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"repogen/internal/archive"
	"repogen/internal/digest"
	"repogen/internal/manifest"
	"repogen/internal/paths"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute digests of every manifest and archive and report mismatches",
		RunE:  runVerify,
	}
}

const (
	verifyOK       = "ok"
	verifyMismatch = "mismatch"
	verifyMissing  = "missing"
	verifyNoDigest = "no digest"
)

type verifyRow struct {
	Release string `json:"release"`
	Path    string `json:"path"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

func runVerify(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []verifyRow
	for _, rel := range a.releases() {
		if ok, _ := paths.FileExists(rel.ManifestFile); !ok {
			continue
		}
		rows = append(rows, verifyFile(rel.Name, rel.ManifestFile))

		doc, err := manifest.Load(rel.ManifestFile)
		if err != nil {
			return err
		}
		for _, e := range doc.Entries() {
			zip := filepath.Join(rel.OutputDir, e.ID, archive.Name(e.ID, e.Version))
			rows = append(rows, verifyFile(rel.Name, zip))
		}
	}
	if a.cfg.RepositoryID != "" {
		matches, _ := doublestar.Glob(os.DirFS(a.paths.Root), a.cfg.RepositoryID+"-*.zip", doublestar.WithFilesOnly())
		for _, m := range matches {
			rows = append(rows, verifyFile("", filepath.Join(a.paths.Root, m)))
		}
	}

	problems := 0
	for _, row := range rows {
		if row.Status == verifyMismatch || row.Status == verifyMissing {
			problems++
			a.logger.Warn("verification failed", "path", row.Path, "status", row.Status, "detail", row.Detail)
		}
	}

	if outputJSON {
		payload := struct {
			Files    []verifyRow `json:"files"`
			Problems int         `json:"problems"`
		}{Files: rows, Problems: problems}
		if payload.Files == nil {
			payload.Files = []verifyRow{}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode verify json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	} else {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "RELEASE\tFILE\tSTATUS\tDETAIL")
		for _, row := range rows {
			rel, err := filepath.Rel(a.paths.Root, row.Path)
			if err != nil {
				rel = row.Path
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", nonEmptyOrDash(row.Release), rel, row.Status, row.Detail)
		}
		w.Flush()
	}

	if problems > 0 {
		return fmt.Errorf("verification failed for %d file(s)", problems)
	}
	if !outputJSON {
		a.console.Success("All %d file(s) verified", len(rows))
	}
	return nil
}

// verifyFile checks path against its sidecar. A missing sidecar is reported
// but is not a failure; digests are advisory.
func verifyFile(release, path string) verifyRow {
	row := verifyRow{Release: release, Path: path, Status: verifyOK}
	if ok, _ := paths.FileExists(path); !ok {
		row.Status = verifyMissing
		return row
	}
	err := digest.Verify(path)
	var mismatch *digest.MismatchError
	switch {
	case err == nil:
	case errors.As(err, &mismatch):
		row.Status = verifyMismatch
		row.Detail = fmt.Sprintf("expected %s, got %s", mismatch.Expected, mismatch.Got)
	case errors.Is(err, os.ErrNotExist):
		row.Status = verifyNoDigest
	default:
		row.Status = verifyMismatch
		row.Detail = err.Error()
	}
	return row
}
