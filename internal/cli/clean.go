package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"repogen/internal/console"
	"repogen/internal/paths"
)

var (
	cleanDryRun  bool
	cleanOutputs bool
	cleanLogs    bool
)

// cleanPatterns are the root level leftovers of earlier builds.
var cleanPatterns = []string{"*.zip", "*.md5", "*.bak", "pe.cfg"}

func newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove build leftovers from the site root",
		Long: "Remove root level archives, digests, backups and pe.cfg. With --outputs the\n" +
			"output tree of every release is removed as well, forcing a full rebuild.",
		RunE: runClean,
	}

	cmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "List what would be removed without deleting")
	cmd.Flags().BoolVar(&cleanOutputs, "outputs", false, "Also remove every release output tree")
	cmd.Flags().BoolVar(&cleanLogs, "logs", false, "Also remove run logs")
	return cmd
}

type cleanResult struct {
	Removed    int   `json:"removed"`
	FreedBytes int64 `json:"freed_bytes"`
	Skipped    int   `json:"skipped"`
	DryRun     bool  `json:"dry_run"`
}

func runClean(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	result := cleanResult{DryRun: cleanDryRun}

	files, err := rootLeftovers(a.paths.Root)
	if err != nil {
		return err
	}
	for _, path := range files {
		removeFileEntry(path, a.console, &result)
	}

	if cleanOutputs {
		for _, rel := range a.paths.Releases(a.cfg) {
			removeTree(rel.OutputDir, a.console, &result)
		}
	}
	if cleanLogs {
		// The current run's log file stays open; everything else goes.
		logs, _ := doublestar.Glob(os.DirFS(a.paths.LogsDir), "*.log", doublestar.WithFilesOnly())
		sort.Strings(logs)
		for _, name := range logs[:max(len(logs)-1, 0)] {
			removeFileEntry(filepath.Join(a.paths.LogsDir, name), a.console, &result)
		}
	}

	a.logger.Info("clean finished", "removed", result.Removed, "freed", result.FreedBytes, "dry_run", cleanDryRun)
	return writeCleanResult(out, a.console, result)
}

// rootLeftovers lists the files directly in root matching cleanPatterns.
func rootLeftovers(root string) ([]string, error) {
	fsys := os.DirFS(root)
	seen := map[string]bool{}
	var files []string
	for _, pattern := range cleanPatterns {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, filepath.Join(root, m))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

func removeTree(dir string, con *console.Console, result *cleanResult) {
	exists, err := paths.DirExists(dir)
	if err != nil || !exists {
		return
	}
	var size int64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})

	if cleanDryRun {
		if !outputJSON {
			con.Plain("would remove %s/ (%s)", dir, formatSize(size))
		}
		result.Removed++
		result.FreedBytes += size
		return
	}
	if err := os.RemoveAll(dir); err != nil {
		if !outputJSON {
			con.Error("removing %s: %v", dir, err)
		}
		result.Skipped++
		return
	}
	result.Removed++
	result.FreedBytes += size
	if !outputJSON {
		con.Plain("removed %s/ (%s)", dir, formatSize(size))
	}
}

func removeFileEntry(path string, con *console.Console, result *cleanResult) {
	info, err := os.Stat(path)
	if err != nil {
		result.Skipped++
		return
	}
	size := info.Size()

	if cleanDryRun {
		if !outputJSON {
			con.Plain("would remove %s (%s)", path, formatSize(size))
		}
		result.Removed++
		result.FreedBytes += size
		return
	}

	if err := os.Remove(path); err != nil {
		if !outputJSON {
			con.Error("removing %s: %v", path, err)
		}
		result.Skipped++
		return
	}

	result.Removed++
	result.FreedBytes += size
	if !outputJSON {
		con.Plain("removed %s (%s)", path, formatSize(size))
	}
}

func writeCleanResult(out io.Writer, con *console.Console, result cleanResult) error {
	if outputJSON {
		return json.NewEncoder(out).Encode(result)
	}

	action := "complete"
	if cleanDryRun {
		action = "(dry run)"
	}
	con.Success("\nClean %s: %d removed, %s freed, %d skipped",
		action, result.Removed, formatSize(result.FreedBytes), result.Skipped)
	return nil
}
