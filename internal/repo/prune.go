package repo

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// compiledDir is the bytecode cache directory name.
const compiledDir = "__pycache__"

var compiledExts = []string{".pyc", ".pyo"}

// PruneResult counts what PruneCompiled removed.
type PruneResult struct {
	Files int
	Dirs  int
	// Errors holds removals that failed; pruning never aborts a sync.
	Errors []error
}

// PruneCompiled removes compiled bytecode files and cache directories below
// root. Failures are logged and collected.
func PruneCompiled(root string, logger *log.Logger) PruneResult {
	var res PruneResult
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("prune walk failed", "path", p, "err", err)
			res.Errors = append(res.Errors, err)
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if d.Name() != compiledDir {
				return nil
			}
			if err := os.RemoveAll(p); err != nil {
				logger.Warn("could not remove compiled cache", "path", p, "err", err)
				res.Errors = append(res.Errors, err)
			} else {
				logger.Debug("removed compiled cache", "path", p)
				res.Dirs++
			}
			return filepath.SkipDir
		}
		if !isCompiled(d.Name()) {
			return nil
		}
		if err := os.Remove(p); err != nil {
			logger.Warn("could not remove compiled file", "path", p, "err", err)
			res.Errors = append(res.Errors, err)
			return nil
		}
		res.Files++
		return nil
	})
	return res
}

func isCompiled(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, c := range compiledExts {
		if ext == c {
			return true
		}
	}
	return false
}
