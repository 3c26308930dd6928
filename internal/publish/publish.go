// Package publish copies a plugin's descriptor and declared meta assets next
// to its archives so clients can show them without downloading the archive.
package publish

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/log"

	"repogen/internal/descriptor"
	"repogen/internal/paths"
)

// Result lists what a Publish call did.
type Result struct {
	Descriptor descriptor.Descriptor
	// Copied holds the slash separated paths written below the output folder.
	Copied []string
	// Skipped holds declared paths that were absent on disk.
	Skipped []string
	// Rejected holds declared paths that resolve outside the plugin folder.
	Rejected []string
}

// Publisher copies meta assets for one plugin at a time.
type Publisher struct {
	Logger         *log.Logger
	DescriptorName string
}

// New returns a Publisher that reads descriptorName from each plugin folder.
func New(descriptorName string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if descriptorName == "" {
		descriptorName = descriptor.FileName
	}
	return &Publisher{Logger: logger, DescriptorName: descriptorName}
}

// Publish parses the descriptor in pluginFolder and copies it, together with
// every asset it declares, into outputFolder. Declared files that do not
// exist are skipped.
func (p *Publisher) Publish(pluginFolder, outputFolder string) (Result, error) {
	d, err := descriptor.LoadDir(pluginFolder, p.DescriptorName)
	if err != nil {
		return Result{}, err
	}
	res := Result{Descriptor: d}

	items := append([]string{p.DescriptorName}, d.Assets...)
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		rel := path.Clean(item)
		if seen[rel] {
			continue
		}
		seen[rel] = true

		src := filepath.Join(pluginFolder, filepath.FromSlash(rel))
		dest := filepath.Join(outputFolder, filepath.FromSlash(rel))
		if !paths.Within(pluginFolder, src) || !paths.Within(outputFolder, dest) {
			p.Logger.Warn("declared asset outside plugin folder, skipping", "plugin", d.ID, "path", item)
			res.Rejected = append(res.Rejected, item)
			continue
		}

		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				p.Logger.Debug("declared asset not found", "plugin", d.ID, "path", src)
				res.Skipped = append(res.Skipped, rel)
				continue
			}
			return res, fmt.Errorf("stat %s: %w", src, err)
		}
		if !info.Mode().IsRegular() {
			p.Logger.Debug("declared asset is not a regular file", "plugin", d.ID, "path", src)
			res.Skipped = append(res.Skipped, rel)
			continue
		}

		if err := paths.CopyFile(src, dest); err != nil {
			return res, fmt.Errorf("publish %s: %w", rel, err)
		}
		res.Copied = append(res.Copied, rel)
	}

	return res, nil
}
