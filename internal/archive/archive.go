// Package archive builds reproducible plugin archives.
//
// Every entry is written with a fixed timestamp and fixed permission bits and
// members are added in a sorted order, so rebuilding an unchanged plugin
// folder yields a byte-identical zip file.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/flate"

	"repogen/internal/descriptor"
	"repogen/internal/digest"
)

// Epoch is the modification time recorded for every archive entry.
var Epoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// FileMode is the permission set recorded for every archive entry.
const FileMode os.FileMode = 0o644

// Name returns the archive file name for a plugin release.
func Name(id, version string) string {
	return fmt.Sprintf("%s-%s.zip", id, version)
}

// Result describes a finished archive.
type Result struct {
	Path       string
	DigestPath string
	Digest     string
	Size       int64
	Members    []Member
	// Missing lists include paths that were absent from the plugin folder.
	Missing []string
	// DigestErr is set when the archive was written but its sidecar was not.
	DigestErr error
}

// Builder writes archives below OutputRoot, one directory per plugin.
type Builder struct {
	OutputRoot string
	Policy     Policy
	Logger     *log.Logger
	// Level is the flate compression level.
	Level int
}

// NewBuilder returns a Builder using the default compression level.
func NewBuilder(outputRoot string, policy Policy, logger *log.Logger) *Builder {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Builder{
		OutputRoot: outputRoot,
		Policy:     policy,
		Logger:     logger,
		Level:      flate.BestCompression,
	}
}

// Build archives the plugin in folder as <OutputRoot>/<id>/<id>-<version>.zip
// and writes the archive's digest sidecar.
func (b *Builder) Build(folder, id, version string, role descriptor.Role) (Result, error) {
	spec, missing, err := SpecFor(folder, id, role, b.Policy)
	if err != nil {
		return Result{}, err
	}
	for _, m := range missing {
		b.Logger.Warn("archive member not found, skipping", "plugin", id, "path", m)
	}

	outDir := filepath.Join(b.OutputRoot, id)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create archive dir: %w", err)
	}
	target := filepath.Join(outDir, Name(id, version))

	size, err := b.write(target, spec)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Path:    target,
		Size:    size,
		Members: spec.Members,
		Missing: missing,
	}

	sidecar, sum, err := digest.WriteSidecar(target)
	if err != nil {
		b.Logger.Warn("could not write archive digest", "plugin", id, "path", digest.SidecarPath(target), "err", err)
		res.DigestErr = err
		return res, nil
	}
	res.DigestPath = sidecar
	res.Digest = sum
	return res, nil
}

// write streams the spec into a temporary file beside target and renames it
// into place once the archive is complete.
func (b *Builder) write(target string, spec Spec) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".archive-*.zip")
	if err != nil {
		return 0, fmt.Errorf("create temp archive: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := b.encode(tmp, spec); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("chmod archive: %w", err)
	}
	info, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("stat archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return 0, fmt.Errorf("replace archive %s: %w", target, err)
	}
	return info.Size(), nil
}

// Encode writes spec as a zip stream to w.
func (b *Builder) encode(w io.Writer, spec Spec) error {
	zw := zip.NewWriter(w)
	level := b.Level
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	for _, m := range spec.Members {
		if err := addMember(zw, m); err != nil {
			zw.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finish archive: %w", err)
	}
	return nil
}

func addMember(zw *zip.Writer, m Member) error {
	src, err := os.Open(m.Source)
	if err != nil {
		return fmt.Errorf("open %s: %w", m.Source, err)
	}
	defer src.Close()

	header := &zip.FileHeader{
		Name:     m.Name,
		Method:   zip.Deflate,
		Modified: Epoch,
	}
	header.SetMode(FileMode)

	dst, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", m.Name, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write entry %s: %w", m.Name, err)
	}
	return nil
}
