package paths

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"repogen/internal/config"
)

// RepoPaths captures canonical locations for a repository site.
type RepoPaths struct {
	Root       string
	ConfigFile string
	LogsDir    string
	IndexFile  string
}

// ReleasePaths locates one release: its scan root and the output tree
// nested inside it.
type ReleasePaths struct {
	Name         string
	ScanRoot     string
	OutputName   string
	OutputDir    string
	ManifestFile string
}

// Resolve determines the site root using the optional --root flag or the
// current working directory when the flag is empty.
func Resolve(rootFlag string) (RepoPaths, error) {
	var (
		root string
		err  error
	)

	if rootFlag != "" {
		root, err = filepath.Abs(rootFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return RepoPaths{}, fmt.Errorf("resolve site root: %w", err)
	}

	return newRepoPaths(root), nil
}

func newRepoPaths(root string) RepoPaths {
	return RepoPaths{
		Root:       root,
		ConfigFile: filepath.Join(root, config.FileName),
		LogsDir:    filepath.Join(root, "logs"),
		IndexFile:  filepath.Join(root, "index.html"),
	}
}

// Release returns the paths of the named release.
func (p RepoPaths) Release(cfg config.Config, name string) ReleasePaths {
	scan := resolveRootPath(p.Root, strings.TrimSpace(name))
	out := filepath.Join(scan, cfg.OutputDir)
	return ReleasePaths{
		Name:         name,
		ScanRoot:     scan,
		OutputName:   cfg.OutputDir,
		OutputDir:    out,
		ManifestFile: filepath.Join(out, cfg.ManifestName),
	}
}

// Releases returns the paths of every configured release in order.
func (p RepoPaths) Releases(cfg config.Config) []ReleasePaths {
	out := make([]ReleasePaths, 0, len(cfg.Releases))
	for _, name := range cfg.Releases {
		out = append(out, p.Release(cfg, name))
	}
	return out
}

func resolveRootPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureRoot makes sure the site root exists on disk.
func (p RepoPaths) EnsureRoot() error {
	if err := os.MkdirAll(p.Root, 0o755); err != nil {
		return fmt.Errorf("create site root: %w", err)
	}
	return nil
}

// EnsureLayout creates the logs directory and every release's output tree.
func (p RepoPaths) EnsureLayout(cfg config.Config) error {
	dirs := []string{p.LogsDir}
	for _, rel := range p.Releases(cfg) {
		dirs = append(dirs, rel.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Within reports whether target lies inside base once both are cleaned.
func Within(base, target string) bool {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// CopyFile copies src to dest through a temporary file in dest's directory,
// creating that directory as needed. The copy is mode 0644.
func CopyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("ensure dest dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp dest: %w", err)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copy data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp dest: %w", err)
	}

	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod temp dest: %w", err)
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename temp dest: %w", err)
	}
	return nil
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}
