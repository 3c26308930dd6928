package archive

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"repogen/internal/descriptor"
)

// Policy lists what goes into an archive for each role. Include entries are
// slash separated paths relative to the plugin folder; directories are added
// recursively.
type Policy struct {
	RepositoryInclude []string `yaml:"repository_include"`
	PluginInclude     []string `yaml:"plugin_include"`
	// ExcludeDirs are directory names skipped at any depth while walking an
	// included directory.
	ExcludeDirs []string `yaml:"exclude_dirs"`
}

// DefaultPolicy returns the inclusion sets used when no configuration
// overrides them.
func DefaultPolicy() Policy {
	return Policy{
		RepositoryInclude: []string{"addon.xml", "icon.png", "fanart.jpg"},
		PluginInclude: []string{
			"addon.xml",
			"main.py",
			"fanart.jpg",
			"icon.png",
			"resources",
			"changelog.txt",
			"README.md",
		},
		ExcludeDirs: []string{"__pycache__"},
	}
}

// Includes returns the inclusion list for role.
func (p Policy) Includes(role descriptor.Role) []string {
	if role == descriptor.RoleRepository {
		return p.RepositoryInclude
	}
	return p.PluginInclude
}

func (p Policy) excluded(name string) bool {
	for _, ex := range p.ExcludeDirs {
		if ex == name {
			return true
		}
	}
	return false
}

// Member is a single file destined for an archive.
type Member struct {
	Source string
	Name   string
}

// Spec is the ordered member list of one plugin archive.
type Spec struct {
	ID      string
	Role    descriptor.Role
	Members []Member
}

// SpecFor resolves the archive members for the plugin in folder. Include
// paths that do not exist are returned in missing rather than as an error.
func SpecFor(folder, id string, role descriptor.Role, policy Policy) (Spec, []string, error) {
	spec := Spec{ID: id, Role: role}
	var missing []string

	for _, item := range policy.Includes(role) {
		clean := path.Clean(item)
		src := filepath.Join(folder, filepath.FromSlash(clean))
		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, src)
				continue
			}
			return Spec{}, missing, fmt.Errorf("stat %s: %w", src, err)
		}

		switch {
		case info.Mode().IsRegular():
			spec.Members = append(spec.Members, Member{Source: src, Name: path.Join(id, clean)})
		case info.IsDir():
			members, err := walkSorted(src, path.Join(id, clean), policy)
			if err != nil {
				return Spec{}, missing, err
			}
			spec.Members = append(spec.Members, members...)
		}
	}

	return spec, missing, nil
}

// walkSorted lists the regular files below dir: files of each directory in
// name order, then its subdirectories in name order. Hidden entries and
// compiled bytecode are left out.
func walkSorted(dir, name string, policy Policy) ([]Member, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var members []Member
	var subdirs []os.DirEntry
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() {
			subdirs = append(subdirs, entry)
			continue
		}
		if compiled(entry.Name()) {
			continue
		}
		src := filepath.Join(dir, entry.Name())
		info, err := os.Stat(src)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		members = append(members, Member{Source: src, Name: path.Join(name, entry.Name())})
	}

	for _, sub := range subdirs {
		if policy.excluded(sub.Name()) {
			continue
		}
		nested, err := walkSorted(filepath.Join(dir, sub.Name()), path.Join(name, sub.Name()), policy)
		if err != nil {
			return nil, err
		}
		members = append(members, nested...)
	}
	return members, nil
}

func compiled(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".pyc" || ext == ".pyo"
}
