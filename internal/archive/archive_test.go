package archive

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"repogen/internal/descriptor"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func samplePlugin(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "sample.plugin")
	writeFile(t, filepath.Join(dir, "addon.xml"), `<addon id="sample.plugin" version="1.0.0"/>`)
	writeFile(t, filepath.Join(dir, "main.py"), "print('hi')\n")
	writeFile(t, filepath.Join(dir, "icon.png"), "png")
	writeFile(t, filepath.Join(dir, "resources", "settings.xml"), "<settings/>")
	writeFile(t, filepath.Join(dir, "resources", "lib", "util.py"), "x = 1\n")
	writeFile(t, filepath.Join(dir, "resources", "lib", "__pycache__", "util.cpython-311.pyc"), "bytecode")
	writeFile(t, filepath.Join(dir, "resources", "a.txt"), "a")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not included")
	return dir
}

func entryNames(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer r.Close()
	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
		if !f.Modified.Equal(Epoch) {
			t.Errorf("%s modified = %v, want %v", f.Name, f.Modified, Epoch)
		}
		if f.Mode().Perm() != FileMode {
			t.Errorf("%s mode = %v, want %v", f.Name, f.Mode().Perm(), FileMode)
		}
	}
	return names
}

func TestBuildPluginMembersAndOrder(t *testing.T) {
	folder := samplePlugin(t)
	out := t.TempDir()
	b := NewBuilder(out, DefaultPolicy(), nil)

	res, err := b.Build(folder, "sample.plugin", "1.0.0", descriptor.RolePlugin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := filepath.Join(out, "sample.plugin", "sample.plugin-1.0.0.zip")
	if res.Path != want {
		t.Fatalf("Path = %q, want %q", res.Path, want)
	}

	got := entryNames(t, res.Path)
	expected := []string{
		"sample.plugin/addon.xml",
		"sample.plugin/main.py",
		"sample.plugin/icon.png",
		"sample.plugin/resources/a.txt",
		"sample.plugin/resources/settings.xml",
		"sample.plugin/resources/lib/util.py",
	}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("entries = %v\nwant %v", got, expected)
	}

	// fanart.jpg, changelog.txt and README.md are absent from the sample.
	if len(res.Missing) != 3 {
		t.Errorf("Missing = %v, want 3 entries", res.Missing)
	}
	if res.Digest == "" || res.DigestErr != nil {
		t.Errorf("digest = %q err = %v", res.Digest, res.DigestErr)
	}
	if _, err := os.Stat(res.Path + ".md5"); err != nil {
		t.Errorf("sidecar missing: %v", err)
	}
}

func TestBuildRepositoryRole(t *testing.T) {
	folder := samplePlugin(t)
	b := NewBuilder(t.TempDir(), DefaultPolicy(), nil)

	res, err := b.Build(folder, "repository.sample", "2.0", descriptor.RoleRepository)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	got := entryNames(t, res.Path)
	expected := []string{"repository.sample/addon.xml", "repository.sample/icon.png"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("entries = %v, want %v", got, expected)
	}
}

func TestBuildIsReproducible(t *testing.T) {
	folder := samplePlugin(t)
	b := NewBuilder(t.TempDir(), DefaultPolicy(), nil)

	first, err := b.Build(folder, "sample.plugin", "1.0.0", descriptor.RolePlugin)
	if err != nil {
		t.Fatal(err)
	}
	firstBytes, err := os.ReadFile(first.Path)
	if err != nil {
		t.Fatal(err)
	}

	// Touch every file; content is unchanged so the archive must be too.
	later := time.Now().Add(48 * time.Hour)
	err = filepath.Walk(folder, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return os.Chtimes(p, later, later)
	})
	if err != nil {
		t.Fatal(err)
	}

	second, err := b.Build(folder, "sample.plugin", "1.0.0", descriptor.RolePlugin)
	if err != nil {
		t.Fatal(err)
	}
	secondBytes, err := os.ReadFile(second.Path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(firstBytes, secondBytes) {
		t.Fatal("rebuilt archive differs")
	}
	if first.Digest != second.Digest {
		t.Fatalf("digest changed: %s != %s", first.Digest, second.Digest)
	}
}

func TestSpecForCustomExcludes(t *testing.T) {
	folder := samplePlugin(t)
	policy := DefaultPolicy()
	policy.PluginInclude = []string{"resources"}
	policy.ExcludeDirs = []string{"lib"}

	spec, missing, err := SpecFor(folder, "p", descriptor.RolePlugin, policy)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
	var names []string
	for _, m := range spec.Members {
		names = append(names, m.Name)
	}
	expected := []string{"p/resources/a.txt", "p/resources/settings.xml"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("members = %v, want %v", names, expected)
	}
}

func TestSpecForSkipsHiddenAndCompiled(t *testing.T) {
	folder := samplePlugin(t)
	writeFile(t, filepath.Join(folder, "resources", ".DS_Store"), "finder")
	writeFile(t, filepath.Join(folder, "resources", ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(folder, "resources", "lib", "util.pyc"), "bytecode")
	writeFile(t, filepath.Join(folder, "resources", "lib", "OLD.PYO"), "bytecode")
	policy := DefaultPolicy()
	policy.PluginInclude = []string{"resources"}

	spec, _, err := SpecFor(folder, "p", descriptor.RolePlugin, policy)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, m := range spec.Members {
		names = append(names, m.Name)
	}
	expected := []string{"p/resources/a.txt", "p/resources/settings.xml", "p/resources/lib/util.py"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("members = %v, want %v", names, expected)
	}
}
