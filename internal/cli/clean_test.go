package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootLeftovers(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"repository.x-1.0.0.zip", "repository.x-1.0.0.zip.md5", "addons.xml.bak", "pe.cfg", "keep.txt"} {
		writeTestFile(t, filepath.Join(dir, name), "x")
	}
	// Only the root level is considered.
	writeTestFile(t, filepath.Join(dir, "repo", "nested.zip"), "x")

	files, err := rootLeftovers(dir)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"addons.xml.bak", "pe.cfg", "repository.x-1.0.0.zip", "repository.x-1.0.0.zip.md5"}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i, name := range want {
		if files[i] != filepath.Join(dir, name) {
			t.Fatalf("files[%d] = %s, want %s", i, files[i], name)
		}
	}
}

func TestCleanCommand(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "old-1.0.0.zip"), "hello")
	writeTestFile(t, filepath.Join(root, "pe.cfg"), "x")
	writeTestFile(t, filepath.Join(root, "keep.txt"), "x")
	writeTestFile(t, filepath.Join(root, "repo", "zips", "addons.xml"), "<addons/>")

	t.Run("dry run does not delete", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--root", root, "clean", "--dry-run", "--outputs")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout, "would remove") || !strings.Contains(stdout, "(dry run)") {
			t.Fatalf("unexpected output %q", stdout)
		}
		if _, err := os.Stat(filepath.Join(root, "old-1.0.0.zip")); err != nil {
			t.Fatal("file should still exist after dry run")
		}
	})

	t.Run("removes leftovers", func(t *testing.T) {
		stdout, _, err := runCLI(t, "--root", root, "clean")
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(stdout, "2 removed") {
			t.Fatalf("unexpected output %q", stdout)
		}
		for _, name := range []string{"old-1.0.0.zip", "pe.cfg"} {
			if _, err := os.Stat(filepath.Join(root, name)); !os.IsNotExist(err) {
				t.Fatalf("%s should be removed", name)
			}
		}
		if _, err := os.Stat(filepath.Join(root, "keep.txt")); err != nil {
			t.Fatal("keep.txt should survive")
		}
		if _, err := os.Stat(filepath.Join(root, "repo", "zips")); err != nil {
			t.Fatal("output tree should survive without --outputs")
		}
	})

	t.Run("outputs flag removes output trees", func(t *testing.T) {
		if _, _, err := runCLI(t, "--root", root, "clean", "--outputs"); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(filepath.Join(root, "repo", "zips")); !os.IsNotExist(err) {
			t.Fatal("output tree should be removed")
		}
	})
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{-1, "0 B"},
		{0, "0 B"},
		{512, "512 B"},
		{2048, "2.0 KiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.in); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
