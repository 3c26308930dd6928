package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"
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

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// rows returns the listing lines between the two rules.
func rows(t *testing.T, doc string) []string {
	t.Helper()
	start := strings.Index(doc, "<hr>")
	end := strings.LastIndex(doc, "<hr>")
	if start < 0 || end <= start {
		t.Fatalf("listing has no rules:\n%s", doc)
	}
	body := strings.TrimSuffix(doc[start+len("<hr>"):end], "\n")
	return strings.Split(body, "\n")
}

func TestRenderTreeWritesEveryDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "addons.xml"), "<addons/>")
	writeFile(t, filepath.Join(root, "addons.xml.md5"), "abc")
	writeFile(t, filepath.Join(root, "plugin.b", "plugin.b-1.0.zip"), "zip")
	writeFile(t, filepath.Join(root, "plugin.a", "resources", "icon.png"), "png")

	res, err := New("/kodi/zips", nil).RenderTree(root)
	if err != nil {
		t.Fatalf("RenderTree: %v", err)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors: %v", res.Errors)
	}
	for _, dir := range []string{".", "plugin.a", "plugin.a/resources", "plugin.b"} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(dir), FileName)); err != nil {
			t.Errorf("%s: %v", dir, err)
		}
	}
	if len(res.Written) != 4 {
		t.Errorf("Written = %v", res.Written)
	}

	doc := read(t, filepath.Join(root, FileName))
	if !strings.Contains(doc, "<title>Index of /kodi/zips/</title>") {
		t.Errorf("missing title:\n%s", doc)
	}
	lines := rows(t, doc)
	want := []string{"../", "plugin.a/", "plugin.b/", "addons.xml", "addons.xml.md5"}
	if len(lines) != len(want) {
		t.Fatalf("rows = %q", lines)
	}
	for i, href := range want {
		if !strings.HasPrefix(lines[i], `<a href="`+href+`">`) {
			t.Errorf("row %d = %q, want link to %s", i, lines[i], href)
		}
	}
	if !strings.HasSuffix(lines[3], "  9") {
		t.Errorf("file row lacks size: %q", lines[3])
	}
	if !strings.HasSuffix(lines[1], "  -") {
		t.Errorf("dir row lacks placeholder size: %q", lines[1])
	}
	if strings.Contains(doc, ">index.html<") {
		t.Error("listing includes itself")
	}

	sub := read(t, filepath.Join(root, "plugin.a", "resources", FileName))
	if !strings.Contains(sub, "Index of /kodi/zips/plugin.a/resources/") {
		t.Errorf("nested title wrong:\n%s", sub)
	}
}

func TestRenderTreeIsStableWhenUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "p", "p-1.zip"), "zip")
	old := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	for _, p := range []string{filepath.Join(root, "p", "p-1.zip")} {
		if err := os.Chtimes(p, old, old); err != nil {
			t.Fatal(err)
		}
	}

	r := New("", nil)
	if _, err := r.RenderTree(root); err != nil {
		t.Fatal(err)
	}
	first := read(t, filepath.Join(root, "p", FileName))
	if !strings.Contains(first, "2024-05-01 12:30") {
		t.Errorf("mtime not rendered in UTC:\n%s", first)
	}
	if _, err := r.RenderTree(root); err != nil {
		t.Fatal(err)
	}
	if second := read(t, filepath.Join(root, "p", FileName)); second != first {
		t.Errorf("leaf listing changed between runs")
	}
}

func TestBuildColumnWidth(t *testing.T) {
	short := Build("/", []Entry{{Name: "a.zip"}}, 25)
	for _, e := range short.Entries {
		if got := runewidth.StringWidth(e.Name) + len(e.Pad); got != 25 {
			t.Errorf("%q column width = %d, want 25", e.Name, got)
		}
	}
	if len(short.NamePad) != 21 {
		t.Errorf("header pad = %d", len(short.NamePad))
	}

	long := strings.Repeat("x", 40) + ".zip"
	wide := Build("/", []Entry{{Name: long}, {Name: "日本語.zip"}}, 25)
	for _, e := range wide.Entries {
		if got := runewidth.StringWidth(e.Name) + len(e.Pad); got != 45 {
			t.Errorf("%q column width = %d, want 45", e.Name, got)
		}
	}
	if wide.Entries[0].Name != parentName || wide.Entries[0].Href != "../" {
		t.Errorf("first row is not the parent link: %+v", wide.Entries[0])
	}
}

func TestRenderTopLinksNewestArchive(t *testing.T) {
	site := t.TempDir()
	for _, v := range []string{"1.9.0", "1.10.0", "1.2.0"} {
		writeFile(t, filepath.Join(site, "repository.example-"+v+".zip"), "zip")
	}
	writeFile(t, filepath.Join(site, "repository.example-1.10.0.zip.md5"), "abc")
	if err := os.MkdirAll(filepath.Join(site, "repo", "zips"), 0o755); err != nil {
		t.Fatal(err)
	}

	target, err := New("", nil).RenderTop(site, []string{"repo", "missing"}, "repository.example-*.zip")
	if err != nil {
		t.Fatalf("RenderTop: %v", err)
	}
	lines := rows(t, read(t, target))
	want := []string{"../", "repo/", "repository.example-1.10.0.zip", "repository.example-1.10.0.zip.md5"}
	if len(lines) != len(want) {
		t.Fatalf("rows = %q", lines)
	}
	for i, href := range want {
		if !strings.HasPrefix(lines[i], `<a href="`+href+`">`) {
			t.Errorf("row %d = %q, want link to %s", i, lines[i], href)
		}
	}
}

func TestNewestMatch(t *testing.T) {
	dir := t.TempDir()
	if got, err := NewestMatch(dir, "x-*.zip"); err != nil || got != "" {
		t.Fatalf("empty dir = %q, %v", got, err)
	}
	writeFile(t, filepath.Join(dir, "x-2.0.zip"), "")
	writeFile(t, filepath.Join(dir, "x-10.0.zip"), "")
	got, err := NewestMatch(dir, "x-*.zip")
	if err != nil {
		t.Fatal(err)
	}
	if got != "x-10.0.zip" {
		t.Fatalf("NewestMatch = %q", got)
	}
	if _, err := NewestMatch(dir, "x-[.zip"); err == nil {
		t.Fatal("expected invalid pattern error")
	}
}
