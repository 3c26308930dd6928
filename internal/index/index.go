// Package index renders static directory listings for the published tree,
// laid out like a classic web server autoindex page.
package index

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
)

// FileName is the listing document written into every directory.
const FileName = "index.html"

// TimeFormat is the layout of the Last modified column.
const TimeFormat = "2006-01-02 15:04"

// DefaultMinNameWidth is the narrowest Name column.
const DefaultMinNameWidth = 25

const parentName = "Parent Directory"

//go:embed templates/listing.html.tmpl
var templatesFS embed.FS

var listingTmpl = template.Must(template.ParseFS(templatesFS, "templates/listing.html.tmpl"))

// Entry is one row of a listing.
type Entry struct {
	Name     string
	Href     string
	Modified string
	Size     string
	Pad      string
	IsDir    bool
}

// Listing is the data rendered into a listing document.
type Listing struct {
	Title   string
	NamePad string
	Entries []Entry
}

// Result lists the documents a render wrote and the directories it could
// not render.
type Result struct {
	Written []string
	Errors  []error
}

// Renderer writes listing documents.
type Renderer struct {
	// BaseURL prefixes the title of every listing, "/" when empty.
	BaseURL      string
	MinNameWidth int
	Logger       *log.Logger
}

// New returns a Renderer with the default column width.
func New(baseURL string, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Renderer{BaseURL: baseURL, MinNameWidth: DefaultMinNameWidth, Logger: logger}
}

func (r *Renderer) logger() *log.Logger {
	if r.Logger == nil {
		return log.New(io.Discard)
	}
	return r.Logger
}

// RenderTree writes a listing into root and every directory below it. A
// directory that cannot be rendered is logged and skipped; the returned
// error is reserved for an unreadable root.
func (r *Renderer) RenderTree(root string) (Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("stat index root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("index root %s is not a directory", root)
	}

	var res Result
	r.renderDir(root, root, &res)
	return res, nil
}

// renderDir renders children before dir itself so the listing shows the
// directory times left behind by their own index documents.
func (r *Renderer) renderDir(root, dir string, res *Result) {
	dirs, _, err := readDir(dir)
	if err != nil {
		r.logger().Warn("could not list directory", "path", dir, "err", err)
		res.Errors = append(res.Errors, err)
		return
	}
	for _, d := range dirs {
		r.renderDir(root, filepath.Join(dir, d.Name()), res)
	}

	dirs, files, err := readDir(dir)
	if err != nil {
		r.logger().Warn("could not list directory", "path", dir, "err", err)
		res.Errors = append(res.Errors, err)
		return
	}
	entries := make([]Entry, 0, len(dirs)+len(files))
	for _, d := range dirs {
		entries = append(entries, dirEntry(d.Name(), d))
	}
	for _, f := range files {
		entries = append(entries, fileEntry(f.Name(), f))
	}

	rel, err := filepath.Rel(root, dir)
	if err != nil {
		rel = "."
	}
	target := filepath.Join(dir, FileName)
	if err := r.write(target, r.title(filepath.ToSlash(rel)), entries); err != nil {
		r.logger().Warn("could not write directory index", "path", target, "err", err)
		res.Errors = append(res.Errors, err)
		return
	}
	res.Written = append(res.Written, target)
}

// RenderTop writes the site root listing. It links to each subtree and to
// the newest root level archive matching pattern, plus that archive's
// digest when present.
func (r *Renderer) RenderTop(siteRoot string, subtrees []string, pattern string) (string, error) {
	var entries []Entry

	names := append([]string(nil), subtrees...)
	sort.Strings(names)
	for _, name := range names {
		info, err := os.Stat(filepath.Join(siteRoot, name))
		if err != nil || !info.IsDir() {
			r.logger().Warn("index subtree missing, skipping", "path", filepath.Join(siteRoot, name))
			continue
		}
		entries = append(entries, dirEntry(name, info))
	}

	if pattern != "" {
		archive, err := NewestMatch(siteRoot, pattern)
		if err != nil {
			return "", err
		}
		if archive != "" {
			for _, name := range []string{archive, archive + ".md5"} {
				info, err := os.Stat(filepath.Join(siteRoot, name))
				if err != nil {
					continue
				}
				entries = append(entries, fileEntry(name, info))
			}
		}
	}

	target := filepath.Join(siteRoot, FileName)
	if err := r.write(target, r.title("."), entries); err != nil {
		return "", fmt.Errorf("write top level index: %w", err)
	}
	return target, nil
}

func (r *Renderer) title(rel string) string {
	base := r.BaseURL
	if base == "" {
		base = "/"
	}
	t := path.Join(base, rel)
	if !strings.HasSuffix(t, "/") {
		t += "/"
	}
	return t
}

func (r *Renderer) write(target, title string, entries []Entry) error {
	listing := Build(title, entries, r.MinNameWidth)
	var buf bytes.Buffer
	if err := listingTmpl.Execute(&buf, listing); err != nil {
		return fmt.Errorf("render listing: %w", err)
	}
	return writeAtomic(target, buf.Bytes())
}

// Build lays out entries under a parent link with aligned columns. The Name
// column is one wider than the widest name and never narrower than
// minWidth.
func Build(title string, entries []Entry, minWidth int) Listing {
	if minWidth <= 0 {
		minWidth = DefaultMinNameWidth
	}
	rows := make([]Entry, 0, len(entries)+1)
	rows = append(rows, Entry{
		Name:     parentName,
		Href:     "../",
		Modified: strings.Repeat(" ", len(TimeFormat)),
		Size:     "-",
		IsDir:    true,
	})
	rows = append(rows, entries...)

	width := minWidth
	for _, e := range rows {
		if w := runewidth.StringWidth(e.Name) + 1; w > width {
			width = w
		}
	}
	for i := range rows {
		rows[i].Pad = strings.Repeat(" ", width-runewidth.StringWidth(rows[i].Name))
	}

	return Listing{
		Title:   title,
		NamePad: strings.Repeat(" ", width-len("Name")),
		Entries: rows,
	}
}

func dirEntry(name string, info fs.FileInfo) Entry {
	return Entry{
		Name:     name + "/",
		Href:     url.PathEscape(name) + "/",
		Modified: info.ModTime().UTC().Format(TimeFormat),
		Size:     "-",
		IsDir:    true,
	}
}

func fileEntry(name string, info fs.FileInfo) Entry {
	return Entry{
		Name:     name,
		Href:     url.PathEscape(name),
		Modified: info.ModTime().UTC().Format(TimeFormat),
		Size:     strconv.FormatInt(info.Size(), 10),
	}
}

// readDir returns the subdirectories and listable files of dir, each sorted
// by name. Symlinks are followed; entries that cannot be stat'ed are left
// out.
func readDir(dir string) ([]fs.FileInfo, []fs.FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}
	var dirs, files []fs.FileInfo
	for _, e := range entries {
		if e.Name() == FileName {
			continue
		}
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if info.IsDir() {
			dirs = append(dirs, info)
		} else {
			files = append(files, info)
		}
	}
	return dirs, files, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".index-*.html")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write index: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace index: %w", err)
	}
	return nil
}
