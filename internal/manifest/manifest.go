// Package manifest models the repository manifest (addons.xml): the ordered
// list of every published plugin descriptor.
package manifest

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"repogen/internal/descriptor"
)

// FileName is the default manifest file name inside the output root.
const FileName = "addons.xml"

// RootElement wraps every entry of the manifest.
const RootElement = "addons"

const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Entry is one published plugin descriptor.
type Entry struct {
	ID      string
	Version string
	Element descriptor.Element
}

// EntryFrom converts a parsed descriptor into a manifest entry.
func EntryFrom(d descriptor.Descriptor) Entry {
	return Entry{ID: d.ID, Version: d.Version, Element: d.Element}
}

// ParseError reports a manifest that exists but cannot be trusted.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("manifest %s is malformed: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Document is an ordered collection of entries keyed by identifier. At most
// one entry exists per identifier.
type Document struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty document.
func New() *Document {
	return &Document{index: map[string]int{}}
}

type documentXML struct {
	XMLName xml.Name
	Entries []entryXML `xml:"addon"`
}

type entryXML struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Inner string     `xml:",innerxml"`
}

// Load reads the manifest at path. A missing file yields an empty document.
// Any other read or decode failure is returned as a *ParseError.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return doc, nil
}

// Parse decodes a manifest document. Anything but whitespace, comments and
// processing instructions after the root element is an error.
func Parse(data []byte) (*Document, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var raw documentXML
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw.XMLName.Local != RootElement {
		return nil, fmt.Errorf("unexpected root element <%s>, want <%s>", raw.XMLName.Local, RootElement)
	}
	if err := expectEOF(dec); err != nil {
		return nil, err
	}

	doc := New()
	for i, re := range raw.Entries {
		el := descriptor.Element{Name: descriptor.RootElement, Attrs: re.Attrs, Inner: re.Inner}
		id, _ := el.Attr("id")
		ver, _ := el.Attr("version")
		id, ver = strings.TrimSpace(id), strings.TrimSpace(ver)
		el.SetAttr("id", id)
		el.SetAttr("version", ver)
		if id == "" {
			return nil, fmt.Errorf("entry %d has no id", i+1)
		}
		if _, dup := doc.index[id]; dup {
			return nil, fmt.Errorf("duplicate entry for %q", id)
		}
		doc.index[id] = len(doc.entries)
		doc.entries = append(doc.entries, Entry{ID: id, Version: ver, Element: el})
	}
	return doc, nil
}

func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("after </%s>: %w", RootElement, err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("unexpected text after </%s>", RootElement)
			}
		default:
			return fmt.Errorf("unexpected content after </%s>", RootElement)
		}
	}
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.entries)
}

// Get returns the entry for id.
func (d *Document) Get(id string) (Entry, bool) {
	i, ok := d.index[id]
	if !ok {
		return Entry{}, false
	}
	return d.entries[i], true
}

// Entries returns a copy of the entries in document order.
func (d *Document) Entries() []Entry {
	return append([]Entry(nil), d.entries...)
}

// IDs returns the identifiers in document order.
func (d *Document) IDs() []string {
	ids := make([]string, len(d.entries))
	for i, e := range d.entries {
		ids[i] = e.ID
	}
	return ids
}

// Upsert replaces the entry with the same identifier at its current
// position, or appends e when the identifier is new. It reports whether the
// document changed.
func (d *Document) Upsert(e Entry) bool {
	if d.index == nil {
		d.index = map[string]int{}
	}
	i, ok := d.index[e.ID]
	if !ok {
		d.index[e.ID] = len(d.entries)
		d.entries = append(d.entries, e)
		return true
	}

	old := d.entries[i]
	d.entries[i] = e
	return old.Version != e.Version || !bytes.Equal(old.Element.Encode(), e.Element.Encode())
}

// Finalize sorts entries by identifier ascending.
func (d *Document) Finalize() {
	sort.SliceStable(d.entries, func(i, j int) bool {
		return d.entries[i].ID < d.entries[j].ID
	})
	for i, e := range d.entries {
		d.index[e.ID] = i
	}
}

// Encode serializes the document in its canonical form.
func (d *Document) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(header)
	buf.WriteString("<" + RootElement + ">\n")
	for _, e := range d.entries {
		e.Element.AppendTo(&buf)
		buf.WriteString("\n")
	}
	buf.WriteString("</" + RootElement + ">\n")
	return buf.Bytes()
}

// Save writes the document to path atomically.
func (d *Document) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure manifest dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".manifest-*.xml")
	if err != nil {
		return fmt.Errorf("create temp manifest: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(d.Encode()); err != nil {
		tmp.Close()
		return fmt.Errorf("write manifest temp: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod manifest temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close manifest temp: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
