// Package descriptor reads plugin descriptor files (addon.xml).
//
// A descriptor is the plugin's own metadata: its identifier, its version and
// the asset files it declares for clients that do not unpack archives. The
// element is kept verbatim so it can be embedded in the repository manifest
// without reformatting.
package descriptor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileName is the default descriptor file name inside a plugin folder.
const FileName = "addon.xml"

// RootElement is the name of a descriptor's root element.
const RootElement = "addon"

// Extension points whose <assets> children declare published meta assets.
var metadataPoints = map[string]bool{
	"xbmc.addon.metadata": true,
	"kodi.addon.metadata": true,
}

// RepositoryPoint marks a descriptor as the repository's own package.
const RepositoryPoint = "xbmc.addon.repository"

var (
	ErrMissingID      = errors.New("descriptor has no id attribute")
	ErrMissingVersion = errors.New("descriptor has no version attribute")
	// ErrUnsafeName rejects ids and versions that would leave the plugin's
	// output directory when used in a path.
	ErrUnsafeName = errors.New("descriptor id or version is not a plain name")
)

// Role selects the archive inclusion policy for a plugin.
type Role string

const (
	RolePlugin     Role = "plugin"
	RoleRepository Role = "repository"
)

// Descriptor is a parsed plugin descriptor.
type Descriptor struct {
	ID      string
	Version string
	// Assets are the declared asset paths, slash separated and relative to
	// the plugin folder, in document order.
	Assets []string
	// Repository is true when the descriptor declares the repository
	// extension point.
	Repository bool
	Element    Element
	Path       string
}

// Role reports the inclusion policy for d. repositoryID, when non-empty,
// names the repository package explicitly.
func (d Descriptor) Role(repositoryID string) Role {
	if d.Repository || (repositoryID != "" && d.ID == repositoryID) {
		return RoleRepository
	}
	return RolePlugin
}

type addonXML struct {
	XMLName    xml.Name
	Attrs      []xml.Attr     `xml:",any,attr"`
	Inner      string         `xml:",innerxml"`
	Extensions []extensionXML `xml:"extension"`
}

type extensionXML struct {
	Point  string     `xml:"point,attr"`
	Assets *assetsXML `xml:"assets"`
}

type assetsXML struct {
	Items []assetXML `xml:",any"`
}

type assetXML struct {
	XMLName xml.Name
	Text    string `xml:",chardata"`
}

// Load reads and parses the descriptor at p.
func Load(p string) (Descriptor, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read descriptor: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("parse %s: %w", p, err)
	}
	d.Path = p
	return d, nil
}

// LoadDir reads the descriptor named fileName inside folder.
func LoadDir(folder, fileName string) (Descriptor, error) {
	if fileName == "" {
		fileName = FileName
	}
	return Load(filepath.Join(folder, fileName))
}

// Parse decodes a descriptor document.
func Parse(data []byte) (Descriptor, error) {
	var doc addonXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return Descriptor{}, err
	}
	if doc.XMLName.Local != RootElement {
		return Descriptor{}, fmt.Errorf("unexpected root element <%s>, want <%s>", doc.XMLName.Local, RootElement)
	}

	d := Descriptor{
		Element: Element{
			Name:  doc.XMLName.Local,
			Attrs: doc.Attrs,
			Inner: doc.Inner,
		},
	}
	d.ID, _ = d.Element.Attr("id")
	d.Version, _ = d.Element.Attr("version")
	d.ID = strings.TrimSpace(d.ID)
	d.Version = strings.TrimSpace(d.Version)
	if d.ID == "" {
		return Descriptor{}, ErrMissingID
	}
	if d.Version == "" {
		return Descriptor{}, ErrMissingVersion
	}
	for _, v := range []string{d.ID, d.Version} {
		if !plainName(v) {
			return Descriptor{}, fmt.Errorf("%w: %q", ErrUnsafeName, v)
		}
	}
	// The manifest keys entries by the attribute text, so it must match the
	// trimmed values exactly.
	d.Element.SetAttr("id", d.ID)
	d.Element.SetAttr("version", d.Version)

	for _, ext := range doc.Extensions {
		if ext.Point == RepositoryPoint {
			d.Repository = true
		}
		if !metadataPoints[ext.Point] || ext.Assets == nil {
			continue
		}
		for _, item := range ext.Assets.Items {
			text := strings.TrimSpace(item.Text)
			if text == "" {
				continue
			}
			d.Assets = append(d.Assets, path.Clean(filepath.ToSlash(text)))
		}
	}

	return d, nil
}

// plainName reports whether v can be used as a single path element.
func plainName(v string) bool {
	if v == "." || strings.Contains(v, "..") || strings.ContainsAny(v, `/\`) {
		return false
	}
	for _, r := range v {
		if r < 0x20 || r == 0x7f {
			return false
		}
	}
	return true
}
