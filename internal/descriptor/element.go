package descriptor

import (
	"bytes"
	"encoding/xml"
)

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// Element is a verbatim copy of an XML element: its attributes in document
// order and the raw bytes between the start and end tags. Encoding an
// Element that came from Decode reproduces the same bytes on every call.
type Element struct {
	Name  string
	Attrs []xml.Attr
	Inner string
}

// Attr returns the value of the unqualified attribute name.
func (e Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces the value of the unqualified attribute name. It does
// nothing when the attribute is absent.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.Attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			e.Attrs[i].Value = value
			return
		}
	}
}

// Encode serializes the element.
func (e Element) Encode() []byte {
	var buf bytes.Buffer
	e.AppendTo(&buf)
	return buf.Bytes()
}

// AppendTo appends the serialized element to buf.
func (e Element) AppendTo(buf *bytes.Buffer) {
	prefixes := map[string]string{xmlNamespace: "xml"}
	for _, a := range e.Attrs {
		if a.Name.Space == "xmlns" {
			prefixes[a.Value] = a.Name.Local
		}
	}

	buf.WriteByte('<')
	buf.WriteString(e.Name)
	for _, a := range e.Attrs {
		buf.WriteByte(' ')
		buf.WriteString(attrName(a.Name, prefixes))
		buf.WriteString(`="`)
		_ = xml.EscapeText(buf, []byte(a.Value))
		buf.WriteByte('"')
	}
	buf.WriteByte('>')
	buf.WriteString(e.Inner)
	buf.WriteString("</")
	buf.WriteString(e.Name)
	buf.WriteByte('>')
}

func attrName(name xml.Name, prefixes map[string]string) string {
	switch {
	case name.Space == "":
		return name.Local
	case name.Space == "xmlns":
		return "xmlns:" + name.Local
	}
	if prefix, ok := prefixes[name.Space]; ok {
		return prefix + ":" + name.Local
	}
	return name.Space + ":" + name.Local
}
