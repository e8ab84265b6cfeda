package epub

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"
)

// decodeXML parses an XML document into an element tree. Decoding is
// permissive so that unknown HTML entities and sloppy markup found in real
// books do not abort parsing.
func decodeXML(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.Permissive = true
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to decode XML: %w", err)
	}
	return doc, nil
}

// selectFirst returns the first child of el matching any of tags, tried in
// order. An unprefixed tag matches elements in any namespace prefix.
func selectFirst(el *etree.Element, tags ...string) *etree.Element {
	if el == nil {
		return nil
	}
	for _, tag := range tags {
		if c := el.SelectElement(tag); c != nil {
			return c
		}
	}
	return nil
}

// textOf returns the trimmed character data of el and all its descendants.
// It is the single place where element text is extracted, so a text-only
// element and one with nested markup yield the same shape.
func textOf(el *etree.Element) string {
	if el == nil {
		return ""
	}
	var sb strings.Builder
	collectText(el, &sb)
	return strings.TrimSpace(sb.String())
}

func collectText(el *etree.Element, sb *strings.Builder) {
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			collectText(t, sb)
		}
	}
}

// attr returns the value of an attribute, or "" when absent.
func attr(el *etree.Element, key string) string {
	if el == nil {
		return ""
	}
	return el.SelectAttrValue(key, "")
}
