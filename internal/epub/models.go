package epub

// Metadata represents the metadata section of the package document.
// Absent fields are empty.
type Metadata struct {
	Title       string
	Author      string
	Publisher   string
	Language    string
	Identifier  string
	Description string
	Date        string
	Rights      string
	CoverID     string // manifest item ID from meta name="cover"
	Subjects    []string
	Version     string // package version attribute
}

// ManifestItem represents an item in the manifest
type ManifestItem struct {
	ID           string
	Href         string // root directory + declared href
	MediaType    string
	Properties   []string
	OriginalHref string // href as declared in the package document
}

// HasProperty reports whether the item declares the given property token.
func (m ManifestItem) HasProperty(prop string) bool {
	for _, p := range m.Properties {
		if p == prop {
			return true
		}
	}
	return false
}

// SpineItem represents an item reference in the spine. Href and MediaType
// are empty when IDRef does not resolve to a manifest item.
type SpineItem struct {
	Index     int
	IDRef     string
	Href      string
	MediaType string
	Linear    bool
}

// Resolved reports whether the spine item points at a manifest item.
func (s SpineItem) Resolved() bool {
	return s.Href != ""
}

// TocNode is one entry of the table of contents.
type TocNode struct {
	Label    string
	Href     string // archive path, may carry a #fragment
	Children []TocNode
}

// Chapter is a rendered spine item. It is computed on every request.
type Chapter struct {
	Index   int
	Title   string
	Content ChapterContent
	Href    string
}

// ChapterContent holds the body markup and the collected stylesheet text.
type ChapterContent struct {
	HTML   string
	Styles string
}
