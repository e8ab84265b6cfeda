package epub

import (
	"fmt"
	"os"
	"strings"

	"github.com/beevik/etree"
	"go.uber.org/zap"
)

const (
	mimetypePath     = "mimetype"
	containerPath    = "META-INF/container.xml"
	expectedMimetype = "application/epub+zip"
)

// Book is a parsed EPUB. All fields are populated once by Parse and never
// modified afterwards, so a Book may be shared between goroutines.
type Book struct {
	Metadata      Metadata
	Manifest      map[string]ManifestItem // id -> item
	ManifestOrder []string                // manifest ids in document order
	Spine         []SpineItem

	manifestByHref map[string]string // href -> id
	archive        *Archive
	rootDir        string
	packagePath    string
	navPath        string
	toc            []TocNode
	tocTree        []TocNode
	imageMode      ImageMode
	log            *zap.Logger
}

// Option configures Parse.
type Option func(*Book)

// WithLogger sets the logger used for non-fatal problems.
func WithLogger(log *zap.Logger) Option {
	return func(b *Book) {
		if log != nil {
			b.log = log
		}
	}
}

// WithImageMode selects how chapter image references are rewritten.
func WithImageMode(mode ImageMode) Option {
	return func(b *Book) {
		b.imageMode = mode
	}
}

// Open reads an EPUB file from disk and parses it.
func Open(path string, opts ...Option) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read EPUB: %w", err)
	}
	return Parse(data, opts...)
}

// Parse parses an in-memory EPUB archive. Structural problems are reported
// as *FormatError; problems with the table of contents are only logged.
func Parse(data []byte, opts ...Option) (*Book, error) {
	b := &Book{
		Manifest:       make(map[string]ManifestItem),
		manifestByHref: make(map[string]string),
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	archive, err := OpenArchive(data)
	if err != nil {
		return nil, formatErr("cannot open archive", err)
	}
	b.archive = archive

	if err := b.verifyMimetype(); err != nil {
		return nil, err
	}

	opfPath, err := b.parseContainer()
	if err != nil {
		return nil, err
	}
	b.packagePath = opfPath
	b.rootDir = dirOf(opfPath)

	tocID, err := b.parsePackage()
	if err != nil {
		return nil, err
	}

	b.log.Debug("Package parsed",
		zap.String("package", b.packagePath),
		zap.Int("manifest", len(b.Manifest)),
		zap.Int("spine", len(b.Spine)))

	b.loadTOC(tocID)
	return b, nil
}

// verifyMimetype checks the identification entry.
func (b *Book) verifyMimetype() error {
	e, ok := b.archive.Entry(mimetypePath)
	if !ok {
		return formatErr("missing mimetype", ErrMimetypeNotFound)
	}
	content, err := e.Text()
	if err != nil {
		return formatErr("cannot read mimetype", err)
	}
	if strings.TrimSpace(content) != expectedMimetype {
		return formatErr(fmt.Sprintf("mimetype %q", strings.TrimSpace(content)), ErrInvalidMimetype)
	}
	return nil
}

// parseContainer returns the path of the first rootfile in container.xml.
func (b *Book) parseContainer() (string, error) {
	data, err := b.archive.ReadFile(containerPath)
	if err != nil {
		return "", formatErr("missing container", ErrContainerNotFound)
	}

	doc, err := decodeXML(data)
	if err != nil {
		return "", formatErr("cannot parse container.xml", err)
	}

	root := selectFirst(&doc.Element, "container")
	rootfiles := selectFirst(root, "rootfiles")
	if rootfiles != nil {
		for _, rf := range rootfiles.SelectElements("rootfile") {
			if p := attr(rf, "full-path"); p != "" {
				return normalizePath(p), nil
			}
		}
	}
	return "", formatErr("no package document", ErrRootfileNotFound)
}

// parsePackage decodes the package document and fills metadata, manifest
// and spine. It returns the spine's toc attribute.
func (b *Book) parsePackage() (string, error) {
	data, err := b.archive.ReadFile(b.packagePath)
	if err != nil {
		return "", formatErr("missing package document", err)
	}

	doc, err := decodeXML(data)
	if err != nil {
		return "", formatErr("cannot parse package document", err)
	}

	pkg := selectFirst(&doc.Element, "package", "opf:package")
	if pkg == nil {
		return "", formatErr("invalid package document", ErrPackageNotFound)
	}

	b.parseMetadata(selectFirst(pkg, "metadata", "opf:metadata"))
	b.Metadata.Version = attr(pkg, "version")
	b.parseManifest(selectFirst(pkg, "manifest", "opf:manifest"))
	return b.parseSpine(selectFirst(pkg, "spine", "opf:spine")), nil
}

// parseMetadata takes the first occurrence of every Dublin Core field.
func (b *Book) parseMetadata(meta *etree.Element) {
	if meta == nil {
		return
	}
	first := func(tag string) string {
		return textOf(selectFirst(meta, "dc:"+tag, tag))
	}

	md := &b.Metadata
	md.Title = first("title")
	md.Author = first("creator")
	md.Publisher = first("publisher")
	md.Language = first("language")
	md.Identifier = first("identifier")
	md.Description = first("description")
	md.Date = first("date")
	md.Rights = first("rights")

	for _, s := range meta.SelectElements("subject") {
		if text := textOf(s); text != "" {
			md.Subjects = append(md.Subjects, text)
		}
	}

	for _, m := range meta.SelectElements("meta") {
		if attr(m, "name") == "cover" {
			md.CoverID = attr(m, "content")
			break
		}
	}
}

// parseManifest resolves every item href against the root directory by
// plain concatenation.
func (b *Book) parseManifest(manifest *etree.Element) {
	if manifest == nil {
		return
	}
	for _, item := range manifest.SelectElements("item") {
		id := attr(item, "id")
		href := attr(item, "href")
		mi := ManifestItem{
			ID:           id,
			Href:         b.rootDir + href,
			MediaType:    attr(item, "media-type"),
			Properties:   strings.Fields(attr(item, "properties")),
			OriginalHref: href,
		}
		if _, dup := b.Manifest[id]; !dup {
			b.ManifestOrder = append(b.ManifestOrder, id)
		}
		if _, dup := b.manifestByHref[mi.Href]; !dup {
			b.manifestByHref[mi.Href] = id
		}
		b.Manifest[id] = mi
	}
}

// parseSpine keeps unresolved itemrefs so that indices stay positional.
func (b *Book) parseSpine(spine *etree.Element) string {
	if spine == nil {
		return ""
	}
	for i, ref := range spine.SelectElements("itemref") {
		idref := attr(ref, "idref")
		si := SpineItem{
			Index:  i,
			IDRef:  idref,
			Linear: attr(ref, "linear") != "no",
		}
		if item, ok := b.Manifest[idref]; ok {
			si.Href = item.Href
			si.MediaType = item.MediaType
		} else {
			b.log.Warn("Spine item not found in manifest", zap.String("idref", idref), zap.Int("index", i))
		}
		b.Spine = append(b.Spine, si)
	}
	return attr(spine, "toc")
}

// findNavPath locates the navigation document: the item named by the
// spine's toc attribute first, then the first manifest item carrying the
// nav property or a "toc" href.
func (b *Book) findNavPath(tocID string) string {
	if tocID != "" {
		if item, ok := b.Manifest[tocID]; ok {
			return item.Href
		}
	}
	for _, id := range b.ManifestOrder {
		item := b.Manifest[id]
		if item.HasProperty("nav") || strings.Contains(item.Href, "toc") {
			return item.Href
		}
	}
	return ""
}

// loadTOC never fails: a book without a usable TOC gets an empty one.
func (b *Book) loadTOC(tocID string) {
	b.toc = []TocNode{}
	b.tocTree = []TocNode{}

	b.navPath = b.findNavPath(tocID)
	if b.navPath == "" {
		b.log.Warn("No table of contents found")
		return
	}

	e, ok := b.archive.Entry(b.navPath)
	if !ok {
		b.log.Warn("TOC file not found", zap.String("path", b.navPath))
		return
	}
	raw, err := e.Text()
	if err != nil {
		b.log.Warn("Unable to read TOC", zap.String("path", b.navPath), zap.Error(err))
		return
	}

	toc, err := ParseTOC(raw, b.rootDir)
	if err != nil {
		b.log.Warn("Unable to parse TOC", zap.String("path", b.navPath), zap.Error(err))
		return
	}
	b.toc = toc

	if isNCX(raw) {
		b.tocTree = toc
		return
	}
	tree, err := ParseNavTree(raw, b.rootDir)
	if err != nil {
		b.log.Warn("Unable to parse nested navigation", zap.String("path", b.navPath), zap.Error(err))
		b.tocTree = toc
		return
	}
	b.tocTree = tree
}

// TOC returns the table of contents as produced by the navigation
// resolver: nested for NCX, flat for navigation documents.
func (b *Book) TOC() []TocNode {
	return b.toc
}

// TOCTree returns the table of contents with the source nesting preserved
// for both formats.
func (b *Book) TOCTree() []TocNode {
	return b.tocTree
}

// ChapterCount returns the number of spine items.
func (b *Book) ChapterCount() int {
	return len(b.Spine)
}

// Archive returns the underlying container.
func (b *Book) Archive() *Archive {
	return b.archive
}

// RootDir returns the directory of the package document, with a trailing
// slash, or "" when the package document is at the archive root.
func (b *Book) RootDir() string {
	return b.rootDir
}

// PackagePath returns the archive path of the package document.
func (b *Book) PackagePath() string {
	return b.packagePath
}

// NavPath returns the archive path of the navigation document, if any.
func (b *Book) NavPath() string {
	return b.navPath
}

// BookMetadata returns the book metadata.
func (b *Book) BookMetadata() Metadata {
	return b.Metadata
}
