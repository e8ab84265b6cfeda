// Package epubtest builds small EPUB archives in memory for tests.
package epubtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"testing"
)

// Build writes files into a zip archive. The mimetype entry, when present,
// goes first and is stored; the rest follow in path order.
func Build(t testing.TB, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	if content, ok := files["mimetype"]; ok {
		mw, err := w.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
		if err != nil {
			t.Fatalf("failed to create mimetype: %v", err)
		}
		if _, err := mw.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write mimetype: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		if name != "mimetype" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(files[name])); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// Book returns the entries of an EPUB 2 book with the given title and
// author and one chapter per body, each holding the body text in a
// paragraph. The book has an NCX table of contents titled "Part N".
func Book(title, author string, bodies ...string) map[string]string {
	files := map[string]string{
		"mimetype": "application/epub+zip",
		"META-INF/container.xml": `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`,
	}

	var manifest, spine, navPoints bytes.Buffer
	for i, body := range bodies {
		id := fmt.Sprintf("ch%d", i+1)
		href := fmt.Sprintf("text/%s.xhtml", id)
		fmt.Fprintf(&manifest, "    <item id=%q href=%q media-type=\"application/xhtml+xml\"/>\n", id, href)
		fmt.Fprintf(&spine, "    <itemref idref=%q/>\n", id)
		fmt.Fprintf(&navPoints, "    <navPoint id=\"np%d\"><navLabel><text>Part %d</text></navLabel><content src=%q/></navPoint>\n", i+1, i+1, href)
		files["OEBPS/"+href] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>%s</title></head>
<body><p>%s</p></body></html>`, id, body)
	}

	files["OEBPS/content.opf"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>en</dc:language>
    <meta name="cover" content="cover"/>
  </metadata>
  <manifest>
    <item id="ncx" href="toc.ncx" media-type="application/x-dtbncx+xml"/>
    <item id="cover" href="images/cover.png" media-type="image/png"/>
%s  </manifest>
  <spine toc="ncx">
%s  </spine>
</package>`, title, author, manifest.String(), spine.String())

	files["OEBPS/toc.ncx"] = fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">
  <navMap>
%s  </navMap>
</ncx>`, navPoints.String())

	return files
}

// WithCover adds a cover image to files.
func WithCover(files map[string]string, image []byte) map[string]string {
	files["OEBPS/images/cover.png"] = string(image)
	return files
}
