package epub

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yuanying/epubreader/internal/epub/epubtest"
)

const testContainer = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const testOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="uid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Book</dc:title>
    <dc:creator>Jane Doe</dc:creator>
    <dc:creator>John Roe</dc:creator>
    <dc:language>en</dc:language>
    <dc:identifier id="uid">urn:uuid:1234</dc:identifier>
    <dc:publisher>Test Press</dc:publisher>
    <dc:subject>Fiction</dc:subject>
    <dc:subject>Testing</dc:subject>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="text/ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="css" href="css/s.css" media-type="text/css"/>
    <item id="cover-img" href="images/cover.png" media-type="image/png"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2" linear="no"/>
  </spine>
</package>`

const testNav = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
  <nav epub:type="toc" id="toc">
    <ol>
      <li><a href="text/ch1.xhtml">Opening</a></li>
      <li><a href="text/ch2.xhtml#part">Second &amp; <em>Last</em></a></li>
    </ol>
  </nav>
</body>
</html>`

const testChapter1 = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
<title>One</title>
<style>p{color:red}</style>
<link rel="stylesheet" type="text/css" href="../css/s.css"/>
<style>h1{margin:0}</style>
</head>
<body class="main"><h1>One</h1><p>First paragraph.</p><img src="../images/cover.png" alt=""/></body>
</html>`

const testChapter2 = `<html><body><p>Second chapter.</p></body></html>`

// pngStub starts with the PNG signature so content sniffing recognises it.
var pngStub = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// testFiles returns the entries of a small EPUB 3 book.
func testFiles() map[string]string {
	return map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": testContainer,
		"OEBPS/content.opf":      testOPF,
		"OEBPS/nav.xhtml":        testNav,
		"OEBPS/text/ch1.xhtml":   testChapter1,
		"OEBPS/text/ch2.xhtml":   testChapter2,
		"OEBPS/css/s.css":        "body{font:serif}",
		"OEBPS/images/cover.png": string(pngStub),
	}
}

func buildEPUB(t *testing.T, files map[string]string) []byte {
	t.Helper()
	return epubtest.Build(t, files)
}

// parseTestBook builds and parses an EPUB, failing the test on error.
func parseTestBook(t *testing.T, files map[string]string, opts ...Option) *Book {
	t.Helper()
	book, err := Parse(buildEPUB(t, files), opts...)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return book
}

// observedLogger returns a logger recording warnings and above.
func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	return zap.New(core), logs
}
