package epub

import (
	"errors"
	"strings"
	"testing"
)

func coverOPF(manifest, meta string) string {
	return `<package version="3.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <metadata><dc:title>Cover Test</dc:title>` + meta + `</metadata>
  <manifest>
    <item id="ch1" href="text/ch1.xhtml" media-type="application/xhtml+xml"/>
` + manifest + `
  </manifest>
  <spine><itemref idref="ch1"/></spine>
</package>`
}

func TestBook_DetectCover(t *testing.T) {
	tests := []struct {
		name       string
		manifest   string
		meta       string
		wantID     string
		wantMethod string
	}{
		{
			name: "properties",
			manifest: `<item id="img1" href="images/a.jpg" media-type="image/jpeg"/>
<item id="img2" href="images/b.jpg" media-type="image/jpeg" properties="cover-image"/>`,
			wantID:     "img2",
			wantMethod: "properties",
		},
		{
			name:       "meta",
			manifest:   `<item id="pic" href="images/pic.jpg" media-type="image/jpeg"/>`,
			meta:       `<meta name="cover" content="pic"/>`,
			wantID:     "pic",
			wantMethod: "meta",
		},
		{
			name: "properties over meta",
			manifest: `<item id="pic" href="images/pic.jpg" media-type="image/jpeg"/>
<item id="prop" href="images/prop.jpg" media-type="image/jpeg" properties="cover-image"/>`,
			meta:       `<meta name="cover" content="pic"/>`,
			wantID:     "prop",
			wantMethod: "properties",
		},
		{
			name: "filename",
			manifest: `<item id="page" href="text/Cover.xhtml" media-type="application/xhtml+xml"/>
<item id="img" href="images/MyCover.PNG" media-type="image/png"/>`,
			wantID:     "img",
			wantMethod: "filename",
		},
		{
			name:       "meta pointing nowhere falls through",
			manifest:   `<item id="img" href="images/cover.jpg" media-type="image/jpeg"/>`,
			meta:       `<meta name="cover" content="ghost"/>`,
			wantID:     "img",
			wantMethod: "filename",
		},
		{
			name:     "none",
			manifest: `<item id="img" href="images/figure.jpg" media-type="image/jpeg"/>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := testFiles()
			files["OEBPS/content.opf"] = coverOPF(tt.manifest, tt.meta)
			book := parseTestBook(t, files)

			info := book.DetectCover()
			if tt.wantID == "" {
				if info != nil {
					t.Errorf("DetectCover() = %+v, want nil", info)
				}
				return
			}
			if info == nil {
				t.Fatal("DetectCover() = nil")
			}
			if info.ManifestID != tt.wantID || info.DetectionMethod != tt.wantMethod {
				t.Errorf("DetectCover() = %+v, want id %q via %q", info, tt.wantID, tt.wantMethod)
			}
		})
	}
}

func TestBook_CoverImage(t *testing.T) {
	book := parseTestBook(t, testFiles())

	r, err := book.CoverImage()
	if err != nil {
		t.Fatalf("CoverImage() error = %v", err)
	}
	if r.Path != "OEBPS/images/cover.png" || r.MediaType != "image/png" {
		t.Errorf("CoverImage() = %s (%s)", r.Path, r.MediaType)
	}
	if string(r.Data) != string(pngStub) {
		t.Error("CoverImage() data mismatch")
	}

	url, err := book.CoverDataURL()
	if err != nil {
		t.Fatalf("CoverDataURL() error = %v", err)
	}
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("CoverDataURL() = %q", url)
	}
}

func TestBook_CoverImage_NotFound(t *testing.T) {
	files := testFiles()
	files["OEBPS/content.opf"] = coverOPF("", "")
	book := parseTestBook(t, files)

	_, err := book.CoverImage()
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("CoverImage() error = %v, want *NotFoundError", err)
	}
}

func TestBook_Resource_MediaType(t *testing.T) {
	files := testFiles()
	files["OEBPS/extra/photo.bin"] = string(pngStub)
	files["OEBPS/extra/icon.svg"] = "plain words"
	files["OEBPS/extra/notes.dat"] = "plain words"
	book := parseTestBook(t, files)

	tests := []struct {
		path string
		want string
	}{
		{"OEBPS/css/s.css", "text/css"},
		{"OEBPS/extra/photo.bin", "image/png"},
		{"OEBPS/extra/icon.svg", "image/svg+xml"},
		{"OEBPS/extra/notes.dat", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			r, err := book.Resource(tt.path)
			if err != nil {
				t.Fatalf("Resource() error = %v", err)
			}
			if r.MediaType != tt.want {
				t.Errorf("MediaType = %q, want %q", r.MediaType, tt.want)
			}
		})
	}

	if _, err := book.Resource("OEBPS/nope.png"); err == nil {
		t.Error("expected error for missing resource")
	}
}
