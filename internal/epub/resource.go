package epub

import (
	"encoding/base64"
	"path"
	"strings"

	"github.com/h2non/filetype"
)

const defaultMediaType = "application/octet-stream"

// Resource is a binary entry of the book together with its media type.
type Resource struct {
	Path      string
	MediaType string
	Data      []byte
}

// DataURL encodes the resource as a base64 data URL.
func (r *Resource) DataURL() string {
	return "data:" + r.MediaType + ";base64," + base64.StdEncoding.EncodeToString(r.Data)
}

// Resource reads an archive entry. The media type comes from the manifest
// when the entry is declared there, otherwise from the content itself.
func (b *Book) Resource(p string) (*Resource, error) {
	p = normalizePath(p)
	data, err := b.archive.ReadFile(p)
	if err != nil {
		return nil, err
	}
	return &Resource{
		Path:      p,
		MediaType: b.mediaTypeOf(p, data),
		Data:      data,
	}, nil
}

// ResourceDataURL reads an archive entry and encodes it as a data URL.
func (b *Book) ResourceDataURL(p string) (string, error) {
	r, err := b.Resource(p)
	if err != nil {
		return "", err
	}
	return r.DataURL(), nil
}

func (b *Book) mediaTypeOf(p string, data []byte) string {
	if id, ok := b.manifestByHref[p]; ok {
		if mt := b.Manifest[id].MediaType; mt != "" {
			return mt
		}
	}
	return sniffMediaType(p, data)
}

// sniffMediaType detects the media type from magic bytes, then from a few
// extensions the matcher cannot recognise.
func sniffMediaType(p string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".svg":
		return "image/svg+xml"
	case ".css":
		return "text/css"
	case ".xhtml":
		return "application/xhtml+xml"
	case ".html", ".htm":
		return "text/html"
	}
	return defaultMediaType
}
