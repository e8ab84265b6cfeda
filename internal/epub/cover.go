package epub

import (
	"path"
	"strings"
)

// CoverInfo holds information about the detected cover image.
type CoverInfo struct {
	ManifestID      string
	Href            string
	MediaType       string
	DetectionMethod string // "properties", "meta", "filename"
}

// DetectCover finds the cover image in the manifest. Methods are tried in
// priority order:
//  1. properties="cover-image" (EPUB 3)
//  2. meta name="cover" (EPUB 2)
//  3. an image whose basename contains "cover", case-insensitive
//
// Returns nil if no cover image is found.
func (b *Book) DetectCover() *CoverInfo {
	for _, id := range b.ManifestOrder {
		item := b.Manifest[id]
		if item.HasProperty("cover-image") {
			return newCoverInfo(item, "properties")
		}
	}

	if b.Metadata.CoverID != "" {
		if item, ok := b.Manifest[b.Metadata.CoverID]; ok {
			return newCoverInfo(item, "meta")
		}
	}

	for _, id := range b.ManifestOrder {
		item := b.Manifest[id]
		if !isImageMediaType(item.MediaType) {
			continue
		}
		if strings.Contains(strings.ToLower(path.Base(item.Href)), "cover") {
			return newCoverInfo(item, "filename")
		}
	}

	return nil
}

func newCoverInfo(item ManifestItem, method string) *CoverInfo {
	return &CoverInfo{
		ManifestID:      item.ID,
		Href:            item.Href,
		MediaType:       item.MediaType,
		DetectionMethod: method,
	}
}

// CoverImage returns the cover resource. A book without a detectable cover
// yields a *NotFoundError.
func (b *Book) CoverImage() (*Resource, error) {
	info := b.DetectCover()
	if info == nil {
		return nil, &NotFoundError{Path: "cover"}
	}
	return b.Resource(info.Href)
}

// CoverDataURL returns the cover image as a data URL.
func (b *Book) CoverDataURL() (string, error) {
	r, err := b.CoverImage()
	if err != nil {
		return "", err
	}
	return r.DataURL(), nil
}

// isImageMediaType checks if a media type is an image, SVG included.
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}
