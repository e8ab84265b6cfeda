package epub

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// ImageMode selects what the chapter renderer does with image references.
type ImageMode int

const (
	// ImagesKeep leaves image references exactly as written in the chapter.
	ImagesKeep ImageMode = iota
	// ImagesResolve rewrites references to archive paths.
	ImagesResolve
	// ImagesInline replaces references with data URLs.
	ImagesInline
)

var imageModeNames = map[ImageMode]string{
	ImagesKeep:    "keep",
	ImagesResolve: "resolve",
	ImagesInline:  "inline",
}

func (m ImageMode) String() string {
	if name, ok := imageModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ImageMode(%d)", int(m))
}

// ParseImageMode converts a configuration value into an ImageMode.
func ParseImageMode(s string) (ImageMode, error) {
	if s == "" {
		return ImagesKeep, nil
	}
	for mode, name := range imageModeNames {
		if strings.EqualFold(s, name) {
			return mode, nil
		}
	}
	return ImagesKeep, fmt.Errorf("unknown image mode %q", s)
}

var (
	imgSrcRe    = regexp.MustCompile(`(?i)(<img\b[^>]*?\ssrc\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
	imageHrefRe = regexp.MustCompile(`(?i)(<image\b[^>]*?\s(?:xlink:)?href\s*=\s*)(?:"([^"]*)"|'([^']*)')`)
)

// rewriteImages applies the book's image mode to body markup. chapterDir is
// the directory of the chapter file, with trailing slash.
func (b *Book) rewriteImages(body, chapterDir string) string {
	if b.imageMode == ImagesKeep {
		return body
	}
	body = b.rewriteAttr(imgSrcRe, body, chapterDir)
	return b.rewriteAttr(imageHrefRe, body, chapterDir)
}

func (b *Book) rewriteAttr(re *regexp.Regexp, body, chapterDir string) string {
	return re.ReplaceAllStringFunc(body, func(match string) string {
		m := re.FindStringSubmatch(match)
		ref := m[2]
		if ref == "" {
			ref = m[3]
		}
		if ref == "" || isExternalRef(ref) {
			return match
		}
		target := b.imageTarget(ref, chapterDir)
		if target == "" {
			return match
		}
		return m[1] + `"` + target + `"`
	})
}

// imageTarget returns the replacement reference, or "" to keep the original.
func (b *Book) imageTarget(ref, chapterDir string) string {
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	resolved := resolvePath(chapterDir, ref)

	switch b.imageMode {
	case ImagesResolve:
		return resolved
	case ImagesInline:
		dataURL, err := b.ResourceDataURL(resolved)
		if err != nil {
			b.log.Debug("Image not inlined", zap.String("path", resolved), zap.Error(err))
			return ""
		}
		return dataURL
	}
	return ""
}

func isExternalRef(ref string) bool {
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "data:") || strings.Contains(lower, "://")
}
