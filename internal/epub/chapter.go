package epub

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var bodyRe = regexp.MustCompile(`(?is)<body[^>]*>(.*)</body>`)

// Chapter renders the spine item at index. Nothing is cached: every call
// reads the archive again and returns a fresh Chapter.
func (b *Book) Chapter(index int) (*Chapter, error) {
	if index < 0 || index >= len(b.Spine) {
		return nil, &RangeError{Index: index, Len: len(b.Spine)}
	}

	si := b.Spine[index]
	if !si.Resolved() {
		return nil, &NotFoundError{Path: si.IDRef}
	}
	e, ok := b.archive.Entry(si.Href)
	if !ok {
		return nil, &NotFoundError{Path: si.Href}
	}
	content, err := e.Text()
	if err != nil {
		return nil, fmt.Errorf("failed to read chapter %s: %w", si.Href, err)
	}

	chapterDir := dirOf(si.Href)
	body := extractBody(content)

	return &Chapter{
		Index: index,
		Title: b.chapterTitle(index),
		Content: ChapterContent{
			HTML:   b.rewriteImages(body, chapterDir),
			Styles: b.collectStyles(content, chapterDir),
		},
		Href: si.Href,
	}, nil
}

// extractBody returns the markup between the first <body> and the last
// </body>, or the whole document when there is no body element.
func extractBody(content string) string {
	if m := bodyRe.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return content
}

// collectStyles gathers inline <style> blocks in document order followed by
// the linked stylesheets. Stylesheets missing from the archive are skipped.
func (b *Book) collectStyles(content, chapterDir string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTMLCompatible(content)))
	if err != nil {
		b.log.Debug("Unable to parse chapter for styles", zap.Error(err))
		return ""
	}

	var styles []string
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		styles = append(styles, s.Text())
	})

	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if !isStylesheetLink(s.AttrOr("rel", "")) {
			return
		}
		sheet := resolvePath(chapterDir, s.AttrOr("href", ""))
		e, ok := b.archive.Entry(sheet)
		if !ok {
			b.log.Debug("Stylesheet not found", zap.String("path", sheet))
			return
		}
		text, err := e.Text()
		if err != nil {
			b.log.Debug("Unable to read stylesheet", zap.String("path", sheet), zap.Error(err))
			return
		}
		styles = append(styles, text)
	})

	return strings.Join(styles, "\n")
}

func isStylesheetLink(rel string) bool {
	for _, tok := range strings.Fields(rel) {
		if strings.EqualFold(tok, "stylesheet") {
			return true
		}
	}
	return false
}

// chapterTitle looks the chapter up in the TOC, falling back to a
// generated "Chapter N".
func (b *Book) chapterTitle(index int) string {
	href := stripFragment(b.Spine[index].Href)
	if title, ok := findTitle(b.toc, href); ok && title != "" {
		return title
	}
	return fmt.Sprintf("Chapter %d", index+1)
}
