// Package annotate numbers the paragraphs of chapter markup so that they can
// be bookmarked and cited, and removes those numbers again.
package annotate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/yuanying/epubreader/internal/epub"
)

const (
	numberClass  = "paragraph-number"
	iconClass    = "bookmark-icon-inline"
	numberAttr   = "data-paragraph-number"
	bookmarkIcon = "🔖"
)

var (
	numberSpanRe = regexp.MustCompile(`<span class="paragraph-number">\[\d+\]</span>\s*`)
	numberAttrRe = regexp.MustCompile(` data-paragraph-number="\d+"`)
	iconSpanRe   = regexp.MustCompile(`<span class="bookmark-icon-inline">.*?</span>`)
)

// BookmarkFunc reports whether paragraph n (1-based) is bookmarked.
type BookmarkFunc func(n int) bool

// Number prefixes every non-blank <p> with "[n] ", marks bookmarked
// paragraphs with an icon and records n in a data attribute. Markers from a
// previous run are replaced. The inner HTML of the body is returned.
func Number(html string, isBookmarked BookmarkFunc) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(epub.HTMLCompatible(html)))
	if err != nil {
		return "", fmt.Errorf("failed to parse chapter markup: %w", err)
	}

	n := 0
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if strings.TrimSpace(p.Text()) == "" {
			return
		}
		p.Find("." + numberClass).Remove()
		p.Find("." + iconClass).Remove()

		n++
		marker := fmt.Sprintf(`<span class="%s">[%d]</span> `, numberClass, n)
		if isBookmarked != nil && isBookmarked(n) {
			marker += fmt.Sprintf(`<span class="%s">%s</span>`, iconClass, bookmarkIcon)
		}
		p.PrependHtml(marker)
		p.SetAttr(numberAttr, strconv.Itoa(n))
	})

	out, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render chapter markup: %w", err)
	}
	return out, nil
}

// Strip removes everything Number adds.
func Strip(html string) string {
	html = numberSpanRe.ReplaceAllString(html, "")
	html = numberAttrRe.ReplaceAllString(html, "")
	return iconSpanRe.ReplaceAllString(html, "")
}

// Process strips markers when numbering is disabled and nobody asks for
// bookmark icons; otherwise it numbers the paragraphs. Markup that cannot be
// processed is returned unchanged.
func Process(html string, enabled bool, isBookmarked BookmarkFunc, log *zap.Logger) string {
	if !enabled && isBookmarked == nil {
		return Strip(html)
	}
	out, err := Number(html, isBookmarked)
	if err != nil {
		if log != nil {
			log.Error("Paragraph numbering failed", zap.Error(err))
		}
		return html
	}
	return out
}

// Count returns the number of non-blank paragraphs.
func Count(html string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(epub.HTMLCompatible(html)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse chapter markup: %w", err)
	}
	n := 0
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if strings.TrimSpace(p.Text()) != "" {
			n++
		}
	})
	return n, nil
}
