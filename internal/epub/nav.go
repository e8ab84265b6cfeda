package epub

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
)

// NotFound is returned by IndexOf when no spine item matches.
const NotFound = -1

var (
	navTocRe  = regexp.MustCompile(`(?i)<nav[^>]*epub:type="toc"[^>]*>([\s\S]*?)</nav>`)
	navItemRe = regexp.MustCompile(`(?i)<li[^>]*>[\s\S]*?<a[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>[\s\S]*?</li>`)
	tagRe     = regexp.MustCompile(`<[^>]*>`)
)

// ParseTOC parses a navigation document. Content mentioning "ncx" is read
// as a legacy NCX file whose nesting is preserved; anything else is read as
// an XHTML navigation document whose entries come out flat. Hrefs are
// prefixed with rootDir.
func ParseTOC(raw, rootDir string) ([]TocNode, error) {
	if isNCX(raw) {
		return parseNCX(raw, rootDir)
	}
	return parseNavList(raw, rootDir), nil
}

func isNCX(raw string) bool {
	return strings.Contains(raw, "ncx")
}

// parseNCX walks navMap/navPoint recursively.
func parseNCX(raw, rootDir string) ([]TocNode, error) {
	doc, err := decodeXML([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse NCX: %w", err)
	}
	ncx := selectFirst(&doc.Element, "ncx")
	if ncx == nil {
		return nil, fmt.Errorf("failed to parse NCX: ncx element not found")
	}
	navMap := selectFirst(ncx, "navMap")
	if navMap == nil {
		return []TocNode{}, nil
	}
	return convertNavPoints(navMap.SelectElements("navPoint"), rootDir), nil
}

func convertNavPoints(points []*etree.Element, rootDir string) []TocNode {
	nodes := make([]TocNode, 0, len(points))
	for _, np := range points {
		nodes = append(nodes, TocNode{
			Label:    textOf(selectFirst(selectFirst(np, "navLabel"), "text")),
			Href:     rootDir + attr(selectFirst(np, "content"), "src"),
			Children: convertNavPoints(np.SelectElements("navPoint"), rootDir),
		})
	}
	return nodes
}

// parseNavList scans the toc nav region for list items with links. Nested
// lists are not reconstructed.
func parseNavList(raw, rootDir string) []TocNode {
	m := navTocRe.FindStringSubmatch(raw)
	if m == nil {
		return []TocNode{}
	}

	nodes := []TocNode{}
	for _, item := range navItemRe.FindAllStringSubmatch(m[1], -1) {
		nodes = append(nodes, TocNode{
			Label:    cleanLabel(tagRe.ReplaceAllString(item[2], "")),
			Href:     rootDir + html.UnescapeString(item[1]),
			Children: []TocNode{},
		})
	}
	return nodes
}

// ParseNavTree parses an XHTML navigation document keeping the nesting of
// its lists. Items without a link keep an empty Href.
func ParseNavTree(raw, rootDir string) ([]TocNode, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(HTMLCompatible(raw)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse navigation document: %w", err)
	}

	var nav *goquery.Selection
	doc.Find("nav").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, t := range strings.Fields(s.AttrOr("epub:type", "")) {
			if t == "toc" {
				nav = s
				return false
			}
		}
		return true
	})
	if nav == nil {
		return []TocNode{}, nil
	}
	return walkNavList(nav.Find("ol, ul").First(), rootDir), nil
}

func walkNavList(list *goquery.Selection, rootDir string) []TocNode {
	nodes := []TocNode{}
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		node := TocNode{Children: []TocNode{}}
		if a := li.ChildrenFiltered("a").First(); a.Length() > 0 {
			node.Label = cleanLabel(a.Text())
			if href, ok := a.Attr("href"); ok {
				node.Href = rootDir + href
			}
		} else {
			node.Label = cleanLabel(li.ChildrenFiltered("span").First().Text())
		}
		if sub := li.ChildrenFiltered("ol, ul").First(); sub.Length() > 0 {
			node.Children = walkNavList(sub, rootDir)
		}
		nodes = append(nodes, node)
	})
	return nodes
}

func cleanLabel(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

// IndexOf returns the spine index of href, ignoring fragments, or NotFound.
func (b *Book) IndexOf(href string) int {
	target := stripFragment(href)
	for _, si := range b.Spine {
		if si.Resolved() && stripFragment(si.Href) == target {
			return si.Index
		}
	}
	return NotFound
}

// findTitle searches the TOC depth-first for an entry pointing at href.
func findTitle(nodes []TocNode, href string) (string, bool) {
	for _, n := range nodes {
		if stripFragment(n.Href) == href {
			return n.Label, true
		}
		if label, ok := findTitle(n.Children, href); ok {
			return label, true
		}
	}
	return "", false
}

// splitFragment splits a source path into the path and fragment identifier.
func splitFragment(src string) (path, fragment string) {
	if src == "" {
		return "", ""
	}
	parts := strings.SplitN(src, "#", 2)
	path = parts[0]
	if len(parts) == 2 {
		fragment = parts[1]
	}
	return path, fragment
}

func stripFragment(href string) string {
	p, _ := splitFragment(href)
	return p
}
