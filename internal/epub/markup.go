package epub

import (
	"regexp"
	"strings"
)

var selfClosingRe = regexp.MustCompile(`<([A-Za-z][A-Za-z0-9]*)(\s[^<>]*?)?\s*/>`)

// HTML elements that an HTML parser treats as open when written in XML
// self-closing form. Void elements and foreign (SVG, MathML) elements are
// left alone.
var nonVoidElements = map[string]bool{
	"a": true, "abbr": true, "address": true, "article": true, "aside": true,
	"audio": true, "b": true, "bdi": true, "bdo": true, "blockquote": true,
	"body": true, "button": true, "canvas": true, "caption": true, "cite": true,
	"code": true, "colgroup": true, "dd": true, "del": true, "details": true,
	"dfn": true, "div": true, "dl": true, "dt": true, "em": true,
	"fieldset": true, "figcaption": true, "figure": true, "footer": true,
	"form": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true,
	"h6": true, "head": true, "header": true, "i": true, "iframe": true,
	"ins": true, "kbd": true, "label": true, "legend": true, "li": true,
	"main": true, "mark": true, "nav": true, "noscript": true, "object": true,
	"ol": true, "option": true, "p": true, "pre": true, "q": true, "s": true,
	"samp": true, "script": true, "section": true, "select": true,
	"small": true, "span": true, "strong": true, "style": true, "sub": true,
	"sup": true, "table": true, "tbody": true, "td": true, "textarea": true,
	"tfoot": true, "th": true, "thead": true, "title": true, "tr": true,
	"u": true, "ul": true, "video": true,
}

// HTMLCompatible rewrites XHTML self-closing non-void elements such as
// <title/> or <a id="x"/> into explicit open/close pairs, so that markup can
// go through an HTML parser without an empty <title/> swallowing the rest of
// the document.
func HTMLCompatible(markup string) string {
	if !strings.Contains(markup, "/>") {
		return markup
	}
	return selfClosingRe.ReplaceAllStringFunc(markup, func(tag string) string {
		m := selfClosingRe.FindStringSubmatch(tag)
		name := strings.ToLower(m[1])
		if !nonVoidElements[name] {
			return tag
		}
		return "<" + m[1] + m[2] + "></" + m[1] + ">"
	})
}
