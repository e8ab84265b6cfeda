package bookcontent

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yuanying/epubreader/internal/epub"
)

// blockTags separate words when they open or close.
var blockTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Div:        true,
	atom.H1:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.H5:         true,
	atom.H6:         true,
	atom.Li:         true,
	atom.Tr:         true,
	atom.Td:         true,
	atom.Blockquote: true,
	atom.Hr:         true,
}

// skipTags have their content dropped.
var skipTags = map[atom.Atom]bool{
	atom.Script: true,
	atom.Style:  true,
}

// PlainText converts chapter markup into a single line of text. Entities are
// decoded, script and style content is dropped and every whitespace run
// becomes one space.
func PlainText(markup string) string {
	// the tokenizer switches to raw text after <script/> and never leaves it
	markup = epub.HTMLCompatible(markup)
	z := html.NewTokenizer(strings.NewReader(markup))

	var sb strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a read error on a strings.Reader, which cannot fail
			// otherwise: either way the text read so far is the result.
			return collapse(sb.String())

		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			tn, _ := z.TagName()
			a := atom.Lookup(tn)
			if skipTags[a] {
				switch tt {
				case html.StartTagToken:
					skipDepth++
				case html.EndTagToken:
					if skipDepth > 0 {
						skipDepth--
					}
				}
				continue
			}
			if blockTags[a] && skipDepth == 0 {
				sb.WriteByte('\n')
			}

		case html.TextToken:
			if skipDepth == 0 {
				sb.Write(z.Text())
			}
		}
	}
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CountWords returns the number of whitespace separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
