package bookcontent

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	previewLength    = 200
	maxSummaryLength = 10000
	unknown          = "Unknown"
)

// previewer cuts chapter openings at sentence boundaries. Without a
// tokenizer it cuts at the character limit.
type previewer struct {
	tok *sentences.DefaultSentenceTokenizer
}

// newPreviewer loads the English sentence model for English or untagged
// books. Other languages fall back to plain truncation.
func newPreviewer(lang string, log *zap.Logger) *previewer {
	if lang != "" {
		tag, err := language.Parse(lang)
		if err == nil {
			if base, _ := tag.Base(); base.String() != "en" {
				return &previewer{}
			}
		}
	}

	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		log.Warn("Unable to load sentence tokenizer", zap.Error(err))
		return &previewer{}
	}
	return &previewer{tok: tok}
}

// Preview returns the leading whole sentences of text that fit in limit
// characters, or the first limit characters when not even one does.
func (p *previewer) Preview(text string, limit int) string {
	if p != nil && p.tok != nil {
		var out string
		for _, s := range p.tok.Tokenize(text) {
			if utf8.RuneCountInString(out+s.Text) > limit {
				break
			}
			out += s.Text
		}
		if out = strings.TrimSpace(out); out != "" {
			return out
		}
	}
	return truncate(text, limit)
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

// summarize builds the condensed overview: book facts followed by a short
// preview of each chapter, stopping once the text grows past ten thousand
// characters.
func summarize(bc *BookContent, p *previewer) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Book: %s\n", orUnknown(bc.Metadata.Title))
	fmt.Fprintf(&sb, "Author: %s\n", orUnknown(bc.Metadata.Author))
	fmt.Fprintf(&sb, "Total Chapters: %d\n", len(bc.Chapters))
	fmt.Fprintf(&sb, "Total Words: %d\n\n", bc.TotalWordCount)
	sb.WriteString("Chapter Overview:\n")

	for _, ch := range bc.Chapters {
		fmt.Fprintf(&sb, "\n%s:\n%s...\n", ch.Title, p.Preview(ch.Content, previewLength))
		if sb.Len() > maxSummaryLength {
			sb.WriteString("\n[Additional chapters omitted for brevity]")
			break
		}
	}
	return sb.String()
}
