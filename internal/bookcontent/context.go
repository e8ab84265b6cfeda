package bookcontent

import (
	"fmt"
	"strings"
)

const (
	DefaultMaxContextLength = 100000
	DefaultRadius           = 2
	DefaultNeighbourChars   = 1000
)

// Options controls BuildContext. Zero values select the defaults.
type Options struct {
	CurrentChapter   int
	IncludeFullText  bool
	MaxContextLength int
	Radius           int // chapters included before and after the current one
	NeighbourChars   int // characters kept from each neighbouring chapter
}

func (o Options) withDefaults() Options {
	if o.MaxContextLength <= 0 {
		o.MaxContextLength = DefaultMaxContextLength
	}
	if o.Radius <= 0 {
		o.Radius = DefaultRadius
	}
	if o.NeighbourChars <= 0 {
		o.NeighbourChars = DefaultNeighbourChars
	}
	return o
}

// BuildContext assembles the text given to the chat model. Small books are
// sent whole when IncludeFullText is set; otherwise the summary is followed
// by the current chapter in full and the openings of its neighbours.
func BuildContext(bc *BookContent, opts Options) string {
	opts = opts.withDefaults()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Book Title: %s\n", orUnknown(bc.Metadata.Title))
	fmt.Fprintf(&sb, "Author: %s\n", orUnknown(bc.Metadata.Author))
	fmt.Fprintf(&sb, "Total Chapters: %d\n", len(bc.Chapters))
	fmt.Fprintf(&sb, "Total Words: %d\n\n", bc.TotalWordCount)

	if opts.IncludeFullText && len(bc.FullText) < opts.MaxContextLength {
		sb.WriteString("Full Book Content:\n")
		sb.WriteString(bc.FullText)
		return sb.String()
	}

	sb.WriteString("Book Summary:\n")
	sb.WriteString(bc.Summary)
	sb.WriteString("\n\n")

	if len(bc.Chapters) == 0 {
		return sb.String()
	}

	cur := opts.CurrentChapter
	start := max(0, cur-opts.Radius)
	end := min(bc.Chapters[len(bc.Chapters)-1].Index, cur+opts.Radius)
	fmt.Fprintf(&sb, "\nRelevant Chapters (%d to %d):\n", start+1, end+1)

	for _, ch := range bc.Chapters {
		if ch.Index < start || ch.Index > end {
			continue
		}
		fmt.Fprintf(&sb, "\n--- %s ---\n", ch.Title)
		if ch.Index == cur {
			sb.WriteString(ch.Content)
			sb.WriteString("\n")
		} else {
			sb.WriteString(truncate(ch.Content, opts.NeighbourChars))
			sb.WriteString("...\n")
		}
	}
	return sb.String()
}
