// Package bookcontent turns a parsed book into plain text for the chat
// assistant: per-chapter text, word counts, a condensed summary and the
// context string handed to the model.
package bookcontent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/yuanying/epubreader/internal/epub"
)

// ChapterSource is the part of a book the extractor needs. *epub.Book
// implements it.
type ChapterSource interface {
	BookMetadata() epub.Metadata
	ChapterCount() int
	Chapter(index int) (*epub.Chapter, error)
}

// ChapterText is the plain text of one chapter.
type ChapterText struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	WordCount int    `json:"wordCount"`
}

// BookContent is everything the chat assistant knows about a book.
type BookContent struct {
	Metadata       epub.Metadata `json:"metadata"`
	Chapters       []ChapterText `json:"chapters"`
	FullText       string        `json:"fullText"`
	TotalWordCount int           `json:"totalWordCount"`
	Summary        string        `json:"summary"`
	// SpineLength is the chapter count of the source at extraction time.
	// It differs from len(Chapters) when chapters were skipped.
	SpineLength int `json:"spineLength"`
}

// Extract reads every chapter of src. Chapters whose file is missing from
// the archive are skipped with a warning; any other failure aborts.
func Extract(ctx context.Context, src ChapterSource, log *zap.Logger) (*BookContent, error) {
	if src == nil {
		return nil, errors.New("no chapter source provided")
	}
	if log == nil {
		log = zap.NewNop()
	}

	md := src.BookMetadata()
	count := src.ChapterCount()
	bc := &BookContent{
		Metadata:    md,
		Chapters:    []ChapterText{},
		SpineLength: count,
	}

	var full strings.Builder
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ch, err := src.Chapter(i)
		if err != nil {
			var nf *epub.NotFoundError
			if errors.As(err, &nf) {
				log.Warn("Skipping chapter", zap.Int("index", i), zap.Error(err))
				continue
			}
			return nil, fmt.Errorf("failed to extract chapter %d: %w", i, err)
		}
		if ch.Content.HTML == "" {
			continue
		}

		text := PlainText(ch.Content.HTML)
		title := ch.Title
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		ct := ChapterText{
			Index:     i,
			Title:     title,
			Content:   text,
			WordCount: CountWords(text),
		}
		bc.Chapters = append(bc.Chapters, ct)
		bc.TotalWordCount += ct.WordCount

		full.WriteString("\n\n--- ")
		full.WriteString(title)
		full.WriteString(" ---\n\n")
		full.WriteString(text)
	}
	bc.FullText = full.String()
	bc.Summary = summarize(bc, newPreviewer(md.Language, log))

	log.Debug("Book content extracted",
		zap.Int("chapters", len(bc.Chapters)),
		zap.Int("words", bc.TotalWordCount))
	return bc, nil
}

// NeedsRefresh reports whether existing was extracted from a different
// version of src: the chapter count, title or author changed.
func NeedsRefresh(existing *BookContent, src ChapterSource) bool {
	if existing == nil {
		return true
	}
	if existing.SpineLength != src.ChapterCount() {
		return true
	}
	md := src.BookMetadata()
	return md.Title != existing.Metadata.Title || md.Author != existing.Metadata.Author
}
