package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

const notebooksPrefix = "notebooks/"

// Notebook is the single free-form document kept for a book.
type Notebook struct {
	BookID     string    `json:"bookId"`
	Content    string    `json:"content"`
	LastEdited time.Time `json:"lastEdited"`
}

// Citation describes where an excerpt added to a notebook came from.
type Citation struct {
	SourceText      string
	ChapterTitle    string
	ParagraphNumber int
}

func (c Citation) empty() bool {
	return c.SourceText == "" && c.ChapterTitle == "" && c.ParagraphNumber == 0
}

// Format renders text with its citation: the quoted source, the text, then
// the chapter and paragraph in brackets.
func (c Citation) Format(text string) string {
	if c.empty() {
		return text
	}
	var refs []string
	if c.ChapterTitle != "" {
		refs = append(refs, c.ChapterTitle)
	}
	if c.ParagraphNumber != 0 {
		refs = append(refs, fmt.Sprintf("¶%d", c.ParagraphNumber))
	}
	ref := ""
	if len(refs) > 0 {
		ref = "[" + strings.Join(refs, ", ") + "]"
	}

	out := text + "\n" + ref + "\n\n"
	if c.SourceText != "" {
		out = "> " + c.SourceText + "\n\n" + out
	}
	return out
}

type Notebooks struct {
	s  *Store
	mu sync.Mutex
}

// NewNotebooks returns the notebook collection kept in s.
func NewNotebooks(s *Store) *Notebooks {
	return &Notebooks{s: s}
}

// All returns every notebook keyed by book id.
func (n *Notebooks) All(ctx context.Context) (map[string]Notebook, error) {
	keys, err := n.s.Keys(ctx, notebooksPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Notebook, len(keys))
	for _, key := range keys {
		var nb Notebook
		if _, err := n.s.GetJSON(ctx, key, &nb); err != nil {
			return nil, err
		}
		out[strings.TrimPrefix(key, notebooksPrefix)] = nb
	}
	return out, nil
}

// Get returns the book's notebook; a book without one gets an empty
// document.
func (n *Notebooks) Get(ctx context.Context, bookID string) (Notebook, error) {
	nb := Notebook{BookID: bookID}
	if _, err := n.s.GetJSON(ctx, notebooksPrefix+bookID, &nb); err != nil {
		return Notebook{}, err
	}
	return nb, nil
}

// Save replaces the whole document.
func (n *Notebooks) Save(ctx context.Context, bookID, content string) (Notebook, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	nb := Notebook{BookID: bookID, Content: content, LastEdited: n.s.now()}
	if err := n.s.PutJSON(ctx, notebooksPrefix+bookID, nb); err != nil {
		return Notebook{}, err
	}
	return nb, nil
}

// Append adds text with its citation at the end of the document.
func (n *Notebooks) Append(ctx context.Context, bookID, text string, cite Citation) (Notebook, error) {
	return n.Insert(ctx, bookID, -1, text, cite)
}

// Insert adds text with its citation at a character position. Positions
// outside the document append.
func (n *Notebooks) Insert(ctx context.Context, bookID string, pos int, text string, cite Citation) (Notebook, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	nb, err := n.Get(ctx, bookID)
	if err != nil {
		return Notebook{}, err
	}
	content := []rune(nb.Content)
	if pos < 0 || pos > len(content) {
		pos = len(content)
	}
	nb.Content = string(content[:pos]) + cite.Format(text) + string(content[pos:])
	nb.LastEdited = n.s.now()

	if err := n.s.PutJSON(ctx, notebooksPrefix+bookID, nb); err != nil {
		return Notebook{}, err
	}
	return nb, nil
}

// Remove deletes the notebook of a book and reports whether it existed.
func (n *Notebooks) Remove(ctx context.Context, bookID string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.s.DeletePayload(ctx, notebooksPrefix+bookID)
}
