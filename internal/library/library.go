// Package library keeps the user's books: the EPUB files, their metadata,
// cover thumbnails and reading progress.
package library

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/maruel/natural"
	"go.uber.org/zap"

	"github.com/yuanying/epubreader/internal/epub"
	"github.com/yuanying/epubreader/internal/store"
)

const (
	recordPrefix = "library/"
	filePrefix   = "files/"

	unknownAuthor = "Unknown Author"
	recentCount   = 6
)

type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Publisher   string `json:"publisher,omitempty"`
	Language    string `json:"language,omitempty"`
	Description string `json:"description,omitempty"`
	Identifier  string `json:"identifier,omitempty"`
	Date        string `json:"date,omitempty"`
}

type Progress struct {
	CurrentChapter int     `json:"currentChapter"`
	ScrollPosition float64 `json:"scrollPosition"`
}

// Book is a library entry. The EPUB file itself is stored separately.
type Book struct {
	ID         string     `json:"id"`
	Filename   string     `json:"filename"`
	FileSize   int64      `json:"fileSize"`
	Metadata   Metadata   `json:"metadata"`
	Cover      string     `json:"cover,omitempty"` // thumbnail data URL
	AddedDate  time.Time  `json:"addedDate"`
	LastOpened *time.Time `json:"lastOpened,omitempty"`
	Progress   Progress   `json:"readingProgress"`
}

// Library manages books on top of a store.
type Library struct {
	s     *store.Store
	thumb *Thumbnailer
	log   *zap.Logger
	now   func() time.Time

	mu sync.Mutex
}

func New(s *store.Store, log *zap.Logger) *Library {
	if log == nil {
		log = zap.NewNop()
	}
	return &Library{
		s:     s,
		thumb: NewThumbnailer(),
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Add parses data as an EPUB and stores it. A book with the same title and
// author replaces the existing entry and keeps its id, so bookmarks and
// notes stay attached.
func (l *Library) Add(ctx context.Context, filename string, data []byte) (Book, error) {
	book, err := epub.Parse(data, epub.WithLogger(l.log))
	if err != nil {
		return Book{}, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	md := book.BookMetadata()
	rec := Book{
		Filename: filepath.Base(filename),
		FileSize: int64(len(data)),
		Metadata: Metadata{
			Title:       md.Title,
			Author:      md.Author,
			Publisher:   md.Publisher,
			Language:    md.Language,
			Description: md.Description,
			Identifier:  md.Identifier,
			Date:        md.Date,
		},
		AddedDate: l.now(),
	}
	if rec.Metadata.Title == "" {
		rec.Metadata.Title = strings.TrimSuffix(rec.Filename, filepath.Ext(rec.Filename))
	}
	if rec.Metadata.Author == "" {
		rec.Metadata.Author = unknownAuthor
	}
	rec.Cover = l.cover(book)

	l.mu.Lock()
	defer l.mu.Unlock()

	books, err := l.List(ctx)
	if err != nil {
		return Book{}, err
	}
	if i := slices.IndexFunc(books, func(b Book) bool {
		return b.Metadata.Title == rec.Metadata.Title && b.Metadata.Author == rec.Metadata.Author
	}); i >= 0 {
		rec.ID = books[i].ID
		l.log.Info("Replacing existing book", zap.String("id", rec.ID), zap.String("title", rec.Metadata.Title))
	} else {
		rec.ID = newBookID(rec.Metadata.Title)
	}

	if err := l.s.PutPayload(ctx, filePrefix+rec.ID, data); err != nil {
		return Book{}, fmt.Errorf("failed to store book file: %w", err)
	}
	if err := l.s.PutJSON(ctx, recordPrefix+rec.ID, rec); err != nil {
		return Book{}, err
	}
	return rec, nil
}

// cover renders the book cover as a thumbnail data URL, "" when the book
// has no usable cover.
func (l *Library) cover(book *epub.Book) string {
	res, err := book.CoverImage()
	if err != nil {
		l.log.Debug("No cover image", zap.Error(err))
		return ""
	}
	th, err := l.thumb.Make(res.MediaType, res.Data)
	if err != nil {
		l.log.Warn("Unable to render cover thumbnail", zap.String("path", res.Path), zap.Error(err))
		return ""
	}
	if th.Warning != "" {
		l.log.Debug("Cover thumbnail", zap.String("path", res.Path), zap.String("warning", th.Warning))
	}
	return th.DataURL()
}

// Get returns a book entry; found is false when there is none.
func (l *Library) Get(ctx context.Context, id string) (book Book, found bool, err error) {
	found, err = l.s.GetJSON(ctx, recordPrefix+id, &book)
	return book, found, err
}

// List returns every book in id order.
func (l *Library) List(ctx context.Context) ([]Book, error) {
	keys, err := l.s.Keys(ctx, recordPrefix)
	if err != nil {
		return nil, err
	}
	books := make([]Book, 0, len(keys))
	for _, key := range keys {
		var b Book
		found, err := l.s.GetJSON(ctx, key, &b)
		if err != nil {
			return nil, err
		}
		if found {
			books = append(books, b)
		}
	}
	return books, nil
}

// Remove deletes a book entry and its file.
func (l *Library) Remove(ctx context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.s.DeletePayload(ctx, filePrefix+id); err != nil {
		return false, err
	}
	return l.s.DeletePayload(ctx, recordPrefix+id)
}

// UpdateProgress records the reading position and marks the book opened.
func (l *Library) UpdateProgress(ctx context.Context, id string, chapter int, scroll float64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, found, err := l.Get(ctx, id)
	if err != nil || !found {
		return false, err
	}
	now := l.now()
	b.Progress = Progress{CurrentChapter: chapter, ScrollPosition: scroll}
	b.LastOpened = &now
	return true, l.s.PutJSON(ctx, recordPrefix+id, b)
}

// Open loads the stored file of a book and parses it.
func (l *Library) Open(ctx context.Context, id string, opts ...epub.Option) (*epub.Book, error) {
	data, err := l.s.GetPayload(ctx, filePrefix+id)
	if err != nil {
		return nil, fmt.Errorf("failed to load book %s: %w", id, err)
	}
	opts = append([]epub.Option{epub.WithLogger(l.log)}, opts...)
	book, err := epub.Parse(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse book %s: %w", id, err)
	}
	return book, nil
}

// Sorted returns the books most recently opened first, then never opened
// books newest first. Ties fall back to natural title order.
func (l *Library) Sorted(ctx context.Context) ([]Book, error) {
	books, err := l.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(books, compareBooks)
	return books, nil
}

// Recent returns the first few sorted books.
func (l *Library) Recent(ctx context.Context) ([]Book, error) {
	books, err := l.Sorted(ctx)
	if err != nil {
		return nil, err
	}
	if len(books) > recentCount {
		books = books[:recentCount]
	}
	return books, nil
}

func compareBooks(a, b Book) int {
	switch {
	case a.LastOpened != nil && b.LastOpened != nil:
		if c := b.LastOpened.Compare(*a.LastOpened); c != 0 {
			return c
		}
	case a.LastOpened != nil:
		return -1
	case b.LastOpened != nil:
		return 1
	}
	if c := b.AddedDate.Compare(a.AddedDate); c != 0 {
		return c
	}
	switch {
	case natural.Less(a.Metadata.Title, b.Metadata.Title):
		return -1
	case natural.Less(b.Metadata.Title, a.Metadata.Title):
		return 1
	}
	return 0
}

// newBookID derives a readable id from the title with a random suffix.
func newBookID(title string) string {
	base := slug.Make(title)
	if len(base) > 40 {
		base = strings.TrimRight(base[:40], "-")
	}
	if base == "" {
		base = "book"
	}
	return base + "-" + uuid.NewString()[:8]
}
