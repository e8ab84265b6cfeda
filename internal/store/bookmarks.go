package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const bookmarksPrefix = "bookmarks/"

// Bookmark marks a paragraph of a chapter.
type Bookmark struct {
	ID              string    `json:"id"`
	ChapterIndex    int       `json:"chapterIndex"`
	ParagraphNumber int       `json:"paragraphNumber"`
	ChapterTitle    string    `json:"chapterTitle,omitempty"`
	Text            string    `json:"text,omitempty"`
	Note            string    `json:"note,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Bookmarks holds at most one bookmark per (chapter, paragraph) of a book,
// kept in reading order.
type Bookmarks struct {
	s  *Store
	mu sync.Mutex
}

// NewBookmarks returns the bookmark collection kept in s.
func NewBookmarks(s *Store) *Bookmarks {
	return &Bookmarks{s: s}
}

// All returns the bookmarks of every book keyed by book id.
func (b *Bookmarks) All(ctx context.Context) (map[string][]Bookmark, error) {
	return loadAll[Bookmark](ctx, b.s, bookmarksPrefix)
}

// List returns the bookmarks of a book in reading order.
func (b *Bookmarks) List(ctx context.Context, bookID string) ([]Bookmark, error) {
	return loadList[Bookmark](ctx, b.s, bookmarksPrefix+bookID)
}

// Save inserts bm or, when the location is already bookmarked, updates the
// existing bookmark keeping its id and creation time.
func (b *Bookmarks) Save(ctx context.Context, bookID string, bm Bookmark) (Bookmark, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, err := b.List(ctx, bookID)
	if err != nil {
		return Bookmark{}, err
	}

	now := b.s.now()
	bm.UpdatedAt = now
	if i := indexAt(list, bm.ChapterIndex, bm.ParagraphNumber); i >= 0 {
		bm.ID = list[i].ID
		bm.CreatedAt = list[i].CreatedAt
		list[i] = bm
	} else {
		bm.ID = uuid.NewString()
		bm.CreatedAt = now
		list = append(list, bm)
	}

	slices.SortStableFunc(list, func(x, y Bookmark) int {
		if x.ChapterIndex != y.ChapterIndex {
			return x.ChapterIndex - y.ChapterIndex
		}
		return x.ParagraphNumber - y.ParagraphNumber
	})
	if err := saveList(ctx, b.s, bookmarksPrefix+bookID, list); err != nil {
		return Bookmark{}, err
	}
	return bm, nil
}

// Remove deletes the bookmark with the given id.
func (b *Bookmarks) Remove(ctx context.Context, bookID, id string) (bool, error) {
	return b.remove(ctx, bookID, func(bm Bookmark) bool { return bm.ID == id })
}

// RemoveAt deletes the bookmark at a location.
func (b *Bookmarks) RemoveAt(ctx context.Context, bookID string, chapter, paragraph int) (bool, error) {
	return b.remove(ctx, bookID, func(bm Bookmark) bool {
		return bm.ChapterIndex == chapter && bm.ParagraphNumber == paragraph
	})
}

func (b *Bookmarks) remove(ctx context.Context, bookID string, match func(Bookmark) bool) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list, err := b.List(ctx, bookID)
	if err != nil {
		return false, err
	}
	kept := slices.DeleteFunc(slices.Clone(list), match)
	if len(kept) == len(list) {
		return false, nil
	}
	return true, saveList(ctx, b.s, bookmarksPrefix+bookID, kept)
}

// IsBookmarked reports whether the paragraph of a chapter is bookmarked.
func (b *Bookmarks) IsBookmarked(ctx context.Context, bookID string, chapter, paragraph int) (bool, error) {
	list, err := b.List(ctx, bookID)
	if err != nil {
		return false, err
	}
	return indexAt(list, chapter, paragraph) >= 0, nil
}

// Paragraphs returns the bookmarked paragraph numbers of one chapter.
func (b *Bookmarks) Paragraphs(ctx context.Context, bookID string, chapter int) (map[int]bool, error) {
	list, err := b.List(ctx, bookID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool)
	for _, bm := range list {
		if bm.ChapterIndex == chapter {
			out[bm.ParagraphNumber] = true
		}
	}
	return out, nil
}

// Clear drops every bookmark of a book.
func (b *Bookmarks) Clear(ctx context.Context, bookID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.s.DeletePayload(ctx, bookmarksPrefix+bookID)
	return err
}

func indexAt(list []Bookmark, chapter, paragraph int) int {
	return slices.IndexFunc(list, func(bm Bookmark) bool {
		return bm.ChapterIndex == chapter && bm.ParagraphNumber == paragraph
	})
}
