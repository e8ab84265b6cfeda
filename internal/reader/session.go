// Package reader keeps the state of one open book: a chapter cache, adjacent
// chapter prefetch and the lazily extracted content used by the chat
// assistant.
package reader

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yuanying/epubreader/internal/annotate"
	"github.com/yuanying/epubreader/internal/bookcontent"
	"github.com/yuanying/epubreader/internal/epub"
)

const (
	defaultCacheTTL = 30 * time.Minute
	defaultPrefetch = 1
)

// Options configures a Session.
type Options struct {
	CacheTTL time.Duration // zero selects 30 minutes
	Prefetch int           // neighbours loaded on each side of the current chapter; zero selects 1, negative loads none
}

// Session wraps a parsed book for the lifetime of a reading session.
type Session struct {
	book     *epub.Book
	chapters *cache.Cache
	prefetch int
	log      *zap.Logger

	mu      sync.Mutex
	content *bookcontent.BookContent
}

// View is a chapter prepared for display.
type View struct {
	Chapter    *epub.Chapter
	HTML       string
	Paragraphs int
}

// New creates a session over book.
func New(book *epub.Book, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	prefetch := opts.Prefetch
	if prefetch == 0 {
		prefetch = defaultPrefetch
	}
	return &Session{
		book:     book,
		chapters: cache.New(ttl, 2*ttl),
		prefetch: max(prefetch, 0),
		log:      log,
	}
}

// Book returns the underlying book.
func (s *Session) Book() *epub.Book {
	return s.book
}

// Chapter returns a rendered chapter, from the cache when possible.
func (s *Session) Chapter(index int) (*epub.Chapter, error) {
	key := strconv.Itoa(index)
	if v, found := s.chapters.Get(key); found {
		if ch, ok := v.(*epub.Chapter); ok {
			return ch, nil
		}
	}

	ch, err := s.book.Chapter(index)
	if err != nil {
		return nil, err
	}
	s.chapters.Set(key, ch, cache.DefaultExpiration)
	return ch, nil
}

// Cached reports whether chapter index is in the cache.
func (s *Session) Cached(index int) bool {
	_, found := s.chapters.Get(strconv.Itoa(index))
	return found
}

// Prefetch loads chapter index and its neighbours concurrently. Chapters
// that fail to render are logged and left out of the cache.
func (s *Session) Prefetch(ctx context.Context, index int) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := index - s.prefetch; i <= index+s.prefetch; i++ {
		if i < 0 || i >= s.book.ChapterCount() || s.Cached(i) {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if _, err := s.Chapter(i); err != nil {
				s.log.Debug("Prefetch failed", zap.Int("index", i), zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// View renders chapter index with optional paragraph numbers and bookmark
// icons.
func (s *Session) View(index int, numbered bool, isBookmarked annotate.BookmarkFunc) (*View, error) {
	ch, err := s.Chapter(index)
	if err != nil {
		return nil, err
	}

	paragraphs, err := annotate.Count(ch.Content.HTML)
	if err != nil {
		return nil, fmt.Errorf("failed to count paragraphs: %w", err)
	}
	return &View{
		Chapter:    ch,
		HTML:       annotate.Process(ch.Content.HTML, numbered, isBookmarked, s.log),
		Paragraphs: paragraphs,
	}, nil
}

// Content returns the extracted book content, extracting it on first use
// and again whenever the book no longer matches it.
func (s *Session) Content(ctx context.Context) (*bookcontent.BookContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !bookcontent.NeedsRefresh(s.content, s) {
		return s.content, nil
	}
	bc, err := bookcontent.Extract(ctx, s, s.log)
	if err != nil {
		return nil, fmt.Errorf("failed to extract book content: %w", err)
	}
	s.content = bc
	return bc, nil
}

// Context builds the chat assistant context for the current chapter.
func (s *Session) Context(ctx context.Context, opts bookcontent.Options) (string, error) {
	bc, err := s.Content(ctx)
	if err != nil {
		return "", err
	}
	return bookcontent.BuildContext(bc, opts), nil
}

// BookMetadata implements bookcontent.ChapterSource.
func (s *Session) BookMetadata() epub.Metadata {
	return s.book.BookMetadata()
}

// ChapterCount implements bookcontent.ChapterSource.
func (s *Session) ChapterCount() int {
	return s.book.ChapterCount()
}

// Close drops every cached chapter.
func (s *Session) Close() {
	s.chapters.Flush()
}
