package store

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const mindMapsPrefix = "mindmaps/"

type Node struct {
	ID              string  `json:"id"`
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	Color           string  `json:"color,omitempty"`
	Type            string  `json:"type,omitempty"`
	Width           float64 `json:"width,omitempty"`
	Height          float64 `json:"height,omitempty"`
	LinkedParagraph *int    `json:"linkedParagraph,omitempty"`
}

// Connection links two nodes. Connections are undirected: {a, b} and
// {b, a} are the same connection.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (c Connection) same(o Connection) bool {
	return (c.From == o.From && c.To == o.To) || (c.From == o.To && c.To == o.From)
}

// MindMap holds the note graph drawn for one chapter of a book.
type MindMap struct {
	BookID       string       `json:"bookId"`
	ChapterIndex int          `json:"chapterIndex"`
	Nodes        []Node       `json:"nodes"`
	Connections  []Connection `json:"connections"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type MindMaps struct {
	s  *Store
	mu sync.Mutex
}

// NewMindMaps returns the mind map collection kept in s.
func NewMindMaps(s *Store) *MindMaps {
	return &MindMaps{s: s}
}

func mindMapKey(bookID string, chapter int) string {
	return fmt.Sprintf("%s%s/%d", mindMapsPrefix, bookID, chapter)
}

// All returns the maps of every book, in chapter order.
func (m *MindMaps) All(ctx context.Context) (map[string][]MindMap, error) {
	keys, err := m.s.Keys(ctx, mindMapsPrefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]MindMap)
	for _, key := range keys {
		var mm MindMap
		found, err := m.s.GetJSON(ctx, key, &mm)
		if err != nil {
			return nil, err
		}
		if found {
			out[mm.BookID] = append(out[mm.BookID], mm)
		}
	}
	for _, maps := range out {
		slices.SortFunc(maps, func(a, b MindMap) int { return a.ChapterIndex - b.ChapterIndex })
	}
	return out, nil
}

// Get returns the chapter's map, empty when none was saved.
func (m *MindMaps) Get(ctx context.Context, bookID string, chapter int) (MindMap, error) {
	mm := MindMap{BookID: bookID, ChapterIndex: chapter}
	if _, err := m.s.GetJSON(ctx, mindMapKey(bookID, chapter), &mm); err != nil {
		return MindMap{}, err
	}
	if mm.Nodes == nil {
		mm.Nodes = []Node{}
	}
	if mm.Connections == nil {
		mm.Connections = []Connection{}
	}
	return mm, nil
}

// Save stores mm. Duplicate connections and connections to missing nodes
// are dropped.
func (m *MindMaps) Save(ctx context.Context, mm MindMap) (MindMap, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	nodes := make(map[string]bool, len(mm.Nodes))
	for _, n := range mm.Nodes {
		nodes[n.ID] = true
	}
	conns := make([]Connection, 0, len(mm.Connections))
	for _, c := range mm.Connections {
		if c.From == c.To || !nodes[c.From] || !nodes[c.To] {
			continue
		}
		dup := false
		for _, kept := range conns {
			if kept.same(c) {
				dup = true
				break
			}
		}
		if !dup {
			conns = append(conns, c)
		}
	}
	mm.Connections = conns
	if mm.Nodes == nil {
		mm.Nodes = []Node{}
	}
	mm.UpdatedAt = m.s.now()

	if err := m.s.PutJSON(ctx, mindMapKey(mm.BookID, mm.ChapterIndex), mm); err != nil {
		return MindMap{}, err
	}
	return mm, nil
}

// Remove deletes the mind map of a chapter and reports whether it existed.
func (m *MindMaps) Remove(ctx context.Context, bookID string, chapter int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.s.DeletePayload(ctx, mindMapKey(bookID, chapter))
}

// RemoveBook drops the maps of every chapter of a book.
func (m *MindMaps) RemoveBook(ctx context.Context, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prefix := mindMapsPrefix + bookID + "/"
	keys, err := m.s.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := strconv.Atoi(strings.TrimPrefix(key, prefix)); err != nil {
			continue
		}
		if _, err := m.s.DeletePayload(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
