package store

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	chatsPrefix = "chats/"

	MaxConversationsPerBook    = 10
	MaxMessagesPerConversation = 100

	defaultConversationTitle = "New Conversation"
	titleLength              = 50
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ConversationMetadata struct {
	BookTitle    string `json:"bookTitle"`
	ChapterIndex int    `json:"chapterIndex"`
}

type Conversation struct {
	ID        string               `json:"id"`
	BookID    string               `json:"bookId"`
	Title     string               `json:"title"`
	Messages  []Message            `json:"messages"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
	Metadata  ConversationMetadata `json:"metadata"`
}

// Chats keeps the assistant conversations of each book, most recently
// active first. Older conversations beyond MaxConversationsPerBook are
// dropped.
type Chats struct {
	s  *Store
	mu sync.Mutex
}

// NewChats returns the conversation collection kept in s.
func NewChats(s *Store) *Chats {
	return &Chats{s: s}
}

// All returns the conversations of every book keyed by book id.
func (c *Chats) All(ctx context.Context) (map[string][]Conversation, error) {
	return loadAll[Conversation](ctx, c.s, chatsPrefix)
}

// List returns the conversations of a book, most recent first.
func (c *Chats) List(ctx context.Context, bookID string) ([]Conversation, error) {
	return loadList[Conversation](ctx, c.s, chatsPrefix+bookID)
}

// Get returns one conversation; found is false when it does not exist.
func (c *Chats) Get(ctx context.Context, bookID, id string) (conv Conversation, found bool, err error) {
	list, err := c.List(ctx, bookID)
	if err != nil {
		return Conversation{}, false, err
	}
	if i := conversationIndex(list, id); i >= 0 {
		return list[i], true, nil
	}
	return Conversation{}, false, nil
}

// Create starts an empty conversation at the top of the book's list.
func (c *Chats) Create(ctx context.Context, bookID, title string, meta ConversationMetadata) (Conversation, error) {
	if title == "" {
		title = defaultConversationTitle
	}
	now := c.s.now()
	conv := Conversation{
		ID:        uuid.NewString(),
		BookID:    bookID,
		Title:     title,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
		Metadata:  meta,
	}
	if err := c.Save(ctx, bookID, conv); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// Save stores conv, replacing the conversation with the same id, and moves
// it to the top of the list.
func (c *Chats) Save(ctx context.Context, bookID string, conv Conversation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.List(ctx, bookID)
	if err != nil {
		return err
	}
	return c.putFirst(ctx, bookID, list, conv)
}

// AddMessage appends msg to a conversation. The first user message names
// the conversation. Returns false when the conversation does not exist.
func (c *Chats) AddMessage(ctx context.Context, bookID, convID string, msg Message) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.List(ctx, bookID)
	if err != nil {
		return false, err
	}
	i := conversationIndex(list, convID)
	if i < 0 {
		return false, nil
	}
	conv := list[i]

	now := c.s.now()
	msg.ID = uuid.NewString()
	msg.Timestamp = now
	conv.Messages = trimMessages(append(conv.Messages, msg))
	conv.UpdatedAt = now

	if msg.Role == RoleUser && countRole(conv.Messages, RoleUser) == 1 {
		conv.Title = conversationTitle(msg.Content)
	}
	return true, c.putFirst(ctx, bookID, list, conv)
}

// Rename changes the title of a conversation without moving it.
func (c *Chats) Rename(ctx context.Context, bookID, convID, title string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.List(ctx, bookID)
	if err != nil {
		return false, err
	}
	i := conversationIndex(list, convID)
	if i < 0 {
		return false, nil
	}
	list[i].Title = title
	list[i].UpdatedAt = c.s.now()
	return true, saveList(ctx, c.s, chatsPrefix+bookID, list)
}

// Remove deletes a conversation and reports whether it existed.
func (c *Chats) Remove(ctx context.Context, bookID, convID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, err := c.List(ctx, bookID)
	if err != nil {
		return false, err
	}
	i := conversationIndex(list, convID)
	if i < 0 {
		return false, nil
	}
	return true, saveList(ctx, c.s, chatsPrefix+bookID, slices.Delete(list, i, i+1))
}

// Clear drops every conversation of a book.
func (c *Chats) Clear(ctx context.Context, bookID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.s.DeletePayload(ctx, chatsPrefix+bookID)
	return err
}

func (c *Chats) putFirst(ctx context.Context, bookID string, list []Conversation, conv Conversation) error {
	if i := conversationIndex(list, conv.ID); i >= 0 {
		list = slices.Delete(list, i, i+1)
	}
	list = slices.Insert(list, 0, conv)
	if len(list) > MaxConversationsPerBook {
		list = list[:MaxConversationsPerBook]
	}
	return saveList(ctx, c.s, chatsPrefix+bookID, list)
}

// trimMessages keeps the most recent messages, plus the first system
// message when it would otherwise fall out.
func trimMessages(msgs []Message) []Message {
	if len(msgs) <= MaxMessagesPerConversation {
		return msgs
	}
	recent := msgs[len(msgs)-MaxMessagesPerConversation+1:]
	sys := slices.IndexFunc(msgs, func(m Message) bool { return m.Role == RoleSystem })
	if sys < 0 || sys >= len(msgs)-len(recent) {
		return slices.Clone(msgs[len(msgs)-MaxMessagesPerConversation:])
	}
	return append([]Message{msgs[sys]}, recent...)
}

func conversationTitle(content string) string {
	r := []rune(content)
	if len(r) <= titleLength {
		return content
	}
	return string(r[:titleLength]) + "..."
}

func countRole(msgs []Message, role string) int {
	n := 0
	for _, m := range msgs {
		if m.Role == role {
			n++
		}
	}
	return n
}

func conversationIndex(list []Conversation, id string) int {
	return slices.IndexFunc(list, func(c Conversation) bool { return c.ID == id })
}
