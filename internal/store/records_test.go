package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestBookmarks(t *testing.T) {
	ctx := context.Background()
	bms := NewBookmarks(newTestStore(t, 0))

	for _, loc := range [][2]int{{2, 5}, {0, 3}, {2, 1}} {
		if _, err := bms.Save(ctx, "book", Bookmark{ChapterIndex: loc[0], ParagraphNumber: loc[1]}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	first, err := bms.Save(ctx, "book", Bookmark{ChapterIndex: 0, ParagraphNumber: 3, Note: "edited"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	list, err := bms.List(ctx, "book")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(List()) = %d, want 3 (upsert by location)", len(list))
	}
	var order []string
	for _, bm := range list {
		order = append(order, fmt.Sprintf("%d:%d", bm.ChapterIndex, bm.ParagraphNumber))
	}
	if got := strings.Join(order, " "); got != "0:3 2:1 2:5" {
		t.Errorf("order = %s", got)
	}
	if list[0].Note != "edited" || list[0].ID != first.ID {
		t.Errorf("updated bookmark = %+v", list[0])
	}
	if !list[0].UpdatedAt.After(list[0].CreatedAt) {
		t.Error("UpdatedAt should move on update")
	}

	if ok, _ := bms.IsBookmarked(ctx, "book", 2, 1); !ok {
		t.Error("IsBookmarked(2, 1) = false")
	}
	paras, _ := bms.Paragraphs(ctx, "book", 2)
	if len(paras) != 2 || !paras[1] || !paras[5] {
		t.Errorf("Paragraphs() = %v", paras)
	}

	if ok, err := bms.RemoveAt(ctx, "book", 2, 1); err != nil || !ok {
		t.Fatalf("RemoveAt() = %v, %v", ok, err)
	}
	if ok, _ := bms.RemoveAt(ctx, "book", 9, 9); ok {
		t.Error("RemoveAt() of missing location = true")
	}
	if ok, err := bms.Remove(ctx, "book", first.ID); err != nil || !ok {
		t.Fatalf("Remove() = %v, %v", ok, err)
	}

	if _, err := bms.Save(ctx, "other", Bookmark{ChapterIndex: 1, ParagraphNumber: 1}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	all, err := bms.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all["book"]) != 1 || len(all["other"]) != 1 {
		t.Errorf("All() = %v", all)
	}

	if ok, _ := bms.RemoveAt(ctx, "book", 2, 5); !ok {
		t.Fatal("RemoveAt() = false")
	}
	all, _ = bms.All(ctx)
	if _, ok := all["book"]; ok {
		t.Error("book with no bookmarks should be left out")
	}

	if err := bms.Clear(ctx, "other"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if list, _ := bms.List(ctx, "other"); len(list) != 0 {
		t.Errorf("List() after Clear = %v", list)
	}
}

func TestChats(t *testing.T) {
	ctx := context.Background()
	chats := NewChats(newTestStore(t, 0))

	a, err := chats.Create(ctx, "book", "", ConversationMetadata{BookTitle: "T", ChapterIndex: 2})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Title != "New Conversation" {
		t.Errorf("Title = %q", a.Title)
	}
	b, _ := chats.Create(ctx, "book", "Second", ConversationMetadata{})

	list, _ := chats.List(ctx, "book")
	if len(list) != 2 || list[0].ID != b.ID {
		t.Fatalf("newest conversation should be first: %+v", list)
	}

	long := strings.Repeat("q", 60)
	if ok, err := chats.AddMessage(ctx, "book", a.ID, Message{Role: RoleSystem, Content: "sys"}); err != nil || !ok {
		t.Fatalf("AddMessage() = %v, %v", ok, err)
	}
	if ok, _ := chats.AddMessage(ctx, "book", a.ID, Message{Role: RoleUser, Content: long}); !ok {
		t.Fatal("AddMessage() = false")
	}
	chats.AddMessage(ctx, "book", a.ID, Message{Role: RoleUser, Content: "later question"})

	conv, found, err := chats.Get(ctx, "book", a.ID)
	if err != nil || !found {
		t.Fatalf("Get() = %v, %v", found, err)
	}
	if conv.Title != strings.Repeat("q", 50)+"..." {
		t.Errorf("Title = %q", conv.Title)
	}
	if len(conv.Messages) != 3 || conv.Messages[0].ID == "" {
		t.Errorf("Messages = %+v", conv.Messages)
	}
	list, _ = chats.List(ctx, "book")
	if list[0].ID != a.ID {
		t.Error("active conversation should move to the top")
	}

	if ok, _ := chats.AddMessage(ctx, "book", "missing", Message{Role: RoleUser}); ok {
		t.Error("AddMessage() to missing conversation = true")
	}

	if ok, _ := chats.Rename(ctx, "book", b.ID, "Renamed"); !ok {
		t.Fatal("Rename() = false")
	}
	renamed, _, _ := chats.Get(ctx, "book", b.ID)
	if renamed.Title != "Renamed" {
		t.Errorf("Title = %q", renamed.Title)
	}

	if ok, _ := chats.Remove(ctx, "book", b.ID); !ok {
		t.Fatal("Remove() = false")
	}
	if _, found, _ := chats.Get(ctx, "book", b.ID); found {
		t.Error("removed conversation still found")
	}
	if err := chats.Clear(ctx, "book"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	all, _ := chats.All(ctx)
	if len(all) != 0 {
		t.Errorf("All() = %v", all)
	}
}

func TestChats_ConversationLimit(t *testing.T) {
	ctx := context.Background()
	chats := NewChats(newTestStore(t, 0))

	var first Conversation
	for i := 0; i < MaxConversationsPerBook+2; i++ {
		c, err := chats.Create(ctx, "book", fmt.Sprint(i), ConversationMetadata{})
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if i == 0 {
			first = c
		}
	}
	list, _ := chats.List(ctx, "book")
	if len(list) != MaxConversationsPerBook {
		t.Errorf("len = %d, want %d", len(list), MaxConversationsPerBook)
	}
	if _, found, _ := chats.Get(ctx, "book", first.ID); found {
		t.Error("oldest conversation should be dropped")
	}
}

func TestTrimMessages(t *testing.T) {
	msgs := []Message{{ID: "sys", Role: RoleSystem}}
	for i := 0; i < MaxMessagesPerConversation; i++ {
		msgs = append(msgs, Message{ID: fmt.Sprint(i), Role: RoleUser})
	}

	got := trimMessages(msgs)
	if len(got) != MaxMessagesPerConversation {
		t.Fatalf("len = %d, want %d", len(got), MaxMessagesPerConversation)
	}
	if got[0].ID != "sys" || got[1].ID != "1" || got[len(got)-1].ID != fmt.Sprint(MaxMessagesPerConversation-1) {
		t.Errorf("trimmed = %s %s ... %s", got[0].ID, got[1].ID, got[len(got)-1].ID)
	}

	noSys := msgs[1:]
	noSys = append(noSys, Message{ID: "extra", Role: RoleAssistant})
	got = trimMessages(noSys)
	if len(got) != MaxMessagesPerConversation || got[0].ID != "1" {
		t.Errorf("trimmed without system message starts at %s, len %d", got[0].ID, len(got))
	}
}

func TestCitation_Format(t *testing.T) {
	tests := []struct {
		name string
		cite Citation
		want string
	}{
		{name: "none", cite: Citation{}, want: "note"},
		{
			name: "full",
			cite: Citation{SourceText: "quoted", ChapterTitle: "Chapter 1", ParagraphNumber: 4},
			want: "> quoted\n\nnote\n[Chapter 1, ¶4]\n\n",
		},
		{name: "paragraph only", cite: Citation{ParagraphNumber: 2}, want: "note\n[¶2]\n\n"},
		{name: "source only", cite: Citation{SourceText: "s"}, want: "> s\n\nnote\n\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cite.Format("note"); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNotebooks(t *testing.T) {
	ctx := context.Background()
	nbs := NewNotebooks(newTestStore(t, 0))

	empty, err := nbs.Get(ctx, "book")
	if err != nil || empty.Content != "" || empty.BookID != "book" {
		t.Fatalf("Get() = %+v, %v", empty, err)
	}

	if _, err := nbs.Save(ctx, "book", "Start\n"); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	nb, err := nbs.Append(ctx, "book", "idea", Citation{ChapterTitle: "One"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if nb.Content != "Start\nidea\n[One]\n\n" {
		t.Errorf("Content = %q", nb.Content)
	}
	nb, _ = nbs.Insert(ctx, "book", 0, "top ", Citation{})
	if !strings.HasPrefix(nb.Content, "top Start\n") {
		t.Errorf("Content = %q", nb.Content)
	}

	stored, _ := nbs.Get(ctx, "book")
	if stored.Content != nb.Content || stored.LastEdited.IsZero() {
		t.Errorf("Get() = %+v", stored)
	}
	all, _ := nbs.All(ctx)
	if len(all) != 1 {
		t.Errorf("All() = %v", all)
	}
	if ok, _ := nbs.Remove(ctx, "book"); !ok {
		t.Error("Remove() = false")
	}
}

func TestMindMaps(t *testing.T) {
	ctx := context.Background()
	maps := NewMindMaps(newTestStore(t, 0))

	mm, err := maps.Get(ctx, "book", 3)
	if err != nil || len(mm.Nodes) != 0 || mm.ChapterIndex != 3 {
		t.Fatalf("Get() = %+v, %v", mm, err)
	}

	para := 4
	saved, err := maps.Save(ctx, MindMap{
		BookID:       "book",
		ChapterIndex: 3,
		Nodes:        []Node{{ID: "a", Title: "A", LinkedParagraph: &para}, {ID: "b", Title: "B"}},
		Connections: []Connection{
			{From: "a", To: "b"},
			{From: "b", To: "a"},
			{From: "a", To: "ghost"},
			{From: "a", To: "a"},
		},
	})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(saved.Connections) != 1 {
		t.Errorf("Connections = %+v, want one undirected connection", saved.Connections)
	}

	got, _ := maps.Get(ctx, "book", 3)
	if len(got.Nodes) != 2 || got.Nodes[0].LinkedParagraph == nil || *got.Nodes[0].LinkedParagraph != 4 {
		t.Errorf("Get() = %+v", got)
	}

	maps.Save(ctx, MindMap{BookID: "book", ChapterIndex: 1})
	all, _ := maps.All(ctx)
	if len(all["book"]) != 2 || all["book"][0].ChapterIndex != 1 {
		t.Errorf("All() = %+v", all)
	}

	if ok, _ := maps.Remove(ctx, "book", 3); !ok {
		t.Error("Remove() = false")
	}
	if err := maps.RemoveBook(ctx, "book"); err != nil {
		t.Fatalf("RemoveBook() error = %v", err)
	}
	all, _ = maps.All(ctx)
	if len(all) != 0 {
		t.Errorf("All() after RemoveBook = %+v", all)
	}
}
