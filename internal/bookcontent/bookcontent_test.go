package bookcontent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yuanying/epubreader/internal/epub"
)

// fakeSource serves chapters from a slice. A nil entry stands for a chapter
// whose file is missing.
type fakeSource struct {
	md       epub.Metadata
	chapters []*epub.Chapter
	fail     int // index returning a generic error, -1 for none
}

func (f *fakeSource) BookMetadata() epub.Metadata { return f.md }
func (f *fakeSource) ChapterCount() int           { return len(f.chapters) }

func (f *fakeSource) Chapter(i int) (*epub.Chapter, error) {
	if i == f.fail {
		return nil, errors.New("boom")
	}
	if f.chapters[i] == nil {
		return nil, &epub.NotFoundError{Path: fmt.Sprintf("ch%d.xhtml", i)}
	}
	return f.chapters[i], nil
}

func chapter(i int, title, html string) *epub.Chapter {
	return &epub.Chapter{Index: i, Title: title, Content: epub.ChapterContent{HTML: html}}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "blocks and entities",
			in:   "<h1>Title</h1><p>Hello&nbsp;world &amp; more</p>\n<p>Next</p>",
			want: "Title Hello world & more Next",
		},
		{
			name: "inline elements do not split words",
			in:   "<p>a<b>b</b>c</p>",
			want: "abc",
		},
		{
			name: "script and style skipped",
			in:   "<p>Before</p><script>var x = 1;</script><style>p{color:red}</style><p>After</p>",
			want: "Before After",
		},
		{
			name: "self-closing title",
			in:   `<title/><p>Body text</p>`,
			want: "Body text",
		},
		{
			name: "self-closing script",
			in:   `<script src="x.js"/><p>After</p>`,
			want: "After",
		},
		{
			name: "line breaks",
			in:   "one<br/>two",
			want: "one two",
		},
		{
			name: "empty",
			in:   "",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlainText(tt.in); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("  one two\tthree\nfour "); got != 4 {
		t.Errorf("CountWords() = %d, want 4", got)
	}
	if got := CountWords(""); got != 0 {
		t.Errorf("CountWords(\"\") = %d, want 0", got)
	}
}

func TestExtract(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	src := &fakeSource{
		md: epub.Metadata{Title: "Book", Author: "Writer", Language: "en"},
		chapters: []*epub.Chapter{
			chapter(0, "One", "<p>Hello world</p>"),
			nil,
			chapter(2, "", "<p>Third text here</p>"),
		},
		fail: -1,
	}

	bc, err := Extract(context.Background(), src, zap.New(core))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if len(bc.Chapters) != 2 {
		t.Fatalf("len(Chapters) = %d, want 2", len(bc.Chapters))
	}
	if bc.Chapters[1].Index != 2 || bc.Chapters[1].Title != "Chapter 3" {
		t.Errorf("Chapters[1] = %+v", bc.Chapters[1])
	}
	if bc.TotalWordCount != 5 {
		t.Errorf("TotalWordCount = %d, want 5", bc.TotalWordCount)
	}
	wantFull := "\n\n--- One ---\n\nHello world\n\n--- Chapter 3 ---\n\nThird text here"
	if bc.FullText != wantFull {
		t.Errorf("FullText = %q, want %q", bc.FullText, wantFull)
	}
	if bc.SpineLength != 3 {
		t.Errorf("SpineLength = %d, want 3", bc.SpineLength)
	}
	if !strings.HasPrefix(bc.Summary, "Book: Book\nAuthor: Writer\nTotal Chapters: 2\nTotal Words: 5\n\nChapter Overview:\n") {
		t.Errorf("Summary = %q", bc.Summary)
	}
	if logs.FilterMessage("Skipping chapter").Len() != 1 {
		t.Errorf("expected one skip warning, got %v", logs.All())
	}
}

func TestExtract_Errors(t *testing.T) {
	src := &fakeSource{
		chapters: []*epub.Chapter{chapter(0, "A", "<p>a</p>"), chapter(1, "B", "<p>b</p>")},
		fail:     1,
	}
	if _, err := Extract(context.Background(), src, nil); err == nil {
		t.Error("expected error from failing chapter")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src.fail = -1
	if _, err := Extract(ctx, src, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}

	if _, err := Extract(context.Background(), nil, nil); err == nil {
		t.Error("expected error for nil source")
	}
}

func TestExtract_OnRealBook(t *testing.T) {
	// Chapter markup as produced by the renderer, including entities.
	src := &fakeSource{
		md:       epub.Metadata{Title: "Real"},
		chapters: []*epub.Chapter{chapter(0, "Intro", "<h1>Intro</h1>\n<p>It&#8217;s a <em>test</em>.</p>")},
		fail:     -1,
	}
	bc, err := Extract(context.Background(), src, zap.NewNop())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got := bc.Chapters[0].Content; got != "Intro It’s a test." {
		t.Errorf("Content = %q", got)
	}
	if !strings.Contains(bc.Summary, "Author: Unknown\n") {
		t.Errorf("Summary = %q", bc.Summary)
	}
}

func TestPreviewer(t *testing.T) {
	long := "This is the first sentence. " + strings.Repeat("Word ", 60) + "end."

	p := newPreviewer("en", zap.NewNop())
	if got := p.Preview(long, previewLength); got != "This is the first sentence." {
		t.Errorf("Preview() = %q", got)
	}

	unbroken := strings.Repeat("x", 300)
	if got := p.Preview(unbroken, previewLength); got != strings.Repeat("x", 200) {
		t.Errorf("Preview() of one long sentence has %d chars, want 200", len(got))
	}

	fr := newPreviewer("fr", zap.NewNop())
	if fr.tok != nil {
		t.Error("expected no sentence model for French")
	}
	if got := fr.Preview(long, 10); got != "This is th" {
		t.Errorf("Preview() = %q", got)
	}
}

func TestSummarize_Omission(t *testing.T) {
	bc := &BookContent{Metadata: epub.Metadata{Title: "Long"}}
	for i := 0; i < 200; i++ {
		bc.Chapters = append(bc.Chapters, ChapterText{
			Index:   i,
			Title:   fmt.Sprintf("Chapter %d", i+1),
			Content: strings.Repeat("y", 300),
		})
	}

	summary := summarize(bc, &previewer{})
	if !strings.HasSuffix(summary, "\n[Additional chapters omitted for brevity]") {
		t.Errorf("summary should end with the omission note")
	}
	if strings.Contains(summary, "Chapter 200:") {
		t.Error("summary should stop before the last chapter")
	}
}

func testContent(n int) *BookContent {
	bc := &BookContent{
		Metadata:       epub.Metadata{Title: "T", Author: "A"},
		Summary:        "SUMMARY",
		TotalWordCount: 42,
	}
	for i := 0; i < n; i++ {
		bc.Chapters = append(bc.Chapters, ChapterText{
			Index:   i,
			Title:   fmt.Sprintf("C%d", i),
			Content: strings.Repeat(fmt.Sprint(i), 1500),
		})
		bc.FullText += fmt.Sprintf("\n\n--- C%d ---\n\n", i)
	}
	return bc
}

func TestBuildContext_FullText(t *testing.T) {
	bc := testContent(2)
	got := BuildContext(bc, Options{IncludeFullText: true})

	want := "Book Title: T\nAuthor: A\nTotal Chapters: 2\nTotal Words: 42\n\nFull Book Content:\n" + bc.FullText
	if got != want {
		t.Errorf("BuildContext() = %q, want %q", got, want)
	}
}

func TestBuildContext_FullTextTooLong(t *testing.T) {
	bc := testContent(2)
	got := BuildContext(bc, Options{IncludeFullText: true, MaxContextLength: 10})

	if strings.Contains(got, "Full Book Content:") {
		t.Error("full text should not be used above the limit")
	}
	if !strings.Contains(got, "Book Summary:\nSUMMARY\n\n") {
		t.Errorf("BuildContext() = %q", got)
	}
}

func TestBuildContext_Neighbours(t *testing.T) {
	bc := testContent(7)
	got := BuildContext(bc, Options{CurrentChapter: 3})

	if !strings.Contains(got, "\nRelevant Chapters (2 to 6):\n") {
		t.Errorf("missing range header in %q", got[:200])
	}
	for _, title := range []string{"C1", "C2", "C3", "C4", "C5"} {
		if !strings.Contains(got, "--- "+title+" ---") {
			t.Errorf("missing %s", title)
		}
	}
	for _, title := range []string{"C0", "C6"} {
		if strings.Contains(got, "--- "+title+" ---") {
			t.Errorf("unexpected %s", title)
		}
	}
	if !strings.Contains(got, "--- C3 ---\n"+strings.Repeat("3", 1500)+"\n") {
		t.Error("current chapter should be complete")
	}
	if !strings.Contains(got, "--- C2 ---\n"+strings.Repeat("2", 1000)+"...\n") {
		t.Error("neighbour should be cut to 1000 characters")
	}
}

func TestBuildContext_EdgeOfBook(t *testing.T) {
	got := BuildContext(testContent(3), Options{CurrentChapter: 0, Radius: 1})
	if !strings.Contains(got, "Relevant Chapters (1 to 2)") {
		t.Errorf("BuildContext() = %q", got)
	}

	empty := BuildContext(&BookContent{}, Options{})
	if !strings.HasPrefix(empty, "Book Title: Unknown\nAuthor: Unknown\n") {
		t.Errorf("BuildContext() = %q", empty)
	}
}

func TestNeedsRefresh(t *testing.T) {
	src := &fakeSource{
		md:       epub.Metadata{Title: "T", Author: "A"},
		chapters: []*epub.Chapter{chapter(0, "", "<p>x</p>"), nil},
		fail:     -1,
	}
	bc, err := Extract(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if NeedsRefresh(bc, src) {
		t.Error("fresh content should not need a refresh")
	}
	if !NeedsRefresh(nil, src) {
		t.Error("nil content needs a refresh")
	}

	src.md.Author = "B"
	if !NeedsRefresh(bc, src) {
		t.Error("author change needs a refresh")
	}
	src.md.Author = "A"
	src.chapters = append(src.chapters, chapter(2, "", "<p>y</p>"))
	if !NeedsRefresh(bc, src) {
		t.Error("chapter count change needs a refresh")
	}
}
