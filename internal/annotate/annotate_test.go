package annotate

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

func paragraphTexts(t *testing.T, html string) []string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	var texts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(p.Text()))
	})
	return texts
}

func TestNumber(t *testing.T) {
	in := `<h1>Title</h1><p>First.</p><p>   </p><p class="x">Second <em>one</em>.</p>`

	out, err := Number(in, nil)
	if err != nil {
		t.Fatalf("Number() error = %v", err)
	}

	wants := []string{
		`<p data-paragraph-number="1"><span class="paragraph-number">[1]</span> First.</p>`,
		`<p>   </p>`,
		`<p class="x" data-paragraph-number="2"><span class="paragraph-number">[2]</span> Second <em>one</em>.</p>`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("Number() = %q, want it to contain %q", out, want)
		}
	}
	if strings.Contains(out, "<body>") {
		t.Errorf("Number() should return the body inner HTML, got %q", out)
	}
}

func TestNumber_SelfClosingElements(t *testing.T) {
	in := `<div id="top"/><p>One</p><p><a id="n2"/>Two</p>`

	out, err := Number(in, nil)
	if err != nil {
		t.Fatalf("Number() error = %v", err)
	}
	wants := []string{
		`<div id="top"></div><p data-paragraph-number="1">`,
		`<span class="paragraph-number">[2]</span> <a id="n2"></a>Two</p>`,
	}
	for _, want := range wants {
		if !strings.Contains(out, want) {
			t.Errorf("Number() = %q, want it to contain %q", out, want)
		}
	}
	if n, _ := Count(in); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}

func TestNumber_Bookmarked(t *testing.T) {
	in := `<p>One</p><p>Two</p><p>Three</p>`

	out, err := Number(in, func(n int) bool { return n == 2 })
	if err != nil {
		t.Fatalf("Number() error = %v", err)
	}
	if strings.Count(out, "bookmark-icon-inline") != 1 {
		t.Errorf("expected exactly one icon, got %q", out)
	}
	want := `<span class="paragraph-number">[2]</span> <span class="bookmark-icon-inline">🔖</span>Two`
	if !strings.Contains(out, want) {
		t.Errorf("Number() = %q, want it to contain %q", out, want)
	}
}

func TestNumber_Renumbers(t *testing.T) {
	once, err := Number(`<p>A</p><p>B</p>`, func(int) bool { return true })
	if err != nil {
		t.Fatalf("Number() error = %v", err)
	}
	twice, err := Number(once, nil)
	if err != nil {
		t.Fatalf("Number() error = %v", err)
	}
	if strings.Count(twice, `class="paragraph-number"`) != 2 {
		t.Errorf("expected markers to be replaced, got %q", twice)
	}
	if strings.Contains(twice, "bookmark-icon-inline") {
		t.Errorf("stale icons should be removed, got %q", twice)
	}
}

func TestStrip(t *testing.T) {
	in := `<p data-paragraph-number="1"><span class="paragraph-number">[1]</span>  <span class="bookmark-icon-inline">🔖</span>Hello</p>`
	want := `<p>Hello</p>`
	if got := Strip(in); got != want {
		t.Errorf("Strip() = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		`<p>Plain paragraph.</p><p>Another &amp; more.</p>`,
		`<div><p class="a">Nested <strong>bold</strong> text</p></div><p></p><p>Last</p>`,
		`<p>Unicode — “quoted” text</p>`,
	}
	for _, in := range inputs {
		numbered, err := Number(in, func(n int) bool { return n%2 == 1 })
		if err != nil {
			t.Fatalf("Number() error = %v", err)
		}
		stripped := Strip(numbered)

		got := paragraphTexts(t, stripped)
		want := paragraphTexts(t, in)
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("round trip changed paragraph text:\n got %q\nwant %q", got, want)
		}
	}
}

func TestProcess(t *testing.T) {
	numbered := `<p data-paragraph-number="1"><span class="paragraph-number">[1]</span> Hi</p>`

	if got := Process(numbered, false, nil, zap.NewNop()); got != "<p>Hi</p>" {
		t.Errorf("Process(disabled) = %q", got)
	}

	got := Process(`<p>Hi</p>`, true, nil, zap.NewNop())
	if !strings.Contains(got, `[1]`) {
		t.Errorf("Process(enabled) = %q", got)
	}

	got = Process(`<p>Hi</p>`, false, func(int) bool { return true }, nil)
	if !strings.Contains(got, "bookmark-icon-inline") {
		t.Errorf("Process(callback) = %q", got)
	}
}

func TestCount(t *testing.T) {
	tests := []struct {
		name string
		html string
		want int
	}{
		{"empty", ``, 0},
		{"blank paragraphs", `<p> </p><p></p>`, 0},
		{"mixed", `<p>a</p><p> </p><div><p>b</p></div>`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Count(tt.html)
			if err != nil {
				t.Fatalf("Count() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}
