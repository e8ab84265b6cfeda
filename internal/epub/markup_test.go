package epub

import "testing"

func TestHTMLCompatible(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "title", in: `<head><title/></head>`, want: `<head><title></title></head>`},
		{name: "attributes", in: `<a id="p1" class="x" />text`, want: `<a id="p1" class="x"></a>text`},
		{name: "upper case", in: `<SPAN/>`, want: `<SPAN></SPAN>`},
		{name: "script", in: `<script src="a/b.js"/><p>x</p>`, want: `<script src="a/b.js"></script><p>x</p>`},
		{name: "void kept", in: `<br/><img src="a.png"/><link rel="stylesheet" href="s.css"/>`, want: `<br/><img src="a.png"/><link rel="stylesheet" href="s.css"/>`},
		{name: "foreign kept", in: `<svg><path d="M0 0"/><svg:title/></svg>`, want: `<svg><path d="M0 0"/><svg:title/></svg>`},
		{name: "open tags untouched", in: `<div class="a"><img src="b"/></div>`, want: `<div class="a"><img src="b"/></div>`},
		{name: "no self closing", in: `<p>a &lt; b</p>`, want: `<p>a &lt; b</p>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTMLCompatible(tt.in); got != tt.want {
				t.Errorf("HTMLCompatible(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
