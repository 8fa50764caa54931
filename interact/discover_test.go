package interact

import (
	"net/url"
	"testing"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/rules"
)

func mustTree(t *testing.T, s string) *dom.Tree {
	t.Helper()
	tree, err := dom.ParseString(s)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	return tree
}

func TestSameOrigin(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"https://example.com/a", "https://example.com/b?page=2", true},
		{"https://example.com/a", "https://EXAMPLE.com/b", true},
		{"https://example.com/a", "https://example.com:443/b", true},
		{"http://example.com/a", "http://example.com:80/b", true},
		{"https://example.com/a", "http://example.com/b", false},
		{"https://example.com/a", "https://www.example.com/b", false},
		{"https://example.com/a", "https://example.com:8443/b", false},
		{"https://example.com/a", "https://other.org/a", false},
	}
	for _, tt := range tests {
		a, _ := url.Parse(tt.a)
		b, _ := url.Parse(tt.b)
		if got := sameOrigin(a, b); got != tt.want {
			t.Errorf("sameOrigin(%s, %s) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNextLink(t *testing.T) {
	base := "https://example.com/list?page=1"
	tests := []struct {
		name string
		body string
		want string
	}{
		{"rel next", `<a rel="next" href="?page=2">2</a>`, "https://example.com/list?page=2"},
		{"link element", `<link rel="next" href="/list?page=2">`, "https://example.com/list?page=2"},
		{"text match", `<a href="/list?page=2">Next page »</a>`, "https://example.com/list?page=2"},
		{"fragment dropped", `<a class="next" href="/list?page=2#top">more</a>`, "https://example.com/list?page=2"},
		{"fragment only", `<a rel="next" href="#more">Next</a>`, ""},
		{"script link", `<a rel="next" href="javascript:void(0)">Next</a>`, ""},
		{"self link", `<a rel="next" href="/list?page=1">Next</a>`, ""},
		{"no href", `<button aria-label="Next">›</button>`, ""},
		{"unrelated link", `<a href="/about">About us</a>`, ""},
		{"cross origin still returned", `<a rel="next" href="https://other.org/p2">Next</a>`, "https://other.org/p2"},
	}
	rs := rules.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustTree(t, "<html><head></head><body>"+tt.body+"</body></html>")
			got := ""
			if u := nextLink(tree, base, rs.Pagination); u != nil {
				got = u.String()
			}
			if got != tt.want {
				t.Errorf("nextLink() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFind_LoadMore(t *testing.T) {
	tree := mustTree(t, `<html><body>
		<a href="/x">Read more about us</a>
		<button id="a">Show more</button>
		<div class="feed-load-more" id="b">+</div>
		<button id="c" disabled>Load more</button>
		<button id="d">Subscribe</button>
	</body></html>`)
	rs := rules.Default()

	var ids []string
	for _, i := range find(tree, rs.LoadMore) {
		ids = append(ids, tree.Attr(i, "id"))
	}
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("find() ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("find() ids = %v, want %v", ids, want)
			break
		}
	}

	first := firstEnabled(tree, find(tree, rs.LoadMore))
	if got := tree.Attr(first, "id"); got != "a" {
		t.Errorf("firstEnabled() = %q, want a", got)
	}
}

func TestCanonical(t *testing.T) {
	u, _ := url.Parse("https://Example.COM/list?page=2#results")
	if got, want := canonical(u), "https://example.com/list?page=2"; got != want {
		t.Errorf("canonical() = %q, want %q", got, want)
	}
}

var idSel = cascadia.MustCompile("#c")

func TestOnPage(t *testing.T) {
	base := "https://shop.example/deals?sort=new"
	tests := []struct {
		name string
		body string
		keep bool
	}{
		{"button", `<button id="c">Load more</button>`, true},
		{"fragment link", `<a id="c" href="#panel-2">Specs</a>`, true},
		{"script link", `<a id="c" href="javascript:void(0)">See more</a>`, true},
		{"no href", `<a id="c">See more</a>`, true},
		{"same document", `<a id="c" href="/deals?sort=new#more">See more</a>`, true},
		{"other path", `<a id="c" href="/deals/all">See more</a>`, false},
		{"other query", `<a id="c" href="?sort=old">See more</a>`, false},
		{"other origin", `<a id="c" href="https://tracker.other/landing">See more</a>`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := mustTree(t, "<html><head></head><body>"+tt.body+"</body></html>")
			got := onPage(tree, base, tree.Find(idSel))
			if kept := len(got) == 1; kept != tt.keep {
				t.Errorf("onPage kept = %v, want %v", kept, tt.keep)
			}
		})
	}
}

func TestSameDocument(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"https://shop.example/", "https://shop.example/#deals", true},
		{"https://shop.example/", "https://SHOP.example/", true},
		{"https://shop.example/", "https://shop.example/?page=2", false},
		{"https://shop.example/", "https://tracker.other/", false},
	}
	for _, tt := range tests {
		if got := sameDocument(tt.a, tt.b); got != tt.want {
			t.Errorf("sameDocument(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
