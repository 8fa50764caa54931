package browser

import (
	"testing"

	"github.com/use-agent/sift/config"
)

func TestNew_EngineSelection(t *testing.T) {
	l, err := New(config.BrowserConfig{Engine: "none"})
	if err != nil || l != nil {
		t.Errorf("engine none: got (%v, %v), want (nil, nil)", l, err)
	}

	if _, err := New(config.BrowserConfig{Engine: "webkit"}); err == nil {
		t.Error("unknown engine should fail")
	}

	l, err = New(config.BrowserConfig{Engine: "ChromeDP", Headless: true})
	if err != nil {
		t.Fatalf("engine chromedp: %v", err)
	}
	if _, ok := l.(*ChromedpLauncher); !ok {
		t.Errorf("engine chromedp: got %T", l)
	}
}

func TestCallExpressions(t *testing.T) {
	if got := call(`() => 1`); got != `(() => 1)()` {
		t.Errorf("call = %s", got)
	}
	if got := callVoid(`() => {}`); got != `((() => {})(), true)` {
		t.Errorf("callVoid = %s", got)
	}
}

func TestRefererHeaders(t *testing.T) {
	tests := []struct {
		target string
		want   string
	}{
		{"https://shop.example/deals?x=1", "https://www.google.com/search?q=shop.example"},
		{"http://Example.COM:8080/", "https://www.google.com/search?q=Example.COM"},
		{"not a url", ""},
		{"://bad", ""},
	}
	for _, tt := range tests {
		h := refererHeaders(tt.target)
		got := ""
		if h != nil {
			got = h["Referer"].Str()
		}
		if got != tt.want {
			t.Errorf("refererHeaders(%q) Referer = %q, want %q", tt.target, got, tt.want)
		}
	}
}
