package scraper

import (
	"strings"
	"testing"

	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/models"
)

// The defaults asserted here are tuning choices, not values recovered
// from anywhere: 200 runes of extracted text is enough to skip rendering,
// an empty body is 50 runes or less, and 5 scripts or 8 KiB of script is
// heavy. Pages under 500 runes still render when they look like an app
// shell.
func TestDecisionDefaults(t *testing.T) {
	cfg := config.Load().Decision
	if cfg.MinTextLength != 200 || cfg.EmptyBodyText != 50 || cfg.HeavyScriptTags != 5 ||
		cfg.HeavyScriptBytes != 8192 || cfg.ShellTextCeiling != 500 {
		t.Errorf("decision defaults = %+v", cfg)
	}
}

func TestDecide(t *testing.T) {
	cfg := config.Load().Decision
	tests := []struct {
		name string
		sig  Signals
		want bool
	}{
		{"fetch failed", Signals{FetchFailed: true, TextLength: 5000}, true},
		{"empty body heavy script tags", Signals{TextLength: 0, ScriptTags: 8}, true},
		{"empty body heavy script bytes", Signals{TextLength: 20, ScriptTags: 1, ScriptBytes: 50_000}, true},
		{"short text", Signals{TextLength: 120}, true},
		{"empty app shell", Signals{TextLength: 300, AppShell: true}, true},
		{"noscript warning", Signals{TextLength: 300, NoscriptWarning: true}, true},
		{"script heavy with little text", Signals{TextLength: 300, ScriptTags: 12}, true},
		{"plain article", Signals{TextLength: 300, ScriptTags: 1, ScriptBytes: 200}, false},
		{"long text with app shell", Signals{TextLength: 2000, AppShell: true, ScriptTags: 30}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.sig, cfg)
			if got.NeedsRender != tt.want {
				t.Errorf("Decide(%+v) = %+v, want NeedsRender=%v", tt.sig, got, tt.want)
			}
			if got.NeedsRender && got.Reason == "" {
				t.Error("render decision has no reason")
			}
		})
	}
}

// More extracted text never turns a "no render" decision back into a
// render, whatever the other signals are.
func TestDecide_MonotonicInText(t *testing.T) {
	cfg := config.Load().Decision
	var bases []Signals
	for _, shell := range []bool{false, true} {
		for _, noscript := range []bool{false, true} {
			for _, tags := range []int{0, 3, 20} {
				for _, bytes := range []int{0, 4096, 100_000} {
					bases = append(bases, Signals{AppShell: shell, NoscriptWarning: noscript, ScriptTags: tags, ScriptBytes: bytes})
				}
			}
		}
	}
	for _, base := range bases {
		rendered := true
		for n := 0; n <= 3000; n += 10 {
			sig := base
			sig.TextLength = n
			got := Decide(sig, cfg).NeedsRender
			if got && !rendered {
				t.Fatalf("signals %+v: render turned back on at text length %d", base, n)
			}
			rendered = got
		}
		if rendered {
			t.Errorf("signals %+v: still rendering with 3000 runes of text", base)
		}
	}
}

func TestMeasure(t *testing.T) {
	raw, err := dom.ParseString(`<html><head>
		<script src="/a.js"></script>
		<script>` + strings.Repeat("x", 1000) + `</script>
		<script type="application/ld+json">{"@type":"Article"}</script>
	</head><body>
		<noscript>You need to enable JavaScript to run this app.</noscript>
		<div id="root"></div>
		<p>Hello there</p>
	</body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	sections := []models.Section{{Content: models.SectionContent{Text: "héllo"}}}

	sig := Measure(raw, sections, nil)
	if sig.TextLength != 5 {
		t.Errorf("TextLength = %d, want 5 runes", sig.TextLength)
	}
	if sig.ScriptTags != 2 {
		t.Errorf("ScriptTags = %d, want 2 (ld+json excluded)", sig.ScriptTags)
	}
	if sig.ScriptBytes != 1000 {
		t.Errorf("ScriptBytes = %d, want 1000", sig.ScriptBytes)
	}
	if !sig.NoscriptWarning {
		t.Error("NoscriptWarning not detected")
	}
	if !sig.AppShell {
		t.Error("empty #root not detected as app shell")
	}
	if sig.BodyText == 0 {
		t.Error("BodyText = 0")
	}
}
