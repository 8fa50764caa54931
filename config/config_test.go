package config

import (
	"testing"
	"time"
)

// The thresholds below are the documented defaults; changing one is a
// behaviour change and should be deliberate.
func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"request timeout", cfg.Server.RequestTimeout, 60 * time.Second},
		{"engine", cfg.Browser.Engine, "rod"},
		{"fetch timeout", cfg.Fetch.Timeout, 15 * time.Second},
		{"max body", cfg.Fetch.MaxBodyBytes, int64(10 << 20)},
		{"min text length", cfg.Decision.MinTextLength, 200},
		{"empty body text", cfg.Decision.EmptyBodyText, 50},
		{"heavy script tags", cfg.Decision.HeavyScriptTags, 5},
		{"heavy script bytes", cfg.Decision.HeavyScriptBytes, 8192},
		{"shell ceiling", cfg.Decision.ShellTextCeiling, 500},
		{"max text", cfg.Segment.MaxTextLength, 5000},
		{"max raw html", cfg.Segment.MaxRawHTMLLength, 1000},
		{"max tab clicks", cfg.Interaction.MaxTabClicks, 8},
		{"max load more", cfg.Interaction.MaxLoadMore, 5},
		{"max scrolls", cfg.Interaction.MaxScrolls, 5},
		{"max pages", cfg.Interaction.MaxPages, 3},
		{"settle timeout", cfg.Interaction.SettleTimeout, 3 * time.Second},
		{"page timeout", cfg.Interaction.PageTimeout, 30 * time.Second},
		{"interaction delay", cfg.Interaction.Delay, 500 * time.Millisecond},
		{"log format", cfg.Log.Format, "json"},
		{"fetch user agent", cfg.Fetch.UserAgent, DefaultUserAgent},
		{"browser user agent", cfg.Browser.UserAgent, DefaultUserAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SIFT_BROWSER_ENGINE", "chromedp")
	t.Setenv("SIFT_MAX_PAGES", "7")
	t.Setenv("SIFT_HERO_IMAGE_RATIO", "0.25")
	t.Setenv("SIFT_SETTLE_TIMEOUT", "750ms")
	t.Setenv("SIFT_BLOCKED_RESOURCES", "Image, Font ,,Media")
	t.Setenv("SIFT_STEALTH", "false")
	t.Setenv("SIFT_USER_AGENT", "sift-test/1.0")

	cfg := Load()

	if cfg.Fetch.UserAgent != "sift-test/1.0" || cfg.Browser.UserAgent != "sift-test/1.0" {
		t.Errorf("user agents = %q, %q", cfg.Fetch.UserAgent, cfg.Browser.UserAgent)
	}

	if cfg.Browser.Engine != "chromedp" {
		t.Errorf("Engine = %q, want chromedp", cfg.Browser.Engine)
	}
	if cfg.Interaction.MaxPages != 7 {
		t.Errorf("MaxPages = %d, want 7", cfg.Interaction.MaxPages)
	}
	if cfg.Segment.HeroImageRatio != 0.25 {
		t.Errorf("HeroImageRatio = %v, want 0.25", cfg.Segment.HeroImageRatio)
	}
	if cfg.Interaction.SettleTimeout != 750*time.Millisecond {
		t.Errorf("SettleTimeout = %v, want 750ms", cfg.Interaction.SettleTimeout)
	}
	if cfg.Browser.Stealth {
		t.Error("Stealth should be disabled")
	}
	want := []string{"Image", "Font", "Media"}
	got := cfg.Browser.BlockedResourceTypes
	if len(got) != len(want) {
		t.Fatalf("BlockedResourceTypes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("BlockedResourceTypes[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SIFT_MAX_SCROLLS", "lots")
	t.Setenv("SIFT_PAGE_TIMEOUT", "soon")

	cfg := Load()
	if cfg.Interaction.MaxScrolls != 5 {
		t.Errorf("MaxScrolls = %d, want fallback 5", cfg.Interaction.MaxScrolls)
	}
	if cfg.Interaction.PageTimeout != 30*time.Second {
		t.Errorf("PageTimeout = %v, want fallback 30s", cfg.Interaction.PageTimeout)
	}
}
