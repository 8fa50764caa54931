package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestIsAdDomain(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"doubleclick.net", true},
		{"stats.g.doubleclick.net", true},
		{"PAGEAD2.GoogleSyndication.com.", true},
		{"example.com", false},
		{"notdoubleclick.net", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isAdDomain(tt.host); got != tt.want {
			t.Errorf("isAdDomain(%q) = %v, want %v", tt.host, got, tt.want)
		}
	}
}

func TestBlocker(t *testing.T) {
	b := newBlocker([]string{"Font", "Media", "Bogus"}, true)

	tests := []struct {
		name string
		rt   proto.NetworkResourceType
		url  string
		want bool
	}{
		{"font", proto.NetworkResourceTypeFont, "https://example.com/a.woff2", true},
		{"media", proto.NetworkResourceTypeMedia, "https://example.com/a.mp4", true},
		{"document", proto.NetworkResourceTypeDocument, "https://example.com/", false},
		{"stylesheet kept", proto.NetworkResourceTypeStylesheet, "https://example.com/a.css", false},
		{"ad script", proto.NetworkResourceTypeScript, "https://www.googletagmanager.com/gtm.js", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.blocks(tt.rt, tt.url); got != tt.want {
				t.Errorf("blocks() = %v, want %v", got, tt.want)
			}
		})
	}

	if !newBlocker(nil, false).empty() {
		t.Error("blocker without types or ads should be empty")
	}
	if newBlocker([]string{"Image"}, false).blocks(proto.NetworkResourceTypeScript, "https://doubleclick.net/x") {
		t.Error("ads must pass when ad blocking is off")
	}
}
