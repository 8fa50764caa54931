package meta

import (
	"testing"

	"github.com/use-agent/sift/models"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		html string
		want models.PageMeta
	}{
		{
			name: "full head",
			html: `<html lang="en_us"><head>
<title>  Plain   title </title>
<meta name="description" content="A page about things.">
<link rel="canonical" href="/canonical/path">
</head><body><p>x</p></body></html>`,
			want: models.PageMeta{
				Title:       "Plain title",
				Description: "A page about things.",
				Language:    "en-US",
				Canonical:   "https://example.com/canonical/path",
			},
		},
		{
			name: "og title wins",
			html: `<html lang="de"><head><title>Fallback</title>
<meta property="og:title" content="Social title">
<meta property="og:description" content="Social description">
</head><body></body></html>`,
			want: models.PageMeta{
				Title:       "Social title",
				Description: "Social description",
				Language:    "de",
			},
		},
		{
			name: "content-language header",
			html: `<html><head><title>T</title><meta name="description" content="D">
<meta http-equiv="Content-Language" content="fr-CA, en"></head><body></body></html>`,
			want: models.PageMeta{Title: "T", Description: "D", Language: "fr-CA"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract(tt.html, "https://example.com/docs/page"); got != tt.want {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLanguage(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"EN", "en"},
		{"pt_br", "pt-BR"},
		{" zh-Hant-TW ", "zh-Hant-TW"},
		{"en-GB, en", "en-GB"},
		{"not a tag!", "not a tag!"},
	}
	for _, tt := range tests {
		if got := Language(tt.in); got != tt.want {
			t.Errorf("Language(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMerge(t *testing.T) {
	primary := models.PageMeta{Title: "Rendered"}
	fallback := models.PageMeta{Title: "Static", Description: "desc", Language: "en", Canonical: "https://example.com/"}

	got := Merge(primary, fallback)
	want := models.PageMeta{Title: "Rendered", Description: "desc", Language: "en", Canonical: "https://example.com/"}
	if got != want {
		t.Errorf("Merge() = %+v, want %+v", got, want)
	}
}
