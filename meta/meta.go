// Package meta extracts page-level metadata: title, description,
// language and canonical URL.
package meta

import (
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/use-agent/sift/models"
	"golang.org/x/text/language"
)

// Extract reads metadata from raw HTML. og:title wins over <title>; the
// canonical link is resolved against pageURL. Fields the head does not
// provide are filled from a readability pass over the document.
func Extract(rawHTML, pageURL string) models.PageMeta {
	var m models.PageMeta

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return m
	}

	m.Title = clean(doc.Find("title").First().Text())
	if og := metaContent(doc, "property", "og:title"); og != "" {
		m.Title = og
	}
	m.Description = metaContent(doc, "name", "description")
	if m.Description == "" {
		m.Description = metaContent(doc, "property", "og:description")
	}

	lang, _ := doc.Find("html").First().Attr("lang")
	if lang == "" {
		lang = metaContent(doc, "http-equiv", "content-language")
	}
	m.Language = Language(lang)

	if href, ok := doc.Find(`link[rel~="canonical"]`).First().Attr("href"); ok {
		m.Canonical = resolve(pageURL, href)
	}

	if m.Title == "" || m.Description == "" || m.Language == "" {
		fillFromReadability(&m, rawHTML, pageURL)
	}
	return m
}

// Merge fills empty fields of primary from fallback.
func Merge(primary, fallback models.PageMeta) models.PageMeta {
	if primary.Title == "" {
		primary.Title = fallback.Title
	}
	if primary.Description == "" {
		primary.Description = fallback.Description
	}
	if primary.Language == "" {
		primary.Language = fallback.Language
	}
	if primary.Canonical == "" {
		primary.Canonical = fallback.Canonical
	}
	return primary
}

// Language canonicalises a BCP 47 tag ("EN_us" becomes "en-US"). Values
// that do not parse are returned trimmed as found.
func Language(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	// Content-Language may list several; the first is the primary one.
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	tag, err := language.Parse(strings.ReplaceAll(raw, "_", "-"))
	if err != nil {
		return raw
	}
	return tag.String()
}

func fillFromReadability(m *models.PageMeta, rawHTML, pageURL string) {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return
	}
	article, err := readability.FromReader(strings.NewReader(rawHTML), parsed)
	if err != nil {
		slog.Debug("meta: readability fallback failed", "url", pageURL, "error", err)
		return
	}
	if m.Title == "" {
		m.Title = clean(article.Title)
	}
	if m.Description == "" {
		m.Description = clean(article.Excerpt)
	}
	if m.Language == "" {
		m.Language = Language(article.Language)
	}
}

func metaContent(doc *goquery.Document, attr, key string) string {
	var out string
	doc.Find("meta[" + attr + "]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr(attr)
		if !strings.EqualFold(strings.TrimSpace(v), key) {
			return true
		}
		content, _ := s.Attr("content")
		out = clean(content)
		return out == ""
	})
	return out
}

func resolve(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := nurl.Parse(href)
	if err != nil {
		return ""
	}
	if base, err := nurl.Parse(pageURL); err == nil {
		ref = base.ResolveReference(ref)
	}
	return ref.String()
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
