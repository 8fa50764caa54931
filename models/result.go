package models

import "time"

// SectionType is the semantic classification of a Section.
type SectionType string

const (
	SectionHero    SectionType = "hero"
	SectionNav     SectionType = "nav"
	SectionArticle SectionType = "article"
	SectionList    SectionType = "list"
	SectionGallery SectionType = "gallery"
	SectionForm    SectionType = "form"
	SectionFooter  SectionType = "footer"
	SectionOther   SectionType = "other"
)

// ScrapeResult is the document returned for one scrape invocation.
// Field names are part of the public JSON contract.
type ScrapeResult struct {
	URL          string       `json:"url"`
	ScrapedAt    time.Time    `json:"scrapedAt"` // UTC, whole seconds
	Meta         PageMeta     `json:"meta"`
	Sections     []Section    `json:"sections"`
	Interactions Interactions `json:"interactions"`
	Errors       []ErrorItem  `json:"errors"`
}

// PageMeta is derived once from the authoritative document's head.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Language    string `json:"language"`
	Canonical   string `json:"canonical"`
}

// Section is one classified, contiguous block of page content.
type Section struct {
	ID        string         `json:"id"`
	Type      SectionType    `json:"type"`
	Label     string         `json:"label"`
	SourceURL string         `json:"sourceUrl"`
	Content   SectionContent `json:"content"`
	RawHTML   string         `json:"rawHtml"`
	Truncated bool           `json:"truncated"`
}

// SectionContent is the structured payload extracted from a block.
type SectionContent struct {
	Headings []string     `json:"headings"`
	Text     string       `json:"text"`
	Links    []Link       `json:"links"`
	Images   []Image      `json:"images"`
	Lists    [][]string   `json:"lists"`
	Tables   [][][]string `json:"tables"`
}

// Link represents a hyperlink extracted from a section.
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Image represents an image element extracted from a section.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Interactions records what the headless session did to surface content.
type Interactions struct {
	// Clicks holds the selectors actually clicked, in trigger order.
	Clicks []string `json:"clicks"`

	// Scrolls counts scroll-and-wait cycles that grew the document.
	Scrolls int `json:"scrolls"`

	// Pages lists visited URLs; the first entry is the entry URL.
	Pages []string `json:"pages"`
}

// NewInteractions returns an Interactions value whose slices marshal as
// empty arrays rather than null.
func NewInteractions(entryURL string) Interactions {
	return Interactions{
		Clicks: []string{},
		Pages:  []string{entryURL},
	}
}

// NewSectionContent returns a SectionContent with non-nil slices.
func NewSectionContent() SectionContent {
	return SectionContent{
		Headings: []string{},
		Links:    []Link{},
		Images:   []Image{},
		Lists:    [][]string{},
		Tables:   [][][]string{},
	}
}

// TextLength returns the total length of section text in runes.
func (r *ScrapeResult) TextLength() int {
	n := 0
	for _, s := range r.Sections {
		n += len([]rune(s.Content.Text))
	}
	return n
}
