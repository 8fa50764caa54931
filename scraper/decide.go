package scraper

import (
	"strings"
	"unicode/utf8"

	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/models"
	"github.com/use-agent/sift/rules"
	"golang.org/x/net/html"
)

// Signals are the measurable inputs to the render decision.
type Signals struct {
	FetchFailed bool

	// TextLength is the text extracted by the filter and segmenter, in runes.
	TextLength int

	// BodyText is the visible text of the unfiltered body, in runes.
	BodyText int

	ScriptTags  int
	ScriptBytes int

	// AppShell is set when a known client-side mount point is empty.
	AppShell bool

	// NoscriptWarning is set when a <noscript> asks for JavaScript.
	NoscriptWarning bool
}

// Decision is the outcome of Decide. Reason is empty when no render is needed.
type Decision struct {
	NeedsRender bool
	Reason      string
}

// Measure computes the static signals of a fetched document. raw is the
// unfiltered tree and sections its segmented output.
func Measure(raw *dom.Tree, sections []models.Section, rs *rules.Set) Signals {
	if rs == nil {
		rs = rules.Default()
	}
	var sig Signals
	for _, s := range sections {
		sig.TextLength += utf8.RuneCountInString(s.Content.Text)
	}

	if body := raw.Body(); body >= 0 {
		sig.BodyText = utf8.RuneCountInString(raw.Text(body))
	}

	for i := 0; i < raw.Len(); i++ {
		if !raw.IsElement(i) {
			continue
		}
		switch raw.Node(i).Tag {
		case "script":
			if !isDataScript(raw.Attr(i, "type")) {
				sig.ScriptTags++
				sig.ScriptBytes += len(rawText(raw, i))
			}
		case "noscript":
			txt := rawText(raw, i)
			for _, re := range rs.Noscript {
				if re.MatchString(txt) {
					sig.NoscriptWarning = true
					break
				}
			}
		}
	}

	for _, i := range raw.Find(rs.AppShell) {
		if raw.Text(i) == "" {
			sig.AppShell = true
			break
		}
	}
	return sig
}

// Decide reports whether the page must be rendered headlessly. Every rule
// past a failed fetch is gated on the extracted text being short, so adding
// text can only turn a render off.
func Decide(sig Signals, cfg config.DecisionConfig) Decision {
	heavyScripts := sig.ScriptTags >= cfg.HeavyScriptTags || sig.ScriptBytes >= cfg.HeavyScriptBytes

	switch {
	case sig.FetchFailed:
		return Decision{NeedsRender: true, Reason: "static fetch failed"}
	case sig.TextLength <= cfg.EmptyBodyText && heavyScripts:
		return Decision{NeedsRender: true, Reason: "empty body with heavy scripts"}
	case sig.TextLength < cfg.MinTextLength:
		return Decision{NeedsRender: true, Reason: "extracted text below minimum"}
	case sig.TextLength < cfg.ShellTextCeiling && sig.AppShell:
		return Decision{NeedsRender: true, Reason: "empty client-side app shell"}
	case sig.TextLength < cfg.ShellTextCeiling && sig.NoscriptWarning:
		return Decision{NeedsRender: true, Reason: "noscript asks for JavaScript"}
	case sig.TextLength < cfg.ShellTextCeiling && heavyScripts:
		return Decision{NeedsRender: true, Reason: "script-heavy page with little text"}
	}
	return Decision{}
}

// rawText concatenates character data under i. Script and noscript bodies
// are raw text, so Tree.Text skips them.
func rawText(t *dom.Tree, i int) string {
	var b strings.Builder
	t.Walk(i, func(j int) bool {
		if n := t.Node(j); n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// isDataScript reports script types that carry data rather than code.
func isDataScript(typ string) bool {
	typ = strings.ToLower(strings.TrimSpace(typ))
	return typ == "application/ld+json" || typ == "application/json" || typ == "text/template"
}
