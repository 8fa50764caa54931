// Package export renders a ScrapeResult for humans.
package export

import (
	"fmt"
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/use-agent/sift/models"
)

// conv is goroutine-safe and reused across calls.
var conv = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(
			table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
		),
	),
)

// Markdown renders res as a single Markdown document: the page title,
// then one part per section built from its structured content. rawHtml
// is not used since it is cut at a length cap and may not be well formed.
func Markdown(res *models.ScrapeResult) (string, error) {
	var b strings.Builder
	title := res.Meta.Title
	if title == "" {
		title = res.URL
	}
	fmt.Fprintf(&b, "<h1>%s</h1>", esc(title))
	if res.Meta.Description != "" {
		fmt.Fprintf(&b, "<blockquote><p>%s</p></blockquote>", esc(res.Meta.Description))
	}
	for _, s := range res.Sections {
		writeSection(&b, s, len(res.Interactions.Pages) > 1)
	}

	out, err := conv.ConvertString(b.String(), converter.WithDomain(res.URL))
	if err != nil {
		return "", fmt.Errorf("export: convert markdown: %w", err)
	}
	return strings.TrimSpace(out) + "\n", nil
}

func writeSection(b *strings.Builder, s models.Section, multiPage bool) {
	heading := s.Label
	if heading == "" {
		heading = s.ID
	}
	fmt.Fprintf(b, "<h2>%s</h2>", esc(heading))
	if multiPage {
		fmt.Fprintf(b, "<p><em>%s</em> from <a href=\"%s\">%s</a></p>", esc(string(s.Type)), esc(s.SourceURL), esc(s.SourceURL))
	} else {
		fmt.Fprintf(b, "<p><em>%s</em></p>", esc(string(s.Type)))
	}

	c := s.Content
	if c.Text != "" {
		fmt.Fprintf(b, "<p>%s</p>", esc(c.Text))
	}
	for _, list := range c.Lists {
		b.WriteString("<ul>")
		for _, item := range list {
			fmt.Fprintf(b, "<li>%s</li>", esc(item))
		}
		b.WriteString("</ul>")
	}
	for _, rows := range c.Tables {
		writeTable(b, rows)
	}
	if len(c.Links) > 0 {
		b.WriteString("<ul>")
		for _, l := range c.Links {
			text := l.Text
			if text == "" {
				text = l.Href
			}
			fmt.Fprintf(b, "<li><a href=\"%s\">%s</a></li>", esc(l.Href), esc(text))
		}
		b.WriteString("</ul>")
	}
	for _, img := range c.Images {
		fmt.Fprintf(b, "<p><img src=\"%s\" alt=\"%s\"></p>", esc(img.Src), esc(img.Alt))
	}
	if s.Truncated {
		b.WriteString("<p><em>(truncated)</em></p>")
	}
}

// writeTable treats the first row as the header.
func writeTable(b *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("<table><thead><tr>")
	for _, cell := range rows[0] {
		fmt.Fprintf(b, "<th>%s</th>", esc(cell))
	}
	b.WriteString("</tr></thead><tbody>")
	for _, row := range rows[1:] {
		b.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(b, "<td>%s</td>", esc(cell))
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
}

func esc(s string) string { return html.EscapeString(s) }
