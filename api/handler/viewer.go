package handler

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/use-agent/sift/models"
)

//go:embed templates/viewer.html
var templateFS embed.FS

var viewerTmpl = template.Must(template.New("viewer.html").Funcs(template.FuncMap{
	"preview": preview,
	"join":    strings.Join,
}).ParseFS(templateFS, "templates/viewer.html"))

// previewPolicy strips scripts, handlers and styling from rawHtml. The
// markup is cut at a length cap, so the sanitizer also closes dangling
// tags before it reaches the page.
var previewPolicy = bluemonday.UGCPolicy()

func preview(raw string) template.HTML {
	return template.HTML(previewPolicy.Sanitize(raw)) //nolint:gosec // sanitized above
}

type viewerData struct {
	URL    string
	Result *models.ScrapeResult
	Error  *models.ErrorDetail
}

// Viewer returns a handler for GET /. Without a url query parameter it
// shows the input form; with one it scrapes the page and renders the
// sections.
func Viewer(sc Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := viewerData{URL: strings.TrimSpace(c.Query("url"))}
		status := http.StatusOK

		if data.URL != "" {
			res, err := sc.Scrape(c.Request.Context(), data.URL)
			if err != nil {
				se := models.AsScrapeError(err, models.ErrCodeInternal)
				data.Error = se.ToDetail()
				status = mapErrorToStatus(se)
			} else {
				data.Result = res
			}
		}

		c.Status(status)
		c.Header("Content-Type", "text/html; charset=utf-8")
		if err := viewerTmpl.Execute(c.Writer, data); err != nil {
			slog.Error("viewer template failed", "error", err)
		}
	}
}
