package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sift/export"
	"github.com/use-agent/sift/models"
)

// Scraper is the extraction pipeline as the handlers use it.
// *scraper.Pipeline implements it.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*models.ScrapeResult, error)
	Active() int
	Uptime() time.Duration
	RenderEnabled() bool
}

// Scrape returns a handler for POST /scrape.
//
// The body is {"url": "..."}. The result is returned unchanged as
// {"result": ScrapeResult}; ?format=markdown renders it as Markdown
// instead.
func Scrape(sc Scraper) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ScrapeResponse{
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		res, err := sc.Scrape(c.Request.Context(), req.URL)
		if err != nil {
			respondError(c, err)
			return
		}

		if c.Query("format") == "markdown" {
			md, err := export.Markdown(res)
			if err != nil {
				respondError(c, err)
				return
			}
			c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
			return
		}
		c.JSON(http.StatusOK, models.ScrapeResponse{Result: res})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Error: scrapeErr.ToDetail(),
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeInvalidURL, models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeFetch, models.ErrCodeRender:
		return http.StatusBadGateway // 502
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
