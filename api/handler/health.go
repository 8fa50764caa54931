package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/sift/models"
)

// Version is reported by the health endpoint. Overridden at build time
// with -ldflags "-X github.com/use-agent/sift/api/handler.Version=...".
var Version = "0.1.0"

// Health returns a handler for GET /healthz.
//
// Status is "degraded" when no browser engine is configured: pages that
// need rendering then only get their static content.
func Health(sc Scraper, engine string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, name := "healthy", engine
		if !sc.RenderEnabled() {
			status, name = "degraded", "none"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        status,
			Uptime:        sc.Uptime().Round(time.Second).String(),
			ActiveScrapes: sc.Active(),
			Engine:        name,
			Version:       Version,
		})
	}
}
