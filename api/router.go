package api

import (
	"github.com/gin-gonic/gin"
	"github.com/use-agent/sift/api/handler"
	"github.com/use-agent/sift/api/middleware"
	"github.com/use-agent/sift/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Recovery → Logger → Headers (no-store, CORS)
func NewRouter(sc handler.Scraper, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Server.Mode != gin.TestMode {
		r.Use(gin.Logger())
	}
	r.Use(middleware.Headers())

	r.GET("/healthz", handler.Health(sc, cfg.Browser.Engine))
	r.POST("/scrape", handler.Scrape(sc))
	r.GET("/", handler.Viewer(sc))

	return r
}
