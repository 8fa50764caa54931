package models

// ScrapeResponse wraps a successful result or a top-level failure.
type ScrapeResponse struct {
	Result *ScrapeResult `json:"result,omitempty"`
	Error  *ErrorDetail  `json:"error,omitempty"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	ActiveScrapes int    `json:"active_scrapes"`
	Engine        string `json:"engine"`
	Version       string `json:"version"`
}
