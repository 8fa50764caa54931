package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/models"
)

type fakeScraper struct {
	res    *models.ScrapeResult
	err    error
	render bool
	got    string
}

func (f *fakeScraper) Scrape(_ context.Context, url string) (*models.ScrapeResult, error) {
	f.got = url
	return f.res, f.err
}

func (f *fakeScraper) Active() int { return 2 }

func (f *fakeScraper) Uptime() time.Duration { return 90 * time.Second }

func (f *fakeScraper) RenderEnabled() bool { return f.render }

func testConfig() *config.Config {
	cfg := config.Load()
	cfg.Server.Mode = "test"
	return cfg
}

func sampleResult() *models.ScrapeResult {
	return &models.ScrapeResult{
		URL:  "https://example.com/",
		Meta: models.PageMeta{Title: "Example"},
		Sections: []models.Section{{
			ID:        "article-0",
			Type:      models.SectionArticle,
			Label:     "Hello",
			SourceURL: "https://example.com/",
			Content:   models.NewSectionContent(),
			RawHTML:   `<h1 onclick="steal()">Hello</h1><script>alert(1)</script><p>World`,
		}},
		Interactions: models.NewInteractions("https://example.com/"),
		Errors:       []models.ErrorItem{},
	}
}

func do(t *testing.T, sc *fakeScraper, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := NewRouter(sc, testConfig())
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestScrape_OK(t *testing.T) {
	sc := &fakeScraper{res: sampleResult(), render: true}
	w := do(t, sc, http.MethodPost, "/scrape", `{"url":"https://example.com/"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if sc.got != "https://example.com/" {
		t.Errorf("scraped %q", sc.got)
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q, want no-store", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	var body map[string]map[string]json.RawMessage
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"url", "scrapedAt", "meta", "sections", "interactions", "errors"} {
		if _, ok := body["result"][key]; !ok {
			t.Errorf("result has no %q field: %s", key, w.Body)
		}
	}
}

func TestScrape_Markdown(t *testing.T) {
	sc := &fakeScraper{res: sampleResult(), render: true}
	w := do(t, sc, http.MethodPost, "/scrape?format=markdown", `{"url":"https://example.com/"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "# Example") {
		t.Errorf("body = %s", w.Body)
	}
}

func TestScrape_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"missing url", `{}`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"bad json", `{"url":`, nil, http.StatusBadRequest, models.ErrCodeInvalidInput},
		{"invalid url", `{"url":"https://x.example/"}`, models.NewScrapeError(models.ErrCodeInvalidURL, "bad", nil), http.StatusBadRequest, models.ErrCodeInvalidURL},
		{"fetch", `{"url":"https://x.example/"}`, models.NewScrapeError(models.ErrCodeFetch, "HTTP 500", nil), http.StatusBadGateway, models.ErrCodeFetch},
		{"render", `{"url":"https://x.example/"}`, models.NewScrapeError(models.ErrCodeRender, "no browser", nil), http.StatusBadGateway, models.ErrCodeRender},
		{"timeout", `{"url":"https://x.example/"}`, models.NewScrapeError(models.ErrCodeTimeout, "deadline", nil), http.StatusGatewayTimeout, models.ErrCodeTimeout},
		{"untyped", `{"url":"https://x.example/"}`, context.Canceled, http.StatusInternalServerError, models.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, &fakeScraper{err: tt.err}, http.MethodPost, "/scrape", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
			var resp models.ScrapeResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Result != nil || resp.Error == nil || resp.Error.Code != tt.wantErr {
				t.Errorf("response = %s, want error %s", w.Body, tt.wantErr)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		render     bool
		wantStatus string
		wantEngine string
	}{
		{true, "healthy", "rod"},
		{false, "degraded", "none"},
	}
	for _, tt := range tests {
		w := do(t, &fakeScraper{render: tt.render}, http.MethodGet, "/healthz", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var resp models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Status != tt.wantStatus || resp.Engine != tt.wantEngine || resp.ActiveScrapes != 2 || resp.Uptime != "1m30s" {
			t.Errorf("health = %+v", resp)
		}
	}
}

func TestViewer(t *testing.T) {
	t.Run("form", func(t *testing.T) {
		sc := &fakeScraper{}
		w := do(t, sc, http.MethodGet, "/", "")
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `name="url"`) {
			t.Errorf("status = %d, body = %s", w.Code, w.Body)
		}
		if sc.got != "" {
			t.Error("form view should not scrape")
		}
	})

	t.Run("result", func(t *testing.T) {
		w := do(t, &fakeScraper{res: sampleResult()}, http.MethodGet, "/?url=https://example.com/", "")
		body := w.Body.String()
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(body, `id="article-0"`) || !strings.Contains(body, "Hello") {
			t.Errorf("section not rendered: %s", body)
		}
		if strings.Contains(body, "alert(1)") || strings.Contains(body, "onclick") {
			t.Errorf("rawHtml preview not sanitized: %s", body)
		}
	})

	t.Run("error", func(t *testing.T) {
		sc := &fakeScraper{err: models.NewScrapeError(models.ErrCodeFetch, "HTTP 404 for https://example.com/", nil)}
		w := do(t, sc, http.MethodGet, "/?url=https://example.com/", "")
		if w.Code != http.StatusBadGateway || !strings.Contains(w.Body.String(), models.ErrCodeFetch) {
			t.Errorf("status = %d, body = %s", w.Code, w.Body)
		}
	})
}

func TestPreflight(t *testing.T) {
	w := do(t, &fakeScraper{}, http.MethodOptions, "/scrape", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("missing Access-Control-Allow-Methods")
	}
}
