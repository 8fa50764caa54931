package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/models"
)

func TestFetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ua=" + r.Header.Get("User-Agent") + "</body></html>"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/page", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/latin1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		_, _ = w.Write([]byte("<html><body>caf\xe9</body></html>"))
	})
	mux.HandleFunc("/json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(strings.Repeat("a", 4096)))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := config.Load().Fetch
	cfg.MaxBodyBytes = 1024
	f := NewFetcher(cfg, "")

	tests := []struct {
		name      string
		path      string
		wantCode  string
		wantBody  string
		wantFinal string
		wantLen   int
	}{
		{name: "ok", path: "/page", wantBody: "ua=" + config.DefaultUserAgent},
		{name: "redirect", path: "/moved", wantBody: "ua=", wantFinal: "/page"},
		{name: "charset", path: "/latin1", wantBody: "café"},
		{name: "body cap", path: "/big", wantLen: 1024},
		{name: "not html", path: "/json", wantCode: models.ErrCodeFetch},
		{name: "non-2xx", path: "/gone", wantCode: models.ErrCodeFetch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := f.Fetch(context.Background(), srv.URL+tt.path)
			if tt.wantCode != "" {
				var se *models.ScrapeError
				if !errors.As(err, &se) || se.Code != tt.wantCode {
					t.Fatalf("Fetch() error = %v, want %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if res.StatusCode != http.StatusOK {
				t.Errorf("status = %d", res.StatusCode)
			}
			if tt.wantBody != "" && !strings.Contains(res.HTML, tt.wantBody) {
				t.Errorf("body = %q, want it to contain %q", res.HTML, tt.wantBody)
			}
			if tt.wantFinal != "" && res.FinalURL != srv.URL+tt.wantFinal {
				t.Errorf("final URL = %q, want %q", res.FinalURL, srv.URL+tt.wantFinal)
			}
			if tt.wantLen > 0 && len(res.HTML) != tt.wantLen {
				t.Errorf("body length = %d, want %d", len(res.HTML), tt.wantLen)
			}
		})
	}
}

func TestFetch_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewFetcher(config.Load().Fetch, "").Fetch(context.Background(), addr)
	var se *models.ScrapeError
	if !errors.As(err, &se) || se.Code != models.ErrCodeFetch {
		t.Errorf("Fetch() error = %v, want %s", err, models.ErrCodeFetch)
	}
}

func TestIsHTML(t *testing.T) {
	tests := map[string]bool{
		"":                         true,
		"text/html":                true,
		"text/html; charset=utf-8": true,
		"application/xhtml+xml":    true,
		"TEXT/HTML":                true,
		"application/json":         false,
		"image/png":                false,
		"application/pdf; name=x":  false,
	}
	for ct, want := range tests {
		if got := isHTML(ct); got != want {
			t.Errorf("isHTML(%q) = %v, want %v", ct, got, want)
		}
	}
}
