package scraper

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	tls2 "github.com/refraction-networking/utls"
	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/models"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
)

// FetchResult is the outcome of a static GET.
type FetchResult struct {
	HTML       string
	FinalURL   string
	StatusCode int
}

// Fetcher performs plain HTTP GETs with a Chrome TLS fingerprint (utls).
type Fetcher struct {
	cfg   config.FetchConfig
	proxy string
}

// NewFetcher creates a static fetcher. proxy may be an http(s) or socks5
// URL, or empty.
func NewFetcher(cfg config.FetchConfig, proxy string) *Fetcher {
	return &Fetcher{cfg: cfg, proxy: proxy}
}

// Fetch retrieves targetURL, following redirects, and returns the body
// decoded to UTF-8. Transport failures, non-2xx statuses and non-HTML
// bodies are reported as FETCH_FAILED.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*FetchResult, error) {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	client := &http.Client{Transport: f.transport()}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "build request", err)
	}
	req.Header.Set("User-Agent", cmp.Or(f.cfg.UserAgent, config.DefaultUserAgent))
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	if f.cfg.AcceptLanguage != "" {
		req.Header.Set("Accept-Language", f.cfg.AcceptLanguage)
	}
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := client.Do(req)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("HTTP %d for %s", resp.StatusCode, targetURL), nil)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return nil, models.NewScrapeError(models.ErrCodeFetch,
			fmt.Sprintf("unsupported content type %q", contentType), nil)
	}

	limit := f.cfg.MaxBodyBytes
	if limit <= 0 {
		limit = 10 << 20
	}
	body, err := charset.NewReader(io.LimitReader(resp.Body, limit), contentType)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "decode body", err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "read body", err)
	}

	return &FetchResult{
		HTML:       string(data),
		FinalURL:   resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
	}, nil
}

func (f *Fetcher) transport() *http.Transport {
	t := &http.Transport{
		DialContext: (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialTLSChrome(ctx, network, addr, f.proxy)
		},
		TLSHandshakeTimeout: 10 * time.Second,
	}
	if f.proxy != "" {
		if u, err := url.Parse(f.proxy); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
			t.Proxy = http.ProxyURL(u)
		}
	}
	return t
}

// dialTLSChrome establishes a TLS connection using a Chrome fingerprint.
// The ALPN list is pinned to http/1.1 because the connection is handed
// to net/http's HTTP/1 transport.
func dialTLSChrome(ctx context.Context, network, addr, proxyURL string) (net.Conn, error) {
	rawConn, err := dialRaw(ctx, network, addr, proxyURL)
	if err != nil {
		return nil, err
	}

	spec, err := tls2.UTLSIdToSpec(tls2.HelloChrome_Auto)
	if err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("utls spec: %w", err)
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls2.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls2.UClient(rawConn, &tls2.Config{ServerName: host}, tls2.HelloCustom)
	if err := tlsConn.ApplyPreset(&spec); err != nil {
		rawConn.Close()
		return nil, fmt.Errorf("utls preset: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// dialRaw opens the TCP connection under TLS, through a SOCKS5 proxy when
// one is configured. HTTP proxies are handled by the transport instead.
func dialRaw(ctx context.Context, network, addr, proxyURL string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	if proxyURL == "" {
		return dialer.DialContext(ctx, network, addr)
	}
	u, err := url.Parse(proxyURL)
	if err != nil || (u.Scheme != "socks5" && u.Scheme != "socks5h") {
		return dialer.DialContext(ctx, network, addr)
	}
	d, err := proxy.FromURL(u, dialer)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}
	if cd, ok := d.(proxy.ContextDialer); ok {
		return cd.DialContext(ctx, network, addr)
	}
	return d.Dial(network, addr)
}

// isHTML accepts HTML media types; a missing Content-Type is given the
// benefit of the doubt.
func isHTML(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html" || mt == "application/xhtml+xml" || mt == "text/plain"
}
