package browser

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/sift/config"
	"github.com/ysmood/gson"
)

// RodLauncher owns one Chromium process. Each Launch opens an incognito
// browser context, so sessions share no cookies, storage or cache.
type RodLauncher struct {
	cfg     config.BrowserConfig
	browser *rod.Browser
	proc    *launcher.Launcher
	blocker blocker
}

// NewRod launches Chromium and connects to it.
func NewRod(cfg config.BrowserConfig) (*RodLauncher, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	slog.Info("browser launched", "engine", "rod", "controlURL", controlURL)

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return &RodLauncher{
		cfg:     cfg,
		browser: b,
		proc:    l,
		blocker: newBlocker(cfg.BlockedResourceTypes, cfg.BlockAds),
	}, nil
}

// Launch opens an isolated session. Stealth, identity and request
// blocking are installed before the first navigation.
func (r *RodLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The incognito context is not bound to ctx so Close still works
	// after the request deadline.
	inc, err := r.browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("browser: incognito context: %w", err)
	}

	var page *rod.Page
	if r.cfg.Stealth {
		page, err = stealth.Page(inc)
	} else {
		page, err = inc.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = inc.Close()
		return nil, fmt.Errorf("browser: open page: %w", err)
	}

	s := &rodSession{ctx: inc, page: page}
	if err := s.setup(r.cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.router = hijack(page, r.blocker)
	return s, nil
}

// Close kills the browser process.
func (r *RodLauncher) Close() error {
	slog.Info("browser shutting down", "engine", "rod")
	err := r.browser.Close()
	r.proc.Kill()
	return err
}

type rodSession struct {
	ctx    *rod.Browser // incognito context
	page   *rod.Page
	router *rod.HijackRouter
}

func (s *rodSession) setup(cfg config.BrowserConfig) error {
	if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cmp.Or(cfg.ViewportWidth, 1920),
		Height:            cmp.Or(cfg.ViewportHeight, 1080),
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("browser: viewport: %w", err)
	}
	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      cmp.Or(cfg.UserAgent, config.DefaultUserAgent),
		AcceptLanguage: cfg.AcceptLanguage,
	}); err != nil {
		return fmt.Errorf("browser: user agent: %w", err)
	}
	return nil
}

// refererHeaders returns a search-engine Referer for target, so the visit
// looks like a click-through. It is nil for URLs without a host.
func refererHeaders(target string) proto.NetworkHeaders {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return proto.NetworkHeaders{
		"Referer": gson.New("https://www.google.com/search?q=" + url.QueryEscape(u.Hostname())),
	}
}

func (s *rodSession) Navigate(ctx context.Context, target string) error {
	if h := refererHeaders(target); h != nil {
		if err := (proto.NetworkSetExtraHTTPHeaders{Headers: h}).Call(s.page); err != nil {
			slog.Debug("set referer header failed", "url", target, "error", err)
		}
	}

	p := s.page.Context(ctx)
	if err := p.Navigate(target); err != nil {
		return err
	}
	if err := p.WaitLoad(); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func (s *rodSession) WaitForSettle(ctx context.Context, timeout time.Duration) error {
	err := s.page.Context(ctx).Timeout(timeout).WaitDOMStable(300*time.Millisecond, 0.1)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Debug("DOM did not settle, proceeding with current DOM", "error", err)
	}
	return nil
}

func (s *rodSession) Click(ctx context.Context, selector string) error {
	p := s.page.Context(ctx)
	ok, el, err := p.Has(selector)
	if err != nil {
		return err
	}
	if !ok {
		return ErrElementNotFound
	}
	if err := el.ScrollIntoView(); err != nil {
		slog.Debug("scroll into view failed", "selector", selector, "error", err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Covered or zero-size targets still take a synthetic click.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return errors.Join(err, jsErr)
		}
	}
	return nil
}

func (s *rodSession) Scroll(ctx context.Context) error {
	p := s.page.Context(ctx)
	h, err := s.Height(ctx)
	if err != nil {
		return err
	}
	// Wheel events wake scroll listeners that ignore programmatic jumps.
	if err := p.Mouse.Scroll(0, float64(h), 1); err != nil {
		slog.Debug("wheel scroll failed", "error", err)
	}
	_, err = p.Eval(scrollJS)
	return err
}

func (s *rodSession) Height(ctx context.Context) (int, error) {
	res, err := s.page.Context(ctx).Eval(heightJS)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (s *rodSession) ExtractDOM(ctx context.Context) (Snapshot, error) {
	p := s.page.Context(ctx)
	if _, err := p.Eval(annotateJS); err != nil {
		slog.Debug("annotation failed, extracting unannotated DOM", "error", err)
	}
	html, err := p.HTML()
	if err != nil {
		return Snapshot{}, err
	}
	var loc string
	if res, err := p.Eval(`() => window.location.href`); err == nil {
		loc = res.Value.Str()
	}
	return Snapshot{HTML: html, URL: loc}, nil
}

// Close tears down the page and its incognito context.
func (s *rodSession) Close() error {
	if s.router != nil {
		_ = s.router.Stop()
	}
	var errs []error
	if err := s.page.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := s.ctx.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
