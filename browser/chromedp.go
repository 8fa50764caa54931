package browser

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"
	"github.com/use-agent/sift/config"
)

// ChromedpLauncher starts a new Chromium process for every session.
// Slower than the rod backend, but nothing at all survives a request.
type ChromedpLauncher struct {
	cfg  config.BrowserConfig
	opts []chromedp.ExecAllocatorOption
}

// NewChromedp builds the allocator options. No process starts until Launch.
func NewChromedp(cfg config.BrowserConfig) *ChromedpLauncher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cmp.Or(cfg.ViewportWidth, 1920), cmp.Or(cfg.ViewportHeight, 1080)),
		chromedp.UserAgent(cmp.Or(cfg.UserAgent, config.DefaultUserAgent)),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.BrowserBin != "" {
		opts = append(opts, chromedp.ExecPath(cfg.BrowserBin))
	}
	if cfg.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(cfg.Proxy))
	}
	if cfg.AcceptLanguage != "" {
		opts = append(opts, chromedp.Flag("lang", cfg.AcceptLanguage))
	}
	return &ChromedpLauncher{cfg: cfg, opts: opts}
}

func (c *ChromedpLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), c.opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			slog.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)
	s := &chromedpSession{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}

	// The first Run starts the browser.
	var actions []chromedp.Action
	if c.cfg.Stealth {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}))
	}
	if err := s.run(ctx, actions...); err != nil {
		s.cancel()
		return nil, fmt.Errorf("browser: start chromium: %w", err)
	}
	return s, nil
}

// Close is a no-op; every session owns its own process.
func (c *ChromedpLauncher) Close() error { return nil }

type chromedpSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// run executes actions on the tab, bounded by ctx's deadline and
// cancellation. Cancelling a derived context leaves the tab open.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		defer cancelDeadline()
	}
	defer context.AfterFunc(ctx, cancel)()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromedpSession) WaitForSettle(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	last := -1
	for time.Now().Before(deadline) {
		var size int
		if err := s.run(ctx, chromedp.Evaluate(call(domSizeJS), &size)); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Debug("settle probe failed", "error", err)
			return nil
		}
		if size == last {
			return nil
		}
		last = size
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
	return nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string) error {
	q, err := json.Marshal(selector)
	if err != nil {
		return err
	}
	js := `(() => {
		const el = document.querySelector(` + string(q) + `);
		if (!el) return false;
		el.scrollIntoView({block: 'center'});
		el.click();
		return true;
	})()`
	var found bool
	if err := s.run(ctx, chromedp.Evaluate(js, &found)); err != nil {
		return err
	}
	if !found {
		return ErrElementNotFound
	}
	return nil
}

func (s *chromedpSession) Scroll(ctx context.Context) error {
	var ok bool
	return s.run(ctx, chromedp.Evaluate(callVoid(scrollJS), &ok))
}

func (s *chromedpSession) Height(ctx context.Context) (int, error) {
	var h int
	err := s.run(ctx, chromedp.Evaluate(call(heightJS), &h))
	return h, err
}

func (s *chromedpSession) ExtractDOM(ctx context.Context) (Snapshot, error) {
	var (
		ok   bool
		html string
		loc  string
	)
	if err := s.run(ctx, chromedp.Evaluate(callVoid(annotateJS), &ok)); err != nil {
		if ctx.Err() != nil {
			return Snapshot{}, ctx.Err()
		}
		slog.Debug("annotation failed, extracting unannotated DOM", "error", err)
	}
	err := s.run(ctx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&loc),
	)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{HTML: html, URL: loc}, nil
}

func (s *chromedpSession) Close() error {
	s.cancel()
	return nil
}

// call turns a function literal into an invocation expression.
func call(fn string) string { return "(" + fn + ")()" }

// callVoid invokes fn and evaluates to true, for functions with no result.
func callVoid(fn string) string { return "((" + fn + ")(), true)" }
