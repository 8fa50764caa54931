// Package interact drives a headless session through the content a page
// hides behind interaction: tabs, "load more" buttons, infinite scroll
// and same-origin pagination. Every snapshot is run through the noise
// filter and segmenter, and the results are merged per page.
package interact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/use-agent/sift/browser"
	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/models"
	"github.com/use-agent/sift/rules"
	"github.com/use-agent/sift/segment"
	"github.com/use-agent/sift/simhash"
	"golang.org/x/time/rate"
)

// Engine runs the interaction protocol. It holds no per-request state and
// is safe for concurrent use; each Run gets its own browser session.
type Engine struct {
	launcher browser.Launcher
	rules    *rules.Set
	cfg      config.InteractionConfig
	seg      config.SegmentConfig
}

// New creates an Engine. A nil rs uses the embedded default ruleset.
func New(l browser.Launcher, rs *rules.Set, cfg config.InteractionConfig, seg config.SegmentConfig) *Engine {
	if rs == nil {
		rs = rules.Default()
	}
	return &Engine{launcher: l, rules: rs, cfg: cfg, seg: seg}
}

// Result is everything one headless run produced.
type Result struct {
	// HTML and URL are the last snapshot of the entry page.
	HTML string
	URL  string

	Sections     []models.Section
	Interactions models.Interactions
	Errors       []models.ErrorItem
}

// Run renders entryURL and any same-origin pages reached through "next"
// links. A failure to start the session or load the entry page is
// returned as an error; everything after that is recorded in
// Result.Errors and a partial result is returned.
func (e *Engine) Run(ctx context.Context, entryURL string) (*Result, error) {
	entry, err := url.Parse(entryURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "invalid URL", err)
	}

	sess, err := e.launcher.Launch(ctx)
	if err != nil {
		return nil, categorize(ctx, err, models.ErrCodeRender, "failed to start browser session")
	}
	defer func() {
		if err := sess.Close(); err != nil {
			slog.Warn("browser session close failed", "url", entryURL, "error", err)
		}
	}()

	r := &run{
		Engine:  e,
		sess:    sess,
		entry:   entry,
		limiter: newLimiter(e.cfg.Delay),
		visited: map[string]bool{canonical(entry): true},
		dups:    simhash.Set{Threshold: e.cfg.DuplicatePageDistance},
		res: &Result{
			Sections:     []models.Section{},
			Interactions: models.NewInteractions(entryURL),
			Errors:       []models.ErrorItem{},
		},
	}

	pageURL := entryURL
	for n := 0; ; n++ {
		p, err := r.page(ctx, pageURL)
		if err != nil {
			if n == 0 {
				return nil, err
			}
			r.res.Errors = append(r.res.Errors, models.AsScrapeError(err, models.ErrCodeRender).ToItem(models.PhasePagination))
			break
		}
		if n == 0 {
			r.res.HTML, r.res.URL = p.html, p.base
		} else {
			r.res.Interactions.Pages = append(r.res.Interactions.Pages, pageURL)
		}

		if r.dups.Seen(simhash.Fingerprint(p.text())) {
			slog.Info("pagination reached a repeated page", "url", pageURL)
			break
		}
		r.res.Sections = append(r.res.Sections, segment.Sections(p.blocks, pageURL)...)

		if ctx.Err() != nil {
			break
		}
		next := r.next(p)
		if next == "" {
			break
		}
		pageURL = next
	}

	if ctx.Err() != nil {
		r.res.Errors = append(r.res.Errors, models.ErrorItem{
			Type:    models.KindTimeout,
			Phase:   models.PhaseInteraction,
			Message: "request deadline reached during interaction; returning partial content",
		})
	}
	return r.res, nil
}

// run is the state of one Engine.Run.
type run struct {
	*Engine

	sess    browser.Session
	entry   *url.URL
	limiter *rate.Limiter
	visited map[string]bool
	dups    simhash.Set
	res     *Result
}

// next returns the URL of the page to visit after p, or "" to stop.
func (r *run) next(p *pageState) string {
	if r.cfg.MaxPages > 0 && len(r.res.Interactions.Pages) >= r.cfg.MaxPages {
		return ""
	}
	u := nextLink(p.tree, p.base, r.rules.Pagination)
	if u == nil {
		return ""
	}
	if !sameOrigin(r.entry, u) {
		slog.Info("pagination stopped at origin boundary", "from", r.entry.String(), "to", u.String())
		return ""
	}
	key := canonical(u)
	if r.visited[key] {
		return ""
	}
	r.visited[key] = true
	return u.String()
}

func (r *run) fail(phase, msg string) {
	slog.Debug("interaction step failed", "phase", phase, "error", msg)
	r.res.Errors = append(r.res.Errors, models.ErrorItem{
		Type:    models.KindInteraction,
		Phase:   phase,
		Message: msg,
	})
}

func newLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// categorize wraps err with code, or with SCRAPE_TIMEOUT when the request
// context has run out.
func categorize(ctx context.Context, err error, code, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	if ctx.Err() != nil {
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	}
	return models.NewScrapeError(code, msg, err)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func pageTimeoutItem(pageURL string, d time.Duration) models.ErrorItem {
	return models.ErrorItem{
		Type:    models.KindTimeout,
		Phase:   models.PhaseInteraction,
		Message: fmt.Sprintf("page %s exceeded %s; keeping content gathered so far", pageURL, d),
	}
}
