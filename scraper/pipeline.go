package scraper

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/use-agent/sift/cleaner"
	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/interact"
	"github.com/use-agent/sift/meta"
	"github.com/use-agent/sift/models"
	"github.com/use-agent/sift/rules"
	"github.com/use-agent/sift/segment"
)

// Renderer produces the rendered sections of a page. *interact.Engine is
// the production implementation.
type Renderer interface {
	Run(ctx context.Context, entryURL string) (*interact.Result, error)
}

// Pipeline is the top-level orchestrator: static fetch, noise filter,
// segmentation and render decision, then the interaction engine when the
// static document is not enough. It is safe for concurrent use; requests
// share no mutable state beyond the active counter.
type Pipeline struct {
	cfg      *config.Config
	rules    *rules.Set
	fetcher  *Fetcher
	renderer Renderer

	active    atomic.Int32
	startTime time.Time
}

// NewPipeline wires a pipeline. A nil renderer disables headless
// rendering; pages that need it are returned with their static content
// and a RenderError item.
func NewPipeline(cfg *config.Config, rs *rules.Set, r Renderer) *Pipeline {
	if rs == nil {
		rs = rules.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		rules:     rs,
		fetcher:   NewFetcher(cfg.Fetch, cfg.Browser.Proxy),
		renderer:  r,
		startTime: time.Now(),
	}
}

// Active returns the number of scrapes in flight.
func (p *Pipeline) Active() int { return int(p.active.Load()) }

// Uptime returns the time since the pipeline was created.
func (p *Pipeline) Uptime() time.Duration { return time.Since(p.startTime) }

// RenderEnabled reports whether a headless renderer is configured.
func (p *Pipeline) RenderEnabled() bool { return p.renderer != nil }

// Scrape runs the full pipeline for rawURL. It returns a best-effort
// result whenever anything was gathered; the error is reserved for an
// invalid URL, a failed first page, and a deadline hit with no content.
func (p *Pipeline) Scrape(ctx context.Context, rawURL string) (*models.ScrapeResult, error) {
	res, _, err := p.scrape(ctx, rawURL)
	return res, err
}

// staticPage is the outcome of the static path.
type staticPage struct {
	html     string
	finalURL string
	sections []models.Section
	warnings []string
	signals  Signals
}

func (p *Pipeline) scrape(ctx context.Context, rawURL string) (*models.ScrapeResult, Decision, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return nil, Decision{}, err
	}
	if d := p.cfg.Server.RequestTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	p.active.Add(1)
	defer p.active.Add(-1)
	start := time.Now()

	res := &models.ScrapeResult{
		URL:          rawURL,
		ScrapedAt:    start.UTC().Truncate(time.Second),
		Sections:     []models.Section{},
		Interactions: models.NewInteractions(rawURL),
		Errors:       []models.ErrorItem{},
	}

	st, fetchErr := p.static(ctx, rawURL)
	sig := Signals{FetchFailed: true}
	if fetchErr == nil {
		sig = st.signals
	} else {
		slog.Warn("static fetch failed", "url", rawURL, "error", fetchErr)
	}
	dec := Decide(sig, p.cfg.Decision)
	slog.Debug("render decision", "url", rawURL, "needs_render", dec.NeedsRender, "reason", dec.Reason,
		"text_length", sig.TextLength, "script_tags", sig.ScriptTags, "script_bytes", sig.ScriptBytes)

	switch {
	case !dec.NeedsRender:
		p.useStatic(res, st)

	case p.renderer == nil:
		if fetchErr != nil {
			return nil, dec, fatal(ctx, fetchErr, models.ErrCodeFetch)
		}
		p.useStatic(res, st)
		res.Errors = append(res.Errors, models.ErrorItem{
			Type:    models.KindRender,
			Phase:   models.PhaseRender,
			Message: fmt.Sprintf("rendering needed (%s) but no browser engine is configured; returning static content", dec.Reason),
		})

	default:
		rr, err := p.renderer.Run(ctx, rawURL)
		if err != nil {
			if fetchErr != nil || len(st.sections) == 0 {
				return nil, dec, fatal(ctx, err, models.ErrCodeRender)
			}
			slog.Warn("render failed, falling back to static content", "url", rawURL, "error", err)
			p.useStatic(res, st)
			res.Errors = append(res.Errors, fatal(ctx, err, models.ErrCodeRender).ToItem(models.PhaseRender))
			break
		}

		res.Sections = rr.Sections
		res.Interactions = rr.Interactions
		res.Errors = append(res.Errors, rr.Errors...)
		res.Meta = meta.Extract(rr.HTML, cmp.Or(rr.URL, rawURL))
		if fetchErr != nil {
			res.Errors = append([]models.ErrorItem{models.AsScrapeError(fetchErr, models.ErrCodeFetch).ToItem(models.PhaseFetch)}, res.Errors...)
		} else {
			res.Meta = meta.Merge(res.Meta, meta.Extract(st.html, st.finalURL))
		}
	}

	if ctx.Err() != nil {
		if len(res.Sections) == 0 {
			return nil, dec, models.NewScrapeError(models.ErrCodeTimeout, "request deadline exceeded before any content was extracted", ctx.Err())
		}
		if !hasKind(res.Errors, models.KindTimeout) {
			res.Errors = append(res.Errors, models.ErrorItem{
				Type:    models.KindTimeout,
				Phase:   models.PhaseRender,
				Message: "request deadline exceeded; returning partial content",
			})
		}
	}

	segment.AssignIDs(res.Sections)
	slog.Info("scrape completed",
		"url", rawURL,
		"rendered", dec.NeedsRender && p.renderer != nil,
		"sections", len(res.Sections),
		"text_length", res.TextLength(),
		"clicks", len(res.Interactions.Clicks),
		"scrolls", res.Interactions.Scrolls,
		"pages", len(res.Interactions.Pages),
		"errors", len(res.Errors),
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return res, dec, nil
}

// static fetches pageURL and runs the filter and segmenter over it.
func (p *Pipeline) static(ctx context.Context, pageURL string) (*staticPage, error) {
	fr, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	raw, err := dom.ParseString(fr.HTML)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeFetch, "parse HTML", err)
	}

	filtered, removed := cleaner.Filter(raw, p.rules)
	seg := segment.Segment(filtered, fr.FinalURL, p.cfg.Segment)
	sections := segment.Sections(seg.Blocks, pageURL)
	slog.Debug("static extraction", "url", pageURL, "final_url", fr.FinalURL,
		"status", fr.StatusCode, "noise_removed", removed, "sections", len(sections))

	return &staticPage{
		html:     fr.HTML,
		finalURL: fr.FinalURL,
		sections: sections,
		warnings: seg.Warnings,
		signals:  Measure(raw, sections, p.rules),
	}, nil
}

func (p *Pipeline) useStatic(res *models.ScrapeResult, st *staticPage) {
	res.Sections = st.sections
	res.Meta = meta.Extract(st.html, st.finalURL)
	for _, w := range st.warnings {
		res.Errors = append(res.Errors, models.ErrorItem{
			Type:    models.KindSegmentation,
			Phase:   models.PhaseSegment,
			Message: w,
		})
	}
}

// ValidateURL accepts absolute http and https URLs with a host.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "malformed URL", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL,
			fmt.Sprintf("unsupported URL scheme %q; only http and https are allowed", u.Scheme), nil)
	}
	if u.Host == "" {
		return nil, models.NewScrapeError(models.ErrCodeInvalidURL, "URL has no host", nil)
	}
	return u, nil
}

// fatal types err for the caller, turning it into SCRAPE_TIMEOUT when the
// request deadline is what stopped it.
func fatal(ctx context.Context, err error, code string) *models.ScrapeError {
	if ctx.Err() != nil {
		if se := models.AsScrapeError(err, code); se.Code == models.ErrCodeTimeout {
			return se
		}
		return models.NewScrapeError(models.ErrCodeTimeout, "request deadline exceeded", err)
	}
	return models.AsScrapeError(err, code)
}

func hasKind(items []models.ErrorItem, kind models.ErrorKind) bool {
	for _, it := range items {
		if it.Type == kind {
			return true
		}
	}
	return false
}
