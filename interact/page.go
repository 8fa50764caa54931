package interact

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"

	"github.com/use-agent/sift/cleaner"
	"github.com/use-agent/sift/dom"
	"github.com/use-agent/sift/models"
	"github.com/use-agent/sift/segment"
)

// errLeftPage marks a snapshot taken after an interaction moved the
// session to another document. Its content belongs to no visited page.
var errLeftPage = errors.New("interaction navigated away from the page")

// pageState accumulates one page's snapshots.
type pageState struct {
	url    string // requested URL, reported as the sections' sourceUrl
	base   string // location reported by the browser, for resolving links
	html   string
	tree   *dom.Tree // filtered tree of the latest snapshot
	hash   uint64
	blocks []segment.Block
	warned map[string]bool
}

func (p *pageState) text() string {
	parts := make([]string, 0, len(p.blocks))
	for _, b := range p.blocks {
		parts = append(parts, b.Content.Text)
	}
	return strings.Join(parts, " ")
}

// page loads pageURL and runs the interaction steps against it. Only a
// failure to load or extract the page is returned; step failures and a
// page timeout are recorded and the page keeps what it gathered.
func (r *run) page(ctx context.Context, pageURL string) (*pageState, error) {
	pctx, cancel := withTimeout(ctx, r.cfg.PageTimeout)
	defer cancel()

	p := &pageState{url: pageURL, base: pageURL, warned: make(map[string]bool)}

	navCtx, navCancel := withTimeout(pctx, r.cfg.NavigationTimeout)
	err := r.sess.Navigate(navCtx, pageURL)
	navCancel()
	if err != nil {
		return nil, categorize(ctx, err, models.ErrCodeRender, "navigation to "+pageURL+" failed")
	}
	r.settle(pctx)
	if err := r.snapshot(pctx, p); err != nil {
		return nil, categorize(ctx, err, models.ErrCodeRender, "failed to extract DOM of "+pageURL)
	}

	for _, step := range []func(context.Context, *pageState) error{r.tabs, r.loadMore, r.scroll} {
		err := step(pctx, p)
		if errors.Is(err, errLeftPage) {
			break
		}
		if err != nil || pctx.Err() != nil {
			if ctx.Err() == nil {
				r.res.Errors = append(r.res.Errors, pageTimeoutItem(pageURL, r.cfg.PageTimeout))
			}
			break
		}
	}
	return p, nil
}

func (r *run) settle(ctx context.Context) {
	if err := r.sess.WaitForSettle(ctx, r.cfg.SettleTimeout); err != nil {
		slog.Debug("wait for settle failed", "error", err)
	}
}

// snapshot extracts the live DOM, filters and segments it, and merges the
// blocks into p.
func (r *run) snapshot(ctx context.Context, p *pageState) error {
	snap, err := r.sess.ExtractDOM(ctx)
	if err != nil {
		return err
	}
	tree, err := dom.ParseString(snap.HTML)
	if err != nil {
		return err
	}
	if snap.URL != "" {
		if p.tree != nil && !sameDocument(p.base, snap.URL) {
			return fmt.Errorf("%w: session is now at %s", errLeftPage, snap.URL)
		}
		p.base = snap.URL
	}
	filtered, _ := cleaner.Filter(tree, r.rules)

	seg := segment.Segment(filtered, p.base, r.seg)
	for _, w := range seg.Warnings {
		if p.warned[w] {
			continue
		}
		p.warned[w] = true
		r.res.Errors = append(r.res.Errors, models.ErrorItem{
			Type:    models.KindSegmentation,
			Phase:   models.PhaseSegment,
			Message: fmt.Sprintf("%s: %s", p.url, w),
		})
	}

	p.html, p.tree, p.hash = snap.HTML, filtered, contentHash(snap.HTML)
	p.blocks = mergeBlocks(p.blocks, seg.Blocks)
	return nil
}

// tabs clicks every unselected tab once, in document order.
func (r *run) tabs(ctx context.Context, p *pageState) error {
	var sels []string
	for _, i := range onPage(p.tree, p.base, find(p.tree, r.rules.Tabs)) {
		if r.cfg.MaxTabClicks > 0 && len(sels) >= r.cfg.MaxTabClicks {
			break
		}
		if p.tree.Attr(i, "aria-selected") == "true" || disabled(p.tree, i) {
			continue
		}
		sels = append(sels, p.tree.Path(i))
	}
	for _, sel := range sels {
		if _, err := r.click(ctx, p, sel, "tab"); err != nil {
			return err
		}
	}
	return nil
}

// loadMore clicks the first "load more" control until it disappears, a
// click stops changing the document, or the iteration cap is hit.
func (r *run) loadMore(ctx context.Context, p *pageState) error {
	for n := 0; n < r.cfg.MaxLoadMore; n++ {
		i := firstEnabled(p.tree, onPage(p.tree, p.base, find(p.tree, r.rules.LoadMore)))
		if i < 0 {
			return nil
		}
		before := p.hash
		clicked, err := r.click(ctx, p, p.tree.Path(i), "load more")
		if err != nil {
			return err
		}
		if !clicked || p.hash == before {
			return nil
		}
	}
	return nil
}

// scroll scrolls to the bottom until the document stops growing.
func (r *run) scroll(ctx context.Context, p *pageState) error {
	for n := 0; n < r.cfg.MaxScrolls; n++ {
		before, err := r.sess.Height(ctx)
		if err != nil {
			return r.stepFailed(ctx, "measure height", err)
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return err
		}
		actx, cancel := withTimeout(ctx, r.cfg.ActionTimeout)
		err = r.sess.Scroll(actx)
		cancel()
		if err != nil {
			return r.stepFailed(ctx, "scroll", err)
		}
		r.settle(ctx)

		after, err := r.sess.Height(ctx)
		if err != nil {
			return r.stepFailed(ctx, "measure height", err)
		}
		if after <= before {
			return nil
		}
		r.res.Interactions.Scrolls++
		if err := r.snapshot(ctx, p); err != nil {
			if errors.Is(err, errLeftPage) {
				return r.leftPage(ctx, p, "scroll", err)
			}
			return r.stepFailed(ctx, "snapshot after scroll", err)
		}
	}
	return nil
}

// click triggers sel and snapshots the result. A failed click is recorded
// and reported as not clicked; only context errors are returned.
func (r *run) click(ctx context.Context, p *pageState, sel, what string) (bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return false, err
	}
	actx, cancel := withTimeout(ctx, r.cfg.ActionTimeout)
	err := r.sess.Click(actx, sel)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		r.fail(models.PhaseInteraction, fmt.Sprintf("click %s %q: %v", what, sel, err))
		return false, nil
	}
	r.res.Interactions.Clicks = append(r.res.Interactions.Clicks, sel)

	r.settle(ctx)
	if err := r.snapshot(ctx, p); err != nil {
		if errors.Is(err, errLeftPage) {
			return true, r.leftPage(ctx, p, fmt.Sprintf("click %s %q", what, sel), err)
		}
		return true, r.stepFailed(ctx, "snapshot after "+what+" click", err)
	}
	return true, nil
}

// leftPage records that an interaction on p loaded another document. The
// snapshot is discarded and errLeftPage stops the remaining steps; the
// next page visit navigates explicitly.
func (r *run) leftPage(ctx context.Context, p *pageState, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	slog.Warn("interaction left the page", "url", p.url, "step", what, "error", err)
	r.fail(models.PhaseInteraction, fmt.Sprintf("%s on %s: %v; content discarded", what, p.url, err))
	return errLeftPage
}

// stepFailed records a non-fatal failure. It returns the context's error,
// if any, so callers stop once the page is out of time.
func (r *run) stepFailed(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.fail(models.PhaseInteraction, what+": "+err.Error())
	return nil
}

func contentHash(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
