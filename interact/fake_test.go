package interact

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/use-agent/sift/browser"
	"golang.org/x/net/html"
)

// fakePage scripts one URL. render is called for every snapshot, so it
// reflects whatever state click and scroll have changed.
type fakePage struct {
	render func() string
	click  func(ctx context.Context, id string) error
	scroll func()
	height func() int
}

func staticPage(markup string) *fakePage {
	return &fakePage{render: func() string { return markup }}
}

type fakeSession struct {
	pages     map[string]*fakePage
	navErr    map[string]error
	cur       *fakePage
	curURL    string
	navigated []string
	closed    bool
}

func (s *fakeSession) Navigate(_ context.Context, u string) error {
	if err := s.navErr[u]; err != nil {
		return err
	}
	p, ok := s.pages[u]
	if !ok {
		return fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", u)
	}
	s.cur, s.curURL = p, u
	s.navigated = append(s.navigated, u)
	return nil
}

// follow moves the session to u the way a script-driven location change
// would, without an explicit Navigate.
func (s *fakeSession) follow(u string) {
	s.cur, s.curURL = s.pages[u], u
}

func (s *fakeSession) WaitForSettle(context.Context, time.Duration) error { return nil }

// Click resolves the selector against the current markup the way a
// browser would, then hands the element's id to the page script.
func (s *fakeSession) Click(ctx context.Context, selector string) error {
	doc, err := html.Parse(strings.NewReader(s.cur.render()))
	if err != nil {
		return err
	}
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return err
	}
	el := cascadia.Query(doc, sel)
	if el == nil {
		return browser.ErrElementNotFound
	}
	if s.cur.click == nil {
		return nil
	}
	var id string
	for _, a := range el.Attr {
		if a.Key == "id" {
			id = a.Val
		}
	}
	return s.cur.click(ctx, id)
}

func (s *fakeSession) Scroll(context.Context) error {
	if s.cur.scroll != nil {
		s.cur.scroll()
	}
	return nil
}

func (s *fakeSession) Height(context.Context) (int, error) {
	if s.cur.height != nil {
		return s.cur.height(), nil
	}
	return 1000, nil
}

func (s *fakeSession) ExtractDOM(context.Context) (browser.Snapshot, error) {
	return browser.Snapshot{HTML: s.cur.render(), URL: s.curURL}, nil
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeLauncher struct {
	sess *fakeSession
	err  error
}

func (l *fakeLauncher) Launch(context.Context) (browser.Session, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.sess, nil
}

func (l *fakeLauncher) Close() error { return nil }
