package browser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceTypes maps config names to CDP resource types.
var resourceTypes = map[string]proto.NetworkResourceType{
	"Image":      proto.NetworkResourceTypeImage,
	"Stylesheet": proto.NetworkResourceTypeStylesheet,
	"Font":       proto.NetworkResourceTypeFont,
	"Media":      proto.NetworkResourceTypeMedia,
	"Script":     proto.NetworkResourceTypeScript,
}

// adDomains are ad and tracker hosts. Subdomains match too.
var adDomains = map[string]struct{}{
	"doubleclick.net":       {},
	"googlesyndication.com": {},
	"googleadservices.com":  {},
	"google-analytics.com":  {},
	"googletagmanager.com":  {},
	"googletagservices.com": {},
	"connect.facebook.net":  {},
	"adnxs.com":             {},
	"adsrvr.org":            {},
	"amazon-adsystem.com":   {},
	"criteo.com":            {},
	"criteo.net":            {},
	"outbrain.com":          {},
	"taboola.com":           {},
	"moatads.com":           {},
	"pubmatic.com":          {},
	"rubiconproject.com":    {},
	"scorecardresearch.com": {},
	"quantserve.com":        {},
	"hotjar.com":            {},
	"mixpanel.com":          {},
	"segment.io":            {},
	"ads-twitter.com":       {},
	"chartbeat.com":         {},
	"media.net":             {},
	"openx.net":             {},
	"casalemedia.com":       {},
	"demdex.net":            {},
	"krxd.net":              {},
	"bluekai.com":           {},
	"serving-sys.com":       {},
	"rlcdn.com":             {},
	"sharethis.com":         {},
	"addthis.com":           {},
}

func isAdDomain(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	for host != "" {
		if _, ok := adDomains[host]; ok {
			return true
		}
		i := strings.IndexByte(host, '.')
		if i < 0 {
			break
		}
		host = host[i+1:]
	}
	return false
}

// blocker decides which requests a session refuses to load.
type blocker struct {
	types map[proto.NetworkResourceType]bool
	ads   bool
}

func newBlocker(typeNames []string, ads bool) blocker {
	b := blocker{types: make(map[proto.NetworkResourceType]bool, len(typeNames)), ads: ads}
	for _, name := range typeNames {
		if rt, ok := resourceTypes[name]; ok {
			b.types[rt] = true
		}
	}
	return b
}

func (b blocker) empty() bool { return len(b.types) == 0 && !b.ads }

func (b blocker) blocks(rt proto.NetworkResourceType, rawURL string) bool {
	if b.types[rt] {
		return true
	}
	if !b.ads {
		return false
	}
	u, err := url.Parse(rawURL)
	return err == nil && isAdDomain(u.Hostname())
}

// hijack installs b on page and returns the running router, or nil when
// there is nothing to block. The caller stops the router.
func hijack(page *rod.Page, b blocker) *rod.HijackRouter {
	if b.empty() {
		return nil
	}
	router := page.HijackRequests()
	err := router.Add("*", "", func(h *rod.Hijack) {
		if b.blocks(h.Request.Type(), h.Request.URL().String()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	if err != nil {
		slog.Debug("request blocking unavailable", "error", err)
		return nil
	}
	go router.Run()
	return router
}
