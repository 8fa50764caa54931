package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultUserAgent is a current desktop Chrome. The static fetcher and
// browser sessions send the same one so both see the same page variant.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig
	Browser     BrowserConfig
	Fetch       FetchConfig
	Decision    DecisionConfig
	Segment     SegmentConfig
	Interaction InteractionConfig
	Rules       RulesConfig
	Log         LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// RequestTimeout is the per-scrape deadline covering every stage.
	RequestTimeout time.Duration // default: 60s
}

// BrowserConfig controls the headless browser backend.
type BrowserConfig struct {
	// Engine selects the session backend: "rod", "chromedp" or "none".
	Engine string // default: "rod"

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// Stealth masks navigator.webdriver and friends on every page.
	Stealth bool // default: true

	// Proxy is the proxy URL for browser and static traffic.
	Proxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types the rod backend refuses to load.
	// Stylesheets are kept so computed visibility stays accurate.
	// default: ["Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and tracker domains.
	BlockAds bool // default: true

	// ViewportWidth and ViewportHeight size the emulated window.
	ViewportWidth  int // default: 1920
	ViewportHeight int // default: 1080

	UserAgent      string // default: DefaultUserAgent
	AcceptLanguage string // default: "en-US,en;q=0.9"
}

// FetchConfig controls the static HTTP fetcher.
type FetchConfig struct {
	// Timeout bounds the single GET including body read.
	Timeout time.Duration // default: 15s

	// MaxBodyBytes caps how much of the response body is read.
	MaxBodyBytes int64 // default: 10 MiB

	UserAgent      string // default: DefaultUserAgent
	AcceptLanguage string // default: "en-US,en;q=0.9"
}

// DecisionConfig holds the render decision thresholds.
type DecisionConfig struct {
	// MinTextLength is the extracted-text length below which rendering is required.
	MinTextLength int // default: 200

	// EmptyBodyText is the visible body text length treated as "essentially empty".
	EmptyBodyText int // default: 50

	// HeavyScriptTags and HeavyScriptBytes define "heavy script presence".
	HeavyScriptTags  int // default: 5
	HeavyScriptBytes int // default: 8192

	// ShellTextCeiling bounds the app-shell and noscript signals: above this
	// extracted-text length they no longer force rendering.
	ShellTextCeiling int // default: 500
}

// SegmentConfig controls section segmentation and classification.
type SegmentConfig struct {
	MaxTextLength    int     // default: 5000
	MaxRawHTMLLength int     // default: 1000
	HeroImageRatio   float64 // default: 0.5
	HeroMaxIndex     int     // default: 1
	GalleryMinImages int     // default: 3
	NavLinkRatio     float64 // default: 0.6
	NavMinLinks      int     // default: 3
	ListDominance    float64 // default: 0.6
	ListMinItems     int     // default: 3
	FormMinInputs    int     // default: 2
	FooterMaxText    int     // default: 400
	LabelMaxLength   int     // default: 80
}

// InteractionConfig bounds the headless interaction protocol.
type InteractionConfig struct {
	MaxTabClicks int // default: 8
	MaxLoadMore  int // default: 5
	MaxScrolls   int // default: 5
	MaxPages     int // default: 3

	NavigationTimeout time.Duration // default: 15s
	SettleTimeout     time.Duration // default: 3s
	ActionTimeout     time.Duration // default: 10s
	PageTimeout       time.Duration // default: 30s

	// Delay is the minimum spacing between consecutive clicks and scrolls.
	Delay time.Duration // default: 500ms

	// DuplicatePageDistance is the simhash distance at or below which a
	// paginated page is treated as a repeat of one already visited.
	DuplicatePageDistance int // default: 3
}

// RulesConfig locates the heuristic ruleset.
type RulesConfig struct {
	// File overrides the embedded default ruleset when non-empty.
	File string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	ua := envOr("SIFT_USER_AGENT", DefaultUserAgent)
	acceptLanguage := envOr("SIFT_ACCEPT_LANGUAGE", "en-US,en;q=0.9")

	return &Config{
		Server: ServerConfig{
			Host:           envOr("SIFT_HOST", "0.0.0.0"),
			Port:           envIntOr("SIFT_PORT", 8080),
			Mode:           envOr("SIFT_MODE", "release"),
			RequestTimeout: envDurationOr("SIFT_REQUEST_TIMEOUT", 60*time.Second),
		},
		Browser: BrowserConfig{
			Engine:               envOr("SIFT_BROWSER_ENGINE", "rod"),
			Headless:             envBoolOr("SIFT_HEADLESS", true),
			Stealth:              envBoolOr("SIFT_STEALTH", true),
			Proxy:                os.Getenv("SIFT_PROXY"),
			NoSandbox:            envBoolOr("SIFT_NO_SANDBOX", false),
			BrowserBin:           os.Getenv("SIFT_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("SIFT_BLOCKED_RESOURCES", []string{"Font", "Media"}),
			BlockAds:             envBoolOr("SIFT_BLOCK_ADS", true),
			ViewportWidth:        envIntOr("SIFT_VIEWPORT_WIDTH", 1920),
			ViewportHeight:       envIntOr("SIFT_VIEWPORT_HEIGHT", 1080),
			UserAgent:            ua,
			AcceptLanguage:       acceptLanguage,
		},
		Fetch: FetchConfig{
			Timeout:        envDurationOr("SIFT_FETCH_TIMEOUT", 15*time.Second),
			MaxBodyBytes:   int64(envIntOr("SIFT_MAX_BODY_BYTES", 10<<20)),
			UserAgent:      ua,
			AcceptLanguage: acceptLanguage,
		},
		Decision: DecisionConfig{
			MinTextLength:    envIntOr("SIFT_MIN_TEXT_LENGTH", 200),
			EmptyBodyText:    envIntOr("SIFT_EMPTY_BODY_TEXT", 50),
			HeavyScriptTags:  envIntOr("SIFT_HEAVY_SCRIPT_TAGS", 5),
			HeavyScriptBytes: envIntOr("SIFT_HEAVY_SCRIPT_BYTES", 8192),
			ShellTextCeiling: envIntOr("SIFT_SHELL_TEXT_CEILING", 500),
		},
		Segment: SegmentConfig{
			MaxTextLength:    envIntOr("SIFT_MAX_TEXT_LENGTH", 5000),
			MaxRawHTMLLength: envIntOr("SIFT_MAX_RAW_HTML", 1000),
			HeroImageRatio:   envFloatOr("SIFT_HERO_IMAGE_RATIO", 0.5),
			HeroMaxIndex:     envIntOr("SIFT_HERO_MAX_INDEX", 1),
			GalleryMinImages: envIntOr("SIFT_GALLERY_MIN_IMAGES", 3),
			NavLinkRatio:     envFloatOr("SIFT_NAV_LINK_RATIO", 0.6),
			NavMinLinks:      envIntOr("SIFT_NAV_MIN_LINKS", 3),
			ListDominance:    envFloatOr("SIFT_LIST_DOMINANCE", 0.6),
			ListMinItems:     envIntOr("SIFT_LIST_MIN_ITEMS", 3),
			FormMinInputs:    envIntOr("SIFT_FORM_MIN_INPUTS", 2),
			FooterMaxText:    envIntOr("SIFT_FOOTER_MAX_TEXT", 400),
			LabelMaxLength:   envIntOr("SIFT_LABEL_MAX_LENGTH", 80),
		},
		Interaction: InteractionConfig{
			MaxTabClicks:          envIntOr("SIFT_MAX_TAB_CLICKS", 8),
			MaxLoadMore:           envIntOr("SIFT_MAX_LOAD_MORE", 5),
			MaxScrolls:            envIntOr("SIFT_MAX_SCROLLS", 5),
			MaxPages:              envIntOr("SIFT_MAX_PAGES", 3),
			NavigationTimeout:     envDurationOr("SIFT_NAV_TIMEOUT", 15*time.Second),
			SettleTimeout:         envDurationOr("SIFT_SETTLE_TIMEOUT", 3*time.Second),
			ActionTimeout:         envDurationOr("SIFT_ACTION_TIMEOUT", 10*time.Second),
			PageTimeout:           envDurationOr("SIFT_PAGE_TIMEOUT", 30*time.Second),
			Delay:                 envDurationOr("SIFT_INTERACTION_DELAY", 500*time.Millisecond),
			DuplicatePageDistance: envIntOr("SIFT_DUPLICATE_PAGE_DISTANCE", 3),
		},
		Rules: RulesConfig{
			File: os.Getenv("SIFT_RULES_FILE"),
		},
		Log: LogConfig{
			Level:  envOr("SIFT_LOG_LEVEL", "info"),
			Format: envOr("SIFT_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
