// Package rules loads the versioned heuristic ruleset: noise selectors,
// interaction discovery patterns and render-decision markers. The tables
// are data, so new patterns never require touching control flow.
package rules

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// File is the on-disk ruleset layout.
type File struct {
	Version    int         `yaml:"version"`
	Noise      NoiseFile   `yaml:"noise"`
	Tabs       PatternFile `yaml:"tabs"`
	LoadMore   PatternFile `yaml:"load_more"`
	Pagination PatternFile `yaml:"pagination"`
	Render     RenderFile  `yaml:"render"`
}

// NoiseFile lists what the noise filter removes.
type NoiseFile struct {
	StripTags       []string `yaml:"strip_tags"`
	ProtectedTags   []string `yaml:"protected_tags"`
	Selectors       []string `yaml:"selectors"`
	HiddenSelectors []string `yaml:"hidden_selectors"`
	ClassPatterns   []string `yaml:"class_patterns"`
	HiddenStyle     []string `yaml:"hidden_style"`
}

// PatternFile describes one family of interactive controls.
type PatternFile struct {
	// Selectors match controls directly.
	Selectors []string `yaml:"selectors"`
	// Candidates restricts which elements Text patterns are tried on.
	Candidates []string `yaml:"candidates"`
	// Text holds case-insensitive regular expressions over visible text.
	Text []string `yaml:"text"`
}

// RenderFile lists client-side-rendering markers.
type RenderFile struct {
	AppShellSelectors []string `yaml:"app_shell_selectors"`
	NoscriptPatterns  []string `yaml:"noscript_patterns"`
}

// Set is a compiled ruleset. It is immutable and safe for concurrent use.
type Set struct {
	Version int

	StripTags     map[string]bool
	ProtectedTags map[string]bool
	Noise         cascadia.SelectorGroup
	NoiseClasses  []string
	Hidden        cascadia.SelectorGroup
	HiddenStyle   []*regexp.Regexp

	Tabs       Pattern
	LoadMore   Pattern
	Pagination Pattern

	AppShell cascadia.SelectorGroup
	Noscript []*regexp.Regexp
}

// Pattern is a compiled PatternFile.
type Pattern struct {
	Selectors  cascadia.SelectorGroup
	Candidates cascadia.SelectorGroup
	Text       []*regexp.Regexp
}

// MatchText reports whether s matches any of the text patterns.
func (p Pattern) MatchText(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, re := range p.Text {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

var defaultSet = sync.OnceValue(func() *Set {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded default ruleset: %v", err))
	}
	return s
})

// Default returns the embedded ruleset.
func Default() *Set { return defaultSet() }

// Load reads a ruleset from path, or returns Default when path is empty.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and compiles a ruleset. Individual selectors or patterns
// that fail to compile are logged and skipped; only a malformed document
// or a missing version is an error.
func Parse(data []byte) (*Set, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("rules: decode: %w", err)
	}
	if f.Version < 1 {
		return nil, fmt.Errorf("rules: missing or invalid version %d", f.Version)
	}
	return Compile(&f), nil
}

// Compile turns a decoded File into a Set.
func Compile(f *File) *Set {
	s := &Set{
		Version:       f.Version,
		StripTags:     toSet(f.Noise.StripTags),
		ProtectedTags: toSet(f.Noise.ProtectedTags),
		Noise:         compileSelectors("noise", f.Noise.Selectors),
		Hidden:        compileSelectors("hidden", f.Noise.HiddenSelectors),
		HiddenStyle:   compilePatterns("hidden_style", f.Noise.HiddenStyle),
		Tabs:          compilePattern("tabs", f.Tabs),
		LoadMore:      compilePattern("load_more", f.LoadMore),
		Pagination:    compilePattern("pagination", f.Pagination),
		AppShell:      compileSelectors("app_shell", f.Render.AppShellSelectors),
		Noscript:      compilePatterns("noscript", f.Render.NoscriptPatterns),
	}
	for _, c := range f.Noise.ClassPatterns {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			s.NoiseClasses = append(s.NoiseClasses, c)
		}
	}
	return s
}

func compilePattern(family string, p PatternFile) Pattern {
	return Pattern{
		Selectors:  compileSelectors(family, p.Selectors),
		Candidates: compileSelectors(family, p.Candidates),
		Text:       compilePatterns(family, p.Text),
	}
}

func compileSelectors(family string, sels []string) cascadia.SelectorGroup {
	var group cascadia.SelectorGroup
	for _, raw := range sels {
		g, err := cascadia.ParseGroup(raw)
		if err != nil {
			slog.Warn("rules: skipping invalid selector", "family", family, "selector", raw, "error", err)
			continue
		}
		group = append(group, g...)
	}
	return group
}

func compilePatterns(family string, pats []string) []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, raw := range pats {
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			slog.Warn("rules: skipping invalid pattern", "family", family, "pattern", raw, "error", err)
			continue
		}
		out = append(out, re)
	}
	return out
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[strings.ToLower(strings.TrimSpace(it))] = true
	}
	return m
}
