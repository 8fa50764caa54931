// Package commands implements the sift CLI.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/sift/browser"
	"github.com/use-agent/sift/config"
	"github.com/use-agent/sift/interact"
	"github.com/use-agent/sift/rules"
	"github.com/use-agent/sift/scraper"
)

var rootCmd = &cobra.Command{
	Use:   "sift",
	Short: "Adaptive web page extraction into classified sections",
	Long: `Sift fetches a page, decides whether static HTML is enough or the page
must be rendered, clicks through tabs and "load more" buttons, scrolls
infinite feeds, follows same-origin pagination, strips cookie banners and
modals, and returns the content as typed sections.

Configuration comes from SIFT_* environment variables; the flags below
override the most common ones.

Examples:
  # Run the HTTP service
  sift serve --port 8080

  # Extract one page as JSON
  sift scrape https://example.com/

  # Static only, Markdown output
  sift scrape https://example.com/ --engine none --format markdown`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("engine", "", "browser engine: rod, chromedp or none (default $SIFT_BROWSER_ENGINE or rod)")
	flags.String("rules", "", "heuristic ruleset YAML file (default: embedded ruleset)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.String("log-format", "", "log format: json or text")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig reads the environment and applies the global flags.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.Load()
	flags := cmd.Flags()
	if v, _ := flags.GetString("engine"); v != "" {
		cfg.Browser.Engine = v
	}
	if v, _ := flags.GetString("rules"); v != "" {
		cfg.Rules.File = v
	}
	if v, _ := flags.GetString("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if v, _ := flags.GetString("log-format"); v != "" {
		cfg.Log.Format = v
	}
	return cfg
}

// buildPipeline wires ruleset, browser backend and interaction engine
// into a pipeline. The returned func shuts the browser down.
func buildPipeline(cfg *config.Config) (*scraper.Pipeline, func(), error) {
	rs, err := rules.Load(cfg.Rules.File)
	if err != nil {
		return nil, nil, fmt.Errorf("load ruleset: %w", err)
	}

	l, err := browser.New(cfg.Browser)
	if err != nil {
		return nil, nil, fmt.Errorf("start browser: %w", err)
	}
	if l == nil {
		slog.Warn("no browser engine configured; pages that need rendering get static content only")
		return scraper.NewPipeline(cfg, rs, nil), func() {}, nil
	}

	engine := interact.New(l, rs, cfg.Interaction, cfg.Segment)
	closeFn := func() {
		if err := l.Close(); err != nil {
			slog.Warn("browser shutdown failed", "error", err)
		}
	}
	return scraper.NewPipeline(cfg, rs, engine), closeFn, nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// Logs go to stderr so `sift scrape` output stays pipeable.
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
