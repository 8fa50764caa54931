package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/sift/export"
	"github.com/use-agent/sift/models"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <url>",
	Short: "Extract one page and print the result",
	Long: `Run the pipeline once against a URL and print the ScrapeResult.

Examples:
  sift scrape https://example.com/
  sift scrape https://example.com/blog --max-pages 5 --format markdown -o blog.md`,
	Args: cobra.ExactArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	flags := scrapeCmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json or markdown")
	flags.Duration("timeout", 0, "overall deadline (default $SIFT_REQUEST_TIMEOUT or 60s)")
	flags.Int("max-pages", 0, "pagination depth bound (default $SIFT_MAX_PAGES or 3)")
}

func runScrape(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	flags := cmd.Flags()
	if v, _ := flags.GetDuration("timeout"); v > 0 {
		cfg.Server.RequestTimeout = v
	}
	if v, _ := flags.GetInt("max-pages"); v > 0 {
		cfg.Interaction.MaxPages = v
	}
	format, _ := flags.GetString("format")
	if format != "json" && format != "markdown" {
		return fmt.Errorf("unknown format %q: use json or markdown", format)
	}

	initLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline, closeBrowser, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeBrowser()

	res, err := pipeline.Scrape(ctx, args[0])
	if err != nil {
		se := models.AsScrapeError(err, models.ErrCodeInternal)
		slog.Error("scrape failed", "url", args[0], "code", se.Code, "error", err)
		return err
	}

	var out io.Writer = os.Stdout
	if path, _ := flags.GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	return write(out, res, format)
}

func write(w io.Writer, res *models.ScrapeResult, format string) error {
	if format == "markdown" {
		md, err := export.Markdown(res)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, md)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
