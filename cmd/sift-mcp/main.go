// Command sift-mcp exposes the sift HTTP API to MCP clients over stdio.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// scrapeRequest mirrors the sift API request model.
type scrapeRequest struct {
	URL string `json:"url"`
}

// errorResponse is the error envelope of the sift API.
type errorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := strings.TrimRight(os.Getenv("SIFT_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}

	s := server.NewMCPServer(
		"sift",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	scrapeURLTool := mcp.NewTool("scrape_url",
		mcp.WithDescription("Extract a web page into classified sections (hero, nav, article, list, gallery, form, footer). "+
			"JavaScript-heavy pages are rendered in a headless browser, which also clicks tabs and \"load more\" buttons, "+
			"scrolls infinite feeds and follows same-origin pagination."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Absolute http(s) URL of the page to extract"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: 'markdown' (default, readable sections) or 'json' (the full ScrapeResult document)"),
			mcp.Enum("markdown", "json"),
		),
	)
	s.AddTool(scrapeURLTool, handleScrapeURL(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleScrapeURL(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		format := request.GetString("format", "markdown")

		body, err := json.Marshal(scrapeRequest{URL: url})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		endpoint := apiURL + "/scrape"
		if format == "markdown" {
			endpoint += "?format=markdown"
		}
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		if resp.StatusCode != http.StatusOK {
			var errResp errorResponse
			if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
				return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", errResp.Error.Code, errResp.Error.Message)), nil
			}
			return mcp.NewToolResultError(fmt.Sprintf("scrape failed: HTTP %d", resp.StatusCode)), nil
		}

		if format == "json" {
			var out bytes.Buffer
			if err := json.Indent(&out, respBody, "", "  "); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
			}
			return mcp.NewToolResultText(out.String()), nil
		}
		return mcp.NewToolResultText(string(respBody)), nil
	}
}
