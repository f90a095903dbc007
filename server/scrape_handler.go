package server

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cnosuke/mcp-finedata/internal/content"
	ierrors "github.com/cnosuke/mcp-finedata/internal/errors"
	"github.com/cnosuke/mcp-finedata/types"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

func (d *Dispatcher) handleScrapeURL(ctx context.Context, args Arguments) Outcome {
	url := args.String("url")
	if url == "" {
		return errorOutcomef("url is required")
	}
	view, err := contentViewFromArgs(args)
	if err != nil {
		return errorOutcome(err)
	}
	opts := scrapeOptionsFromArgs(args, scrapeURLDefaultTimeout)

	zap.S().Infow("executing scrape_url",
		"url", url,
		"use_js_render", opts.UseJSRender,
		"use_residential", opts.UseResidential,
		"solve_captcha", opts.SolveCaptcha,
		"timeout", opts.Timeout,
		"format", view.format)

	result, err := d.client.Scrape(ctx, url, opts)
	if err != nil {
		return errorOutcome(ierrors.Wrap(err, "failed to scrape URL"))
	}
	if !result.Success {
		return errorOutcome(scrapeFailure(result))
	}

	return textOutcome(formatScrapeResult(url, result, view))
}

// scrapeFailure describes an unsuccessful result, including the block reason when known.
func scrapeFailure(result *types.ScrapeResult) error {
	msg := result.Error
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", result.StatusCode)
	}
	if reason := result.BlockReason(); reason != "" {
		msg += fmt.Sprintf(" (block_reason: %s)", reason)
	}
	return errors.New(msg)
}

func formatScrapeResult(url string, result *types.ScrapeResult, view contentView) string {
	lines := []string{
		fmt.Sprintf("Successfully scraped %s", url),
		fmt.Sprintf("Status: %d", result.StatusCode),
		fmt.Sprintf("Tokens used: %d", result.TokensUsed),
	}

	if title := content.Title(result.Body); title != "" {
		lines = append(lines, fmt.Sprintf("Title: %s", title))
	}

	if result.CaptchaDetected {
		lines = append(lines, fmt.Sprintf("Captcha detected: %s", result.CaptchaType))
		if result.CaptchaSolved {
			lines = append(lines, "Captcha solved: Yes")
		}
	}

	if ms := result.ResponseTimeMS(); ms > 0 {
		lines = append(lines, fmt.Sprintf("Response time: %sms", strconv.FormatFloat(ms, 'f', -1, 64)))
	}

	lines = append(lines, "", "--- Content ---", view.render(result.Body, url))
	return strings.Join(lines, "\n")
}
