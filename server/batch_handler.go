package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/cnosuke/mcp-finedata/finedata"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

func (d *Dispatcher) handleBatchScrape(ctx context.Context, args Arguments) Outcome {
	if n := args.Len("urls"); n > finedata.MaxBatchURLs {
		return errorOutcomef("maximum %d URLs per batch (got %d)", finedata.MaxBatchURLs, n)
	}
	urls := args.Strings("urls")
	if len(urls) == 0 {
		return errorOutcomef("urls array is required")
	}
	if dropped := args.Len("urls") - len(urls); dropped > 0 {
		zap.S().Warnw("batch_scrape skipped blank or non-string urls", "dropped", dropped)
	}
	opts := scrapeOptionsFromArgs(args, batchDefaultTimeout)
	callbackURL := args.OptionalString("callback_url")

	zap.S().Infow("executing batch_scrape",
		"urls_count", len(urls),
		"use_js_render", opts.UseJSRender,
		"use_residential", opts.UseResidential,
		"has_callback", callbackURL != nil)

	raw, err := d.client.BatchScrape(ctx, urls, opts, callbackURL)
	if err != nil {
		return errorOutcome(err)
	}

	doc := gjson.ParseBytes(raw)
	lines := []string{
		"Batch submitted successfully.",
		"",
		fmt.Sprintf("Batch ID: %s", stringOr(doc.Get("batch_id"), "N/A")),
		fmt.Sprintf("Total jobs: %s", stringOr(doc.Get("total_jobs"), "N/A")),
		fmt.Sprintf("Status: %s", stringOr(doc.Get("status"), "N/A")),
		"",
		"Job IDs:",
	}
	for _, id := range doc.Get("job_ids").Array() {
		lines = append(lines, fmt.Sprintf("  - %s", id.String()))
	}
	lines = append(lines, "", fmt.Sprintf("Use %s to check individual job progress.", ToolGetJobStatus))

	return textOutcome(strings.Join(lines, "\n"))
}

// stringOr returns the value as text, or def when it is missing or null.
func stringOr(r gjson.Result, def string) string {
	if !r.Exists() || r.Type == gjson.Null {
		return def
	}
	return r.String()
}
