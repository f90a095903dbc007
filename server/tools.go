package server

import (
	"fmt"

	"github.com/cnosuke/mcp-finedata/finedata"
	"github.com/cnosuke/mcp-finedata/internal/content"
	"github.com/mark3labs/mcp-go/mcp"
)

// ToolName - Enumerates the operations exposed to agents
type ToolName string

const (
	ToolScrapeURL    ToolName = "scrape_url"
	ToolScrapeAsync  ToolName = "scrape_async"
	ToolGetJobStatus ToolName = "get_job_status"
	ToolBatchScrape  ToolName = "batch_scrape"
	ToolGetUsage     ToolName = "get_usage"
)

// Default option timeouts per tool, in seconds.
const (
	scrapeURLDefaultTimeout   = 180
	scrapeAsyncDefaultTimeout = 180
	batchDefaultTimeout       = 60
)

const scrapeURLDescription = `Scrape content from any web page with advanced antibot bypass.

Features:
- TLS fingerprinting (Chrome, Firefox, Safari profiles)
- JavaScript rendering for SPAs (React, Vue, Angular)
- Captcha solving (reCAPTCHA, hCaptcha, Cloudflare Turnstile)
- Residential and mobile proxy support
- Automatic retry with smart detection

Use cases:
- Extract text/HTML from any website
- Scrape JavaScript-rendered content
- Access pages behind Cloudflare or other protections
- Get data from pages with captchas

Token costs:
- Base request: 1 token
- Antibot bypass: +2 tokens
- JS rendering: +5 tokens
- Nodriver (max stealth): +6 tokens
- Residential proxy: +3 tokens
- Captcha solving: +10 tokens`

const scrapeAsyncDescription = `Submit an async scraping job for long-running requests.

Use this for:
- Pages that take > 60 seconds to load
- Heavy JS rendering tasks
- When you don't need immediate results
- Batch processing workflows

Returns a job_id that you can poll with get_job_status.`

const getJobStatusDescription = `Get the status of an async scraping job.

Statuses:
- pending: Job is queued
- processing: Worker is scraping
- completed: Success, result available
- failed: Error occurred
- cancelled: Job was cancelled

Poll this endpoint until status is 'completed' or 'failed'.`

const batchScrapeDescription = `Scrape multiple URLs in a single batch request.

Benefits:
- Submit up to %d URLs at once
- Parallel processing for speed
- Single webhook notification when all complete

Returns a batch_id and list of job_ids for tracking.`

const getUsageDescription = `Get current API usage and token statistics.

Returns:
- Tokens used this billing period
- Token limit for your plan
- Usage breakdown by feature`

// Tools returns the descriptors of every tool, in registration order.
func Tools() []mcp.Tool {
	return []mcp.Tool{
		scrapeURLTool(),
		scrapeAsyncTool(),
		getJobStatusTool(),
		batchScrapeTool(),
		getUsageTool(),
	}
}

func scrapeURLTool() mcp.Tool {
	return mcp.NewTool(string(ToolScrapeURL),
		mcp.WithDescription(scrapeURLDescription),
		mcp.WithString("url",
			mcp.Description("Target URL to scrape (required)"),
			mcp.Required(),
		),
		mcp.WithBoolean("use_js_render",
			mcp.Description("Enable JavaScript rendering with Playwright. Use for SPAs, React, Vue sites. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_residential",
			mcp.Description("Use residential proxy instead of datacenter. Better for protected sites. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_mobile",
			mcp.Description("Use mobile proxy (Russian carriers: MTS, Megafon, Beeline). Best for Russian sites. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_undetected",
			mcp.Description("Use Undetected Chrome for antibot bypass. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_nodriver",
			mcp.Description("Use Nodriver (better than UC) - no WebDriver markers, direct CDP. Best for maximum stealth. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_antibot",
			mcp.Description("Enable antibot bypass. Default: true"),
			mcp.DefaultBool(true),
		),
		mcp.WithBoolean("solve_captcha",
			mcp.Description("Automatically detect and solve captchas. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("timeout",
			mcp.Description(fmt.Sprintf("Timeout in seconds (5-300). Default: %d", scrapeURLDefaultTimeout)),
			mcp.DefaultNumber(scrapeURLDefaultTimeout),
			mcp.Min(5),
			mcp.Max(300),
		),
		mcp.WithNumber("max_retries",
			mcp.Description("Retries performed by FineData before giving up. Default: 5"),
			mcp.DefaultNumber(5),
		),
		mcp.WithString("js_wait_for",
			mcp.Description("Wait strategy for JS rendering: 'networkidle', 'load', 'domcontentloaded', or 'selector:.css-selector'. Default: networkidle"),
			mcp.DefaultString("networkidle"),
		),
		mcp.WithBoolean("js_scroll",
			mcp.Description("Scroll the page during JS rendering to trigger lazy loading. Default: false"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("session_id",
			mcp.Description("Sticky session ID - all requests with same ID use same proxy IP. Good for auth flows."),
		),
		mcp.WithNumber("session_ttl",
			mcp.Description("Lifetime of the sticky session in seconds. Default: 1800"),
			mcp.DefaultNumber(1800),
		),
		mcp.WithString("tls_profile",
			mcp.Description("TLS fingerprint profile. Options: 'chrome120', 'chrome124', 'firefox121', 'safari17', 'vip' (premium auto-rotation), 'vip:ios', 'vip:android', 'vip:windows', 'vip:mobile'. Default: chrome124"),
			mcp.DefaultString("chrome124"),
		),
		mcp.WithString("method",
			mcp.Description("HTTP method used against the target. Default: GET"),
			mcp.DefaultString("GET"),
		),
		mcp.WithObject("headers",
			mcp.Description("Extra HTTP headers sent to the target, as a string-to-string object"),
		),
		mcp.WithString("body",
			mcp.Description("Request body sent to the target (for POST/PUT)"),
		),
		withContentOptions(),
		mcp.WithNumber("max_length",
			mcp.Description("Maximum number of characters of content to return. Default: no limit"),
		),
		mcp.WithNumber("start_index",
			mcp.Description("Start content from this character index. Default: 0"),
		),
	)
}

func scrapeAsyncTool() mcp.Tool {
	return mcp.NewTool(string(ToolScrapeAsync),
		mcp.WithDescription(scrapeAsyncDescription),
		mcp.WithString("url",
			mcp.Description("Target URL to scrape"),
			mcp.Required(),
		),
		mcp.WithBoolean("use_js_render",
			mcp.Description("Enable JavaScript rendering"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_residential",
			mcp.Description("Use residential proxy"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_mobile",
			mcp.Description("Use mobile proxy"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_undetected",
			mcp.Description("Use Undetected Chrome"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_nodriver",
			mcp.Description("Use Nodriver for maximum stealth"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("solve_captcha",
			mcp.Description("Auto-solve captchas"),
			mcp.DefaultBool(false),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Timeout in seconds"),
			mcp.DefaultNumber(scrapeAsyncDefaultTimeout),
			mcp.Min(5),
			mcp.Max(300),
		),
		mcp.WithString("callback_url",
			mcp.Description("Webhook URL to receive result when job completes"),
		),
		mcp.WithObject("callback_headers",
			mcp.Description("Custom headers sent with the webhook, as a string-to-string object"),
		),
	)
}

func getJobStatusTool() mcp.Tool {
	return mcp.NewTool(string(ToolGetJobStatus),
		mcp.WithDescription(getJobStatusDescription),
		mcp.WithString("job_id",
			mcp.Description("Job ID returned from scrape_async"),
			mcp.Required(),
		),
		withContentOptions(),
		mcp.WithNumber("max_length",
			mcp.Description("Maximum number of characters of result content to return. Default: no limit"),
		),
		mcp.WithNumber("start_index",
			mcp.Description("Start result content from this character index. Default: 0"),
		),
	)
}

func batchScrapeTool() mcp.Tool {
	return mcp.NewTool(string(ToolBatchScrape),
		mcp.WithDescription(fmt.Sprintf(batchScrapeDescription, finedata.MaxBatchURLs)),
		mcp.WithArray("urls",
			mcp.Description(fmt.Sprintf("List of URLs to scrape (max %d)", finedata.MaxBatchURLs)),
			mcp.Required(),
			mcp.Items(map[string]any{"type": "string"}),
			mcp.MaxItems(finedata.MaxBatchURLs),
		),
		mcp.WithBoolean("use_js_render",
			mcp.Description("Enable JS rendering for all URLs"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_residential",
			mcp.Description("Use residential proxy for all URLs"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("use_mobile",
			mcp.Description("Use mobile proxy for all URLs"),
			mcp.DefaultBool(false),
		),
		mcp.WithString("callback_url",
			mcp.Description("Webhook URL for batch completion"),
		),
	)
}

func getUsageTool() mcp.Tool {
	return mcp.NewTool(string(ToolGetUsage),
		mcp.WithDescription(getUsageDescription),
	)
}

func withContentOptions() mcp.ToolOption {
	return mcp.WithString("format",
		mcp.Description("How to return page content: 'raw' (as received), 'markdown' (HTML converted to Markdown) or 'readable' (main article only, as Markdown). Default: raw"),
		mcp.Enum(content.Formats...),
		mcp.DefaultString(string(content.FormatRaw)),
	)
}
