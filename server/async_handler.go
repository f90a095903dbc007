package server

import (
	"context"
	"fmt"
	"strings"

	ierrors "github.com/cnosuke/mcp-finedata/internal/errors"
	"github.com/cnosuke/mcp-finedata/types"
	"go.uber.org/zap"
)

func (d *Dispatcher) handleScrapeAsync(ctx context.Context, args Arguments) Outcome {
	url := args.String("url")
	if url == "" {
		return errorOutcomef("url is required")
	}
	opts := scrapeOptionsFromArgs(args, scrapeAsyncDefaultTimeout)
	callbackURL := args.OptionalString("callback_url")
	callbackHeaders := args.StringMap("callback_headers")

	zap.S().Infow("executing scrape_async",
		"url", url,
		"use_js_render", opts.UseJSRender,
		"timeout", opts.Timeout,
		"has_callback", callbackURL != nil)

	job, err := d.client.ScrapeAsync(ctx, url, opts, callbackURL, callbackHeaders)
	if err != nil {
		return errorOutcome(err)
	}

	lines := []string{
		"Async job submitted successfully.",
		"",
		fmt.Sprintf("Job ID: %s", job.JobID),
		fmt.Sprintf("Status: %s", job.Status),
		fmt.Sprintf("URL: %s", job.URL),
		fmt.Sprintf("Created: %s", job.CreatedAt),
	}
	if job.EstimatedCompletion != "" {
		lines = append(lines, fmt.Sprintf("Estimated completion: %s", job.EstimatedCompletion))
	}
	if callbackURL != nil {
		lines = append(lines, fmt.Sprintf("Callback: %s", *callbackURL))
	}
	lines = append(lines, "", fmt.Sprintf(`Use %s with job_id="%s" to check progress.`, ToolGetJobStatus, job.JobID))

	return textOutcome(strings.Join(lines, "\n"))
}

func (d *Dispatcher) handleGetJobStatus(ctx context.Context, args Arguments) Outcome {
	jobID := args.String("job_id")
	if jobID == "" {
		return errorOutcomef("job_id is required")
	}
	view, err := contentViewFromArgs(args)
	if err != nil {
		return errorOutcome(err)
	}

	zap.S().Infow("executing get_job_status", "job_id", jobID)

	job, err := d.client.GetJobStatus(ctx, jobID)
	if err != nil {
		return errorOutcome(ierrors.Wrap(err, "failed to get job status"))
	}

	return textOutcome(formatJob(job, view))
}

func formatJob(job *types.AsyncJob, view contentView) string {
	lines := []string{
		fmt.Sprintf("Job ID: %s", job.JobID),
		fmt.Sprintf("Status: %s", job.Status),
		fmt.Sprintf("URL: %s", job.URL),
		fmt.Sprintf("Created: %s", job.CreatedAt),
	}
	if job.EstimatedCompletion != "" {
		lines = append(lines, fmt.Sprintf("Estimated completion: %s", job.EstimatedCompletion))
	}
	if job.Error != "" {
		lines = append(lines, fmt.Sprintf("Error: %s", job.Error))
	}

	if job.Result != nil {
		lines = append(lines,
			"",
			"--- Result ---",
			fmt.Sprintf("Success: %t", job.Result.Success),
			fmt.Sprintf("Status code: %d", job.Result.StatusCode),
			fmt.Sprintf("Tokens used: %d", job.Result.TokensUsed),
		)
		if reason := job.Result.BlockReason(); reason != "" {
			lines = append(lines, fmt.Sprintf("Block reason: %s", reason))
		}
		lines = append(lines, "", "--- Content ---", view.render(job.Result.Body, job.URL))
	} else if !job.Status.IsTerminal() {
		lines = append(lines, "", "Job is still running. Poll again later.")
	}

	return strings.Join(lines, "\n")
}
