package finedata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ierrors "github.com/cnosuke/mcp-finedata/internal/errors"
	"github.com/cnosuke/mcp-finedata/types"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	scrapePath      = "/api/v1/scrape"
	asyncScrapePath = "/api/v1/async/scrape"
	asyncJobsPath   = "/api/v1/async/jobs/"
	asyncBatchPath  = "/api/v1/async/batch"
	usagePath       = "/api/v1/usage"

	// timeoutGrace is added to the configured timeout so the remote service
	// can answer with its own timeout result before the connection gives up.
	timeoutGrace = 30 * time.Second

	// errorBodyLimit caps how much of an error body is kept in APIError.
	errorBodyLimit = 512
)

type Config struct {
	APIKey  string
	BaseURL string
	// Timeout in seconds. Reported in timeout errors.
	Timeout int
	// RequestTimeout overrides the HTTP timeout, which otherwise is Timeout plus 30 seconds.
	RequestTimeout time.Duration
	UserAgent      string
	// Transport is used for the underlying connection when set.
	Transport http.RoundTripper
}

// Client defines the FineData API operations.
type Client interface {
	// Scrape scrapes url synchronously. Expected failures (bad credential,
	// missing payment, timeouts, transport errors) come back as a result with
	// Success=false; only a malformed 2xx body is returned as an error.
	Scrape(ctx context.Context, url string, opts types.ScrapeOptions) (*types.ScrapeResult, error)

	// ScrapeAsync submits an async job. Any HTTP or transport failure is returned.
	ScrapeAsync(ctx context.Context, url string, opts types.ScrapeOptions, callbackURL *string, callbackHeaders map[string]string) (*types.AsyncJob, error)

	// GetJobStatus fetches the current snapshot of an async job.
	GetJobStatus(ctx context.Context, jobID string) (*types.AsyncJob, error)

	// BatchScrape submits one job per URL and returns the service's response verbatim.
	BatchScrape(ctx context.Context, urls []string, opts types.ScrapeOptions, callbackURL *string) (json.RawMessage, error)

	// GetUsage returns the usage and billing document verbatim.
	GetUsage(ctx context.Context) (json.RawMessage, error)

	// Close releases the underlying connection. It is safe to call more than once.
	Close() error
}

// httpClient implements Client using net/http.
type httpClient struct {
	apiKey         string
	baseURL        string
	timeout        int
	requestTimeout time.Duration
	userAgent      string
	transport      http.RoundTripper

	mu   sync.Mutex
	conn *http.Client
}

// NewHTTPClient creates a new httpClient. The connection itself is created on first use.
func NewHTTPClient(cfg *Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("FineData API key is required")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, ierrors.Wrapf(err, "invalid FineData API URL %q", cfg.BaseURL)
	}

	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = time.Duration(cfg.Timeout)*time.Second + timeoutGrace
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "mcp-finedata"
	}

	zap.S().Infow("creating new FineData client",
		"base_url", cfg.BaseURL,
		"timeout", cfg.Timeout,
		"request_timeout", requestTimeout,
		"user_agent", userAgent)

	return &httpClient{
		apiKey:         cfg.APIKey,
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		timeout:        cfg.Timeout,
		requestTimeout: requestTimeout,
		userAgent:      userAgent,
		transport:      cfg.Transport,
	}, nil
}

func (c *httpClient) client() *http.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		zap.S().Debugw("opening FineData connection")
		transport := c.transport
		if transport == nil {
			transport = http.DefaultTransport.(*http.Transport).Clone()
		}
		c.conn = &http.Client{
			Timeout:   c.requestTimeout,
			Transport: transport,
		}
	}
	return c.conn
}

func (c *httpClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.CloseIdleConnections()
	c.conn = nil
	zap.S().Debugw("closed FineData connection")
	return nil
}

type scrapeRequest struct {
	URL string `json:"url"`
	types.ScrapeOptions
}

type asyncScrapeRequest struct {
	scrapeRequest
	CallbackURL     *string           `json:"callback_url"`
	CallbackHeaders map[string]string `json:"callback_headers"`
}

type batchRequest struct {
	Requests    []scrapeRequest `json:"requests"`
	CallbackURL *string         `json:"callback_url"`
}

// newScrapeRequest pairs a target URL with a full options record.
func newScrapeRequest(urlStr string, opts types.ScrapeOptions) scrapeRequest {
	if opts.Headers == nil {
		opts.Headers = map[string]string{}
	}
	return scrapeRequest{URL: urlStr, ScrapeOptions: opts}
}

// scrapeResponse mirrors the service payload; pointers mark fields that fall
// back to something other than the zero value when absent.
type scrapeResponse struct {
	Success         bool           `json:"success"`
	StatusCode      *int           `json:"status_code"`
	Headers         map[string]any `json:"headers"`
	Body            string         `json:"body"`
	Meta            map[string]any `json:"meta"`
	TokensUsed      *int           `json:"tokens_used"`
	CaptchaDetected bool           `json:"captcha_detected"`
	CaptchaType     *string        `json:"captcha_type"`
	CaptchaSolved   bool           `json:"captcha_solved"`
}

func (r *scrapeResponse) toResult(fallbackStatus, fallbackTokens int) *types.ScrapeResult {
	result := &types.ScrapeResult{
		Success:         r.Success,
		StatusCode:      fallbackStatus,
		Headers:         r.Headers,
		Body:            r.Body,
		Meta:            r.Meta,
		TokensUsed:      fallbackTokens,
		CaptchaDetected: r.CaptchaDetected,
		CaptchaSolved:   r.CaptchaSolved,
	}
	if r.StatusCode != nil {
		result.StatusCode = *r.StatusCode
	}
	if r.TokensUsed != nil {
		result.TokensUsed = *r.TokensUsed
	}
	if r.CaptchaType != nil {
		result.CaptchaType = *r.CaptchaType
	}
	if result.Headers == nil {
		result.Headers = map[string]any{}
	}
	if result.Meta == nil {
		result.Meta = map[string]any{}
	}
	return result
}

type jobResponse struct {
	JobID               string          `json:"job_id"`
	Status              types.JobStatus `json:"status"`
	URL                 string          `json:"url"`
	CreatedAt           string          `json:"created_at"`
	EstimatedCompletion *string         `json:"estimated_completion"`
	Result              *scrapeResponse `json:"result"`
	TokensUsed          int             `json:"tokens_used"`
	Error               *string         `json:"error"`
}

func (r *jobResponse) toJob() (*types.AsyncJob, error) {
	if r.JobID == "" {
		return nil, errors.New("malformed job response: missing job_id")
	}
	job := &types.AsyncJob{
		JobID:     r.JobID,
		Status:    r.Status,
		URL:       r.URL,
		CreatedAt: r.CreatedAt,
	}
	if r.EstimatedCompletion != nil {
		job.EstimatedCompletion = *r.EstimatedCompletion
	}
	if r.Error != nil {
		job.Error = *r.Error
	}
	if r.Result != nil {
		job.Result = r.Result.toResult(0, r.TokensUsed)
	}
	if !job.Status.Valid() {
		zap.S().Warnw("unknown job status", "job_id", job.JobID, "status", job.Status)
	}
	return job, nil
}

func failedResult(statusCode int, msg string) *types.ScrapeResult {
	return &types.ScrapeResult{
		Success:    false,
		StatusCode: statusCode,
		Headers:    map[string]any{},
		Meta:       map[string]any{},
		Error:      msg,
	}
}

func (c *httpClient) Scrape(ctx context.Context, urlStr string, opts types.ScrapeOptions) (*types.ScrapeResult, error) {
	zap.S().Debugw("scraping URL",
		"url", urlStr,
		"use_js_render", opts.UseJSRender,
		"use_residential", opts.UseResidential,
		"timeout", opts.Timeout)

	status, body, err := c.send(ctx, http.MethodPost, scrapePath, newScrapeRequest(urlStr, opts))
	if err != nil {
		if isTimeout(err) {
			zap.S().Warnw("scrape request timed out", "url", urlStr, "timeout", c.timeout)
			return failedResult(http.StatusGatewayTimeout, fmt.Sprintf("Request timed out after %d seconds", c.timeout)), nil
		}
		zap.S().Errorw("scrape request failed", "url", urlStr, "error", err)
		return failedResult(http.StatusInternalServerError, err.Error()), nil
	}

	switch status {
	case http.StatusUnauthorized:
		return failedResult(status, "Invalid API key. Check your FINEDATA_API_KEY."), nil
	case http.StatusPaymentRequired:
		return failedResult(status, "Payment required. Please add tokens or upgrade your plan."), nil
	}

	var resp scrapeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		if status >= 200 && status < 300 {
			return nil, ierrors.Wrap(err, "failed to decode scrape response")
		}
		zap.S().Errorw("scrape request failed", "url", urlStr, "status", status, "error", err)
		return failedResult(status, fmt.Sprintf("Request failed with status %d: %s", status, truncate(string(body)))), nil
	}

	result := resp.toResult(status, 0)
	zap.S().Debugw("scrape response received",
		"url", urlStr,
		"success", result.Success,
		"status", result.StatusCode,
		"tokens_used", result.TokensUsed,
		"bytes", len(result.Body))
	return result, nil
}

func (c *httpClient) ScrapeAsync(ctx context.Context, urlStr string, opts types.ScrapeOptions, callbackURL *string, callbackHeaders map[string]string) (*types.AsyncJob, error) {
	zap.S().Debugw("submitting async scrape", "url", urlStr, "has_callback", callbackURL != nil)

	payload := asyncScrapeRequest{
		scrapeRequest:   newScrapeRequest(urlStr, opts),
		CallbackURL:     callbackURL,
		CallbackHeaders: callbackHeaders,
	}
	var resp jobResponse
	if err := c.call(ctx, http.MethodPost, asyncScrapePath, payload, &resp); err != nil {
		zap.S().Errorw("async scrape request failed", "url", urlStr, "error", err)
		return nil, ierrors.Wrap(err, "failed to submit async scrape")
	}

	job, err := resp.toJob()
	if err != nil {
		return nil, err
	}
	// Submission responses never carry a result.
	job.Result = nil
	return job, nil
}

func (c *httpClient) GetJobStatus(ctx context.Context, jobID string) (*types.AsyncJob, error) {
	zap.S().Debugw("getting job status", "job_id", jobID)

	var resp jobResponse
	if err := c.call(ctx, http.MethodGet, asyncJobsPath+url.PathEscape(jobID), nil, &resp); err != nil {
		zap.S().Errorw("get job status failed", "job_id", jobID, "error", err)
		return nil, ierrors.Wrapf(err, "failed to get status of job %s", jobID)
	}
	return resp.toJob()
}

func (c *httpClient) BatchScrape(ctx context.Context, urls []string, opts types.ScrapeOptions, callbackURL *string) (json.RawMessage, error) {
	if len(urls) > MaxBatchURLs {
		return nil, errors.WithDetailf(ErrBatchTooLarge, "got %d URLs", len(urls))
	}
	zap.S().Debugw("submitting batch scrape", "count", len(urls), "has_callback", callbackURL != nil)

	payload := batchRequest{
		Requests:    make([]scrapeRequest, 0, len(urls)),
		CallbackURL: callbackURL,
	}
	for _, u := range urls {
		payload.Requests = append(payload.Requests, newScrapeRequest(u, opts))
	}

	raw, err := c.callRaw(ctx, http.MethodPost, asyncBatchPath, payload)
	if err != nil {
		zap.S().Errorw("batch scrape request failed", "count", len(urls), "error", err)
		return nil, ierrors.Wrap(err, "failed to submit batch scrape")
	}
	return raw, nil
}

func (c *httpClient) GetUsage(ctx context.Context) (json.RawMessage, error) {
	zap.S().Debugw("getting usage")

	raw, err := c.callRaw(ctx, http.MethodGet, usagePath, nil)
	if err != nil {
		zap.S().Errorw("get usage failed", "error", err)
		return nil, ierrors.Wrap(err, "failed to get usage")
	}
	return raw, nil
}

// call sends a request, requires a 2xx status and decodes the JSON body into out.
func (c *httpClient) call(ctx context.Context, method, path string, payload any, out any) error {
	body, err := c.expectOK(ctx, method, path, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return ierrors.Wrap(err, "failed to decode response")
	}
	return nil
}

// callRaw is call for endpoints whose JSON object is handed back untouched.
func (c *httpClient) callRaw(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	body, err := c.expectOK(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, errors.Newf("malformed response: expected a JSON object, got %q", truncate(string(body)))
	}
	return json.RawMessage(body), nil
}

func (c *httpClient) expectOK(ctx context.Context, method, path string, payload any) ([]byte, error) {
	status, body, err := c.send(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{StatusCode: status, Body: truncate(string(body))}
	}
	return body, nil
}

// send performs one HTTP round trip and returns the status and full body.
func (c *httpClient) send(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, ierrors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, ierrors.Wrap(err, "failed to create request")
	}
	requestID := uuid.NewString()
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.client().Do(req)
	if err != nil {
		return 0, nil, ierrors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, ierrors.Wrap(err, "failed to read response body")
	}

	zap.S().Debugw("response received",
		"method", method,
		"path", path,
		"request_id", requestID,
		"status", resp.StatusCode,
		"bytes", len(body),
		"elapsed", time.Since(start))

	return resp.StatusCode, body, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func truncate(s string) string {
	if len(s) <= errorBodyLimit {
		return s
	}
	return s[:errorBodyLimit] + "..."
}
