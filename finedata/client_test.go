package finedata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cnosuke/mcp-finedata/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "fd_test_key"

// --- Mock FineData API Setup ---

func newTestClient(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(&Config{
		APIKey:  testAPIKey,
		BaseURL: srv.URL + "/",
		Timeout: 180,
	})
	require.NoError(t, err, "Failed to create test client")
	t.Cleanup(func() { _ = c.Close() })
	return srv, c
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	require.NoError(t, err, "Failed to write response body in mock server")
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

var optionFields = []string{
	"method", "headers", "body", "tls_profile", "max_retries", "timeout",
	"use_antibot", "use_js_render", "use_residential", "use_mobile", "use_undetected", "use_nodriver",
	"js_wait_for", "js_scroll", "solve_captcha", "session_id", "session_ttl",
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient(&Config{BaseURL: "https://api.finedata.ai", Timeout: 180})
	assert.Error(t, err)

	_, err = NewHTTPClient(&Config{APIKey: testAPIKey, BaseURL: "not a url", Timeout: 180})
	assert.Error(t, err)
}

func TestScrapeRequest_SerializesEveryOption(t *testing.T) {
	opts := types.DefaultScrapeOptions()
	opts.Headers = nil

	data, err := json.Marshal(newScrapeRequest("https://example.com", opts))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, "https://example.com", body["url"])
	for _, field := range optionFields {
		assert.Contains(t, body, field, "field %s must always be sent", field)
	}
	assert.Equal(t, "GET", body["method"])
	assert.Equal(t, map[string]any{}, body["headers"])
	assert.Nil(t, body["body"])
	assert.Equal(t, "chrome124", body["tls_profile"])
	assert.Equal(t, float64(5), body["max_retries"])
	assert.Equal(t, float64(60), body["timeout"])
	assert.Equal(t, true, body["use_antibot"])
	assert.Equal(t, false, body["use_js_render"])
	assert.Equal(t, "networkidle", body["js_wait_for"])
	assert.Nil(t, body["session_id"])
	assert.Equal(t, float64(1800), body["session_ttl"])
}

// --- Scrape ---

func TestHTTPClient_Scrape_Success(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/scrape", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("x-api-key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		body := decodeBody(t, r)
		assert.Equal(t, "https://example.com", body["url"])
		assert.Equal(t, true, body["use_js_render"])
		for _, field := range optionFields {
			assert.Contains(t, body, field)
		}

		writeJSON(t, w, http.StatusOK, `{
			"success": true,
			"status_code": 200,
			"headers": {"content-type": "text/html"},
			"body": "<html>ok</html>",
			"meta": {"response_time_ms": 120},
			"tokens_used": 8,
			"captcha_detected": true,
			"captcha_type": "turnstile",
			"captcha_solved": true
		}`)
	})

	opts := types.DefaultScrapeOptions()
	opts.UseJSRender = true
	result, err := c.Scrape(context.Background(), "https://example.com", opts)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Success)
	assert.Equal(t, 200, result.StatusCode)
	assert.Equal(t, "<html>ok</html>", result.Body)
	assert.Equal(t, 8, result.TokensUsed)
	assert.True(t, result.CaptchaDetected)
	assert.Equal(t, "turnstile", result.CaptchaType)
	assert.True(t, result.CaptchaSolved)
	assert.Equal(t, float64(120), result.ResponseTimeMS())
	assert.Empty(t, result.Error)
}

func TestHTTPClient_Scrape_MissingFieldsUseDefaults(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"success": false}`)
	})

	result, err := c.Scrape(context.Background(), "https://example.com", types.DefaultScrapeOptions())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusOK, result.StatusCode, "status falls back to the HTTP status")
	assert.Equal(t, 0, result.TokensUsed)
	assert.NotNil(t, result.Headers)
	assert.NotNil(t, result.Meta)
	assert.Empty(t, result.CaptchaType)
}

func TestHTTPClient_Scrape_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		body         string
		wantStatus   int
		wantContains string
	}{
		{
			name:         "unauthorized",
			status:       http.StatusUnauthorized,
			body:         `{"detail":"invalid key"}`,
			wantStatus:   401,
			wantContains: "FINEDATA_API_KEY",
		},
		{
			name:         "payment required",
			status:       http.StatusPaymentRequired,
			body:         `{"detail":"no tokens"}`,
			wantStatus:   402,
			wantContains: "Payment required",
		},
		{
			name:         "blocked with JSON body",
			status:       http.StatusForbidden,
			body:         `{"success": false, "status_code": 403, "meta": {"block_reason": "cloudflare"}}`,
			wantStatus:   403,
			wantContains: "",
		},
		{
			name:         "server error without JSON",
			status:       http.StatusBadGateway,
			body:         `upstream unavailable`,
			wantStatus:   502,
			wantContains: "upstream unavailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(t, w, tt.status, tt.body)
			})

			result, err := c.Scrape(context.Background(), "https://example.com", types.DefaultScrapeOptions())

			require.NoError(t, err)
			require.NotNil(t, result)
			assert.False(t, result.Success)
			assert.Equal(t, tt.wantStatus, result.StatusCode)
			assert.Equal(t, 0, result.TokensUsed)
			if tt.wantContains != "" {
				assert.Contains(t, result.Error, tt.wantContains)
			}
		})
	}
}

func TestHTTPClient_Scrape_BlockReason(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"success": false, "status_code": 403, "meta": {"block_reason": "datadome"}}`)
	})

	result, err := c.Scrape(context.Background(), "https://example.com", types.DefaultScrapeOptions())

	require.NoError(t, err)
	assert.Equal(t, "datadome", result.BlockReason())
}

func TestHTTPClient_Scrape_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(&Config{
		APIKey:         testAPIKey,
		BaseURL:        srv.URL,
		Timeout:        7,
		RequestTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Scrape(context.Background(), "https://slow.example.com", types.DefaultScrapeOptions())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusGatewayTimeout, result.StatusCode)
	assert.Contains(t, result.Error, "7 seconds")
}

func TestHTTPClient_Scrape_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	c, err := NewHTTPClient(&Config{APIKey: testAPIKey, BaseURL: baseURL, Timeout: 180})
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Scrape(context.Background(), "https://example.com", types.DefaultScrapeOptions())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, http.StatusInternalServerError, result.StatusCode)
	assert.NotEmpty(t, result.Error)
}

func TestHTTPClient_Scrape_MalformedSuccessBody(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `not json`)
	})

	result, err := c.Scrape(context.Background(), "https://example.com", types.DefaultScrapeOptions())

	assert.Error(t, err)
	assert.Nil(t, result)
}

// --- Async jobs ---

func TestHTTPClient_ScrapeAsync(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/async/scrape", r.URL.Path)

		body := decodeBody(t, r)
		assert.Equal(t, "https://example.com", body["url"])
		assert.Equal(t, "https://hooks.example.com/done", body["callback_url"])
		assert.Equal(t, map[string]any{"X-Token": "secret"}, body["callback_headers"])
		for _, field := range optionFields {
			assert.Contains(t, body, field)
		}

		writeJSON(t, w, http.StatusAccepted, `{
			"job_id": "job-123",
			"status": "pending",
			"url": "https://example.com",
			"created_at": "2026-01-01T00:00:00Z",
			"estimated_completion": "2026-01-01T00:01:00Z"
		}`)
	})

	callback := "https://hooks.example.com/done"
	job, err := c.ScrapeAsync(context.Background(), "https://example.com", types.DefaultScrapeOptions(),
		&callback, map[string]string{"X-Token": "secret"})

	require.NoError(t, err)
	assert.Equal(t, "job-123", job.JobID)
	assert.Equal(t, types.JobStatusPending, job.Status)
	assert.Equal(t, "https://example.com", job.URL)
	assert.Equal(t, "2026-01-01T00:00:00Z", job.CreatedAt)
	assert.Equal(t, "2026-01-01T00:01:00Z", job.EstimatedCompletion)
	assert.Nil(t, job.Result)
}

func TestHTTPClient_ScrapeAsync_NullCallback(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Contains(t, body, "callback_url")
		assert.Nil(t, body["callback_url"])
		assert.Contains(t, body, "callback_headers")
		assert.Nil(t, body["callback_headers"])
		writeJSON(t, w, http.StatusOK, `{"job_id": "job-1", "status": "pending", "url": "https://example.com", "created_at": "now"}`)
	})

	job, err := c.ScrapeAsync(context.Background(), "https://example.com", types.DefaultScrapeOptions(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, job.EstimatedCompletion)
}

func TestHTTPClient_ScrapeAsync_PropagatesErrors(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, `{"detail":"invalid key"}`)
	})

	job, err := c.ScrapeAsync(context.Background(), "https://example.com", types.DefaultScrapeOptions(), nil, nil)

	require.Error(t, err)
	assert.Nil(t, job)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestHTTPClient_GetJobStatus(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus types.JobStatus
		wantResult bool
		wantTokens int
		wantError  string
	}{
		{
			name:       "processing without result",
			payload:    `{"job_id": "job-1", "status": "processing", "url": "https://example.com", "created_at": "t0"}`,
			wantStatus: types.JobStatusProcessing,
		},
		{
			name: "completed with result",
			payload: `{"job_id": "job-1", "status": "completed", "url": "https://example.com", "created_at": "t0",
				"tokens_used": 4,
				"result": {"success": true, "status_code": 200, "body": "<p>done</p>", "headers": {}, "meta": {}}}`,
			wantStatus: types.JobStatusCompleted,
			wantResult: true,
			wantTokens: 4,
		},
		{
			name:       "failed with error",
			payload:    `{"job_id": "job-1", "status": "failed", "url": "https://example.com", "created_at": "t0", "error": "proxy exhausted", "result": null}`,
			wantStatus: types.JobStatusFailed,
			wantError:  "proxy exhausted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/v1/async/jobs/job-1", r.URL.Path)
				writeJSON(t, w, http.StatusOK, tt.payload)
			})

			job, err := c.GetJobStatus(context.Background(), "job-1")

			require.NoError(t, err)
			assert.Equal(t, "job-1", job.JobID)
			assert.Equal(t, tt.wantStatus, job.Status)
			assert.Equal(t, tt.wantError, job.Error)
			if tt.wantResult {
				require.NotNil(t, job.Result)
				assert.True(t, job.Result.Success)
				assert.Equal(t, 200, job.Result.StatusCode)
				assert.Equal(t, "<p>done</p>", job.Result.Body)
				assert.Equal(t, tt.wantTokens, job.Result.TokensUsed)
			} else {
				assert.Nil(t, job.Result)
			}
		})
	}
}

func TestHTTPClient_GetJobStatus_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusNotFound, `{"detail":"job not found"}`)
		})
		_, err := c.GetJobStatus(context.Background(), "missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing")
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("malformed payload", func(t *testing.T) {
		_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(t, w, http.StatusOK, `{"status": "pending"}`)
		})
		_, err := c.GetJobStatus(context.Background(), "job-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "job_id")
	})
}

// --- Batch ---

func TestHTTPClient_BatchScrape(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/async/batch", r.URL.Path)

		body := decodeBody(t, r)
		requests, ok := body["requests"].([]any)
		require.True(t, ok)
		require.Len(t, requests, 2)
		first := requests[0].(map[string]any)
		assert.Equal(t, "https://a.example.com", first["url"])
		assert.Equal(t, true, first["use_residential"])
		for _, field := range optionFields {
			assert.Contains(t, first, field)
		}
		assert.Contains(t, body, "callback_url")
		assert.Nil(t, body["callback_url"])

		writeJSON(t, w, http.StatusOK, `{"batch_id": "batch-9", "job_ids": ["j1", "j2"], "total_jobs": 2, "status": "pending"}`)
	})

	opts := types.DefaultScrapeOptions()
	opts.UseResidential = true
	raw, err := c.BatchScrape(context.Background(), []string{"https://a.example.com", "https://b.example.com"}, opts, nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"batch_id": "batch-9", "job_ids": ["j1", "j2"], "total_jobs": 2, "status": "pending"}`, string(raw))
}

func TestHTTPClient_BatchScrape_TooManyURLs(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusOK, `{}`)
	})

	urls := make([]string, MaxBatchURLs+1)
	for i := range urls {
		urls[i] = "https://example.com"
	}
	raw, err := c.BatchScrape(context.Background(), urls, types.DefaultScrapeOptions(), nil)

	require.Error(t, err)
	assert.Nil(t, raw)
	assert.True(t, errors.Is(err, ErrBatchTooLarge))
	assert.Contains(t, err.Error(), "maximum 100")
	assert.Equal(t, int32(0), calls.Load(), "no request may reach the API")
}

func TestHTTPClient_BatchScrape_NonObjectResponse(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `["j1"]`)
	})

	_, err := c.BatchScrape(context.Background(), []string{"https://example.com"}, types.DefaultScrapeOptions(), nil)
	assert.Error(t, err)
}

// --- Usage ---

func TestHTTPClient_GetUsage(t *testing.T) {
	payload := `{"customer_usage": {"from_datetime": "2026-10-01", "to_datetime": "2026-10-31", "charges_usage": [{"units": "42"}]}}`
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/usage", r.URL.Path)
		writeJSON(t, w, http.StatusOK, payload)
	})

	raw, err := c.GetUsage(context.Background())

	require.NoError(t, err)
	assert.JSONEq(t, payload, string(raw))
}

func TestHTTPClient_GetUsage_PropagatesErrors(t *testing.T) {
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, `{"detail":"boom"}`)
	})

	_, err := c.GetUsage(context.Background())

	require.Error(t, err)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "boom")
}

// --- Connection lifecycle ---

func TestHTTPClient_Close(t *testing.T) {
	var calls atomic.Int32
	_, c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(t, w, http.StatusOK, `{"customer_usage": {}}`)
	})

	// Closing before first use is a no-op.
	require.NoError(t, c.Close())

	_, err := c.GetUsage(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	// A closed client reopens its connection on the next call.
	_, err = c.GetUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
