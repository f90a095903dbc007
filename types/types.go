package types

// JobStatus - Lifecycle state of an async scrape job as reported by FineData
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Valid reports whether s is one of the known job states.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether polling can stop.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// ScrapeOptions - Per-request scraping parameters forwarded to FineData.
// Every field is serialized, including defaults; the remote service interprets them.
type ScrapeOptions struct {
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers"`
	Body       *string           `json:"body"`
	TLSProfile string            `json:"tls_profile"`
	MaxRetries int               `json:"max_retries"`
	Timeout    int               `json:"timeout"` // Timeout in seconds

	UseAntibot     bool `json:"use_antibot"`
	UseJSRender    bool `json:"use_js_render"`
	UseResidential bool `json:"use_residential"`
	UseMobile      bool `json:"use_mobile"`
	UseUndetected  bool `json:"use_undetected"`
	UseNodriver    bool `json:"use_nodriver"`

	JSWaitFor string `json:"js_wait_for"`
	JSScroll  bool   `json:"js_scroll"`

	SolveCaptcha bool `json:"solve_captcha"`

	SessionID  *string `json:"session_id"`
	SessionTTL int     `json:"session_ttl"`
}

// DefaultScrapeOptions - Options with the documented defaults
func DefaultScrapeOptions() ScrapeOptions {
	return ScrapeOptions{
		Method:     "GET",
		Headers:    map[string]string{},
		TLSProfile: "chrome124",
		MaxRetries: 5,
		Timeout:    60,
		UseAntibot: true,
		JSWaitFor:  "networkidle",
		SessionTTL: 1800,
	}
}

// ScrapeResult - Result of a scrape request
type ScrapeResult struct {
	Success         bool           `json:"success"`
	StatusCode      int            `json:"status_code"`
	Headers         map[string]any `json:"headers"`
	Body            string         `json:"body"`
	Meta            map[string]any `json:"meta"`
	TokensUsed      int            `json:"tokens_used"`
	CaptchaDetected bool           `json:"captcha_detected"`
	CaptchaType     string         `json:"captcha_type,omitempty"`
	CaptchaSolved   bool           `json:"captcha_solved"`
	Error           string         `json:"error,omitempty"`
}

// BlockReason returns meta.block_reason, or "" when the service did not report one.
func (r *ScrapeResult) BlockReason() string {
	if r == nil || r.Meta == nil {
		return ""
	}
	reason, _ := r.Meta["block_reason"].(string)
	return reason
}

// ResponseTimeMS returns meta.response_time_ms, or 0 when absent.
func (r *ScrapeResult) ResponseTimeMS() float64 {
	if r == nil || r.Meta == nil {
		return 0
	}
	switch v := r.Meta["response_time_ms"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// AsyncJob - Snapshot of a remote async job. The remote service owns job state;
// a newer snapshot replaces an older one.
type AsyncJob struct {
	JobID               string        `json:"job_id"`
	Status              JobStatus     `json:"status"`
	URL                 string        `json:"url"`
	CreatedAt           string        `json:"created_at"`
	EstimatedCompletion string        `json:"estimated_completion,omitempty"`
	Result              *ScrapeResult `json:"result,omitempty"`
	Error               string        `json:"error,omitempty"`
}
