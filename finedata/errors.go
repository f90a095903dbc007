package finedata

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// MaxBatchURLs is the largest number of URLs accepted by a single batch request.
const MaxBatchURLs = 100

// ErrBatchTooLarge is returned by BatchScrape before any network call when
// more than MaxBatchURLs URLs are given.
var ErrBatchTooLarge = errors.Newf("maximum %d URLs per batch", MaxBatchURLs)

// APIError is returned when FineData responds with a non-2xx status on the
// async, batch and usage endpoints.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("FineData API returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("FineData API returned HTTP %d: %s", e.StatusCode, e.Body)
}
