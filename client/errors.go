package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrInvalidInput indicates malformed input (not a video ID/url).
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingAPIKey indicates a Data API call without a configured key.
	ErrMissingAPIKey = errors.New("missing data api key")
	// ErrChannelNotFound indicates the channel page or record does not exist.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrVideoNotFound indicates the Data API returned no items for a video.
	ErrVideoNotFound = errors.New("video not found")
)

// HTTPStatusError indicates a non-200 response from a page or the Data API.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	// Message and Reason are filled from the Data API error envelope when present.
	Message string
	Reason  string
}

func (e *HTTPStatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("http status=%d url=%s: %s", e.StatusCode, e.URL, e.Message)
	}
	return fmt.Sprintf("http status=%d url=%s", e.StatusCode, e.URL)
}

// IsTransient reports whether a request failure is worth retrying.
// Missing items, missing configuration, cancellation and client-side 4xx
// responses other than 408/429 are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrVideoNotFound) ||
		errors.Is(err, ErrChannelNotFound) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests:
			return true
		case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
			return false
		}
	}
	return true
}

// deniedForOtherReasons lists Data API error reasons that come back as 403
// but say nothing about who may see the video.
var deniedForOtherReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
	"commentsDisabled":      true,
	"accessNotConfigured":   true,
	"ipRefererBlocked":      true,
}

// IsAuthorizationDenied reports whether err is the Data API refusing access:
// HTTP 403 or a message saying the request might not be properly authorized.
// Quota, rate limit, disabled comments and key configuration reasons do not
// count.
func IsAuthorizationDenied(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if deniedForOtherReasons[statusErr.Reason] {
			return false
		}
		if statusErr.StatusCode == http.StatusForbidden {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "the request might not be properly authorized")
}
