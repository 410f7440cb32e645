package client

import (
	"net/http"
	"time"
)

const (
	defaultWebBaseURL = "https://www.youtube.com"
	defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"
	defaultUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// Config holds configuration for the YouTube client.
type Config struct {
	// HTTPClient is the client used for making requests.
	// If nil, a client honoring ProxyURL and CookieJar is built.
	HTTPClient *http.Client

	// ProxyURL is the optional proxy URL to use for requests.
	// If HTTPClient is provided, this field is ignored.
	ProxyURL string

	// CookieJar is attached to the HTTP client for public page requests.
	CookieJar http.CookieJar

	// APIKey is the YouTube Data API v3 key. Data API calls fail with
	// ErrMissingAPIKey when it is empty.
	APIKey string

	// WebBaseURL overrides the public page host (default: https://www.youtube.com).
	WebBaseURL string

	// APIBaseURL overrides the Data API root (default: https://www.googleapis.com/youtube/v3).
	APIBaseURL string

	// UserAgent overrides the User-Agent sent with page requests.
	UserAgent string

	// RequestHeaders are added to every request.
	RequestHeaders http.Header

	// RequestTimeout bounds a single call when the context carries no deadline.
	RequestTimeout time.Duration

	// MetadataTransport controls retry/backoff for page and API requests.
	MetadataTransport TransportConfig

	Logger Logger
}

func (c Config) webBaseURL() string {
	if c.WebBaseURL == "" {
		return defaultWebBaseURL
	}
	return c.WebBaseURL
}

func (c Config) apiBaseURL() string {
	if c.APIBaseURL == "" {
		return defaultAPIBaseURL
	}
	return c.APIBaseURL
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return defaultUserAgent
	}
	return c.UserAgent
}
