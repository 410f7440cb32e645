package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client is the YouTube page and Data API client.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     Logger
}

// New creates a new YouTube client.
func New(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = newHTTPClient(config.ProxyURL, config.CookieJar)
	} else if config.CookieJar != nil {
		cp := *httpClient
		cp.Jar = config.CookieJar
		httpClient = &cp
	}
	logger := config.Logger
	if logger == nil {
		logger = nopLogger{}
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}
}

// FetchLivePage returns the HTML of the channel's /live page.
// A 404 maps to ErrChannelNotFound.
func (c *Client) FetchLivePage(ctx context.Context, channelID string) (string, error) {
	if strings.TrimSpace(channelID) == "" {
		return "", ErrInvalidInput
	}
	return c.fetchPage(ctx, "channel/"+url.PathEscape(channelID)+"/live")
}

// FetchChannelPage returns the HTML of a channel page addressed by its path
// below the site root, e.g. "c/SomeName" or "@handle".
func (c *Client) FetchChannelPage(ctx context.Context, path string) (string, error) {
	path = strings.TrimPrefix(strings.TrimSpace(path), "/")
	if path == "" {
		return "", ErrInvalidInput
	}
	return c.fetchPage(ctx, path)
}

func (c *Client) fetchPage(ctx context.Context, path string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	rawURL := strings.TrimRight(c.config.webBaseURL(), "/") + "/" + path
	headers := buildPageRequestHeaders(c.config.RequestHeaders, c.config.userAgent())
	body, err := doGETBytesWithRetry(ctx, c.httpClient, rawURL, headers, c.config.MetadataTransport)
	if err != nil {
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("%w: %s", ErrChannelNotFound, path)
		}
		return "", err
	}
	return string(body), nil
}

// GetLiveStreamingDetails fetches the schedule of a broadcast.
// Zero items maps to ErrVideoNotFound.
func (c *Client) GetLiveStreamingDetails(ctx context.Context, videoID string) (*LiveStreamingDetails, error) {
	var resp videoListResponse
	if err := c.getAPI(ctx, "videos", url.Values{"part": {"liveStreamingDetails"}, "id": {videoID}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}
	item := resp.Items[0]
	return &LiveStreamingDetails{
		VideoID:        firstNonEmptyString(item.ID, videoID),
		ScheduledStart: item.LiveStreamingDetails.ScheduledStartTime,
		ActualStart:    item.LiveStreamingDetails.ActualStartTime,
		ActualEnd:      item.LiveStreamingDetails.ActualEndTime,
	}, nil
}

// GetVideoSnippet fetches the snippet of a video.
// Zero items maps to ErrVideoNotFound.
func (c *Client) GetVideoSnippet(ctx context.Context, videoID string) (*VideoSnippet, error) {
	var resp videoListResponse
	if err := c.getAPI(ctx, "videos", url.Values{"part": {"snippet"}, "id": {videoID}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
	}
	item := resp.Items[0]
	return &VideoSnippet{
		VideoID:              firstNonEmptyString(item.ID, videoID),
		ChannelID:            item.Snippet.ChannelID,
		ChannelTitle:         item.Snippet.ChannelTitle,
		Title:                item.Snippet.Title,
		LiveBroadcastContent: item.Snippet.LiveBroadcastContent,
	}, nil
}

// GetChannel fetches a channel record by id.
// Zero items maps to ErrChannelNotFound.
func (c *Client) GetChannel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	var resp channelListResponse
	if err := c.getAPI(ctx, "channels", url.Values{"part": {"snippet"}, "id": {channelID}}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	return &ChannelInfo{
		ID:    firstNonEmptyString(resp.Items[0].ID, channelID),
		Title: resp.Items[0].Snippet.Title,
	}, nil
}

// ListCommentThreads requests the first comment thread page of a video.
// Only the error matters to callers; see IsAuthorizationDenied.
func (c *Client) ListCommentThreads(ctx context.Context, videoID string) error {
	var resp json.RawMessage
	return c.getAPI(ctx, "commentThreads", url.Values{
		"part":       {"snippet"},
		"videoId":    {videoID},
		"maxResults": {"1"},
	}, &resp)
}

func (c *Client) getAPI(ctx context.Context, resource string, query url.Values, out any) error {
	if strings.TrimSpace(c.config.APIKey) == "" {
		return ErrMissingAPIKey
	}
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	query.Set("key", c.config.APIKey)
	rawURL := strings.TrimRight(c.config.apiBaseURL(), "/") + "/" + resource + "?" + query.Encode()
	headers := cloneHeader(c.config.RequestHeaders)
	if headers == nil {
		headers = make(http.Header)
	}
	headers.Set("Accept", "application/json")
	body, err := doGETBytesWithRetry(ctx, c.httpClient, rawURL, headers, c.config.MetadataTransport)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warnf("decode %s response: %v", resource, err)
		return fmt.Errorf("decode %s response: %w", resource, err)
	}
	return nil
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
