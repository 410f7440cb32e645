package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGetLiveStreamingDetails_ParsesTimes(t *testing.T) {
	var gotURL string
	c := New(Config{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			gotURL = r.URL.String()
			return jsonResponse(http.StatusOK, `{"items":[{"id":"abcdefghijk","liveStreamingDetails":{"scheduledStartTime":"2024-05-01T12:00:00Z"}}]}`), nil
		})},
	})

	details, err := c.GetLiveStreamingDetails(context.Background(), "abcdefghijk")
	if err != nil {
		t.Fatalf("GetLiveStreamingDetails() error = %v", err)
	}
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if details.ScheduledStart == nil || !details.ScheduledStart.Equal(want) {
		t.Fatalf("ScheduledStart = %v, want %v", details.ScheduledStart, want)
	}
	if details.ActualStart != nil || details.ActualEnd != nil {
		t.Fatalf("unexpected actual times: %+v", details)
	}
	if !strings.Contains(gotURL, "part=liveStreamingDetails") || !strings.Contains(gotURL, "id=abcdefghijk") {
		t.Fatalf("request url = %s", gotURL)
	}
}

func TestGetLiveStreamingDetails_NoItemsIsNotFound(t *testing.T) {
	c := New(Config{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"items":[]}`), nil
		})},
	})
	_, err := c.GetLiveStreamingDetails(context.Background(), "abcdefghijk")
	if !errors.Is(err, ErrVideoNotFound) {
		t.Fatalf("expected ErrVideoNotFound, got %v", err)
	}
}

func TestGetVideoSnippet_Ended(t *testing.T) {
	c := New(Config{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `{"items":[{"id":"abcdefghijk","snippet":{"channelId":"UC1opHUrw8rvnsadT-iGp7Cg","channelTitle":"Aqua","liveBroadcastContent":"none"}}]}`), nil
		})},
	})
	snippet, err := c.GetVideoSnippet(context.Background(), "abcdefghijk")
	if err != nil {
		t.Fatalf("GetVideoSnippet() error = %v", err)
	}
	if !snippet.Ended() {
		t.Fatalf("Ended() = false, want true")
	}
	if snippet.ChannelID != "UC1opHUrw8rvnsadT-iGp7Cg" || snippet.ChannelTitle != "Aqua" {
		t.Fatalf("snippet = %+v", snippet)
	}
}

func TestAPIWithoutKey(t *testing.T) {
	c := New(Config{
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			t.Fatalf("unexpected request to %s", r.URL)
			return nil, nil
		})},
	})
	if _, err := c.GetChannel(context.Background(), "UC1opHUrw8rvnsadT-iGp7Cg"); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestListCommentThreads_ForbiddenIsAuthorizationDenied(t *testing.T) {
	c := New(Config{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusForbidden, `{"error":{"code":403,"message":"The request might not be properly authorized.","errors":[{"reason":"forbidden"}]}}`), nil
		})},
	})
	err := c.ListCommentThreads(context.Background(), "abcdefghijk")
	if !IsAuthorizationDenied(err) {
		t.Fatalf("IsAuthorizationDenied(%v) = false", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %T", err)
	}
	if statusErr.Reason != "forbidden" {
		t.Fatalf("reason = %q, want forbidden", statusErr.Reason)
	}
	if strings.Contains(statusErr.URL, "key=k") {
		t.Fatalf("api key leaked into error url: %s", statusErr.URL)
	}
}

func TestFetchLivePage_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := New(Config{WebBaseURL: srv.URL})
	_, err := c.FetchLivePage(context.Background(), "UCxxxxxxxxxxxxxxxxxxxxxx")
	if !errors.Is(err, ErrChannelNotFound) {
		t.Fatalf("expected ErrChannelNotFound, got %v", err)
	}
}

func TestFetchLivePage_RetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/channel/UC1opHUrw8rvnsadT-iGp7Cg/live" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Errorf("missing User-Agent")
		}
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "<html>ok</html>")
	}))
	defer srv.Close()

	c := New(Config{
		WebBaseURL:        srv.URL,
		MetadataTransport: TransportConfig{MaxRetries: 2, InitialBackoff: time.Millisecond},
	})
	body, err := c.FetchLivePage(context.Background(), "UC1opHUrw8rvnsadT-iGp7Cg")
	if err != nil {
		t.Fatalf("FetchLivePage() error = %v", err)
	}
	if body != "<html>ok</html>" || calls != 2 {
		t.Fatalf("body=%q calls=%d", body, calls)
	}
}

func TestRetryAfterIsCappedAtMaxBackoff(t *testing.T) {
	calls := 0
	c := New(Config{
		APIKey: "k",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls == 1 {
				resp := jsonResponse(http.StatusTooManyRequests, `{}`)
				resp.Header.Set("Retry-After", "3600")
				return resp, nil
			}
			return jsonResponse(http.StatusOK, `{"items":[{"id":"UC1","snippet":{"title":"Test"}}]}`), nil
		})},
		MetadataTransport: TransportConfig{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: 10 * time.Millisecond},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	info, err := c.GetChannel(ctx, "UC1")
	if err != nil {
		t.Fatalf("GetChannel() error = %v", err)
	}
	if info.Title != "Test" || calls != 2 {
		t.Fatalf("info=%+v calls=%d", info, calls)
	}
}
