package client

import (
	"context"
	"net/http"
	"time"
)

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func applyRequestHeaders(req *http.Request, headers http.Header) {
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}

func cloneHeader(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, vals := range h {
		cp := make([]string, len(vals))
		copy(cp, vals)
		out[k] = cp
	}
	return out
}

func buildPageRequestHeaders(headers http.Header, userAgent string) http.Header {
	merged := cloneHeader(headers)
	if merged == nil {
		merged = make(http.Header)
	}
	if merged.Get("User-Agent") == "" {
		merged.Set("User-Agent", userAgent)
	}
	if merged.Get("Accept-Language") == "" {
		merged.Set("Accept-Language", "en-US,en;q=0.9")
	}
	return merged
}
