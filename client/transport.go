package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/famomatic/ytlive/internal/clock"
)

// TransportConfig controls retry/backoff behavior for client HTTP requests.
type TransportConfig struct {
	MaxRetries       int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RetryStatusCodes []int
}

type effectiveTransportConfig struct {
	MaxRetries       int
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	RetryStatusCodes []int
}

func normalizeTransportConfig(cfg TransportConfig) effectiveTransportConfig {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	initialBackoff := cfg.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = 500 * time.Millisecond
	}
	maxBackoff := cfg.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 3 * time.Second
	}
	statusCodes := cfg.RetryStatusCodes
	if len(statusCodes) == 0 {
		statusCodes = []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		}
	}
	return effectiveTransportConfig{
		MaxRetries:       maxRetries,
		InitialBackoff:   initialBackoff,
		MaxBackoff:       maxBackoff,
		RetryStatusCodes: statusCodes,
	}
}

func (c effectiveTransportConfig) backoffFor(attempt int) time.Duration {
	backoff := c.InitialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > c.MaxBackoff {
			return c.MaxBackoff
		}
	}
	return backoff
}

func isRetryableError(err error, cfg effectiveTransportConfig) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		for _, code := range cfg.RetryStatusCodes {
			if statusErr.StatusCode == code {
				return true
			}
		}
		return false
	}
	return true
}

type retryAfterError struct {
	*HTTPStatusError
	retryAfter time.Duration
}

func (e *retryAfterError) Unwrap() error { return e.HTTPStatusError }

func doGETBytesWithRetry(
	ctx context.Context,
	client *http.Client,
	rawURL string,
	headers http.Header,
	cfg TransportConfig,
) ([]byte, error) {
	effectiveCfg := normalizeTransportConfig(cfg)
	var lastErr error
	for attempt := 0; attempt <= effectiveCfg.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		applyRequestHeaders(req, headers)
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			body, readErr := func() ([]byte, error) {
				defer resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					return nil, &retryAfterError{
						HTTPStatusError: newStatusError(redactKey(rawURL), resp),
						retryAfter:      parseRetryAfter(resp.Header.Get("Retry-After")),
					}
				}
				return io.ReadAll(resp.Body)
			}()
			if readErr == nil {
				return body, nil
			}
			lastErr = readErr
		}
		if !isRetryableError(lastErr, effectiveCfg) || attempt == effectiveCfg.MaxRetries {
			return nil, unwrapRetryAfter(lastErr)
		}
		backoff := effectiveCfg.backoffFor(attempt)
		var ra *retryAfterError
		if errors.As(lastErr, &ra) && ra.retryAfter > backoff {
			backoff = min(ra.retryAfter, effectiveCfg.MaxBackoff)
		}
		if err := (clock.Real{}).Sleep(ctx, backoff); err != nil {
			return nil, err
		}
	}
	if lastErr != nil {
		return nil, unwrapRetryAfter(lastErr)
	}
	return nil, fmt.Errorf("request failed with unknown retry error")
}

func unwrapRetryAfter(err error) error {
	var ra *retryAfterError
	if errors.As(err, &ra) {
		return ra.HTTPStatusError
	}
	return err
}

// apiErrorEnvelope is the Data API error body.
type apiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

func newStatusError(rawURL string, resp *http.Response) *HTTPStatusError {
	statusErr := &HTTPStatusError{URL: rawURL, StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var env apiErrorEnvelope
	if json.Unmarshal(body, &env) == nil {
		statusErr.Message = env.Error.Message
		if len(env.Error.Errors) > 0 {
			statusErr.Reason = env.Error.Errors[0].Reason
		}
	}
	return statusErr
}

func redactKey(rawURL string) string {
	idx := strings.Index(rawURL, "key=")
	if idx < 0 {
		return rawURL
	}
	end := strings.IndexByte(rawURL[idx:], '&')
	if end < 0 {
		return rawURL[:idx] + "key=REDACTED"
	}
	return rawURL[:idx] + "key=REDACTED" + rawURL[idx+end:]
}

func parseRetryAfter(raw string) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(raw); err == nil {
		d := time.Until(when)
		if d < 0 {
			return 0
		}
		return d
	}
	return 0
}
