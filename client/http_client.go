package client

import (
	"net/http"
	"net/url"
	"strings"
)

// newHTTPClient builds the client used when Config.HTTPClient is nil.
// An unparsable proxy is ignored and the default transport is used.
func newHTTPClient(proxyURL string, jar http.CookieJar) *http.Client {
	transport := http.DefaultTransport
	if parsed, ok := parseProxyURL(proxyURL); ok {
		if base, isTransport := http.DefaultTransport.(*http.Transport); isTransport {
			cloned := base.Clone()
			cloned.Proxy = http.ProxyURL(parsed)
			transport = cloned
		}
	}
	return &http.Client{Transport: transport, Jar: jar}
}

func parseProxyURL(raw string) (*url.URL, bool) {
	if strings.TrimSpace(raw) == "" {
		return nil, false
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}
