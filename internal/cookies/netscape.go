// Package cookies reads Netscape cookies.txt files, the format yt-dlp and
// browser export extensions write.
package cookies

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const httpOnlyPrefix = "#HttpOnly_"

// ParseNetscape parses a Netscape cookies.txt stream.
// Each line is: domain, include-subdomains, path, secure, expiry, name, value.
// Malformed lines are skipped.
func ParseNetscape(r io.Reader) ([]*http.Cookie, error) {
	var cookies []*http.Cookie
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		httpOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			httpOnly = true
			line = strings.TrimPrefix(line, httpOnlyPrefix)
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}
		cookie := &http.Cookie{
			Domain:   parts[0],
			Path:     parts[2],
			Secure:   strings.EqualFold(parts[3], "TRUE"),
			Name:     parts[5],
			Value:    parts[6],
			HttpOnly: httpOnly,
		}
		// Zero expiry marks a session cookie.
		if expires, err := strconv.ParseInt(parts[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}
		cookies = append(cookies, cookie)
	}
	return cookies, scanner.Err()
}

// LoadFile parses the cookies file at path.
func LoadFile(path string) ([]*http.Cookie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cookies file: %w", err)
	}
	defer f.Close()

	list, err := ParseNetscape(f)
	if err != nil {
		return nil, fmt.Errorf("parse cookies file: %w", err)
	}
	return list, nil
}

// NewJar builds a cookie jar holding list, grouped by domain.
func NewJar(list []*http.Cookie) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	byDomain := make(map[string][]*http.Cookie)
	for _, c := range list {
		byDomain[c.Domain] = append(byDomain[c.Domain], c)
	}
	for domain, cs := range byDomain {
		scheme := "http"
		for _, c := range cs {
			if c.Secure {
				scheme = "https"
				break
			}
		}
		jar.SetCookies(&url.URL{Scheme: scheme, Host: strings.TrimPrefix(domain, ".")}, cs)
	}
	return jar, nil
}

// LoadJar reads path into a cookie jar.
func LoadJar(path string) (http.CookieJar, error) {
	list, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewJar(list)
}
