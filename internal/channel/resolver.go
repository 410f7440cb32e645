// Package channel turns user supplied channel references into channel ids.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/famomatic/ytlive/client"
)

// ErrInvalidReference is returned for input that is neither a keyword nor a
// recognizable channel URL.
var ErrInvalidReference = errors.New("invalid channel reference")

var reservedKeywords = map[string]struct{}{
	"all":   {},
	"holo":  {},
	"2434":  {},
	"other": {},
}

var (
	referencePattern = regexp.MustCompile(`^(?:https?://)?(?:www\.)?(?P<host>[^/]+)/(?P<type>[^/]+)/(?P<name>[\w%\-]+)`)
	handlePattern    = regexp.MustCompile(`^(?:(?:https?://)?(?:www\.)?[^/]+/)?(?P<handle>@[\w%\-.]+)(?:/.*)?$`)
	bareIDPattern    = regexp.MustCompile(`^UC[\w\-]{22}$`)
)

// Channel is a resolved channel.
type Channel struct {
	ID          string
	DisplayName string
	// Keyword is set for reserved group keywords, which carry no display name.
	Keyword bool
}

// Reference is a parsed channel URL.
type Reference struct {
	Host string
	Type string
	Name string
}

// Lookup is the platform surface the resolver needs.
type Lookup interface {
	FetchChannelPage(ctx context.Context, path string) (string, error)
	GetChannel(ctx context.Context, channelID string) (*client.ChannelInfo, error)
}

// Resolver resolves channel references. It never retries.
type Resolver struct {
	lookup Lookup
	cache  AliasCache
	logger *slog.Logger
}

func NewResolver(lookup Lookup, cache AliasCache, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = NewMemoryCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{lookup: lookup, cache: cache, logger: logger.With("component", "resolver")}
}

// IsKeyword reports whether ref is a reserved group keyword.
func IsKeyword(ref string) bool {
	_, ok := reservedKeywords[strings.ToLower(strings.TrimSpace(ref))]
	return ok
}

// ParseReference splits a channel URL into host, type and name.
func ParseReference(ref string) (Reference, error) {
	m := referencePattern.FindStringSubmatch(strings.TrimSpace(ref))
	if m == nil {
		return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return Reference{
		Host: m[referencePattern.SubexpIndex("host")],
		Type: m[referencePattern.SubexpIndex("type")],
		Name: m[referencePattern.SubexpIndex("name")],
	}, nil
}

// ResolveID returns the channel id for ref without looking up the display name.
func (r *Resolver) ResolveID(ctx context.Context, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidReference)
	}
	if IsKeyword(ref) {
		return strings.ToLower(ref), nil
	}
	if bareIDPattern.MatchString(ref) {
		return ref, nil
	}
	if m := handlePattern.FindStringSubmatch(ref); m != nil {
		handle, err := url.PathUnescape(m[handlePattern.SubexpIndex("handle")])
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		return r.resolveVanity(ctx, handle, handle)
	}

	parsed, err := ParseReference(ref)
	if err != nil {
		return "", err
	}
	switch parsed.Type {
	case "channel":
		if !strings.HasPrefix(parsed.Name, "UC") || len(parsed.Name) != 24 {
			return "", fmt.Errorf("%w: channel id %q", ErrInvalidReference, parsed.Name)
		}
		return parsed.Name, nil
	case "c", "user":
		name, err := url.PathUnescape(parsed.Name)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidReference, err)
		}
		return r.resolveVanity(ctx, name, parsed.Type+"/"+url.PathEscape(name))
	default:
		return "", fmt.Errorf("%w: unsupported path type %q", ErrInvalidReference, parsed.Type)
	}
}

// Resolve returns the channel id and display name for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Channel, error) {
	id, err := r.ResolveID(ctx, ref)
	if err != nil {
		return Channel{}, err
	}
	if IsKeyword(id) {
		return Channel{ID: id, Keyword: true}, nil
	}
	info, err := r.lookup.GetChannel(ctx, id)
	if err != nil {
		return Channel{}, fmt.Errorf("lookup channel %s: %w", id, err)
	}
	return Channel{ID: id, DisplayName: info.Title}, nil
}

func (r *Resolver) resolveVanity(ctx context.Context, name, pagePath string) (string, error) {
	key := CacheKey(name)
	if id, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("alias cache read failed", "name", name, "error", err)
	} else if ok && id != "" {
		return id, nil
	}

	page, err := r.lookup.FetchChannelPage(ctx, pagePath)
	if err != nil {
		return "", fmt.Errorf("fetch channel page %s: %w", pagePath, err)
	}
	id, ok := ExtractChannelID(page)
	if !ok {
		return "", fmt.Errorf("%w: no channel id on page for %q", client.ErrChannelNotFound, name)
	}
	if err := r.cache.Set(ctx, key, id); err != nil {
		r.logger.Warn("alias cache write failed", "name", name, "error", err)
	}
	r.logger.Info("resolved vanity channel", "name", name, "channel_id", id)
	return id, nil
}

// ExtractChannelID finds <meta itemprop="channelId" content="..."> in a page.
func ExtractChannelID(page string) (string, bool) {
	tokenizer := html.NewTokenizer(strings.NewReader(page))
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return "", false
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := tokenizer.TagName()
			if string(name) != "meta" || !hasAttr {
				continue
			}
			var itemprop, content string
			for more := true; more; {
				var key, val []byte
				key, val, more = tokenizer.TagAttr()
				switch string(key) {
				case "itemprop":
					itemprop = string(val)
				case "content":
					content = string(val)
				}
			}
			if itemprop == "channelId" && content != "" {
				return content, true
			}
		}
	}
}
