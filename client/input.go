package client

import (
	"regexp"
	"strings"
)

var (
	youtubeIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)
	watchURLPattern  = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|live/|shorts/|embed/|v/)|youtu\.be/)([0-9A-Za-z_-]{11})(?:[?&#/]|$)`)
)

// IsVideoID reports whether s has the shape of a raw video id.
func IsVideoID(s string) bool {
	return youtubeIDPattern.MatchString(s)
}

// ExtractVideoID accepts either a raw id or common YouTube watch URL shapes.
func ExtractVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrInvalidInput
	}
	if youtubeIDPattern.MatchString(s) {
		return s, nil
	}
	m := watchURLPattern.FindStringSubmatch(s)
	if len(m) == 2 {
		return m[1], nil
	}
	return "", ErrInvalidInput
}
