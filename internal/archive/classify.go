// Package archive classifies how a broadcast ended and relocates its files.
package archive

import (
	"context"
	"errors"
	"log/slog"

	"github.com/famomatic/ytlive/client"
)

// Outcome is how a recorded broadcast ended.
type Outcome int

const (
	Normal Outcome = iota
	Deleted
	MembersOnly
)

func (o Outcome) String() string {
	switch o {
	case Deleted:
		return "deleted"
	case MembersOnly:
		return "members_only"
	default:
		return "normal"
	}
}

// Source is the platform surface used for classification.
type Source interface {
	GetVideoSnippet(ctx context.Context, videoID string) (*client.VideoSnippet, error)
	ListCommentThreads(ctx context.Context, videoID string) error
}

// Classifier decides the Outcome of a finished broadcast.
type Classifier struct {
	source Source
	logger *slog.Logger
}

func NewClassifier(source Source, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{source: source, logger: logger.With("component", "classifier")}
}

// Classify checks deletion first, then members-only. The members-only check
// is a heuristic: a broadcast whose comment threads are refused with an
// authorization error is assumed to be restricted to members.
func (c *Classifier) Classify(ctx context.Context, videoID string) Outcome {
	log := c.logger.With("video_id", videoID)

	_, err := c.source.GetVideoSnippet(ctx, videoID)
	switch {
	case errors.Is(err, client.ErrVideoNotFound):
		log.Info("broadcast was deleted")
		return Deleted
	case err != nil:
		log.Warn("snippet lookup failed", "error", err)
	}

	err = c.source.ListCommentThreads(ctx, videoID)
	switch {
	case err == nil:
		return Normal
	case client.IsAuthorizationDenied(err):
		log.Info("broadcast is members only")
		return MembersOnly
	default:
		log.Warn("unable to detect members-only state", "error", err)
		return Normal
	}
}
