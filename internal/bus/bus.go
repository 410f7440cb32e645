// Package bus publishes lifecycle notifications for other services and
// maintains the set of broadcasts currently being recorded.
package bus

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Publisher delivers a payload to a topic. Implementations are best-effort.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// SetStore is a durable string set keyed by name.
type SetStore interface {
	Add(ctx context.Context, key, member string) error
	Remove(ctx context.Context, key, member string) error
	Members(ctx context.Context, key string) ([]string, error)
}

const (
	TopicStartStream  = "startstream"
	TopicDeleteStream = "deletestream"
	TopicUnarchived   = "unarchived"
	TopicMemberOnly   = "memberonly"
	TopicRecord       = "record"
	TopicRemoveByID   = "streamTools.removeById"
	SetNowRecord      = "nowRecord"
)

// StartStreamMessage is the startstream payload.
type StartStreamMessage struct {
	VideoID        string `json:"VideoId"`
	RecordFileName string `json:"RecordFileName"`
}

// Events wraps a Publisher and SetStore with the platform topic layout
// "<platform>.<event>". Failures are logged and never returned.
type Events struct {
	pub      Publisher
	set      SetStore
	platform string
	logger   *slog.Logger
}

// NewEvents builds Events. A nil publisher or set store disables that half.
func NewEvents(pub Publisher, set SetStore, platform string, logger *slog.Logger) *Events {
	if pub == nil {
		pub = Nop{}
	}
	if set == nil {
		set = nopSet{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Events{pub: pub, set: set, platform: platform, logger: logger.With("component", "bus")}
}

// Topic returns the platform-scoped name for event.
func (e *Events) Topic(event string) string {
	return e.platform + "." + event
}

func (e *Events) StreamStarted(ctx context.Context, videoID, fileStem string) {
	payload, err := json.Marshal(StartStreamMessage{VideoID: videoID, RecordFileName: fileStem})
	if err != nil {
		e.logger.Warn("encode startstream", "video_id", videoID, "error", err)
		return
	}
	e.publish(ctx, e.Topic(TopicStartStream), payload)
}

func (e *Events) StreamDeleted(ctx context.Context, videoID string) {
	e.publish(ctx, e.Topic(TopicDeleteStream), []byte(videoID))
}

func (e *Events) Unarchived(ctx context.Context, videoID string) {
	e.publish(ctx, e.Topic(TopicUnarchived), []byte(videoID))
}

func (e *Events) MembersOnly(ctx context.Context, videoID string) {
	e.publish(ctx, e.Topic(TopicMemberOnly), []byte(videoID))
}

func (e *Events) RestartRequested(ctx context.Context, videoID string) {
	e.publish(ctx, e.Topic(TopicRecord), []byte(videoID))
}

// RemoveByID asks the tooling service to drop the recorder running on host.
func (e *Events) RemoveByID(ctx context.Context, host string) {
	e.publish(ctx, TopicRemoveByID, []byte(host))
}

// MarkRecording adds videoID to the now-recording set.
func (e *Events) MarkRecording(ctx context.Context, videoID string) {
	if err := e.set.Add(ctx, e.Topic(SetNowRecord), videoID); err != nil {
		e.logger.Warn("add to now-recording set failed", "video_id", videoID, "error", err)
	}
}

// UnmarkRecording removes videoID from the now-recording set.
func (e *Events) UnmarkRecording(ctx context.Context, videoID string) {
	if err := e.set.Remove(ctx, e.Topic(SetNowRecord), videoID); err != nil {
		e.logger.Warn("remove from now-recording set failed", "video_id", videoID, "error", err)
	}
}

func (e *Events) publish(ctx context.Context, topic string, payload []byte) {
	if err := e.pub.Publish(ctx, topic, payload); err != nil {
		e.logger.Warn("publish failed", "topic", topic, "error", err)
		return
	}
	e.logger.Debug("published", "topic", topic, "size", len(payload))
}

// Nop discards every message.
type Nop struct{}

func (Nop) Publish(context.Context, string, []byte) error { return nil }
func (Nop) Close() error                                  { return nil }

type nopSet struct{}

func (nopSet) Add(context.Context, string, string) error         { return nil }
func (nopSet) Remove(context.Context, string, string) error      { return nil }
func (nopSet) Members(context.Context, string) ([]string, error) { return nil, nil }
