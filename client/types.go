package client

import "time"

// LiveStreamingDetails is the schedule view of a broadcast.
type LiveStreamingDetails struct {
	VideoID        string
	ScheduledStart *time.Time
	ActualStart    *time.Time
	ActualEnd      *time.Time
}

// VideoSnippet is the subset of videos.list snippet used for live checks.
type VideoSnippet struct {
	VideoID      string
	ChannelID    string
	ChannelTitle string
	Title        string
	// LiveBroadcastContent is "live", "upcoming" or "none".
	LiveBroadcastContent string
}

// Ended reports whether the broadcast is no longer live or upcoming.
func (s *VideoSnippet) Ended() bool {
	return s.LiveBroadcastContent == "none"
}

// ChannelInfo is a channel record from channels.list.
type ChannelInfo struct {
	ID    string
	Title string
}

type videoListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			ChannelID            string `json:"channelId"`
			ChannelTitle         string `json:"channelTitle"`
			Title                string `json:"title"`
			LiveBroadcastContent string `json:"liveBroadcastContent"`
		} `json:"snippet"`
		LiveStreamingDetails struct {
			ScheduledStartTime *time.Time `json:"scheduledStartTime"`
			ActualStartTime    *time.Time `json:"actualStartTime"`
			ActualEndTime      *time.Time `json:"actualEndTime"`
		} `json:"liveStreamingDetails"`
	} `json:"items"`
}

type channelListResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
}
