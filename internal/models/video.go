package models

import "time"

// Video is a single ingested feed entry belonging to a channel.
type Video struct {
	ID          int64      `json:"id,omitempty"`
	ChannelRef  string     `json:"channel_ref"` // Channel.ID
	VideoID     string     `json:"video_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Kind        VideoKind  `json:"kind"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// VideoCount is the number of ingested videos for a platform channel id.
type VideoCount struct {
	ChannelID  string `json:"channel_id"`
	VideoCount int64  `json:"video_count"`
}

// SyncResult acknowledges an accepted sync request.
type SyncResult struct {
	ID       string     `json:"id"`
	NewItems int        `json:"new_items"`
	SyncedAt *time.Time `json:"synced_at,omitempty"`
	Queued   bool       `json:"queued,omitempty"`
}
