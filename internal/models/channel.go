package models

import "time"

// Channel is a registered third-party video source.
// ID is empty until the record has been persisted once.
type Channel struct {
	ID             string      `json:"id,omitempty"`
	ChannelName    string      `json:"channel_name"`
	ChannelID      string      `json:"channel_id"`
	FeedURL        string      `json:"feed_url"`
	ChannelType    ChannelType `json:"channel_type"`
	Languages      []Language  `json:"languages"`
	IsActive       bool        `json:"is_active"`
	FetchVideos    bool        `json:"fetch_videos"`
	FetchShorts    bool        `json:"fetch_shorts"`
	FullMoviesOnly bool        `json:"full_movies_only"`
	LastSyncedAt   *time.Time  `json:"last_synced_at,omitempty"`
	CreatedAt      *time.Time  `json:"created_at,omitempty"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
	VideoCount     int64       `json:"video_count"` // joined in at list time, never persisted
}

// Identity is what the resolver derives from a channel URL.
// ChannelID and FeedURL are always set together.
type Identity struct {
	ChannelName string `json:"channel_name"`
	ChannelID   string `json:"channel_id"`
	FeedURL     string `json:"feed_url"`
}

// Identity returns the resolver-owned fields of c.
func (c Channel) Identity() Identity {
	return Identity{ChannelName: c.ChannelName, ChannelID: c.ChannelID, FeedURL: c.FeedURL}
}

// WithIdentity returns a copy of c with the resolver-owned fields replaced.
func (c Channel) WithIdentity(id Identity) Channel {
	c.ChannelName = id.ChannelName
	c.ChannelID = id.ChannelID
	c.FeedURL = id.FeedURL
	return c
}

// HasLanguage reports whether l is among c.Languages.
func (c Channel) HasLanguage(l Language) bool {
	for _, v := range c.Languages {
		if v == l {
			return true
		}
	}
	return false
}
