package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/voyagen/channeldesk/internal/models"
)

var (
	// ErrEmptyURL is returned for a blank input.
	ErrEmptyURL = errors.New("url is required")
	// ErrUnresolvable is returned when the input does not lead to a channel.
	ErrUnresolvable = errors.New("could not resolve channel from url")
)

const feedBase = "https://www.youtube.com/feeds/videos.xml"

// FeedURL derives the upload feed address from a platform channel id.
func FeedURL(channelID string) string {
	return feedBase + "?channel_id=" + url.QueryEscape(channelID)
}

// Match is a channel found by a Lookup.
type Match struct {
	ID    string
	Title string
}

// Lookup queries the video platform. Methods return (nil, nil) when nothing matched.
type Lookup interface {
	ChannelByID(ctx context.Context, id string) (*Match, error)
	ChannelByHandle(ctx context.Context, handle string) (*Match, error)
	ChannelByUsername(ctx context.Context, username string) (*Match, error)
	SearchChannel(ctx context.Context, query string) (*Match, error)
}

// Resolver turns arbitrary channel URLs into a stable identity.
type Resolver struct {
	lookup Lookup
}

// New returns a Resolver backed by lookup.
func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve parses raw and looks the channel up. It never persists anything.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.Identity, error) {
	ref, err := ParseRef(raw)
	if err != nil {
		return models.Identity{}, err
	}

	var m *Match
	switch ref.Kind {
	case RefChannelID:
		m, err = r.lookup.ChannelByID(ctx, ref.Value)
	case RefHandle:
		m, err = r.lookup.ChannelByHandle(ctx, ref.Value)
	case RefUsername:
		m, err = r.lookup.ChannelByUsername(ctx, ref.Value)
		if err == nil && m == nil {
			// Many /user/ names were migrated to handles.
			m, err = r.lookup.ChannelByHandle(ctx, ref.Value)
		}
	case RefCustom:
		m, err = r.lookup.ChannelByHandle(ctx, ref.Value)
		if err == nil && m == nil {
			m, err = r.lookup.SearchChannel(ctx, ref.Value)
		}
	}
	if err != nil {
		return models.Identity{}, fmt.Errorf("lookup %s %q: %w", ref.Kind, ref.Value, err)
	}
	if m == nil || m.ID == "" {
		return models.Identity{}, ErrUnresolvable
	}
	name := m.Title
	if name == "" {
		name = ref.Value
	}
	return models.Identity{
		ChannelName: name,
		ChannelID:   m.ID,
		FeedURL:     FeedURL(m.ID),
	}, nil
}
