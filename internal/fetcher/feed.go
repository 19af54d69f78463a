package fetcher

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/voyagen/channeldesk/internal/models"
)

// Entry is one upload listed in a channel feed.
type Entry struct {
	VideoID     string
	Title       string
	URL         string
	Kind        models.VideoKind
	PublishedAt *time.Time
}

// Video converts e into a models.Video owned by channelRef.
func (e Entry) Video(channelRef string) models.Video {
	return models.Video{
		ChannelRef:  channelRef,
		VideoID:     e.VideoID,
		Title:       e.Title,
		URL:         e.URL,
		Kind:        e.Kind,
		PublishedAt: e.PublishedAt,
	}
}

// ParseFeed reads a YouTube channel Atom feed. Entries without a video id are skipped.
func ParseFeed(r io.Reader) ([]Entry, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := videoID(item)
		if id == "" {
			continue
		}
		link := item.Link
		if link == "" {
			link = "https://www.youtube.com/watch?v=" + id
		}
		entries = append(entries, Entry{
			VideoID:     id,
			Title:       strings.TrimSpace(item.Title),
			URL:         link,
			Kind:        KindFromURL(link),
			PublishedAt: item.PublishedParsed,
		})
	}
	return entries, nil
}

// videoID prefers the yt:videoId extension and falls back to the "yt:video:<id>" guid.
func videoID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if vals := yt["videoId"]; len(vals) > 0 && vals[0].Value != "" {
			return strings.TrimSpace(vals[0].Value)
		}
	}
	if id, ok := strings.CutPrefix(item.GUID, "yt:video:"); ok {
		return id
	}
	return ""
}

// KindFromURL classifies an upload link: /shorts/ paths are shorts, everything else a video.
func KindFromURL(link string) models.VideoKind {
	if strings.Contains(strings.ToLower(link), "/shorts/") {
		return models.VideoKindShort
	}
	return models.VideoKindVideo
}
