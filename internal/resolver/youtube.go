package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeLookup implements Lookup with the YouTube Data API v3.
type YouTubeLookup struct {
	svc *youtube.Service
}

// NewYouTubeLookup creates a Data API client authenticated with apiKey.
func NewYouTubeLookup(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeLookup, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube.NewService: %w", err)
	}
	return &YouTubeLookup{svc: svc}, nil
}

func (y *YouTubeLookup) ChannelByID(ctx context.Context, id string) (*Match, error) {
	return y.firstChannel(y.svc.Channels.List([]string{"id", "snippet"}).Id(id).Context(ctx))
}

func (y *YouTubeLookup) ChannelByHandle(ctx context.Context, handle string) (*Match, error) {
	return y.firstChannel(y.svc.Channels.List([]string{"id", "snippet"}).ForHandle(handle).Context(ctx))
}

func (y *YouTubeLookup) ChannelByUsername(ctx context.Context, username string) (*Match, error) {
	return y.firstChannel(y.svc.Channels.List([]string{"id", "snippet"}).ForUsername(username).Context(ctx))
}

func (y *YouTubeLookup) SearchChannel(ctx context.Context, query string) (*Match, error) {
	resp, err := y.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("channel").
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("search.list: %w", err)
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return nil, nil
	}
	sn := resp.Items[0].Snippet
	return &Match{ID: sn.ChannelId, Title: sn.ChannelTitle}, nil
}

func (y *YouTubeLookup) firstChannel(call *youtube.ChannelsListCall) (*Match, error) {
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("channels.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	item := resp.Items[0]
	m := &Match{ID: item.Id}
	if item.Snippet != nil {
		m.Title = item.Snippet.Title
	}
	return m, nil
}

// maxVideoIDsPerCall is the Data API limit for videos.list ids.
const maxVideoIDsPerCall = 50

// Durations returns the playback length of each video id that the API knows.
func (y *YouTubeLookup) Durations(ctx context.Context, videoIDs []string) (map[string]time.Duration, error) {
	out := make(map[string]time.Duration, len(videoIDs))
	for start := 0; start < len(videoIDs); start += maxVideoIDsPerCall {
		end := min(start+maxVideoIDsPerCall, len(videoIDs))
		resp, err := y.svc.Videos.List([]string{"contentDetails"}).
			Id(videoIDs[start:end]...).
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("videos.list: %w", err)
		}
		for _, v := range resp.Items {
			if v.ContentDetails == nil {
				continue
			}
			if d, ok := ParseISODuration(v.ContentDetails.Duration); ok {
				out[v.Id] = d
			}
		}
	}
	return out, nil
}

var reISODuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration parses the ISO 8601 durations the Data API returns (e.g. "PT1H32M10S").
func ParseISODuration(s string) (time.Duration, bool) {
	m := reISODuration.FindStringSubmatch(s)
	if m == nil || s == "P" || s == "PT" {
		return 0, false
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, u := range units {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, false
		}
		d += time.Duration(n) * u
	}
	return d, true
}
