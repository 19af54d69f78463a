package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/channeldesk/internal/models"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <title>Alpha Studios</title>
 <yt:channelId>UC123</yt:channelId>
 <entry>
  <id>yt:video:vid1</id>
  <yt:videoId>vid1</yt:videoId>
  <title> Full Movie </title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=vid1"/>
  <published>2026-10-01T10:00:00+00:00</published>
 </entry>
 <entry>
  <id>yt:video:vid2</id>
  <yt:videoId>vid2</yt:videoId>
  <title>Teaser</title>
  <link rel="alternate" href="https://www.youtube.com/shorts/vid2"/>
  <published>2026-10-02T10:00:00+00:00</published>
 </entry>
 <entry>
  <id>urn:other</id>
  <title>No id</title>
 </entry>
</feed>`

func TestParseFeed(t *testing.T) {
	entries, err := ParseFeed(strings.NewReader(sampleFeed))
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "vid1", entries[0].VideoID)
	assert.Equal(t, "Full Movie", entries[0].Title)
	assert.Equal(t, models.VideoKindVideo, entries[0].Kind)
	require.NotNil(t, entries[0].PublishedAt)
	assert.Equal(t, 2026, entries[0].PublishedAt.Year())

	assert.Equal(t, "vid2", entries[1].VideoID)
	assert.Equal(t, models.VideoKindShort, entries[1].Kind)
}

func TestKindFromURL(t *testing.T) {
	assert.Equal(t, models.VideoKindShort, KindFromURL("https://www.youtube.com/Shorts/abc"))
	assert.Equal(t, models.VideoKindVideo, KindFromURL("https://www.youtube.com/watch?v=abc"))
}

func TestFetchFeed(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	entries, err := FetchFeed(context.Background(), srv.URL, "ChannelDesk/test", 5*time.Second)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "ChannelDesk/test", gotUA)
}

func TestFetchFeed_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchFeed(context.Background(), srv.URL, "", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}
