package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/channeldesk/internal/apiclient"
	"github.com/voyagen/channeldesk/internal/config"
	"github.com/voyagen/channeldesk/internal/metrics"
	"github.com/voyagen/channeldesk/internal/models"
	"github.com/voyagen/channeldesk/internal/resolver"
	"github.com/voyagen/channeldesk/internal/server"
	"github.com/voyagen/channeldesk/internal/store"
)

type stubResolver struct{ byURL map[string]models.Identity }

func (s stubResolver) Resolve(_ context.Context, raw string) (models.Identity, error) {
	if id, ok := s.byURL[strings.TrimSpace(raw)]; ok {
		return id, nil
	}
	return models.Identity{}, resolver.ErrUnresolvable
}

type countingSyncer struct {
	mu    sync.Mutex
	calls []string
}

func (c *countingSyncer) Sync(_ context.Context, id string) (models.SyncResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, id)
	now := time.Now()
	return models.SyncResult{ID: id, NewItems: 5, SyncedAt: &now}, nil
}

func (c *countingSyncer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

type env struct {
	store  *store.Memory
	syncer *countingSyncer
	url    string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{store: store.NewMemory(), syncer: &countingSyncer{}}
	srv := server.New(e.store, &config.Config{}, server.Deps{
		Resolver: stubResolver{byURL: map[string]models.Identity{
			"https://www.youtube.com/@mythri": {ChannelName: "Mythri Movie Makers", ChannelID: "UCmythri", FeedURL: resolver.FeedURL("UCmythri")},
			"https://www.youtube.com/@mythri2": {ChannelName: "Mythri Official", ChannelID: "UCmythri2", FeedURL: resolver.FeedURL("UCmythri2")},
		}},
		Syncer:  e.syncer,
		Metrics: metrics.New(prometheus.NewRegistry()),
		Logger:  zerolog.Nop(),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	e.url = ts.URL + "/api"
	return e
}

func (e *env) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	client := apiclient.New(e.url, 5*time.Second, zerolog.Nop())
	err := newApp(client, strings.NewReader(stdin), &out, zerolog.Nop()).run(context.Background(), args)
	return out.String(), err
}

func (e *env) only(t *testing.T) models.Channel {
	t.Helper()
	list, err := e.store.ListChannels(context.Background(), store.ChannelFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	return list[0]
}

func TestAddResolvesPersistsAndSyncs(t *testing.T) {
	e := newEnv(t)
	out, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu,tamil", "-type", "movie", "-full-movies")
	require.NoError(t, err, out)
	assert.Contains(t, out, `created "Mythri Movie Makers"`)
	assert.Contains(t, out, "synced: 5 new items")

	ch := e.only(t)
	assert.Equal(t, "UCmythri", ch.ChannelID)
	assert.Equal(t, models.ChannelTypeMovie, ch.ChannelType)
	assert.Equal(t, []models.Language{models.LanguageTelugu, models.LanguageTamil}, ch.Languages)
	assert.True(t, ch.FullMoviesOnly)
	assert.False(t, ch.FetchShorts)
	assert.Equal(t, 1, e.syncer.count())
}

func TestAddDerivesShortsFromType(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu", "-type", "music_label")
	require.NoError(t, err)
	assert.True(t, e.only(t).FetchShorts)
}

func TestAddRejectsMissingLanguagesWithoutSaving(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri")
	require.EqualError(t, err, "select at least one language")

	list, _ := e.store.ListChannels(context.Background(), store.ChannelFilter{})
	assert.Empty(t, list)
	assert.Zero(t, e.syncer.count())
}

func TestAddUnresolvableURL(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@nobody", "-languages", "hindi")
	require.EqualError(t, err, resolver.ErrUnresolvable.Error())
}

func TestAddDuplicateShowsServerDetail(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu")
	require.NoError(t, err)
	_, err = e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Equal(t, 1, e.syncer.count())
}

func TestEditWithoutRefreshDoesNotSync(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu")
	require.NoError(t, err)
	id := e.only(t).ID

	out, err := e.run(t, "", "edit", "-id", id, "-languages", "hindi", "-active=false")
	require.NoError(t, err, out)
	ch := e.only(t)
	assert.Equal(t, []models.Language{models.LanguageHindi}, ch.Languages)
	assert.False(t, ch.IsActive)
	assert.Equal(t, 1, e.syncer.count())
}

func TestEditWithRefreshReplacesIdentityAndSyncs(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu,kannada", "-type", "news", "-shorts")
	require.NoError(t, err)
	before := e.only(t)

	out, err := e.run(t, "", "edit", "-id", before.ID, "-refresh", "https://www.youtube.com/@mythri2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "refreshed identity")

	after := e.only(t)
	assert.Equal(t, "Mythri Official", after.ChannelName)
	assert.Equal(t, "UCmythri2", after.ChannelID)
	assert.Equal(t, resolver.FeedURL("UCmythri2"), after.FeedURL)
	assert.Equal(t, before.ChannelType, after.ChannelType)
	assert.Equal(t, before.Languages, after.Languages)
	assert.Equal(t, before.FetchShorts, after.FetchShorts)
	assert.Equal(t, before.FetchVideos, after.FetchVideos)
	assert.Equal(t, before.IsActive, after.IsActive)
	assert.Equal(t, 2, e.syncer.count())
}

func TestListAndSearch(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu")
	require.NoError(t, err)
	_, err = e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri2", "-languages", "tamil")
	require.NoError(t, err)

	out, err := e.run(t, "", "list", "-language", "tamil")
	require.NoError(t, err)
	assert.Contains(t, out, "Mythri Official")
	assert.NotContains(t, out, "Mythri Movie Makers")

	out, err = e.run(t, "", "list", "-search", "MOVIE")
	require.NoError(t, err)
	assert.Contains(t, out, "Mythri Movie Makers")
	assert.NotContains(t, out, "Mythri Official")
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu")
	require.NoError(t, err)
	id := e.only(t).ID

	out, err := e.run(t, "n\n", "delete", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, `Delete channel "Mythri Movie Makers"?`)
	assert.Contains(t, out, "cancelled")
	e.only(t)

	out, err = e.run(t, "y\n", "delete", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	list, _ := e.store.ListChannels(context.Background(), store.ChannelFilter{})
	assert.Empty(t, list)
}

func TestSyncAndSettings(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "", "add", "-url", "https://www.youtube.com/@mythri", "-languages", "telugu")
	require.NoError(t, err)
	id := e.only(t).ID

	out, err := e.run(t, "", "sync", "-id", id)
	require.NoError(t, err)
	assert.Contains(t, out, "5 new items")

	_, err = e.run(t, "", "settings", "put", "ads", `{"enabled":false}`)
	require.NoError(t, err)
	out, err = e.run(t, "", "settings", "get", "ads")
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":false}`, out)

	_, err = e.run(t, "", "settings", "put", "ads", "{")
	require.Error(t, err)
}

func TestUsage(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "")
	require.ErrorIs(t, err, errUsage)
	_, err = e.run(t, "", "bogus")
	require.ErrorIs(t, err, errUsage)
}
