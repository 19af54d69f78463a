package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voyagen/channeldesk/internal/config"
	"github.com/voyagen/channeldesk/internal/metrics"
	"github.com/voyagen/channeldesk/internal/models"
	"github.com/voyagen/channeldesk/internal/resolver"
	"github.com/voyagen/channeldesk/internal/service"
	"github.com/voyagen/channeldesk/internal/store"
)

type fakeResolver struct {
	id  models.Identity
	err error
}

func (f fakeResolver) Resolve(_ context.Context, raw string) (models.Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return models.Identity{}, resolver.ErrEmptyURL
	}
	return f.id, f.err
}

type fakeSyncer struct {
	err   error
	calls []string
}

func (f *fakeSyncer) Sync(_ context.Context, id string) (models.SyncResult, error) {
	f.calls = append(f.calls, id)
	if f.err != nil {
		return models.SyncResult{}, f.err
	}
	return models.SyncResult{ID: id, NewItems: 3}, nil
}

type fakeQueue struct{ jobs []string }

func (q *fakeQueue) EnqueueSync(_ context.Context, ref string) error {
	q.jobs = append(q.jobs, ref)
	return nil
}

type harness struct {
	srv    *Server
	store  *store.Memory
	syncer *fakeSyncer
	queue  *fakeQueue
}

func newHarness(t *testing.T, res Resolver) *harness {
	t.Helper()
	h := &harness{store: store.NewMemory(), syncer: &fakeSyncer{}, queue: &fakeQueue{}}
	h.srv = New(h.store, &config.Config{ServerPort: "0"}, Deps{
		Resolver: res,
		Syncer:   h.syncer,
		Queue:    h.queue,
		Metrics:  metrics.New(prometheus.NewRegistry()),
		Logger:   zerolog.Nop(),
	})
	return h
}

func (h *harness) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const telugu = `{"channel_name":"Mythri Movie Makers","channel_id":"UCabc","feed_url":"https://example.com/ignored","channel_type":"production_house","languages":["telugu","telugu"],"fetch_shorts":true}`

func TestCreateChannel(t *testing.T) {
	h := newHarness(t, nil)

	rec := h.do(t, http.MethodPost, "/api/channels", telugu)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	ch := decode[models.Channel](t, rec)
	assert.NotEmpty(t, ch.ID)
	assert.Equal(t, resolver.FeedURL("UCabc"), ch.FeedURL)
	assert.Equal(t, []models.Language{models.LanguageTelugu}, ch.Languages)
	assert.True(t, ch.IsActive)
	assert.True(t, ch.FetchVideos)
	assert.True(t, ch.FetchShorts)
	assert.False(t, ch.FullMoviesOnly)
}

func TestCreateChannelConflicts(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/channels", telugu).Code)

	rec := h.do(t, http.MethodPost, "/api/channels", telugu)
	require.Equal(t, http.StatusConflict, rec.Code)
	apiErr := decode[APIError](t, rec)
	assert.Contains(t, apiErr.Detail, "Mythri Movie Makers")

	sameID := strings.Replace(telugu, "Mythri Movie Makers", "Other name", 1)
	rec = h.do(t, http.MethodPost, "/api/channels", sameID)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[APIError](t, rec).Detail, "UCabc")
}

func TestCreateChannelValidation(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{"bad json", `{`, "invalid JSON"},
		{"missing name", `{"channel_type":"news","languages":["hindi"]}`, "channel_name is required"},
		{"no languages", `{"channel_name":"x","channel_type":"news","languages":[]}`, "at least one language"},
		{"unknown type", `{"channel_name":"x","channel_type":"podcast","languages":["hindi"]}`, `unknown channel_type "podcast"`},
		{"unknown language", `{"channel_name":"x","channel_type":"news","languages":["klingon"]}`, `unknown language "klingon"`},
		{"half identity", `{"channel_name":"x","channel_id":"UC1","channel_type":"news","languages":["hindi"]}`, "must be set together"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			rec := h.do(t, http.MethodPost, "/api/channels", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[APIError](t, rec).Detail, tc.detail)
		})
	}
}

func TestCreateChannelWithoutIdentity(t *testing.T) {
	h := newHarness(t, nil)
	rec := h.do(t, http.MethodPost, "/api/channels", `{"channel_name":"Manual","channel_type":"news","languages":["tamil"]}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ch := decode[models.Channel](t, rec)
	assert.Empty(t, ch.ChannelID)
	assert.Empty(t, ch.FeedURL)
}

func TestListChannelsFilters(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/channels", telugu).Code)
	require.Equal(t, http.StatusCreated, h.do(t, http.MethodPost, "/api/channels",
		`{"channel_name":"NDTV","channel_id":"UCnews","feed_url":"x","channel_type":"news","languages":["hindi","english"]}`).Code)

	all := decode[[]models.Channel](t, h.do(t, http.MethodGet, "/api/channels", ""))
	assert.Len(t, all, 2)

	hindi := decode[[]models.Channel](t, h.do(t, http.MethodGet, "/api/channels?language=hindi", ""))
	require.Len(t, hindi, 1)
	assert.Equal(t, "NDTV", hindi[0].ChannelName)

	both := decode[[]models.Channel](t, h.do(t, http.MethodGet, "/api/channels?language=hindi&channel_type=production_house", ""))
	assert.Empty(t, both)

	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/channels?language=latin", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodGet, "/api/channels?channel_type=blog", "").Code)
}

func TestGetUpdateDeleteChannel(t *testing.T) {
	h := newHarness(t, nil)
	created := decode[models.Channel](t, h.do(t, http.MethodPost, "/api/channels", telugu))

	got := decode[models.Channel](t, h.do(t, http.MethodGet, "/api/channels/"+created.ID, ""))
	assert.Equal(t, created.ChannelName, got.ChannelName)

	rec := h.do(t, http.MethodPut, "/api/channels/"+created.ID,
		`{"channel_name":"Mythri","channel_id":"UCnew","feed_url":"x","channel_type":"movie","languages":["telugu","tamil"],"full_movies_only":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[models.Channel](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, resolver.FeedURL("UCnew"), updated.FeedURL)
	assert.True(t, updated.FullMoviesOnly)

	assert.Equal(t, http.StatusNoContent, h.do(t, http.MethodDelete, "/api/channels/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/channels/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodDelete, "/api/channels/"+created.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPut, "/api/channels/"+created.ID, telugu).Code)
}

func TestNonUUIDChannelIDIsNotFound(t *testing.T) {
	h := newHarness(t, nil)
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/channels/abc", ""},
		{http.MethodPut, "/api/channels/abc", telugu},
		{http.MethodDelete, "/api/channels/abc", ""},
		{http.MethodPost, "/api/sync/abc", ""},
		{http.MethodPost, "/api/sync/abc?async=true", ""},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := h.do(t, tc.method, tc.path, tc.body)
			require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
			assert.Equal(t, "channel not found", decode[APIError](t, rec).Detail)
		})
	}
	assert.Empty(t, h.syncer.calls)
	assert.Empty(t, h.queue.jobs)
}

func TestExtractDetails(t *testing.T) {
	want := models.Identity{ChannelName: "Mythri", ChannelID: "UCabc", FeedURL: resolver.FeedURL("UCabc")}

	t.Run("resolved", func(t *testing.T) {
		h := newHarness(t, fakeResolver{id: want})
		rec := h.do(t, http.MethodPost, "/api/channels/extract-details", `{"url":"https://www.youtube.com/@mythri"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, want, decode[models.Identity](t, rec))
	})
	t.Run("empty", func(t *testing.T) {
		h := newHarness(t, fakeResolver{id: want})
		assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPost, "/api/channels/extract-details", `{"url":"  "}`).Code)
	})
	t.Run("unresolvable", func(t *testing.T) {
		h := newHarness(t, fakeResolver{err: resolver.ErrUnresolvable})
		rec := h.do(t, http.MethodPost, "/api/channels/extract-details", `{"url":"https://example.com"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, resolver.ErrUnresolvable.Error(), decode[APIError](t, rec).Detail)
	})
	t.Run("upstream failure", func(t *testing.T) {
		h := newHarness(t, fakeResolver{err: errors.New("quota exceeded")})
		rec := h.do(t, http.MethodPost, "/api/channels/extract-details", `{"url":"https://www.youtube.com/@x"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "quota")
	})
	t.Run("not configured", func(t *testing.T) {
		h := newHarness(t, nil)
		assert.Equal(t, http.StatusServiceUnavailable, h.do(t, http.MethodPost, "/api/channels/extract-details", `{"url":"x"}`).Code)
	})
}

func TestSync(t *testing.T) {
	h := newHarness(t, nil)
	created := decode[models.Channel](t, h.do(t, http.MethodPost, "/api/channels", telugu))

	rec := h.do(t, http.MethodPost, "/api/sync/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[models.SyncResult](t, rec).NewItems)
	assert.Equal(t, []string{created.ID}, h.syncer.calls)

	rec = h.do(t, http.MethodPost, "/api/sync/"+created.ID+"?async=true", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decode[models.SyncResult](t, rec).Queued)
	assert.Equal(t, []string{created.ID}, h.queue.jobs)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/api/sync/"+uuid.NewString()+"?async=true", "").Code)

	h.syncer.err = service.ErrSyncInProgress
	rec = h.do(t, http.MethodPost, "/api/sync/"+created.ID, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, service.ErrSyncInProgress.Error(), decode[APIError](t, rec).Detail)

	h.syncer.err = store.ErrNotFound
	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodPost, "/api/sync/"+uuid.NewString(), "").Code)
}

func TestVideoCountsAndSettings(t *testing.T) {
	h := newHarness(t, nil)
	counts := decode[[]models.VideoCount](t, h.do(t, http.MethodGet, "/api/videos/by-channel", ""))
	assert.Empty(t, counts)

	assert.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/api/settings/theme", "").Code)
	assert.Equal(t, http.StatusBadRequest, h.do(t, http.MethodPut, "/api/settings/theme", "{nope").Code)

	rec := h.do(t, http.MethodPut, "/api/settings/theme", `{"dark":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodGet, "/api/settings/theme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"dark":true}`, rec.Body.String())
}

func TestHealthDocsAndCORS(t *testing.T) {
	h := newHarness(t, nil)
	assert.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/api/health", "").Code)

	rec := h.do(t, http.MethodGet, "/api/docs/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "openapi:")

	rec = h.do(t, http.MethodOptions, "/api/channels", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
