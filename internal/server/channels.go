package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/voyagen/channeldesk/internal/models"
	"github.com/voyagen/channeldesk/internal/resolver"
	"github.com/voyagen/channeldesk/internal/service"
	"github.com/voyagen/channeldesk/internal/store"
)

// channelRequest is the body of POST /channels and PUT /channels/{id}.
// Omitted booleans take the registration defaults.
type channelRequest struct {
	ChannelName    string             `json:"channel_name" validate:"required"`
	ChannelID      string             `json:"channel_id" validate:"required_with=FeedURL"`
	FeedURL        string             `json:"feed_url" validate:"required_with=ChannelID"`
	ChannelType    models.ChannelType `json:"channel_type" validate:"required,channel_type"`
	Languages      []models.Language  `json:"languages" validate:"min=1,dive,language"`
	IsActive       *bool              `json:"is_active"`
	FetchVideos    *bool              `json:"fetch_videos"`
	FetchShorts    *bool              `json:"fetch_shorts"`
	FullMoviesOnly bool               `json:"full_movies_only"`
}

func (req *channelRequest) normalize() {
	req.ChannelName = strings.TrimSpace(req.ChannelName)
	req.ChannelID = strings.TrimSpace(req.ChannelID)
	req.FeedURL = strings.TrimSpace(req.FeedURL)
}

func (req *channelRequest) channel(id string) *models.Channel {
	ch := &models.Channel{
		ID:             id,
		ChannelName:    req.ChannelName,
		ChannelID:      req.ChannelID,
		ChannelType:    req.ChannelType,
		Languages:      dedupeLanguages(req.Languages),
		IsActive:       boolOr(req.IsActive, true),
		FetchVideos:    boolOr(req.FetchVideos, true),
		FetchShorts:    boolOr(req.FetchShorts, false),
		FullMoviesOnly: req.FullMoviesOnly,
	}
	// feed_url is owned by the resolver: always derived from channel_id.
	if ch.ChannelID != "" {
		ch.FeedURL = resolver.FeedURL(ch.ChannelID)
	}
	return ch
}

func (s *Server) decodeChannel(w http.ResponseWriter, r *http.Request) (*channelRequest, bool) {
	var req channelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return nil, false
	}
	req.normalize()
	if err := s.validate.Struct(&req); err != nil {
		s.writeErr(w, http.StatusBadRequest, validationDetail(err))
		return nil, false
	}
	return &req, true
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.ChannelFilter
	if v := q.Get("language"); v != "" {
		l := models.Language(v)
		if !l.Valid() {
			s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid language: %s", v))
			return
		}
		filter.Language = &l
	}
	if v := q.Get("channel_type"); v != "" {
		t := models.ChannelType(v)
		if !t.Valid() {
			s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid channel_type: %s", v))
			return
		}
		filter.ChannelType = &t
	}

	channels, err := s.store.ListChannels(r.Context(), filter)
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if channels == nil {
		channels = []models.Channel{}
	}
	writeJSON(w, http.StatusOK, channels)
}

type extractRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleExtractDetails(w http.ResponseWriter, r *http.Request) {
	if s.resolver == nil {
		s.writeErr(w, http.StatusServiceUnavailable, errors.New("channel lookup is not configured (YOUTUBE_API_KEY not set)"))
		return
	}
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	id, err := s.resolver.Resolve(r.Context(), req.URL)
	switch {
	case err == nil:
		s.metrics.ResolveTotal.WithLabelValues("ok").Inc()
		writeJSON(w, http.StatusOK, id)
	case errors.Is(err, resolver.ErrEmptyURL):
		s.writeErr(w, http.StatusBadRequest, err)
	case errors.Is(err, resolver.ErrUnresolvable):
		s.metrics.ResolveTotal.WithLabelValues("unresolvable").Inc()
		s.writeErr(w, http.StatusUnprocessableEntity, err)
	default:
		s.metrics.ResolveTotal.WithLabelValues("error").Inc()
		s.log.Error().Err(err).Str("url", req.URL).Msg("resolve failed")
		s.writeErr(w, http.StatusBadGateway, errors.New("could not reach the video platform, try again later"))
	}
}

func (s *Server) handleCreateChannel(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChannel(w, r)
	if !ok {
		return
	}
	created, err := s.store.CreateChannel(r.Context(), req.channel(uuid.NewString()))
	if err != nil {
		s.writeStoreErr(w, err)
		return
	}
	s.log.Info().Str("id", created.ID).Str("channel_id", created.ChannelID).Msg("channel created")
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.channelKey(w, r)
	if !ok {
		return
	}
	ch, err := s.store.GetChannel(r.Context(), id)
	if err != nil {
		s.writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ch)
}

func (s *Server) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.channelKey(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeChannel(w, r)
	if !ok {
		return
	}
	updated, err := s.store.UpdateChannel(r.Context(), id, req.channel(id))
	if err != nil {
		s.writeStoreErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.channelKey(w, r)
	if !ok {
		return
	}
	if err := s.store.DeleteChannel(r.Context(), id); err != nil {
		s.writeStoreErr(w, err)
		return
	}
	s.log.Info().Str("id", id).Msg("channel deleted")
	writeNoContent(w)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	id, ok := s.channelKey(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("async") == "true" && s.queue != nil {
		if _, err := s.store.GetChannel(r.Context(), id); err != nil {
			s.writeStoreErr(w, err)
			return
		}
		if err := s.queue.EnqueueSync(r.Context(), id); err != nil {
			s.writeErr(w, http.StatusInternalServerError, fmt.Errorf("enqueue sync: %w", err))
			return
		}
		s.metrics.SyncQueued.Inc()
		writeJSON(w, http.StatusAccepted, models.SyncResult{ID: id, Queued: true})
		return
	}

	res, err := s.syncer.Sync(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, service.ErrSyncInProgress), errors.Is(err, service.ErrInactive), errors.Is(err, service.ErrNoFeed):
		s.writeErr(w, http.StatusConflict, err)
	default:
		s.writeStoreErr(w, err)
	}
}

func (s *Server) handleVideoCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.VideoCounts(r.Context())
	if err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if counts == nil {
		counts = []models.VideoCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

// channelKey reads the {id} path parameter. Ids are UUIDs, so anything else
// names no channel.
func (s *Server) channelKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := pathKey(r, "id")
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, err)
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		s.writeStoreErr(w, store.ErrNotFound)
		return "", false
	}
	return id, true
}

// writeStoreErr maps store sentinels to statuses; conflicts carry their user-facing message.
func (s *Server) writeStoreErr(w http.ResponseWriter, err error) {
	var conflict *store.ConflictError
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeErr(w, http.StatusNotFound, errors.New("channel not found"))
	case errors.As(err, &conflict):
		s.writeErr(w, http.StatusConflict, errors.New(conflict.Message))
	default:
		s.writeErr(w, http.StatusInternalServerError, err)
	}
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func dedupeLanguages(in []models.Language) []models.Language {
	seen := make(map[models.Language]bool, len(in))
	out := make([]models.Language, 0, len(in))
	for _, l := range in {
		if seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	return out
}
