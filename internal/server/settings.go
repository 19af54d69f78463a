package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/voyagen/channeldesk/internal/store"
)

const maxSettingBytes = 1 << 20

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, err)
		return
	}
	raw, err := s.store.GetSetting(r.Context(), key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeErr(w, http.StatusNotFound, fmt.Errorf("setting %q not found", key))
			return
		}
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxSettingBytes))
	if err != nil {
		s.writeErr(w, http.StatusBadRequest, fmt.Errorf("read body: %w", err))
		return
	}
	if !json.Valid(body) {
		s.writeErr(w, http.StatusBadRequest, errors.New("setting value must be valid JSON"))
		return
	}
	if err := s.store.PutSetting(r.Context(), key, json.RawMessage(body)); err != nil {
		s.writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(body))
}
