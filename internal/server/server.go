package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/config"
	"github.com/voyagen/channeldesk/internal/metrics"
	"github.com/voyagen/channeldesk/internal/models"
	"github.com/voyagen/channeldesk/internal/store"
)

// Resolver turns a channel URL into an identity.
type Resolver interface {
	Resolve(ctx context.Context, raw string) (models.Identity, error)
}

// Syncer ingests one channel synchronously.
type Syncer interface {
	Sync(ctx context.Context, id string) (models.SyncResult, error)
}

// SyncQueue schedules a sync for the background worker.
type SyncQueue interface {
	EnqueueSync(ctx context.Context, channelRef string) error
}

// Deps are the optional collaborators of a Server.
type Deps struct {
	Resolver Resolver  // nil: extract-details answers 503
	Syncer   Syncer    // required for /sync
	Queue    SyncQueue // nil: async syncs run inline
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	cfg      *config.Config
	resolver Resolver
	syncer   Syncer
	queue    SyncQueue
	metrics  *metrics.Metrics
	log      zerolog.Logger
	validate *validator.Validate
	mux      *http.ServeMux
}

// New creates a Server and registers routes.
func New(s store.Store, cfg *config.Config, deps Deps) *Server {
	m := deps.Metrics
	if m == nil {
		m = metrics.Default()
	}
	srv := &Server{
		store:    s,
		cfg:      cfg,
		resolver: deps.Resolver,
		syncer:   deps.Syncer,
		queue:    deps.Queue,
		metrics:  m,
		log:      deps.Logger,
		validate: newValidator(),
		mux:      http.NewServeMux(),
	}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Channels
	s.mux.HandleFunc("GET /api/channels", s.handleListChannels)
	s.mux.HandleFunc("POST /api/channels", s.handleCreateChannel)
	s.mux.HandleFunc("POST /api/channels/extract-details", s.handleExtractDetails)
	s.mux.HandleFunc("GET /api/channels/{id}", s.handleGetChannel)
	s.mux.HandleFunc("PUT /api/channels/{id}", s.handleUpdateChannel)
	s.mux.HandleFunc("DELETE /api/channels/{id}", s.handleDeleteChannel)

	// Sync and videos
	s.mux.HandleFunc("POST /api/sync/{id}", s.handleSync)
	s.mux.HandleFunc("GET /api/videos/by-channel", s.handleVideoCounts)

	// Settings store
	s.mux.HandleFunc("GET /api/settings/{key}", s.handleGetSetting)
	s.mux.HandleFunc("PUT /api/settings/{key}", s.handlePutSetting)

	// Docs and metrics
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// ServeHTTP implements http.Handler, including CORS and access logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	withCORS(s.withLogging(s.mux)).ServeHTTP(w, r)
}

// ListenAndServe serves on the configured port until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous syncs fetch a remote feed
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("server shutdown")
		}
	}()

	s.log.Info().Str("addr", addr).Msg("listening")
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
// Clients display Detail verbatim.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		s.log.Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}

// pathKey returns a trimmed, non-empty path parameter.
func pathKey(r *http.Request, name string) (string, error) {
	v := strings.TrimSpace(r.PathValue(name))
	if v == "" {
		return "", fmt.Errorf("%s is required", name)
	}
	return v, nil
}
