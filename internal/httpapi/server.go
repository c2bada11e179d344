// Package httpapi exposes the bot's debug and operational HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okonst/taskmate/internal/database"
	"github.com/okonst/taskmate/internal/observability"
	"github.com/okonst/taskmate/internal/vkteams"
)

// SelfGetter proxies the gateway's bot-account info.
type SelfGetter interface {
	SelfGet(ctx context.Context) (*vkteams.BotInfo, error)
}

// EventFetcher fetches gateway events for manual inspection. Calls made
// here never advance the dispatcher's cursor.
type EventFetcher interface {
	FetchEvents(ctx context.Context, lastEventID int64, pollTimeout time.Duration) ([]vkteams.Event, error)
}

// Server serves /bot/self, /bot/events, /healthz, and /metrics.
type Server struct {
	logger  *slog.Logger
	addr    string
	gateway SelfGetter
	events  EventFetcher
	store   database.Store
}

// New creates the HTTP server.
func New(logger *slog.Logger, addr string, gateway SelfGetter, events EventFetcher, store database.Store) *Server {
	return &Server{
		logger:  logger.With("component", "httpapi"),
		addr:    addr,
		gateway: gateway,
		events:  events,
		store:   store,
	}
}

// Router builds the chi router for the debug surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/bot/self", s.handleSelf)
	r.Get("/bot/events", s.handleEvents)

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleSelf(w http.ResponseWriter, r *http.Request) {
	info, err := s.gateway.SelfGet(r.Context())
	if err != nil {
		s.logger.Error("Failed to fetch bot info", "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	// Zero cursor and a short poll: returns whatever the gateway replays
	// without blocking the caller for a full poll window.
	events, err := s.events.FetchEvents(r.Context(), 0, time.Second)
	if err != nil {
		s.logger.Error("Failed to fetch events", "error", err)
		respondJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
