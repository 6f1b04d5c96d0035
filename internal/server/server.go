// Package server exposes the HTTP API: an on-demand provider poll, the last
// persisted usage per user, health, and Prometheus metrics.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yapay-ai/spendwatch/pkg/model"
	"github.com/yapay-ai/spendwatch/pkg/provider"
	"github.com/yapay-ai/spendwatch/pkg/store"
)

// Server provides the spendwatch HTTP API.
type Server struct {
	store       store.Store
	registry    *provider.Registry
	authToken   string
	pollTimeout time.Duration
	mux         *http.ServeMux
	logger      *slog.Logger
}

// NewServer creates an API server. registry drives the on-demand poll
// endpoint; promRegistry backs GET /metrics.
func NewServer(st store.Store, registry *provider.Registry, promRegistry *prometheus.Registry,
	authToken string, pollTimeout time.Duration, logger *slog.Logger) *Server {

	s := &Server{
		store:       st,
		registry:    registry,
		authToken:   authToken,
		pollTimeout: pollTimeout,
		mux:         http.NewServeMux(),
		logger:      logger,
	}
	s.routes(promRegistry)
	return s
}

func (s *Server) routes(promRegistry *prometheus.Registry) {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	s.mux.Handle("POST /api/v1/poll/{provider}", s.requireAuth(http.HandlerFunc(s.handlePoll)))
	s.mux.Handle("GET /api/v1/usage/{userId}", s.requireAuth(http.HandlerFunc(s.handleUsage)))
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// requireAuth checks the bearer token with a constant-time compare.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type pollRequest struct {
	Credential string `json:"credential"`
}

// handlePoll polls one provider with a caller-supplied credential and
// returns the normalized snapshot. Nothing is persisted.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	providerType := model.ProviderType(r.PathValue("provider"))

	var req pollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Credential == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "credential required"})
		return
	}

	adapter, err := s.registry.Get(providerType)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown provider: " + string(providerType)})
		return
	}

	ctx := r.Context()
	if s.pollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.pollTimeout)
		defer cancel()
	}

	snap, err := adapter.Poll(ctx, req.Credential)
	if err != nil {
		s.logger.Error("on-demand poll failed", "provider", providerType, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// handleUsage returns the last persisted snapshots for a user, keyed by
// provider ID. A user with no snapshots gets an empty object.
func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	snaps, err := s.store.UserSnapshots(ctx, r.PathValue("userId"))
	if err != nil {
		s.logger.Error("read user snapshots", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, snaps)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
