// Package health serves the read-only liveness endpoint. It observes
// storage through read queries only and can never stall counter allocation
// in the processing loop.
package health

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Modern-Society-Labs/lcore-node/internal/version"
	"github.com/Modern-Society-Labs/lcore-node/pkg/store"
)

// Server is the liveness HTTP server.
type Server struct {
	store  *store.Store
	logger *slog.Logger
}

// NewServer creates a liveness server over the given store.
func NewServer(s *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: s, logger: logger}
}

// RegisterRoutes registers the liveness routes.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

type healthzResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := healthzResponse{Status: "ok", Version: version.String()}
	code := http.StatusOK

	if err := s.store.Ping(); err != nil {
		s.logger.Error("health check storage ping failed", "error", err)
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
